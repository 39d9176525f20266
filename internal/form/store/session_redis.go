package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"formflow/internal/form/models"
	platformredis "formflow/internal/platform/redis"
	id "formflow/pkg/domain"
	"formflow/pkg/platform/sentinel"
)

// RedisSessionStore keeps session snapshots in Redis with a sliding TTL, so
// an abandoned session disappears on its own and a reconnecting respondent
// finds their state on any instance behind the load balancer.
type RedisSessionStore struct {
	client *platformredis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *platformredis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(sessionID id.SessionID) string {
	return "formflow:session:" + sessionID.String()
}

func (s *RedisSessionStore) Save(ctx context.Context, snapshot models.SessionSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(snapshot.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", sentinel.ErrUnavailable)
	}
	return nil
}

func (s *RedisSessionStore) Find(ctx context.Context, sessionID id.SessionID) (models.SessionSnapshot, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.SessionSnapshot{}, sentinel.ErrNotFound
		}
		return models.SessionSnapshot{}, fmt.Errorf("find session: %w", sentinel.ErrUnavailable)
	}
	var snapshot models.SessionSnapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return models.SessionSnapshot{}, fmt.Errorf("decode session snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", sentinel.ErrUnavailable)
	}
	return nil
}
