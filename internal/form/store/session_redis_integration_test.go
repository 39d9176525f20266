//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formflow/internal/form/models"
	"formflow/internal/form/store"
	"formflow/internal/platform/config"
	platformredis "formflow/internal/platform/redis"
	id "formflow/pkg/domain"
	"formflow/pkg/platform/sentinel"
	"formflow/pkg/testutil/containers"
)

func TestRedisSessionStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)

	client, err := platformredis.New(config.RedisConfig{URL: rc.URL})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	s := store.NewRedisSessionStore(client, time.Minute)

	t.Run("save and find round-trips snapshot", func(t *testing.T) {
		snap := models.SessionSnapshot{
			ID:       id.NewSessionID(),
			FormType: id.FormType("onboarding"),
			State:    models.StateAnswering,
			Index:    3,
			Answers:  map[string]any{"full_name": "Ada", "headcount": float64(12)},
			RecordID: id.RecordID("rec-1"),
		}
		require.NoError(t, s.Save(ctx, snap))

		found, err := s.Find(ctx, snap.ID)
		require.NoError(t, err)
		assert.Equal(t, snap.ID, found.ID)
		assert.Equal(t, snap.FormType, found.FormType)
		assert.Equal(t, models.StateAnswering, found.State)
		assert.Equal(t, 3, found.Index)
		assert.Equal(t, "Ada", found.Answers["full_name"])
		assert.Equal(t, snap.RecordID, found.RecordID)
	})

	t.Run("find unknown session", func(t *testing.T) {
		_, err := s.Find(ctx, id.NewSessionID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete removes session", func(t *testing.T) {
		snap := models.SessionSnapshot{ID: id.NewSessionID(), State: models.StateAnswering}
		require.NoError(t, s.Save(ctx, snap))
		require.NoError(t, s.Delete(ctx, snap.ID))

		_, err := s.Find(ctx, snap.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("snapshot expires after ttl", func(t *testing.T) {
		short := store.NewRedisSessionStore(client, time.Second)
		snap := models.SessionSnapshot{ID: id.NewSessionID(), State: models.StateAnswering}
		require.NoError(t, short.Save(ctx, snap))

		assert.Eventually(t, func() bool {
			_, err := short.Find(ctx, snap.ID)
			return err != nil
		}, 5*time.Second, 200*time.Millisecond)
	})
}
