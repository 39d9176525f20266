package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// kafkaEvent is the wire shape published to the audit topic.
type kafkaEvent struct {
	ID         string `json:"id"`
	Timestamp  string `json:"timestamp"`
	SessionID  string `json:"session_id"`
	FormType   string `json:"form_type"`
	RecordID   string `json:"record_id,omitempty"`
	Action     string `json:"action"`
	QuestionID string `json:"question_id,omitempty"`
	Field      string `json:"field,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	ClientIP   string `json:"client_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// KafkaPublisher forwards audit events to the event pipeline. Records are
// keyed by session id so one session's history stays ordered within a
// partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := admin.CreateTopic(ensureCtx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, resp.Err)
	}

	return &KafkaPublisher{client: client, topic: topic}, nil
}

// Append publishes a batch synchronously so the worker's retry/drop decision
// sees real broker outcomes.
func (p *KafkaPublisher) Append(ctx context.Context, events []Event) error {
	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(kafkaEvent{
			ID:         event.ID,
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
			SessionID:  event.SessionID.String(),
			FormType:   event.FormType.String(),
			RecordID:   event.RecordID.String(),
			Action:     string(event.Action),
			QuestionID: event.QuestionID,
			Field:      event.Field,
			RequestID:  event.RequestID,
			ClientIP:   event.ClientIP,
			UserAgent:  event.UserAgent,
			Detail:     event.Detail,
		})
		if err != nil {
			return fmt.Errorf("marshal audit event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(event.SessionID.String()),
			Value: payload,
			Topic: p.topic,
		})
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish audit events: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}

var _ Sink = (*KafkaPublisher)(nil)
