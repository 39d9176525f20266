package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "formflow/pkg/domain"
)

// PostgresStore persists audit events in the form_audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts a batch of events in one round trip using unnest instead of
// per-row inserts. Duplicate event ids are ignored so redelivery from the
// worker stays idempotent.
func (s *PostgresStore) Append(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, len(events))
	sessionIDs := make([]string, len(events))
	formTypes := make([]string, len(events))
	recordIDs := make([]string, len(events))
	actions := make([]string, len(events))
	questionIDs := make([]string, len(events))
	fields := make([]string, len(events))
	requestIDs := make([]string, len(events))
	clientIPs := make([]string, len(events))
	userAgents := make([]string, len(events))
	details := make([]string, len(events))
	occurredAt := make([]time.Time, len(events))

	for i, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		ids[i] = event.ID
		sessionIDs[i] = event.SessionID.String()
		formTypes[i] = event.FormType.String()
		recordIDs[i] = event.RecordID.String()
		actions[i] = string(event.Action)
		questionIDs[i] = event.QuestionID
		fields[i] = event.Field
		requestIDs[i] = event.RequestID
		clientIPs[i] = event.ClientIP
		userAgents[i] = event.UserAgent
		details[i] = event.Detail
		occurredAt[i] = event.Timestamp
	}

	query := `
		INSERT INTO form_audit_events (
			id, session_id, form_type, record_id, action,
			question_id, field, request_id, client_ip, user_agent,
			detail, occurred_at
		)
		SELECT
			unnest($1::uuid[]), unnest($2::uuid[]), unnest($3::text[]),
			unnest($4::text[]), unnest($5::text[]), unnest($6::text[]),
			unnest($7::text[]), unnest($8::text[]), unnest($9::text[]),
			unnest($10::text[]), unnest($11::text[]), unnest($12::timestamptz[])
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		pq.Array(ids), pq.Array(sessionIDs), pq.Array(formTypes),
		pq.Array(recordIDs), pq.Array(actions), pq.Array(questionIDs),
		pq.Array(fields), pq.Array(requestIDs), pq.Array(clientIPs),
		pq.Array(userAgents), pq.Array(details), pq.Array(occurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert audit events batch: %w", err)
	}
	return nil
}

// ListBySession returns a session's events oldest first.
func (s *PostgresStore) ListBySession(ctx context.Context, sessionID id.SessionID) ([]Event, error) {
	query := `
		SELECT id, session_id, form_type, record_id, action,
		       question_id, field, request_id, client_ip, user_agent,
		       detail, occurred_at
		FROM form_audit_events
		WHERE session_id = $1
		ORDER BY occurred_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			event               Event
			sessionRaw, typeRaw string
			recordRaw           string
			actionRaw           string
		)
		if err := rows.Scan(
			&event.ID, &sessionRaw, &typeRaw, &recordRaw, &actionRaw,
			&event.QuestionID, &event.Field, &event.RequestID, &event.ClientIP,
			&event.UserAgent, &event.Detail, &event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		parsed, err := id.ParseSessionID(sessionRaw)
		if err != nil {
			return nil, fmt.Errorf("scan audit event session id: %w", err)
		}
		event.SessionID = parsed
		event.FormType = id.FormType(typeRaw)
		event.RecordID = id.RecordID(recordRaw)
		event.Action = Action(actionRaw)
		out = append(out, event)
	}
	return out, rows.Err()
}
