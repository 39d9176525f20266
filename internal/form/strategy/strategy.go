// Package strategy implements the three persistence timing policies that sit
// between the navigation state machine and the record store. All three share
// the same state machine; they differ only in when writes happen.
package strategy

import (
	"context"

	"formflow/internal/form/models"
	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// Record status values written by the draft-and-update strategy.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Strategy is one persistence timing policy. The caller owns field
// canonicalization and audit serialization; a strategy only decides which
// store operation carries them and what bookkeeping columns ride along.
type Strategy interface {
	// FirstCommit persists the first committed answer of a session that has
	// no durable record yet. Returns the new record id, or an empty id when
	// the policy defers all writes to submit.
	FirstCommit(ctx context.Context, def *models.FormDefinition, fields store.Fields) (id.RecordID, error)
	// Commit persists one subsequent answer against an existing record.
	Commit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) error
	// Submit performs the terminal write carrying every visible field.
	// Returns the record id the submission ended up under.
	Submit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) (id.RecordID, error)
}

// ForKind returns the strategy implementation for a definition's declared
// policy.
func ForKind(kind models.StrategyKind, records store.RecordStore) (Strategy, error) {
	switch kind {
	case models.StrategyDraftUpdate:
		return &DraftUpdate{records: records}, nil
	case models.StrategyFieldPatch:
		return &FieldPatch{records: records}, nil
	case models.StrategyInsertOnce:
		return &InsertOnce{records: records}, nil
	default:
		return nil, domainerrors.New(domainerrors.CodeConfiguration, "unknown persistence strategy: "+string(kind))
	}
}

func withField(fields store.Fields, column string, value any) store.Fields {
	out := make(store.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[column] = value
	return out
}
