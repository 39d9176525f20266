package strategy

import (
	"context"
	"fmt"

	"formflow/internal/form/models"
	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// DraftUpdate creates a draft row on the first committed answer, patches it
// on every subsequent commit, and flips its status column to submitted on the
// terminal write. The draft row survives cancellation, which is what makes
// resume possible.
type DraftUpdate struct {
	records store.RecordStore
}

func NewDraftUpdate(records store.RecordStore) *DraftUpdate {
	return &DraftUpdate{records: records}
}

func (s *DraftUpdate) FirstCommit(ctx context.Context, def *models.FormDefinition, fields store.Fields) (id.RecordID, error) {
	recordID, err := s.records.Create(ctx, def.Storage.Table, withField(fields, def.Storage.StatusField, StatusDraft))
	if err != nil {
		return "", domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("create draft in %s", def.Storage.Table), err)
	}
	return recordID, nil
}

func (s *DraftUpdate) Commit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) error {
	if err := s.records.Update(ctx, def.Storage.Table, def.Storage.IDColumn, recordID, fields); err != nil {
		return domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("update draft %s", recordID), err)
	}
	return nil
}

func (s *DraftUpdate) Submit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) (id.RecordID, error) {
	if recordID.IsZero() {
		// No answer was ever committed, so no draft exists. Submit still
		// needs a row to land in.
		created, err := s.records.Create(ctx, def.Storage.Table, withField(fields, def.Storage.StatusField, StatusSubmitted))
		if err != nil {
			return "", domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("create submitted record in %s", def.Storage.Table), err)
		}
		return created, nil
	}
	if err := s.records.Update(ctx, def.Storage.Table, def.Storage.IDColumn, recordID, withField(fields, def.Storage.StatusField, StatusSubmitted)); err != nil {
		return "", domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("submit record %s", recordID), err)
	}
	return recordID, nil
}
