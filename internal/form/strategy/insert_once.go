package strategy

import (
	"context"
	"fmt"

	"formflow/internal/form/models"
	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// InsertOnce performs no writes during navigation. Answers accumulate in the
// session snapshot and a single insert fires on submit; abandoning the form
// before then leaves no trace in the record store.
type InsertOnce struct {
	records store.RecordStore
}

func NewInsertOnce(records store.RecordStore) *InsertOnce {
	return &InsertOnce{records: records}
}

func (s *InsertOnce) FirstCommit(context.Context, *models.FormDefinition, store.Fields) (id.RecordID, error) {
	return "", nil
}

func (s *InsertOnce) Commit(context.Context, *models.FormDefinition, id.RecordID, store.Fields) error {
	return nil
}

func (s *InsertOnce) Submit(ctx context.Context, def *models.FormDefinition, _ id.RecordID, fields store.Fields) (id.RecordID, error) {
	if err := s.records.Insert(ctx, def.Storage.Table, fields); err != nil {
		return "", domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("insert record into %s", def.Storage.Table), err)
	}
	return "", nil
}
