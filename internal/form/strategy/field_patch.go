package strategy

import (
	"context"
	"fmt"

	"formflow/internal/form/models"
	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	domainerrors "formflow/pkg/domain-errors"
)

// FieldPatch edits a record that already exists, patching one column per
// commit. There is no create step and no status transition; sessions for
// field-patch forms must open with a record id.
type FieldPatch struct {
	records store.RecordStore
}

func NewFieldPatch(records store.RecordStore) *FieldPatch {
	return &FieldPatch{records: records}
}

func (s *FieldPatch) FirstCommit(_ context.Context, def *models.FormDefinition, _ store.Fields) (id.RecordID, error) {
	return "", domainerrors.New(domainerrors.CodeConfiguration,
		fmt.Sprintf("field-patch form %s requires an existing record id", def.Type))
}

func (s *FieldPatch) Commit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) error {
	if err := s.records.Update(ctx, def.Storage.Table, def.Storage.IDColumn, recordID, fields); err != nil {
		return domainerrors.Wrap(domainerrors.CodePersistence, fmt.Sprintf("patch record %s", recordID), err)
	}
	return nil
}

func (s *FieldPatch) Submit(ctx context.Context, def *models.FormDefinition, recordID id.RecordID, fields store.Fields) (id.RecordID, error) {
	if err := s.Commit(ctx, def, recordID, fields); err != nil {
		return "", err
	}
	return recordID, nil
}
