//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formflow/internal/form/store"
	id "formflow/pkg/domain"
	"formflow/pkg/platform/sentinel"
	"formflow/pkg/testutil/containers"
)

func TestPostgresRecordStore(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	_, err := pg.DB.ExecContext(ctx, `
		CREATE TABLE onboarding (
			id         TEXT PRIMARY KEY DEFAULT replace(gen_random_uuid()::text, '-', ''),
			full_name  TEXT,
			email      TEXT,
			headcount  DOUBLE PRECISION,
			status     TEXT,
			audit      TEXT
		)`)
	require.NoError(t, err)

	_, err = pg.DB.ExecContext(ctx, `
		CREATE TABLE leads (
			lead_id  TEXT PRIMARY KEY,
			email    TEXT,
			phone    TEXT
		)`)
	require.NoError(t, err)

	s := store.NewPostgresRecordStore(pg.DB)

	t.Run("create returns generated id", func(t *testing.T) {
		recordID, err := s.Create(ctx, "onboarding", store.Fields{"full_name": "Ada Lovelace", "status": "draft"})
		require.NoError(t, err)
		require.NotEmpty(t, recordID)

		row, err := s.Read(ctx, "onboarding", "id", recordID)
		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", row["full_name"])
		assert.Equal(t, "draft", row["status"])
	})

	t.Run("update patches only given columns", func(t *testing.T) {
		recordID, err := s.Create(ctx, "onboarding", store.Fields{"full_name": "Ada", "status": "draft"})
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "onboarding", "id", recordID, store.Fields{"headcount": float64(12)}))

		row, err := s.Read(ctx, "onboarding", "id", recordID)
		require.NoError(t, err)
		assert.Equal(t, "Ada", row["full_name"])
		assert.Equal(t, float64(12), row["headcount"])
	})

	t.Run("update unknown id", func(t *testing.T) {
		err := s.Update(ctx, "onboarding", "id", id.RecordID("no-such-row"), store.Fields{"status": "submitted"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("read unknown id", func(t *testing.T) {
		_, err := s.Read(ctx, "onboarding", "id", id.RecordID("no-such-row"))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("custom id column", func(t *testing.T) {
		_, err := pg.DB.ExecContext(ctx, `INSERT INTO leads (lead_id, email) VALUES ('lead-42', 'ada@example.com')`)
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, "leads", "lead_id", id.RecordID("lead-42"), store.Fields{"phone": "+44 20 7946 0000"}))

		row, err := s.Read(ctx, "leads", "lead_id", id.RecordID("lead-42"))
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", row["email"])
		assert.Equal(t, "+44 20 7946 0000", row["phone"])
	})

	t.Run("insert without returned id", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, "leads", store.Fields{"lead_id": "lead-43", "email": "grace@example.com"}))

		row, err := s.Read(ctx, "leads", "lead_id", id.RecordID("lead-43"))
		require.NoError(t, err)
		assert.Equal(t, "grace@example.com", row["email"])
	})

	t.Run("rejects invalid identifiers", func(t *testing.T) {
		_, err := s.Create(ctx, "onboarding; DROP TABLE onboarding", store.Fields{"status": "draft"})
		assert.Error(t, err)

		_, err = s.Create(ctx, "onboarding", store.Fields{"status\"; --": "draft"})
		assert.Error(t, err)
	})
}
