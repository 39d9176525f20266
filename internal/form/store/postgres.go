package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	id "formflow/pkg/domain"
	"formflow/pkg/platform/sentinel"
)

// identPattern restricts table and column names to plain SQL identifiers.
// Names come from definitions registered at startup, never from respondents;
// the check turns a misconfigured definition into a loud error instead of
// broken SQL.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PostgresRecordStore implements RecordStore over database/sql (pgx stdlib
// driver). Each form's table is a wide table with one column per field; the
// record id column is text.
type PostgresRecordStore struct {
	db *sql.DB
}

func NewPostgresRecordStore(db *sql.DB) *PostgresRecordStore {
	return &PostgresRecordStore{db: db}
}

// Create inserts a row and returns the generated identifier. Generated ids
// always live in the table's id column; Update and Read take an explicit
// idColumn because field-patch forms may address pre-existing tables keyed
// differently.
func (s *PostgresRecordStore) Create(ctx context.Context, table string, fields Fields) (id.RecordID, error) {
	cols, args, err := orderedColumns(table, fields)
	if err != nil {
		return "", err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING id::text",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	var recordID string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&recordID); err != nil {
		return "", fmt.Errorf("create record in %s: %w", table, err)
	}
	return id.RecordID(recordID), nil
}

func (s *PostgresRecordStore) Update(ctx context.Context, table, idColumn string, recordID id.RecordID, fields Fields) error {
	cols, args, err := orderedColumns(table, fields)
	if err != nil {
		return err
	}
	if err := checkIdent(idColumn); err != nil {
		return err
	}
	assignments := make([]string, len(cols))
	for i, col := range cols {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(assignments, ", "), idColumn, len(cols)+1,
	)
	res, err := s.db.ExecContext(ctx, query, append(args, recordID.String())...)
	if err != nil {
		return fmt.Errorf("update record in %s: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresRecordStore) Read(ctx context.Context, table, idColumn string, recordID id.RecordID) (Fields, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if err := checkIdent(idColumn); err != nil {
		return nil, err
	}
	// row_to_json keeps the store schema-agnostic: the engine re-types the
	// fields it knows about and ignores the rest.
	query := fmt.Sprintf("SELECT row_to_json(t) FROM %s t WHERE %s = $1", table, idColumn)
	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, recordID.String()).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("read record from %s: %w", table, err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode record from %s: %w", table, err)
	}
	return fields, nil
}

func (s *PostgresRecordStore) Insert(ctx context.Context, table string, fields Fields) error {
	cols, args, err := orderedColumns(table, fields)
	if err != nil {
		return err
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert record into %s: %w", table, err)
	}
	return nil
}

// orderedColumns validates identifiers and produces a deterministic
// column/argument ordering.
func orderedColumns(table string, fields Fields) ([]string, []any, error) {
	if err := checkIdent(table); err != nil {
		return nil, nil, err
	}
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if err := checkIdent(col); err != nil {
			return nil, nil, err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = fields[col]
	}
	return cols, args, nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid sql identifier %q", name)
	}
	return nil
}
