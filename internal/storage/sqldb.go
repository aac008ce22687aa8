package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Schema is a backend's fixed DDL. Statements run in order.
type Schema struct {
	Create []string
	Drop   []string
}

// SQLBuilder supplies the backend-specific statements for SQLStore.
type SQLBuilder interface {
	InsertSQL(t Table, p ConflictPolicy) (string, error)
	LookupSQL() string
	CountSQL(t Table) string
	// Bind converts a row value into something the driver accepts.
	Bind(v any) any
}

// SQLStore implements Store over database/sql for backends without a
// native driver API of their own (sqlite, mssql).
type SQLStore struct {
	db     *sql.DB
	b      SQLBuilder
	schema Schema
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open *sql.DB.
func NewSQLStore(db *sql.DB, b SQLBuilder, schema Schema) *SQLStore {
	return &SQLStore{db: db, b: b, schema: schema}
}

// DB exposes the underlying handle, mainly for tests.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Wrap("begin", "", err)
	}
	return &sqlTx{tx: tx, b: s.b, stmts: map[string]*sql.Stmt{}}, nil
}

func (s *SQLStore) CreateSchema(ctx context.Context) error {
	return s.execAll(ctx, "create schema", s.schema.Create)
}

func (s *SQLStore) DropSchema(ctx context.Context) error {
	return s.execAll(ctx, "drop schema", s.schema.Drop)
}

func (s *SQLStore) execAll(ctx context.Context, op string, stmts []string) error {
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return Wrap(op, "", fmt.Errorf("%w (statement: %s)", err, q))
		}
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context, t Table) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.b.CountSQL(t)).Scan(&n); err != nil {
		return 0, Wrap("count", t.Name, err)
	}
	return n, nil
}

func (s *SQLStore) Close() { _ = s.db.Close() }

// sqlTx caches one prepared statement per (table, policy) for the life of
// the transaction.
type sqlTx struct {
	tx    *sql.Tx
	b     SQLBuilder
	stmts map[string]*sql.Stmt
}

func (t *sqlTx) stmt(ctx context.Context, key, query string) (*sql.Stmt, error) {
	if st, ok := t.stmts[key]; ok {
		return st, nil
	}
	st, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	t.stmts[key] = st
	return st, nil
}

func (t *sqlTx) Write(ctx context.Context, table Table, policy ConflictPolicy, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, err := t.b.InsertSQL(table, policy)
	if err != nil {
		return 0, Wrap("write", table.Name, err)
	}
	st, err := t.stmt(ctx, table.Name+"/"+policy.String(), q)
	if err != nil {
		return 0, Wrap("prepare", table.Name, err)
	}

	var n int64
	args := make([]any, len(table.Columns))
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return n, Wrap("write", table.Name, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(table.Columns)))
		}
		for j, v := range row {
			args[j] = t.b.Bind(v)
		}
		if _, err := st.ExecContext(ctx, args...); err != nil {
			return n, Wrap("write", table.Name, fmt.Errorf("row %d: %w", i, err))
		}
		n++
	}
	return n, nil
}

func (t *sqlTx) LookupSong(ctx context.Context, title, artist string, duration float64) (string, string, bool, error) {
	st, err := t.stmt(ctx, "lookup", t.b.LookupSQL())
	if err != nil {
		return "", "", false, Wrap("prepare", Songs.Name, err)
	}
	var songID, artistID string
	err = st.QueryRowContext(ctx, title, artist, duration).Scan(&songID, &artistID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, Wrap("lookup", Songs.Name, err)
	}
	return songID, artistID, true, nil
}

func (t *sqlTx) Commit(_ context.Context) error {
	return Wrap("commit", "", t.tx.Commit())
}

func (t *sqlTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return Wrap("rollback", "", err)
}
