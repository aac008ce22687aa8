// Package postgres implements the PostgreSQL storage backend using pgx v5.
// A Store wraps a pgxpool.Pool; each Tx queues its writes for one table in a
// pgx.Batch so a file's rows reach the server in a single round trip per
// table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
)

// poolLike is the subset of *pgxpool.Pool the store uses. Tests inject a
// fake.
type poolLike interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Dialect is PostgreSQL's identifier quoting and $n bind syntax.
type Dialect struct{}

func (Dialect) Quote(id string) string   { return storage.QuoteDouble(id) }
func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// Store is a PostgreSQL-backed storage.Store.
type Store struct {
	pool poolLike
}

var _ storage.Store = (*Store)(nil)

// Open connects a pool to dsn and pings it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", pgDetail(err))
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storage.Wrap("begin", "", pgDetail(err))
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) CreateSchema(ctx context.Context) error {
	return s.execAll(ctx, "create schema", Schema.Create)
}

func (s *Store) DropSchema(ctx context.Context) error {
	return s.execAll(ctx, "drop schema", Schema.Drop)
}

func (s *Store) execAll(ctx context.Context, op string, stmts []string) error {
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return storage.Wrap(op, "", fmt.Errorf("%w (statement: %s)", pgDetail(err), q))
		}
	}
	return nil
}

func (s *Store) Count(ctx context.Context, t storage.Table) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, storage.CountSQL(Dialect{}, t)).Scan(&n); err != nil {
		return 0, storage.Wrap("count", t.Name, pgDetail(err))
	}
	return n, nil
}

func (s *Store) Close() { s.pool.Close() }

// Tx wraps a pgx.Tx.
type Tx struct {
	tx pgx.Tx
}

var _ storage.Tx = (*Tx)(nil)

// Write queues one INSERT … ON CONFLICT per row and sends them as a batch.
// Results are read in order so the first failing row is reported.
func (t *Tx) Write(ctx context.Context, table storage.Table, policy storage.ConflictPolicy, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, err := storage.OnConflictInsert(Dialect{}, table, policy)
	if err != nil {
		return 0, storage.Wrap("write", table.Name, err)
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return 0, storage.Wrap("write", table.Name, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(table.Columns)))
		}
		batch.Queue(q, row...)
	}

	br := t.tx.SendBatch(ctx, batch)
	var n int64
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return n, storage.Wrap("write", table.Name, fmt.Errorf("row %d: %w", i, pgDetail(err)))
		}
		n++
	}
	if err := br.Close(); err != nil {
		return n, storage.Wrap("write", table.Name, pgDetail(err))
	}
	return n, nil
}

func (t *Tx) LookupSong(ctx context.Context, title, artist string, duration float64) (string, string, bool, error) {
	var songID, artistID string
	err := t.tx.QueryRow(ctx, storage.LookupSongSQL(Dialect{}), title, artist, duration).Scan(&songID, &artistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, storage.Wrap("lookup", storage.Songs.Name, pgDetail(err))
	}
	return songID, artistID, true, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return storage.Wrap("commit", "", pgDetail(t.tx.Commit(ctx)))
}

// Rollback is a no-op on a finished transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return storage.Wrap("rollback", "", pgDetail(err))
}

// pgDetail adds the server's detail and SQLSTATE to a *pgconn.PgError.
func pgDetail(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w: %s (%s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// newStore is a test hook.
var newStore = func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
	return Open(ctx, cfg.DSN)
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return newStore(ctx, cfg)
	})
}
