package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
)

// fakeRow scans fixed values or returns err.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.vals[i].(string)
		case *int64:
			*p = r.vals[i].(int64)
		}
	}
	return nil
}

// fakeBatchResults fails the row at failAt (when >= 0).
type fakeBatchResults struct {
	n      int
	failAt int
	err    error
	closed bool
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	i := b.n
	b.n++
	if i == b.failAt {
		return pgconn.CommandTag{}, b.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, nil }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (b *fakeBatchResults) Close() error             { b.closed = true; return nil }

// fakePgTx implements pgx.Tx, recording batches and lookups.
type fakePgTx struct {
	batches   []*pgx.Batch
	results   *fakeBatchResults
	row       fakeRow
	queries   []string
	commitErr error
	rbErr     error
}

func (t *fakePgTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakePgTx) Commit(ctx context.Context) error          { return t.commitErr }
func (t *fakePgTx) Rollback(ctx context.Context) error        { return t.rbErr }
func (t *fakePgTx) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakePgTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	t.batches = append(t.batches, b)
	if t.results == nil {
		t.results = &fakeBatchResults{failAt: -1}
	}
	return t.results
}
func (t *fakePgTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (t *fakePgTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakePgTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakePgTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *fakePgTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	t.queries = append(t.queries, sql)
	return t.row
}
func (t *fakePgTx) Conn() *pgx.Conn { return nil }

// fakePool implements poolLike.
type fakePool struct {
	tx       pgx.Tx
	beginErr error
	execs    []string
	execErr  error
	row      fakeRow
	closed   bool
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}
func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return pgconn.CommandTag{}, p.execErr
}
func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return p.row }
func (p *fakePool) Close()                                                        { p.closed = true }

func TestWrite_QueuesOneStatementPerRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ftx := &fakePgTx{}
	tx := &Tx{tx: ftx}

	ts := time.Date(2018, 11, 2, 1, 25, 34, 796e6, time.UTC)
	rows := [][]any{
		{ts, 1, 2, 44, 11, 2018, 4},
		{ts.Add(time.Second), 1, 2, 44, 11, 2018, 4},
	}
	n, err := tx.Write(ctx, storage.Times, storage.InsertOnce, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, ftx.batches, 1)
	b := ftx.batches[0]
	require.Equal(t, 2, b.Len())
	want := `INSERT INTO "time" ("start_time", "hour", "day", "week", "month", "year", "weekday")` +
		` VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT ("start_time") DO NOTHING`
	assert.Equal(t, want, b.QueuedQueries[0].SQL)
	assert.Equal(t, rows[1], b.QueuedQueries[1].Arguments)
	assert.True(t, ftx.results.closed)
}

func TestWrite_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	ftx := &fakePgTx{}
	n, err := (&Tx{tx: ftx}).Write(context.Background(), storage.Songs, storage.InsertOnce, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, ftx.batches)
}

func TestWrite_RowErrorSurfacesDetail(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23503", Message: "violates foreign key", Detail: `Key (user_id)=(9) is not present`}
	ftx := &fakePgTx{results: &fakeBatchResults{failAt: 1, err: pgErr}}
	tx := &Tx{tx: ftx}

	rows := [][]any{
		{int64(1), "a", "b", "F", "free"},
		{int64(2), "c", "d", "M", "paid"},
	}
	n, err := tx.Write(context.Background(), storage.Users, storage.UpsertLatest, rows)
	assert.Equal(t, int64(1), n)

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "write", se.Op)
	assert.Equal(t, "users", se.Table)
	assert.ErrorIs(t, err, pgErr)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "(23503)")
	assert.True(t, ftx.results.closed)
}

func TestWrite_RejectsBadRows(t *testing.T) {
	t.Parallel()

	ftx := &fakePgTx{}
	tx := &Tx{tx: ftx}

	_, err := tx.Write(context.Background(), storage.Songs, storage.InsertOnce, [][]any{{"SO1"}})
	require.Error(t, err)
	_, err = tx.Write(context.Background(), storage.Songs, storage.UpsertLatest, [][]any{{"SO1", "t", "AR1", 1, 1.0}})
	require.Error(t, err)
	assert.Empty(t, ftx.batches)
}

func TestLookupSong(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	hit := &fakePgTx{row: fakeRow{vals: []any{"SO1", "AR1"}}}
	songID, artistID, found, err := (&Tx{tx: hit}).LookupSong(ctx, "City of Blinding Lights", "U2", 326)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "SO1", songID)
	assert.Equal(t, "AR1", artistID)
	require.Len(t, hit.queries, 1)
	assert.Contains(t, hit.queries[0], `WHERE s."title" = $1 AND a."name" = $2 AND s."duration" = $3`)

	miss := &fakePgTx{row: fakeRow{err: pgx.ErrNoRows}}
	_, _, found, err = (&Tx{tx: miss}).LookupSong(ctx, "x", "y", 1)
	require.NoError(t, err)
	assert.False(t, found)

	broken := &fakePgTx{row: fakeRow{err: errors.New("conn reset")}}
	_, _, _, err = (&Tx{tx: broken}).LookupSong(ctx, "x", "y", 1)
	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "lookup", se.Op)
}

func TestCommitRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	require.NoError(t, (&Tx{tx: &fakePgTx{}}).Commit(ctx))
	err := (&Tx{tx: &fakePgTx{commitErr: errors.New("boom")}}).Commit(ctx)
	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "commit", se.Op)

	require.NoError(t, (&Tx{tx: &fakePgTx{rbErr: pgx.ErrTxClosed}}).Rollback(ctx))
	require.Error(t, (&Tx{tx: &fakePgTx{rbErr: errors.New("boom")}}).Rollback(ctx))
}

func TestStore_Begin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := &Store{pool: &fakePool{tx: &fakePgTx{}}}
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NotNil(t, tx)

	_, err = (&Store{pool: &fakePool{beginErr: errors.New("refused")}}).Begin(ctx)
	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "begin", se.Op)
}

func TestStore_Schema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := &fakePool{}
	s := &Store{pool: p}

	require.NoError(t, s.CreateSchema(ctx))
	assert.Equal(t, Schema.Create, p.execs)

	p.execs = nil
	require.NoError(t, s.DropSchema(ctx))
	assert.Equal(t, Schema.Drop, p.execs)

	failing := &fakePool{execErr: errors.New("permission denied")}
	err := (&Store{pool: failing}).CreateSchema(ctx)
	require.Error(t, err)
	assert.Len(t, failing.execs, 1, "stops at the first failure")
}

func TestStore_CountAndClose(t *testing.T) {
	t.Parallel()

	p := &fakePool{row: fakeRow{vals: []any{int64(42)}}}
	s := &Store{pool: p}
	n, err := s.Count(context.Background(), storage.SongPlays)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	s.Close()
	assert.True(t, p.closed)
}

func TestSchema_DropsEveryTable(t *testing.T) {
	t.Parallel()

	for _, tb := range storage.Tables {
		assert.Contains(t, Schema.Drop, `DROP TABLE IF EXISTS "`+tb.Name+`"`)
	}
	assert.Contains(t, Schema.Drop, `DROP TYPE IF EXISTS levels`)
	assert.Contains(t, Schema.Drop, `DROP TYPE IF EXISTS genders`)
}

func TestPgDetail(t *testing.T) {
	t.Parallel()

	assert.NoError(t, pgDetail(nil))

	plain := errors.New("x")
	assert.Same(t, plain, pgDetail(plain))

	noDetail := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	assert.Equal(t, noDetail.Error(), pgDetail(noDetail).Error())
}

func TestRegisteredFactory(t *testing.T) {
	orig := newStore
	t.Cleanup(func() { newStore = orig })

	var got storage.Config
	newStore = func(_ context.Context, cfg storage.Config) (storage.Store, error) {
		got = cfg
		return &Store{pool: &fakePool{}}, nil
	}

	s, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "host=db"})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "host=db", got.DSN)
}
