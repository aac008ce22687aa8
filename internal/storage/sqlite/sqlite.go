// Package sqlite implements the SQLite storage backend on modernc.org/sqlite
// (pure Go, no cgo). It shares the ON CONFLICT grammar with postgres;
// enums become CHECK constraints and timestamps are stored as UTC text so
// they sort and compare lexically.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
)

// TimeLayout is how start_time is stored.
const TimeLayout = "2006-01-02 15:04:05.000"

// Dialect quotes with double quotes and binds with '?'.
type Dialect struct{}

func (Dialect) Quote(id string) string { return storage.QuoteDouble(id) }
func (Dialect) Placeholder(int) string { return "?" }

// Builder is the storage.SQLBuilder for SQLite.
type Builder struct{}

var _ storage.SQLBuilder = Builder{}

func (Builder) InsertSQL(t storage.Table, p storage.ConflictPolicy) (string, error) {
	return storage.OnConflictInsert(Dialect{}, t, p)
}

func (Builder) LookupSQL() string { return storage.LookupSongSQL(Dialect{}) }

func (Builder) CountSQL(t storage.Table) string { return storage.CountSQL(Dialect{}, t) }

// Bind formats time.Time as TimeLayout in UTC; other values pass through.
func (Builder) Bind(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.UTC().Format(TimeLayout)
	}
	return v
}

// Schema is the SQLite star schema.
var Schema = storage.Schema{
	Create: []string{
		`CREATE TABLE IF NOT EXISTS "songs" (
	"song_id" TEXT PRIMARY KEY,
	"title" TEXT NOT NULL,
	"artist_id" TEXT NOT NULL,
	"year" INTEGER,
	"duration" REAL NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS "artists" (
	"artist_id" TEXT PRIMARY KEY,
	"name" TEXT NOT NULL,
	"location" TEXT,
	"latitude" REAL,
	"longitude" REAL
)`,
		`CREATE TABLE IF NOT EXISTS "users" (
	"user_id" INTEGER PRIMARY KEY,
	"first_name" TEXT,
	"last_name" TEXT,
	"gender" TEXT CHECK ("gender" IN ('M', 'F')),
	"level" TEXT NOT NULL CHECK ("level" IN ('free', 'paid'))
)`,
		`CREATE TABLE IF NOT EXISTS "time" (
	"start_time" TEXT PRIMARY KEY,
	"hour" INTEGER NOT NULL,
	"day" INTEGER NOT NULL,
	"week" INTEGER NOT NULL,
	"month" INTEGER NOT NULL,
	"year" INTEGER NOT NULL,
	"weekday" INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS "songplays" (
	"songplay_id" INTEGER PRIMARY KEY,
	"start_time" TEXT NOT NULL REFERENCES "time" ("start_time"),
	"user_id" INTEGER NOT NULL REFERENCES "users" ("user_id"),
	"level" TEXT NOT NULL CHECK ("level" IN ('free', 'paid')),
	"song_id" TEXT REFERENCES "songs" ("song_id"),
	"artist_id" TEXT REFERENCES "artists" ("artist_id"),
	"session_id" INTEGER NOT NULL,
	"location" TEXT,
	"user_agent" TEXT,
	UNIQUE ("start_time", "user_id", "session_id")
)`,
	},
	Drop: []string{
		`DROP TABLE IF EXISTS "songplays"`,
		`DROP TABLE IF EXISTS "users"`,
		`DROP TABLE IF EXISTS "songs"`,
		`DROP TABLE IF EXISTS "artists"`,
		`DROP TABLE IF EXISTS "time"`,
	},
}

// Open opens the database at dsn (a path, "file:" URI or ":memory:") with
// foreign keys enforced.
func Open(ctx context.Context, dsn string) (*storage.SQLStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: ":memory:" databases are per-connection and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	return storage.NewSQLStore(db, Builder{}, Schema), nil
}

// open is a test hook.
var open = Open

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return open(ctx, cfg.DSN)
	})
}
