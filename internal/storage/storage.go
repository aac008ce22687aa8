// Package storage defines the store contract the loader writes through and
// the star-schema table descriptors shared by every backend.
//
// A Store is a connection to a transactional relational database. The loader
// opens one Tx per input file, writes every derived row through Tx.Write with
// an explicit ConflictPolicy, resolves songs through Tx.LookupSong and
// commits. Backends (postgres, sqlite, mssql) register a Factory in init;
// importing storage/all makes all of them available to New.
package storage

import (
	"context"
	"fmt"
)

// ConflictPolicy says what a write does when a row with the same key is
// already present.
type ConflictPolicy int

const (
	// InsertOnce keeps the existing row (first write wins).
	InsertOnce ConflictPolicy = iota
	// UpsertLatest overwrites the table's update columns with the incoming
	// values (last write wins).
	UpsertLatest
)

func (p ConflictPolicy) String() string {
	switch p {
	case InsertOnce:
		return "insert-once"
	case UpsertLatest:
		return "upsert-latest"
	default:
		return fmt.Sprintf("ConflictPolicy(%d)", int(p))
	}
}

// Table describes a destination table.
type Table struct {
	Name    string
	Columns []string
	// Keys lists the table's unique keys; Keys[0] is the primary key.
	Keys [][]string
	// Update lists the columns UpsertLatest overwrites.
	Update []string
	// Policy is the table's conflict policy in the load protocol.
	Policy ConflictPolicy
}

// The star schema. Column order matches the model rows' Values.
var (
	Songs = Table{
		Name:    "songs",
		Columns: []string{"song_id", "title", "artist_id", "year", "duration"},
		Keys:    [][]string{{"song_id"}},
		Policy:  InsertOnce,
	}
	Artists = Table{
		Name:    "artists",
		Columns: []string{"artist_id", "name", "location", "latitude", "longitude"},
		Keys:    [][]string{{"artist_id"}},
		Policy:  InsertOnce,
	}
	Users = Table{
		Name:    "users",
		Columns: []string{"user_id", "first_name", "last_name", "gender", "level"},
		Keys:    [][]string{{"user_id"}},
		Update:  []string{"level"},
		Policy:  UpsertLatest,
	}
	Times = Table{
		Name:    "time",
		Columns: []string{"start_time", "hour", "day", "week", "month", "year", "weekday"},
		Keys:    [][]string{{"start_time"}},
		Policy:  InsertOnce,
	}
	SongPlays = Table{
		Name: "songplays",
		Columns: []string{
			"songplay_id", "start_time", "user_id", "level", "song_id",
			"artist_id", "session_id", "location", "user_agent",
		},
		Keys:   [][]string{{"songplay_id"}, {"start_time", "user_id", "session_id"}},
		Policy: InsertOnce,
	}
)

// Tables lists the schema in dependency order: dimensions before the fact
// table that references them.
var Tables = []Table{Songs, Artists, Users, Times, SongPlays}

// Store is an open connection to a backend.
type Store interface {
	// Begin opens the transaction that scopes one input file.
	Begin(ctx context.Context) (Tx, error)
	// CreateSchema creates the enum types and tables if they are missing.
	CreateSchema(ctx context.Context) error
	// DropSchema removes all tables and enum types.
	DropSchema(ctx context.Context) error
	// Count returns the number of rows in table.
	Count(ctx context.Context, table Table) (int64, error)
	Close()
}

// Tx is a single store transaction.
type Tx interface {
	// Write writes rows (each aligned to table.Columns) in order, resolving
	// key conflicts with policy. It returns the number of rows submitted.
	Write(ctx context.Context, table Table, policy ConflictPolicy, rows [][]any) (int64, error)
	// LookupSong finds the song whose title, artist name and duration all
	// equal the arguments. found is false when there is none.
	LookupSong(ctx context.Context, title, artist string, duration float64) (songID, artistID string, found bool, err error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Validate reports whether policy can be applied to t.
func Validate(t Table, policy ConflictPolicy) error {
	if t.Name == "" || len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}
	if len(t.Keys) == 0 {
		return fmt.Errorf("table %s has no keys", t.Name)
	}
	switch policy {
	case InsertOnce:
	case UpsertLatest:
		if len(t.Update) == 0 {
			return fmt.Errorf("table %s: %s needs update columns", t.Name, policy)
		}
		if len(t.Keys) != 1 {
			return fmt.Errorf("table %s: %s needs exactly one key", t.Name, policy)
		}
	default:
		return fmt.Errorf("table %s: unknown policy %s", t.Name, policy)
	}
	return nil
}
