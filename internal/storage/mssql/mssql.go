// Package mssql implements the SQL Server storage backend using
// github.com/microsoft/go-mssqldb over database/sql. SQL Server has no
// ON CONFLICT clause, so conflict policies are expressed as
// MERGE … WITH (HOLDLOCK).
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
)

// Dialect quotes with brackets and binds with @pN.
type Dialect struct{}

func (Dialect) Quote(id string) string   { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// Builder is the storage.SQLBuilder for SQL Server.
type Builder struct{}

var _ storage.SQLBuilder = Builder{}

// InsertSQL builds a single-row MERGE. The ON clause matches any of the
// table's unique keys, so InsertOnce absorbs a conflict on either key of
// songplays. UpsertLatest adds a WHEN MATCHED branch over t.Update.
func (Builder) InsertSQL(t storage.Table, p storage.ConflictPolicy) (string, error) {
	if err := storage.Validate(t, p); err != nil {
		return "", err
	}
	d := Dialect{}

	src := make([]string, len(t.Columns))
	vals := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		src[i] = fmt.Sprintf("%s AS %s", d.Placeholder(i+1), d.Quote(c))
		vals[i] = "S." + d.Quote(c)
	}

	on := make([]string, len(t.Keys))
	for i, key := range t.Keys {
		eq := make([]string, len(key))
		for j, c := range key {
			eq[j] = fmt.Sprintf("T.%s = S.%s", d.Quote(c), d.Quote(c))
		}
		on[i] = "(" + strings.Join(eq, " AND ") + ")"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s WITH (HOLDLOCK) AS T USING (SELECT %s) AS S ON %s",
		d.Quote(t.Name), strings.Join(src, ", "), strings.Join(on, " OR "))
	if p == storage.UpsertLatest {
		sets := make([]string, len(t.Update))
		for i, c := range t.Update {
			sets[i] = fmt.Sprintf("T.%s = S.%s", d.Quote(c), d.Quote(c))
		}
		fmt.Fprintf(&sb, " WHEN MATCHED THEN UPDATE SET %s", strings.Join(sets, ", "))
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(storage.QuoteList(d, t.Columns), ", "), strings.Join(vals, ", "))
	return sb.String(), nil
}

func (Builder) LookupSQL() string {
	return "SELECT TOP 1 s.[song_id], s.[artist_id] FROM [songs] s JOIN [artists] a ON s.[artist_id] = a.[artist_id]" +
		" WHERE s.[title] = @p1 AND a.[name] = @p2 AND s.[duration] = @p3 ORDER BY s.[song_id]"
}

func (Builder) CountSQL(t storage.Table) string {
	return "SELECT COUNT_BIG(*) FROM " + Dialect{}.Quote(t.Name)
}

func (Builder) Bind(v any) any { return v }

// Schema is the SQL Server star schema.
var Schema = storage.Schema{
	Create: []string{
		`IF OBJECT_ID(N'songs', N'U') IS NULL CREATE TABLE [songs] (
	[song_id] NVARCHAR(64) NOT NULL PRIMARY KEY,
	[title] NVARCHAR(512) NOT NULL,
	[artist_id] NVARCHAR(64) NOT NULL,
	[year] INT NULL,
	[duration] FLOAT NOT NULL
)`,
		`IF OBJECT_ID(N'artists', N'U') IS NULL CREATE TABLE [artists] (
	[artist_id] NVARCHAR(64) NOT NULL PRIMARY KEY,
	[name] NVARCHAR(512) NOT NULL,
	[location] NVARCHAR(512) NULL,
	[latitude] FLOAT NULL,
	[longitude] FLOAT NULL
)`,
		`IF OBJECT_ID(N'users', N'U') IS NULL CREATE TABLE [users] (
	[user_id] BIGINT NOT NULL PRIMARY KEY,
	[first_name] NVARCHAR(256) NULL,
	[last_name] NVARCHAR(256) NULL,
	[gender] CHAR(1) NULL CHECK ([gender] IN ('M', 'F')),
	[level] VARCHAR(4) NOT NULL CHECK ([level] IN ('free', 'paid'))
)`,
		`IF OBJECT_ID(N'time', N'U') IS NULL CREATE TABLE [time] (
	[start_time] DATETIME2(3) NOT NULL PRIMARY KEY,
	[hour] INT NOT NULL,
	[day] INT NOT NULL,
	[week] INT NOT NULL,
	[month] INT NOT NULL,
	[year] INT NOT NULL,
	[weekday] INT NOT NULL
)`,
		`IF OBJECT_ID(N'songplays', N'U') IS NULL CREATE TABLE [songplays] (
	[songplay_id] BIGINT NOT NULL PRIMARY KEY,
	[start_time] DATETIME2(3) NOT NULL REFERENCES [time] ([start_time]),
	[user_id] BIGINT NOT NULL REFERENCES [users] ([user_id]),
	[level] VARCHAR(4) NOT NULL CHECK ([level] IN ('free', 'paid')),
	[song_id] NVARCHAR(64) NULL REFERENCES [songs] ([song_id]),
	[artist_id] NVARCHAR(64) NULL REFERENCES [artists] ([artist_id]),
	[session_id] BIGINT NOT NULL,
	[location] NVARCHAR(512) NULL,
	[user_agent] NVARCHAR(1024) NULL,
	CONSTRAINT [uq_songplays_start_user_session] UNIQUE ([start_time], [user_id], [session_id])
)`,
	},
	Drop: []string{
		`DROP TABLE IF EXISTS [songplays]`,
		`DROP TABLE IF EXISTS [users]`,
		`DROP TABLE IF EXISTS [songs]`,
		`DROP TABLE IF EXISTS [artists]`,
		`DROP TABLE IF EXISTS [time]`,
	},
}

// Open validates dsn, connects and pings.
func Open(ctx context.Context, dsn string) (*storage.SQLStore, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return storage.NewSQLStore(db, Builder{}, Schema), nil
}

// open is a test hook.
var open = Open

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		return open(ctx, cfg.DSN)
	})
}
