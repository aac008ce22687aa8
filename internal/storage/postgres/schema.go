package postgres

import "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"

// Schema is the PostgreSQL star schema. The enum types are created with a
// duplicate_object guard since CREATE TYPE has no IF NOT EXISTS.
var Schema = storage.Schema{
	Create: []string{
		`DO $$ BEGIN
	CREATE TYPE levels AS ENUM ('free', 'paid');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`,
		`DO $$ BEGIN
	CREATE TYPE genders AS ENUM ('M', 'F');
EXCEPTION WHEN duplicate_object THEN NULL;
END $$`,
		`CREATE TABLE IF NOT EXISTS "songs" (
	"song_id" VARCHAR PRIMARY KEY,
	"title" VARCHAR NOT NULL,
	"artist_id" VARCHAR NOT NULL,
	"year" INT,
	"duration" DOUBLE PRECISION NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS "artists" (
	"artist_id" VARCHAR PRIMARY KEY,
	"name" VARCHAR NOT NULL,
	"location" VARCHAR,
	"latitude" DOUBLE PRECISION,
	"longitude" DOUBLE PRECISION
)`,
		`CREATE TABLE IF NOT EXISTS "users" (
	"user_id" BIGINT PRIMARY KEY,
	"first_name" VARCHAR,
	"last_name" VARCHAR,
	"gender" genders,
	"level" levels NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS "time" (
	"start_time" TIMESTAMP PRIMARY KEY,
	"hour" INT NOT NULL,
	"day" INT NOT NULL,
	"week" INT NOT NULL,
	"month" INT NOT NULL,
	"year" INT NOT NULL,
	"weekday" INT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS "songplays" (
	"songplay_id" BIGINT PRIMARY KEY,
	"start_time" TIMESTAMP NOT NULL REFERENCES "time" ("start_time"),
	"user_id" BIGINT NOT NULL REFERENCES "users" ("user_id"),
	"level" levels NOT NULL,
	"song_id" VARCHAR REFERENCES "songs" ("song_id"),
	"artist_id" VARCHAR REFERENCES "artists" ("artist_id"),
	"session_id" BIGINT NOT NULL,
	"location" VARCHAR,
	"user_agent" VARCHAR,
	UNIQUE ("start_time", "user_id", "session_id")
)`,
	},
	Drop: []string{
		`DROP TABLE IF EXISTS "songplays"`,
		`DROP TABLE IF EXISTS "users"`,
		`DROP TABLE IF EXISTS "songs"`,
		`DROP TABLE IF EXISTS "artists"`,
		`DROP TABLE IF EXISTS "time"`,
		`DROP TYPE IF EXISTS levels`,
		`DROP TYPE IF EXISTS genders`,
	},
}
