package config

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func noEnv(string) string { return "" }

// TestLoadFromArgs_Defaults checks that no flags and no env reproduce the
// stock local setup.
func TestLoadFromArgs_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromArgs(newFlagSet(), noEnv, nil)
	require.NoError(t, err)

	assert.Equal(t, "data/song_data", cfg.SongData)
	assert.Equal(t, "data/log_data", cfg.LogData)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "hash", cfg.SongPlayIDs)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "none", cfg.MetricsBackend)
	assert.Equal(t, "sparkify_etl", cfg.Job)
	assert.False(t, cfg.LookupCache)
	assert.False(t, cfg.ContinueOnError)
	assert.False(t, cfg.NormalizeUnicode)
	assert.False(t, cfg.CreateSchema)

	assert.Equal(t, "host=127.0.0.1 port=5432 dbname=sparkifydb user=student password=student", cfg.StoreDSN())
	assert.Empty(t, Err(cfg.Validate()))
}

// TestLoadFromArgs_EnvThenFlags validates the precedence model: environment
// seeds defaults, explicit flags override env.
func TestLoadFromArgs_EnvThenFlags(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"DB_DRIVER":         "sqlite",
		"DB_DSN":            "/tmp/sparkify.db",
		"LOOKUP_CACHE":      "yes",
		"CONTINUE_ON_ERROR": "1",
		"CREATE_SCHEMA":     "bogus", // unrecognized keeps the default
		"SONGPLAY_IDS":      "sequence",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := LoadFromArgs(newFlagSet(), getenv, []string{"-lookup_cache=false", "-log_format=json", "-song_data=/data/songs"})
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/sparkify.db", cfg.StoreDSN())
	assert.False(t, cfg.LookupCache, "flag overrides env")
	assert.True(t, cfg.ContinueOnError)
	assert.False(t, cfg.CreateSchema)
	assert.Equal(t, "sequence", cfg.SongPlayIDs)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/data/songs", cfg.SongData)
}

func TestLoadFromArgs_BadFlag(t *testing.T) {
	t.Parallel()

	_, err := LoadFromArgs(newFlagSet(), noEnv, []string{"-no_such_flag"})
	require.Error(t, err)
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromArgs(newFlagSet(), noEnv, []string{"-db_password=s3cret"})
	require.NoError(t, err)
	assert.Contains(t, cfg.StoreDSN(), "password=s3cret")
	assert.NotContains(t, cfg.Redacted(), "s3cret")
	assert.Contains(t, cfg.Redacted(), "password=****")
}
