// Package config centralizes process configuration. Every knob is a flag
// whose default is seeded from an environment variable, so `-help` lists
// all of them and the binary runs with no arguments at all.
//
// For tests, prefer LoadFromArgs to keep them hermetic:
//
//	fs := flag.NewFlagSet("test", flag.ContinueOnError)
//	getenv := func(k string) string { return testEnv[k] }
//	cfg, err := config.LoadFromArgs(fs, getenv, []string{"-db_driver=sqlite"})
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all process configuration derived from flags and
// environment variables.
type Config struct {
	// Input roots.
	SongData string // song catalog tree
	LogData  string // listening-log tree

	// DB describes the target database. Postgres can build its DSN from
	// the discrete parts; sqlite and mssql need DSN.
	DBDriver   string
	DSN        string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	// Load behaviour.
	SongPlayIDs      string // "hash" or "sequence"
	LookupCache      bool
	ContinueOnError  bool
	NormalizeUnicode bool
	CreateSchema     bool

	// Logging.
	LogLevel  string
	LogFormat string // "console" or "json"

	// Metrics.
	MetricsBackend string // "none", "pushgateway" or "datadog"
	PushgatewayURL string
	DatadogAddr    string
	Job            string
}

// LoadFromArgs defines the flags on fs, seeds each default from getenv and
// parses args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOrDefault := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	boolEnvOrDefault := func(k string, d bool) bool {
		switch strings.ToLower(getenv(k)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return d
	}

	fs.StringVar(&cfg.SongData, "song_data", envOrDefault("SONG_DATA", "data/song_data"), "Root of the song catalog JSON files")
	fs.StringVar(&cfg.LogData, "log_data", envOrDefault("LOG_DATA", "data/log_data"), "Root of the listening-log JSON files")

	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefault("DB_DRIVER", "postgres"), "Database driver: 'postgres', 'sqlite' or 'mssql'")
	fs.StringVar(&cfg.DSN, "dsn", getenv("DB_DSN"), "Full DSN (required for sqlite and mssql)")
	fs.StringVar(&cfg.DBHost, "db_host", envOrDefault("DB_HOST", "127.0.0.1"), "DB host")
	fs.StringVar(&cfg.DBPort, "db_port", envOrDefault("DB_PORT", "5432"), "DB port")
	fs.StringVar(&cfg.DBName, "db_name", envOrDefault("DB_NAME", "sparkifydb"), "DB name")
	fs.StringVar(&cfg.DBUser, "db_user", envOrDefault("DB_USER", "student"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", envOrDefault("DB_PASSWORD", "student"), "DB password")

	fs.StringVar(&cfg.SongPlayIDs, "songplay_ids", envOrDefault("SONGPLAY_IDS", "hash"), "songplay_id generator: 'hash' (stable) or 'sequence'")
	fs.BoolVar(&cfg.LookupCache, "lookup_cache", boolEnvOrDefault("LOOKUP_CACHE", false), "Memoize song lookups during the event pass")
	fs.BoolVar(&cfg.ContinueOnError, "continue_on_error", boolEnvOrDefault("CONTINUE_ON_ERROR", false), "Skip failed files instead of aborting the run")
	fs.BoolVar(&cfg.NormalizeUnicode, "normalize_unicode", boolEnvOrDefault("NORMALIZE_UNICODE", false), "NFC-normalize string fields before loading")
	fs.BoolVar(&cfg.CreateSchema, "create_schema", boolEnvOrDefault("CREATE_SCHEMA", false), "Create missing tables before loading")

	fs.StringVar(&cfg.LogLevel, "log_level", envOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log_format", envOrDefault("LOG_FORMAT", "console"), "Log format: 'console' or 'json'")

	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefault("METRICS_BACKEND", "none"), "Metrics backend: 'none', 'pushgateway' or 'datadog'")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", envOrDefault("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DatadogAddr, "datadog_addr", envOrDefault("DATADOG_ADDR", "127.0.0.1:8125"), "DogStatsD address")
	fs.StringVar(&cfg.Job, "job", envOrDefault("JOB", "sparkify_etl"), "Job name used for metrics")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is the production entry point: it reads an optional .env file, then
// parses os.Args[1:] against flag.CommandLine with os.Getenv fallbacks.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromArgs(flag.CommandLine, os.Getenv, os.Args[1:])
}

// StoreDSN returns DSN, or for postgres a keyword/value connection string
// built from the discrete parts when DSN is empty.
func (c *Config) StoreDSN() string {
	if c.DSN != "" || c.DBDriver != "postgres" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword)
}

// Redacted returns StoreDSN with the password parts masked, for logging.
func (c *Config) Redacted() string {
	dsn := c.StoreDSN()
	if c.DBPassword != "" {
		dsn = strings.ReplaceAll(dsn, "password="+c.DBPassword, "password=****")
	}
	return dsn
}
