// Command etl loads the song catalog and the listening logs into the
// sparkify star schema.
//
//	etl -db_driver=sqlite -dsn=sparkify.db -create_schema
//
// With no flags it reads data/song_data and data/log_data and writes to the
// local postgres database sparkifydb.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/config"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/extract"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/loader"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/logging"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/metrics"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/metrics/datadog"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/metrics/prompush"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/transform"

	// register all backends with the storage factory.
	_ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/all"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("config: %v", err)
	}
	issues := cfg.Validate()
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.Err(issues) != nil {
		os.Exit(1)
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flush := setupMetrics(cfg, log)
	err = run(ctx, cfg, log)
	flush()
	if err != nil {
		log.Error("ingest failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// run opens the store, optionally creates the schema and performs both
// passes.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ids, err := transform.NewIDGenerator(cfg.SongPlayIDs)
	if err != nil {
		return err
	}

	log.Info("connecting", zap.String("driver", cfg.DBDriver), zap.String("dsn", cfg.Redacted()))
	store, err := storage.New(ctx, storage.Config{Kind: cfg.DBDriver, DSN: cfg.StoreDSN()})
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.CreateSchema {
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	l := loader.New(store, log, loader.Options{
		SongRoot:        cfg.SongData,
		LogRoot:         cfg.LogData,
		Job:             cfg.Job,
		IDs:             ids,
		LookupCache:     cfg.LookupCache,
		ContinueOnError: cfg.ContinueOnError,
		Extractor:       extract.Extractor{NormalizeUnicode: cfg.NormalizeUnicode},
	})
	sum, err := l.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("completed",
		zap.String("run_id", sum.RunID),
		zap.Int("song_files", sum.Catalog.Processed),
		zap.Int("log_files", sum.Events.Processed),
		zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	return nil
}

// setupMetrics installs the configured backend and returns the function
// that flushes it at exit. Backend failures disable metrics rather than the
// run.
func setupMetrics(cfg *config.Config, log *zap.Logger) (flush func()) {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.MetricsBackend {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{Addr: cfg.DatadogAddr, GlobalTags: []string{"job:" + cfg.Job}})
	default:
		return func() {}
	}
	if err != nil {
		log.Warn("metrics disabled", zap.String("backend", cfg.MetricsBackend), zap.Error(err))
		return func() {}
	}

	log.Info("metrics enabled", zap.String("backend", cfg.MetricsBackend), zap.String("job", cfg.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
