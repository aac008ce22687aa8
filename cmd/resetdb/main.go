// Command resetdb drops and recreates the sparkify star schema. It takes the
// same database flags as etl.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/manchhui/Data-Modelling-With-Postgres/internal/config"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/logging"
	"github.com/manchhui/Data-Modelling-With-Postgres/internal/storage"

	_ "github.com/manchhui/Data-Modelling-With-Postgres/internal/storage/all"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Err(cfg.Validate()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := reset(context.Background(), storage.Config{Kind: cfg.DBDriver, DSN: cfg.StoreDSN()}, log); err != nil {
		log.Error("reset failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func reset(ctx context.Context, sc storage.Config, log *zap.Logger) error {
	store, err := storage.New(ctx, sc)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DropSchema(ctx); err != nil {
		return err
	}
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	log.Info("schema recreated", zap.String("driver", sc.Kind))
	return nil
}
