// Command ingest performs a single ingestion run and exits. It is meant for an
// external scheduler; the exit code is 1 when the run failed to commit.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/app"
	"github.com/selivandex/news-pulse/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.InitConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := app.InitDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	buf, chDB := app.InitMetrics(cfg)
	defer func() {
		if err := buf.Close(context.Background()); err != nil {
			logger.Warn("metrics flush error", zap.Error(err))
		}
		if chDB != nil {
			chDB.Close()
		}
	}()

	services, err := app.BuildServices(ctx, cfg, db, buf)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Scheduler.RunTimeout)
	defer cancel()

	report, err := services.Ingestion.Ingest(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d new articles (%d fetched, %d known, %d fallbacks)\n",
		report.RunID, report.Enriched, report.Fetched, report.Duplicates, report.Fallbacks)
	return nil
}
