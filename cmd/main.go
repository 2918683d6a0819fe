package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/internal/adapters/database"
	redisAdapter "github.com/selivandex/news-pulse/internal/adapters/redis"
	"github.com/selivandex/news-pulse/internal/api"
	"github.com/selivandex/news-pulse/internal/app"
	"github.com/selivandex/news-pulse/internal/dashboard"
	"github.com/selivandex/news-pulse/internal/health"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/metrics"
	"github.com/selivandex/news-pulse/pkg/worker"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

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

	logger.Info("news pulse starting",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.Strings("categories", cfg.Finnhub.Categories),
		zap.String("schedule", cfg.Scheduler.Cron),
	)

	db, err := app.InitDatabase(cfg)
	if err != nil {
		return err
	}

	redisClient := initRedis(ctx, cfg)

	buf, chDB := app.InitMetrics(cfg)

	services, err := app.BuildServices(ctx, cfg, db, buf)
	if err != nil {
		return err
	}

	var cache dashboard.Cache
	checkers := []health.Checker{db}
	if redisClient != nil {
		cache = redisClient
		checkers = append(checkers, redisClient)
	}

	dash := dashboard.NewService(services.Articles, services.Stats, cache, cfg.Redis.CacheTTL)
	services.Explain.WithInvalidators(dash)
	hub := api.NewHub()
	healthServer := health.NewServer(cfg.Health.Port, checkers...)

	services.Ingestion.AddObserver(dash)
	services.Ingestion.AddObserver(hub)
	services.Ingestion.AddObserver(healthServer)

	scheduler := initScheduler(cfg, redisClient)
	if err := scheduler.Add(cfg.Scheduler.Cron, services.Ingestion); err != nil {
		return fmt.Errorf("failed to schedule ingestion: %w", err)
	}

	apiServer := api.NewServer(&cfg.API, services.Explain, dash, hub)

	go func() {
		if err := healthServer.Start(); err != nil {
			logger.Error("health server failed", zap.Error(err))
		}
	}()
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server failed", zap.Error(err))
		}
	}()

	scheduler.Start()
	healthServer.SetReady(true)

	if cfg.Scheduler.RunOnStart {
		go func() {
			if err := scheduler.RunNow(services.Ingestion.Name()); err != nil {
				logger.Error("startup ingestion run failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()

	return performGracefulShutdown(cfg, healthServer, apiServer, scheduler, buf, db, chDB, redisClient)
}

// initRedis connects the dashboard cache and run lock; the service runs without them
func initRedis(ctx context.Context, cfg *config.Config) *redisAdapter.Client {
	if !cfg.Redis.Enabled {
		logger.Info("redis disabled, dashboard cache and run lock off")
		return nil
	}

	client, err := redisAdapter.New(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("redis not available, dashboard cache and run lock off", zap.Error(err))
		return nil
	}
	return client
}

func initScheduler(cfg *config.Config, redisClient *redisAdapter.Client) *worker.Scheduler {
	schedCfg := worker.SchedulerConfig{
		Location:   cfg.Scheduler.Location(),
		LockTTL:    cfg.Scheduler.LockTTL,
		RunTimeout: cfg.Scheduler.RunTimeout,
	}
	if redisClient != nil && cfg.Scheduler.LockEnabled {
		schedCfg.Lock = redisClient.NewRunLock()
	}
	return worker.NewScheduler(schedCfg)
}

func performGracefulShutdown(
	cfg *config.Config,
	healthServer *health.Server,
	apiServer *api.Server,
	scheduler *worker.Scheduler,
	buf metrics.Buffer,
	db *database.DB,
	chDB *database.DB,
	redisClient *redisAdapter.Client,
) error {
	logger.Info("🛑 Shutdown signal received, starting graceful shutdown...")

	healthServer.SetReady(false)

	// K8s gives 30s terminationGracePeriodSeconds
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer shutdownCancel()

	logger.Info("stopping api server...")
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("api server stop error", zap.Error(err))
	}

	// a run in flight either commits or rolls back; wait for it up to the run timeout
	logger.Info("stopping scheduler...")
	scheduler.Stop(minDuration(cfg.Scheduler.RunTimeout, 20*time.Second))

	if err := buf.Close(shutdownCtx); err != nil {
		logger.Error("metrics flush error", zap.Error(err))
	}

	if chDB != nil {
		if err := chDB.Close(); err != nil {
			logger.Error("clickhouse close error", zap.Error(err))
		}
	}

	logger.Info("closing database connection...")
	if err := db.Close(); err != nil {
		logger.Error("database close error", zap.Error(err))
	}

	if redisClient != nil {
		logger.Info("closing redis connection...")
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", zap.Error(err))
		}
	}

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("health server stop error", zap.Error(err))
	}

	select {
	case <-shutdownCtx.Done():
		logger.Warn("⚠️ shutdown timeout exceeded")
		return fmt.Errorf("graceful shutdown timeout")
	default:
		logger.Info("✅ shutdown completed successfully")
	}

	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
