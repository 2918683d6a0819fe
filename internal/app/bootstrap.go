// Package app wires adapters into the ingestion and explanation services.
// It is shared by the long-running service and the one-shot ingest command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/ai"
	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/internal/adapters/database"
	metricsAdapter "github.com/selivandex/news-pulse/internal/adapters/metrics"
	"github.com/selivandex/news-pulse/internal/adapters/news"
	"github.com/selivandex/news-pulse/internal/adapters/stats"
	"github.com/selivandex/news-pulse/internal/adapters/telegram"
	"github.com/selivandex/news-pulse/internal/explain"
	"github.com/selivandex/news-pulse/internal/workers"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/metrics"
	"github.com/selivandex/news-pulse/pkg/templates"
)

// InitConfig loads configuration and initializes logger
func InitConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

// InitDatabase connects to PostgreSQL and applies embedded migrations
func InitDatabase(cfg *config.Config) (*database.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(db.Conn()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// InitMetrics returns a ClickHouse-backed metrics buffer, or a no-op buffer when
// ClickHouse is disabled or unreachable. The returned DB is nil in the latter case.
func InitMetrics(cfg *config.Config) (metrics.Buffer, *database.DB) {
	if !cfg.ClickHouse.Enabled {
		return metrics.NopBuffer{}, nil
	}

	ch, err := database.NewClickHouse(&cfg.ClickHouse)
	if err != nil {
		logger.Warn("ClickHouse not available, metrics disabled", zap.Error(err))
		return metrics.NopBuffer{}, nil
	}

	buf := metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer:        metricsAdapter.NewWriter(metricsAdapter.NewClickHouseRepository(ch.DB())),
		BatchSize:     cfg.ClickHouse.BatchSize,
		FlushInterval: cfg.ClickHouse.FlushInterval,
	})
	return buf, ch
}

// Services are the domain services built on top of the infrastructure
type Services struct {
	Ingestion *workers.IngestionWorker
	Explain   *explain.Service
	Articles  *news.Repository
	Stats     *stats.Repository
	Templates *templates.Manager
}

// BuildServices wires the ingestion orchestrator and explanation service
func BuildServices(ctx context.Context, cfg *config.Config, db *database.DB, buf metrics.Buffer) (*Services, error) {
	tm, err := templates.NewManagerWithValidation([]string{
		templates.ExtractSystem,
		templates.ExtractUser,
		templates.ExplainSystem,
		templates.ExplainUser,
		templates.RunReport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	provider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	if !provider.IsEnabled() {
		logger.Warn("AI provider has no API key, every article gets fallback enrichment",
			zap.String("provider", provider.Name()),
		)
	}

	guarded := ai.NewGuardedProvider(provider, ai.GuardConfig{
		Metrics:           buf,
		Timeout:           cfg.AI.Timeout,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
	})

	extractor, err := ai.NewExtractor(guarded, tm, ai.ExtractorConfig{
		Language:    cfg.AI.TargetLanguage,
		Temperature: cfg.AI.ExtractTemperature,
	})
	if err != nil {
		return nil, err
	}

	explainer, err := ai.NewExplainer(guarded, tm, ai.ExplainerConfig{
		Language:    cfg.AI.TargetLanguage,
		Temperature: cfg.AI.ExplainTemperature,
	})
	if err != nil {
		return nil, err
	}

	articles := news.NewRepository(db.DB())
	statsRepo := stats.NewRepository(db.DB())

	ingestion := workers.NewIngestionWorker(
		news.NewAggregator(news.NewFinnhubProvider(cfg.Finnhub)),
		articles,
		extractor,
		workers.NewTxCommitter(db, articles, statsRepo),
		workers.IngestionConfig{
			Categories:       cfg.Finnhub.Categories,
			PerCategoryLimit: cfg.Finnhub.PerCategoryLimit,
			Concurrency:      cfg.AI.Concurrency,
		},
	).WithMetrics(buf)

	if cfg.TelegramEnabled() {
		notifier, err := telegram.NewNotifier(&cfg.Telegram, tm)
		if err != nil {
			logger.Warn("failed to initialize telegram notifier", zap.Error(err))
		} else {
			ingestion.AddObserver(notifier)
		}
	}

	return &Services{
		Ingestion: ingestion,
		Explain:   explain.NewService(articles, explainer),
		Articles:  articles,
		Stats:     statsRepo,
		Templates: tm,
	}, nil
}
