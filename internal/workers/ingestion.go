package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/selivandex/news-pulse/internal/adapters/ai"
	"github.com/selivandex/news-pulse/internal/sentiment"
	"github.com/selivandex/news-pulse/internal/topics"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/metrics"
	"github.com/selivandex/news-pulse/pkg/models"
)

// Fetcher returns the candidate items of one run
type Fetcher interface {
	FetchAll(ctx context.Context, categories []string, limit int) []models.RawNewsItem
}

// ArticleIndex answers which article ids are already stored
type ArticleIndex interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Extractor enriches one item; it never fails, failures come back as fallback fields
type Extractor interface {
	Extract(ctx context.Context, headline, body string) ai.Extraction
}

// Committer writes everything a run produced as one atomic unit
type Committer interface {
	CommitBatch(ctx context.Context, batch *models.IngestBatch) error
}

// RunObserver is told about every run that committed new articles
type RunObserver interface {
	OnRunCommitted(ctx context.Context, report *models.RunReport) error
}

// IngestionConfig configures IngestionWorker
type IngestionConfig struct {
	Categories       []string
	PerCategoryLimit int
	Concurrency      int
}

// IngestionWorker runs one fetch, dedup, enrich, aggregate and commit cycle per invocation.
// It holds no lock: a replayed or overlapping run is made harmless by the
// existence check and the all-or-nothing commit.
type IngestionWorker struct {
	fetcher   Fetcher
	index     ArticleIndex
	extractor Extractor
	committer Committer
	metrics   metrics.Buffer
	observers []RunObserver
	cfg       IngestionConfig
	now       func() time.Time
}

// NewIngestionWorker creates new ingestion worker
func NewIngestionWorker(
	fetcher Fetcher,
	index ArticleIndex,
	extractor Extractor,
	committer Committer,
	cfg IngestionConfig,
) *IngestionWorker {
	if len(cfg.Categories) == 0 {
		cfg.Categories = models.NewsCategories
	}
	if cfg.PerCategoryLimit <= 0 {
		cfg.PerCategoryLimit = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	return &IngestionWorker{
		fetcher:   fetcher,
		index:     index,
		extractor: extractor,
		committer: committer,
		metrics:   metrics.NopBuffer{},
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithMetrics records one IngestionRunMetric per run
func (w *IngestionWorker) WithMetrics(buf metrics.Buffer) *IngestionWorker {
	w.metrics = buf
	return w
}

// AddObserver registers an observer for committed runs
func (w *IngestionWorker) AddObserver(o RunObserver) {
	w.observers = append(w.observers, o)
}

// Name implements worker.Worker
func (w *IngestionWorker) Name() string {
	return "news_ingestion"
}

// Run implements worker.Worker
func (w *IngestionWorker) Run(ctx context.Context) error {
	_, err := w.Ingest(ctx)
	return err
}

// Ingest executes one run. An error means nothing was committed.
func (w *IngestionWorker) Ingest(ctx context.Context) (*models.RunReport, error) {
	report := &models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: w.now(),
	}
	log := logger.With(zap.String("run_id", report.RunID))

	err := w.ingest(ctx, report, log)
	report.Duration = time.Since(report.StartedAt)

	if err != nil {
		w.enter(report, models.RunFailed, log)
		log.Error("ingestion run failed",
			zap.Duration("duration", report.Duration),
			zap.Error(err),
		)
		w.record(report)
		return report, err
	}

	w.enter(report, models.RunDone, log)
	log.Info("ingestion run finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("new", report.Enriched),
		zap.Int("fallbacks", report.Fallbacks),
		zap.Int64("ipo_mentions", report.IPOMentions),
		zap.Duration("duration", report.Duration),
	)
	w.record(report)

	if report.Committed() {
		w.notify(ctx, report, log)
	}

	return report, nil
}

func (w *IngestionWorker) ingest(ctx context.Context, report *models.RunReport, log *zap.Logger) error {
	w.enter(report, models.RunFetching, log)
	items := w.fetcher.FetchAll(ctx, w.cfg.Categories, w.cfg.PerCategoryLimit)
	report.Fetched = len(items)

	w.enter(report, models.RunDeduplicating, log)
	candidates, err := w.deduplicate(ctx, items)
	if err != nil {
		return err
	}
	report.Duplicates = len(items) - len(candidates)

	if len(candidates) == 0 {
		log.Info("no new articles")
		return nil
	}

	w.enter(report, models.RunEnriching, log)
	extractions := w.enrich(ctx, candidates)

	w.enter(report, models.RunAggregating, log)
	batch := w.aggregate(candidates, extractions, report)

	w.enter(report, models.RunCommitting, log)
	if err := w.committer.CommitBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to commit batch of %d articles: %w", len(batch.Articles), err)
	}

	report.Enriched = len(batch.Articles)
	report.Pulse = batch.Pulse
	report.ArticleIDs = make([]string, 0, len(batch.Articles))
	for _, a := range batch.Articles {
		report.ArticleIDs = append(report.ArticleIDs, a.ID)
	}

	return nil
}

// deduplicate collapses repeated ids to their first occurrence and drops ids already stored
func (w *IngestionWorker) deduplicate(ctx context.Context, items []models.RawNewsItem) ([]models.RawNewsItem, error) {
	seen := make(map[string]bool, len(items))
	unique := make([]models.RawNewsItem, 0, len(items))
	ids := make([]string, 0, len(items))

	for _, item := range items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		unique = append(unique, item)
		ids = append(ids, item.ID)
	}

	existing, err := w.index.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("existence check failed: %w", err)
	}

	candidates := unique[:0]
	for _, item := range unique {
		if !existing[item.ID] {
			candidates = append(candidates, item)
		}
	}

	return candidates, nil
}

func (w *IngestionWorker) enrich(ctx context.Context, candidates []models.RawNewsItem) []ai.Extraction {
	extractions := make([]ai.Extraction, len(candidates))

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)
	for i, item := range candidates {
		g.Go(func() error {
			extractions[i] = w.extractor.Extract(ctx, item.Headline, item.Summary)
			return nil
		})
	}
	_ = g.Wait()

	return extractions
}

func (w *IngestionWorker) aggregate(candidates []models.RawNewsItem, extractions []ai.Extraction, report *models.RunReport) *models.IngestBatch {
	batch := &models.IngestBatch{Articles: make([]models.Article, 0, len(candidates))}
	tally := topics.NewTally()
	sentiments := make([]models.Sentiment, 0, len(candidates))

	var ipoMentions int64
	for i, item := range candidates {
		extraction := extractions[i]
		if extraction.Failed() {
			report.Fallbacks++
			logger.Debug("enrichment fell back",
				zap.String("run_id", report.RunID),
				zap.String("article_id", item.ID),
				zap.String("reason", string(extraction.Failure.Reason)),
				zap.Error(extraction.Failure.Err),
			)
		}

		article := models.NewArticle(item, extraction.Fields)
		batch.Articles = append(batch.Articles, article)
		sentiments = append(sentiments, article.Sentiment)

		for _, topic := range article.Topics {
			tally.Add(topic)
		}
		if topics.IsIPORelated(article.Topics, item.Headline, item.Summary) {
			ipoMentions++
		}
	}

	tally.AddIPOHeat(ipoMentions)
	report.IPOMentions = ipoMentions

	batch.Topics = tally.Increments()
	batch.Pulse = sentiment.ComputePulse(sentiments, w.now())

	return batch
}

func (w *IngestionWorker) enter(report *models.RunReport, state models.RunState, log *zap.Logger) {
	report.State = state
	log.Debug("ingestion state", zap.String("state", string(state)))
}

func (w *IngestionWorker) notify(ctx context.Context, report *models.RunReport, log *zap.Logger) {
	for _, o := range w.observers {
		if err := o.OnRunCommitted(ctx, report); err != nil {
			log.Warn("run observer failed",
				zap.String("observer", fmt.Sprintf("%T", o)),
				zap.Error(err),
			)
		}
	}
}

func (w *IngestionWorker) record(report *models.RunReport) {
	m := &metrics.IngestionRunMetric{
		Timestamp:   report.StartedAt.UTC(),
		RunID:       report.RunID,
		State:       string(report.State),
		Fetched:     report.Fetched,
		Duplicates:  report.Duplicates,
		Enriched:    report.Enriched,
		Fallbacks:   report.Fallbacks,
		IPOMentions: report.IPOMentions,
		DurationMs:  report.Duration.Milliseconds(),
	}
	if report.Pulse != nil {
		m.PulseScore = report.Pulse.Score
		m.PulseLabel = string(report.Pulse.Label)
	}

	if err := w.metrics.Add(m); err != nil {
		logger.Debug("failed to record run metric", zap.Error(err))
	}
}
