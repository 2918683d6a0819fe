package news

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

// Provider represents news source provider interface
type Provider interface {
	// GetName returns provider name
	GetName() string

	// FetchCategory returns at most limit newest items of one category
	FetchCategory(ctx context.Context, category string, limit int) ([]models.RawNewsItem, error)
}

// Aggregator fans a fetch out over categories. A failing category is logged
// and contributes no items; it never fails the whole fetch.
type Aggregator struct {
	provider Provider
}

// NewAggregator creates new news aggregator
func NewAggregator(provider Provider) *Aggregator {
	return &Aggregator{provider: provider}
}

// FetchAll fetches every category concurrently and concatenates the results in category order
func (a *Aggregator) FetchAll(ctx context.Context, categories []string, limit int) []models.RawNewsItem {
	results := make([][]models.RawNewsItem, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			items, err := a.provider.FetchCategory(gctx, category, limit)
			if err != nil {
				logger.Warn("failed to fetch news category",
					zap.String("provider", a.provider.GetName()),
					zap.String("category", category),
					zap.Error(err),
				)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, items := range results {
		total += len(items)
	}

	all := make([]models.RawNewsItem, 0, total)
	for _, items := range results {
		all = append(all, items...)
	}

	logger.Debug("news fetched",
		zap.String("provider", a.provider.GetName()),
		zap.Int("categories", len(categories)),
		zap.Int("items", total),
	)

	return all
}
