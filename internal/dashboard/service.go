package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/news"
	"github.com/selivandex/news-pulse/internal/adapters/stats"
	"github.com/selivandex/news-pulse/internal/topics"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	DefaultTopics   = 10
	MaxTopics       = 50

	cachePrefix = "pulse:dash:"
)

// ErrNoPulse is returned before the first run has committed a pulse
var ErrNoPulse = errors.New("market pulse not computed yet")

// ArticleReader pages through stored articles
type ArticleReader interface {
	ListArticles(ctx context.Context, q news.ArticleQuery) ([]models.Article, error)
}

// StatsReader reads the aggregate records
type StatsReader interface {
	TopTopics(ctx context.Context, limit int, exclude ...string) ([]models.TopicStat, error)
	GetTopic(ctx context.Context, key string) (*models.TopicStat, error)
	GetMarketPulse(ctx context.Context) (*models.MarketPulse, error)
}

// Cache is a JSON key-value cache with prefix invalidation
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Page is one page of the article feed
type Page struct {
	Articles   []models.Article `json:"articles"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// Service serves dashboard reads through a read-through cache
type Service struct {
	articles ArticleReader
	stats    StatsReader
	cache    Cache
	ttl      time.Duration
}

// NewService creates new dashboard service; cache may be nil
func NewService(articles ArticleReader, stats StatsReader, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{articles: articles, stats: stats, cache: cache, ttl: ttl}
}

// ListArticles returns articles newest first, optionally filtered by category
func (s *Service) ListArticles(ctx context.Context, category, cursor string, limit int) (*Page, error) {
	before, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	limit = clamp(limit, DefaultPageSize, MaxPageSize)
	category = strings.ToLower(strings.TrimSpace(category))

	key := fmt.Sprintf("%sarticles:%s:%s:%d", cachePrefix, category, cursor, limit)
	page := &Page{}
	err = s.cached(ctx, key, page, func() error {
		articles, err := s.articles.ListArticles(ctx, news.ArticleQuery{
			Category: category,
			Before:   before,
			Limit:    limit,
		})
		if err != nil {
			return err
		}

		page.Articles = articles
		if len(articles) == limit {
			last := articles[len(articles)-1]
			page.NextCursor = EncodeCursor(news.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// TopTopics returns the most mentioned topics; the IPO heat counter is reported separately
func (s *Service) TopTopics(ctx context.Context, limit int) ([]models.TopicStat, error) {
	limit = clamp(limit, DefaultTopics, MaxTopics)

	var result []models.TopicStat
	err := s.cached(ctx, fmt.Sprintf("%stopics:%d", cachePrefix, limit), &result, func() error {
		var err error
		result, err = s.stats.TopTopics(ctx, limit, topics.IPOHeatKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []models.TopicStat{}
	}
	return result, nil
}

// IPOHeat returns the IPO heat counter; it reads as zero until the first IPO mention
func (s *Service) IPOHeat(ctx context.Context) (*models.IPOHeat, error) {
	heat := &models.IPOHeat{}
	err := s.cached(ctx, cachePrefix+"ipo-heat", heat, func() error {
		stat, err := s.stats.GetTopic(ctx, topics.IPOHeatKey)
		if errors.Is(err, stats.ErrNotFound) {
			stat = &models.TopicStat{Key: topics.IPOHeatKey, Topic: topics.IPOHeatName}
		} else if err != nil {
			return err
		}

		heat.Stat = *stat
		heat.Level = topics.HeatLevelFor(stat.Frequency)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return heat, nil
}

// MarketPulse returns the latest market pulse
func (s *Service) MarketPulse(ctx context.Context) (*models.MarketPulse, error) {
	pulse := &models.MarketPulse{}
	err := s.cached(ctx, cachePrefix+"pulse", pulse, func() error {
		stored, err := s.stats.GetMarketPulse(ctx)
		if errors.Is(err, stats.ErrNotFound) {
			return ErrNoPulse
		}
		if err != nil {
			return err
		}
		*pulse = *stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pulse, nil
}

// Invalidate drops every cached dashboard read
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	n, err := s.cache.DeletePrefix(ctx, cachePrefix)
	if err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	logger.Debug("dashboard cache invalidated", zap.Int("keys", n))
	return nil
}

// OnRunCommitted implements workers.RunObserver
func (s *Service) OnRunCommitted(ctx context.Context, _ *models.RunReport) error {
	return s.Invalidate(ctx)
}

// cached fills dst from the cache, or calls load and caches dst on success.
// Cache failures only cost a database read.
func (s *Service) cached(ctx context.Context, key string, dst any, load func() error) error {
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, dst)
		if err != nil {
			logger.Warn("dashboard cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return nil
		}
	}

	if err := load(); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, dst, s.ttl); err != nil {
			logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func clamp(v, def, ceiling int) int {
	if v <= 0 {
		return def
	}
	if v > ceiling {
		return ceiling
	}
	return v
}
