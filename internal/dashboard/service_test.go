package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/news-pulse/internal/adapters/news"
	"github.com/selivandex/news-pulse/internal/adapters/stats"
	"github.com/selivandex/news-pulse/internal/topics"
	"github.com/selivandex/news-pulse/pkg/models"
)

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n, nil
}

type fakeArticles struct {
	articles []models.Article
	queries  []news.ArticleQuery
}

func (f *fakeArticles) ListArticles(_ context.Context, q news.ArticleQuery) ([]models.Article, error) {
	f.queries = append(f.queries, q)
	if len(f.articles) > q.Limit {
		return f.articles[:q.Limit], nil
	}
	return f.articles, nil
}

type fakeStats struct {
	topics     []models.TopicStat
	ipo        *models.TopicStat
	pulse      *models.MarketPulse
	pulseReads int
	excluded   []string
}

func (f *fakeStats) TopTopics(_ context.Context, limit int, exclude ...string) ([]models.TopicStat, error) {
	f.excluded = exclude
	return f.topics, nil
}

func (f *fakeStats) GetTopic(_ context.Context, key string) (*models.TopicStat, error) {
	if key == topics.IPOHeatKey && f.ipo != nil {
		return f.ipo, nil
	}
	return nil, stats.ErrNotFound
}

func (f *fakeStats) GetMarketPulse(context.Context) (*models.MarketPulse, error) {
	f.pulseReads++
	if f.pulse == nil {
		return nil, stats.ErrNotFound
	}
	return f.pulse, nil
}

func articles(n int) []models.Article {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{ID: string(rune('a' + i)), CreatedAt: base.Add(-time.Duration(i) * time.Minute)}
	}
	return out
}

func TestListArticlesPaging(t *testing.T) {
	reader := &fakeArticles{articles: articles(12)}
	svc := NewService(reader, &fakeStats{}, nil, 0)

	page, err := svc.ListArticles(context.Background(), " Crypto ", "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Articles, DefaultPageSize)
	require.NotEmpty(t, page.NextCursor)
	assert.Equal(t, "crypto", reader.queries[0].Category)
	assert.Nil(t, reader.queries[0].Before)

	_, err = svc.ListArticles(context.Background(), "", page.NextCursor, 500)
	require.NoError(t, err)
	q := reader.queries[1]
	assert.Equal(t, MaxPageSize, q.Limit)
	require.NotNil(t, q.Before)
	assert.Equal(t, "j", q.Before.ID)
	assert.True(t, q.Before.CreatedAt.Equal(page.Articles[9].CreatedAt))
}

func TestListArticlesLastPageHasNoCursor(t *testing.T) {
	svc := NewService(&fakeArticles{articles: articles(3)}, &fakeStats{}, nil, 0)

	page, err := svc.ListArticles(context.Background(), "", "", 10)
	require.NoError(t, err)
	assert.Len(t, page.Articles, 3)
	assert.Empty(t, page.NextCursor)
}

func TestListArticlesRejectsBadCursor(t *testing.T) {
	svc := NewService(&fakeArticles{}, &fakeStats{}, nil, 0)
	_, err := svc.ListArticles(context.Background(), "", "%%%", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 123456789, time.UTC)
	c, err := DecodeCursor(EncodeCursor(news.Cursor{CreatedAt: at, ID: "a|b"}))
	require.NoError(t, err)
	assert.True(t, at.Equal(c.CreatedAt))
	assert.Equal(t, "a|b", c.ID)

	none, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTopTopicsExcludesIPOHeat(t *testing.T) {
	st := &fakeStats{topics: []models.TopicStat{{Key: "rates", Frequency: 4}}}
	svc := NewService(&fakeArticles{}, st, nil, 0)

	got, err := svc.TopTopics(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []string{topics.IPOHeatKey}, st.excluded)
}

func TestIPOHeatLevels(t *testing.T) {
	svc := NewService(&fakeArticles{}, &fakeStats{}, nil, 0)
	heat, err := svc.IPOHeat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), heat.Stat.Frequency)
	assert.Equal(t, models.HeatLow, heat.Level)

	svc = NewService(&fakeArticles{}, &fakeStats{ipo: &models.TopicStat{Key: topics.IPOHeatKey, Frequency: 11}}, nil, 0)
	heat, err = svc.IPOHeat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.HeatHigh, heat.Level)
}

func TestMarketPulseReadThroughAndInvalidation(t *testing.T) {
	st := &fakeStats{pulse: &models.MarketPulse{Score: 0.8, Label: models.PulseBullish, BasedOnCount: 5}}
	cache := newMemoryCache()
	svc := NewService(&fakeArticles{}, st, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		pulse, err := svc.MarketPulse(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.PulseBullish, pulse.Label)
	}
	assert.Equal(t, 1, st.pulseReads)

	st.pulse = &models.MarketPulse{Score: -0.9, Label: models.PulseBearish, BasedOnCount: 2}
	require.NoError(t, svc.OnRunCommitted(ctx, &models.RunReport{}))

	pulse, err := svc.MarketPulse(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PulseBearish, pulse.Label)
	assert.Equal(t, 2, st.pulseReads)
}

func TestMarketPulseMissing(t *testing.T) {
	svc := NewService(&fakeArticles{}, &fakeStats{}, newMemoryCache(), 0)
	_, err := svc.MarketPulse(context.Background())
	assert.True(t, errors.Is(err, ErrNoPulse))
}
