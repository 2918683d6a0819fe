package news

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/selivandex/news-pulse/pkg/models"
)

type stubProvider struct {
	items map[string][]models.RawNewsItem
	fail  map[string]bool
}

func (s *stubProvider) GetName() string { return "stub" }

func (s *stubProvider) FetchCategory(_ context.Context, category string, limit int) ([]models.RawNewsItem, error) {
	if s.fail[category] {
		return nil, errors.New("upstream down")
	}
	items := s.items[category]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func TestAggregatorFetchAll(t *testing.T) {
	p := &stubProvider{
		items: map[string][]models.RawNewsItem{
			"general": {{ID: "g1"}, {ID: "g2"}},
			"crypto":  {{ID: "c1"}},
			"forex":   {{ID: "f1"}},
			"merger":  {{ID: "m1"}, {ID: "m2"}, {ID: "m3"}},
		},
		fail: map[string]bool{"forex": true},
	}

	items := NewAggregator(p).FetchAll(context.Background(), models.NewsCategories, 2)

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"g1", "g2", "c1", "m1", "m2"}, ids)
}

func TestAggregatorAllCategoriesFail(t *testing.T) {
	p := &stubProvider{fail: map[string]bool{"general": true, "crypto": true}}

	items := NewAggregator(p).FetchAll(context.Background(), []string{"general", "crypto"}, 10)
	assert.Empty(t, items)
}
