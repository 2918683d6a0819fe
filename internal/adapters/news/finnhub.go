package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/selivandex/news-pulse/internal/adapters/config"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

// FinnhubProvider fetches market news from the Finnhub REST API
type FinnhubProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
}

// NewFinnhubProvider creates new Finnhub provider
func NewFinnhubProvider(cfg config.FinnhubConfig) *FinnhubProvider {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &FinnhubProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), len(models.NewsCategories)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

func (f *FinnhubProvider) GetName() string {
	return "finnhub"
}

type finnhubItem struct {
	Category string `json:"category"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
}

// FetchCategory implements Provider
func (f *FinnhubProvider) FetchCategory(ctx context.Context, category string, limit int) ([]models.RawNewsItem, error) {
	if !models.IsNewsCategory(category) {
		return nil, fmt.Errorf("unknown category %q", category)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	query := url.Values{}
	query.Set("category", category)
	query.Set("token", f.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/news?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload []finnhubItem
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	items := make([]models.RawNewsItem, 0, len(payload))
	for _, p := range payload {
		if limit > 0 && len(items) == limit {
			break
		}
		if p.ID == 0 || strings.TrimSpace(p.Headline) == "" {
			continue
		}

		itemCategory := p.Category
		if itemCategory == "" {
			itemCategory = category
		}

		// headline and summary are kept exactly as the feed sent them
		item := models.RawNewsItem{
			ID:       strconv.FormatInt(p.ID, 10),
			Headline: p.Headline,
			Summary:  p.Summary,
			Source:   p.Source,
			Category: itemCategory,
			URL:      p.URL,
		}
		if p.Datetime > 0 {
			item.PublishedAt = time.Unix(p.Datetime, 0).UTC()
		}

		items = append(items, item)
	}

	logger.Debug("fetched Finnhub news",
		zap.String("category", category),
		zap.Int("count", len(items)),
	)

	return items, nil
}
