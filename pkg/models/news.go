package models

import (
	"strings"
	"time"
)

// Sentiment is the direction assigned to a news item: -1 bearish, 0 neutral, 1 bullish
type Sentiment int

const (
	SentimentBearish Sentiment = -1
	SentimentNeutral Sentiment = 0
	SentimentBullish Sentiment = 1
)

// Valid reports whether s is one of the three allowed values
func (s Sentiment) Valid() bool {
	return s >= SentimentBearish && s <= SentimentBullish
}

// FallbackTopic is assigned when enrichment could not produce topics
const FallbackTopic = "General"

// MaxTopics bounds the number of topics stored per article
const MaxTopics = 3

// RawNewsItem represents single item as returned by the news feed
type RawNewsItem struct {
	PublishedAt time.Time `json:"published_at"`
	ID          string    `json:"id"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	URL         string    `json:"url"`
}

// Enrichment holds AI-derived fields attached to a raw item
type Enrichment struct {
	Summary   string    `json:"summary"`
	Topics    []string  `json:"topics"`
	Sentiment Sentiment `json:"sentiment"`
}

// FallbackEnrichment is used whenever the AI capability is unavailable or misbehaves
func FallbackEnrichment(rawSummary string) Enrichment {
	return Enrichment{
		Summary:   rawSummary,
		Sentiment: SentimentNeutral,
		Topics:    []string{FallbackTopic},
	}
}

// Explanation is the cached deep-analysis payload of one article
type Explanation struct {
	ShortTermImpact string   `json:"shortTermImpact" validate:"required"`
	LongTermImpact  string   `json:"longTermImpact" validate:"required"`
	Bullets         []string `json:"bullets" validate:"min=1,dive,required"`
}

// IsEmpty reports whether there is nothing cached
func (e *Explanation) IsEmpty() bool {
	if e == nil {
		return true
	}
	return len(e.Bullets) == 0 && strings.TrimSpace(e.ShortTermImpact) == "" && strings.TrimSpace(e.LongTermImpact) == ""
}

// Article is one ingested and enriched news item, keyed by the feed's article id
type Article struct {
	PublishedAt time.Time    `json:"publishedAt" db:"published_at"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	Explanation *Explanation `json:"explanation,omitempty" db:"-"`
	ID          string       `json:"id" db:"article_id"`
	Title       string       `json:"title" db:"title"`
	Source      string       `json:"source" db:"source"`
	Category    string       `json:"category" db:"category"`
	URL         string       `json:"url" db:"url"`
	Summary     string       `json:"summary" db:"summary"`
	Topics      []string     `json:"topics" db:"topics"`
	Sentiment   Sentiment    `json:"sentiment" db:"sentiment"`
}

// NewArticle combines a raw feed item with its enrichment
func NewArticle(raw RawNewsItem, enrichment Enrichment) Article {
	return Article{
		ID:          raw.ID,
		Title:       raw.Headline,
		Source:      raw.Source,
		Category:    raw.Category,
		URL:         raw.URL,
		Summary:     enrichment.Summary,
		Sentiment:   enrichment.Sentiment,
		Topics:      enrichment.Topics,
		PublishedAt: raw.PublishedAt,
	}
}

// NewsCategories is the fixed set of feed categories the pipeline fetches
var NewsCategories = []string{"general", "crypto", "forex", "merger"}

// SpecializedCategories are the categories that are not folded into "general" when filtering
var SpecializedCategories = []string{"crypto", "forex", "merger"}

// IsNewsCategory reports whether c is one of NewsCategories
func IsNewsCategory(c string) bool {
	for _, known := range NewsCategories {
		if strings.EqualFold(known, c) {
			return true
		}
	}
	return false
}
