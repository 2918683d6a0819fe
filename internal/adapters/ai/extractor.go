package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
	"github.com/selivandex/news-pulse/pkg/templates"
)

// FailureReason classifies why enrichment fell back
type FailureReason string

const (
	FailureNoProvider FailureReason = "no_provider"
	FailureTransport  FailureReason = "transport"
	FailureParse      FailureReason = "parse"
	FailureSchema     FailureReason = "schema"
)

// Failure describes a failed extraction
type Failure struct {
	Err    error
	Reason FailureReason
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Extraction is the result of one extraction: either extracted fields, or the
// fallback fields together with the failure that caused it
type Extraction struct {
	Failure *Failure
	Fields  models.Enrichment
}

// Failed reports whether Fields hold the fallback
func (e Extraction) Failed() bool {
	return e.Failure != nil
}

// ExtractorConfig configures Extractor
type ExtractorConfig struct {
	Language    string
	Temperature float32
	// MaxBodyRunes bounds the article text sent to the model
	MaxBodyRunes int
}

// Extractor turns a headline and body into summary, sentiment and topics
type Extractor struct {
	provider Provider
	renderer templates.Renderer
	validate *validator.Validate
	system   string
	cfg      ExtractorConfig
}

type extractionPayload struct {
	Sentiment *float64 `json:"sentiment" validate:"required"`
	Topics    []string `json:"topics" validate:"required"`
	Summary   string   `json:"summary"`
}

// NewExtractor creates new extractor; the system instruction is rendered once
func NewExtractor(provider Provider, renderer templates.Renderer, cfg ExtractorConfig) (*Extractor, error) {
	if cfg.Language == "" {
		cfg.Language = "English"
	}
	if cfg.MaxBodyRunes <= 0 {
		cfg.MaxBodyRunes = 4000
	}

	system, err := renderer.ExecuteTemplate(templates.ExtractSystem, map[string]any{
		"Language":  cfg.Language,
		"MaxTopics": models.MaxTopics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render extraction prompt: %w", err)
	}

	return &Extractor{
		provider: provider,
		renderer: renderer,
		validate: validator.New(),
		system:   system,
		cfg:      cfg,
	}, nil
}

// Extract never returns an error: any failure yields the fallback fields
// (neutral sentiment, "General" topic, unmodified raw summary)
func (e *Extractor) Extract(ctx context.Context, headline, body string) Extraction {
	fields, err := e.extract(ctx, headline, body)
	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Reason: FailureTransport, Err: err}
		}
		return Extraction{Fields: models.FallbackEnrichment(body), Failure: failure}
	}

	return Extraction{Fields: fields}
}

func (e *Extractor) extract(ctx context.Context, headline, body string) (models.Enrichment, error) {
	if e.provider == nil || !e.provider.IsEnabled() {
		return models.Enrichment{}, &Failure{Reason: FailureNoProvider, Err: ErrNoProvider}
	}

	user, err := e.renderer.ExecuteTemplate(templates.ExtractUser, map[string]any{
		"Headline": promptText(headline),
		"Body":     truncateContent(promptText(body), e.cfg.MaxBodyRunes),
	})
	if err != nil {
		return models.Enrichment{}, &Failure{Reason: FailureTransport, Err: err}
	}

	raw, err := e.provider.Generate(ctx, &GenerateRequest{
		SystemInstruction: e.system,
		UserText:          user,
		Operation:         OperationExtract,
		Temperature:       e.cfg.Temperature,
		JSON:              true,
	})
	if err != nil {
		if errors.Is(err, ErrNoProvider) {
			return models.Enrichment{}, &Failure{Reason: FailureNoProvider, Err: err}
		}
		return models.Enrichment{}, &Failure{Reason: FailureTransport, Err: err}
	}

	fields, err := e.parse(raw, body)
	if err != nil {
		logger.Debug("unusable extraction response",
			zap.String("provider", e.provider.Name()),
			zap.String("response", truncateContent(raw, 200)),
			zap.Error(err),
		)
		return models.Enrichment{}, err
	}

	return fields, nil
}

// parse validates a model response and repairs what can be repaired
func (e *Extractor) parse(raw, rawSummary string) (models.Enrichment, error) {
	var payload extractionPayload

	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return models.Enrichment{}, &Failure{Reason: FailureSchema, Err: err}
		}
		return models.Enrichment{}, &Failure{Reason: FailureParse, Err: err}
	}

	if err := e.validate.Struct(payload); err != nil {
		return models.Enrichment{}, &Failure{Reason: FailureSchema, Err: err}
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = rawSummary
	}

	topics := normalizeTopics(payload.Topics)
	if len(topics) == 0 {
		topics = []string{models.FallbackTopic}
	}

	return models.Enrichment{
		Summary:   summary,
		Sentiment: clampSentiment(*payload.Sentiment),
		Topics:    topics,
	}, nil
}

func clampSentiment(v float64) models.Sentiment {
	rounded := math.Round(v)
	switch {
	case rounded > 0:
		return models.SentimentBullish
	case rounded < 0:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

// normalizeTopics trims, drops empty and case-insensitive duplicate topics, keeping the first MaxTopics
func normalizeTopics(topics []string) []string {
	out := make([]string, 0, models.MaxTopics)
	seen := make(map[string]bool, len(topics))

	for _, topic := range topics {
		topic = strings.Join(strings.Fields(topic), " ")
		if topic == "" {
			continue
		}
		key := strings.ToLower(topic)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, topic)
		if len(out) == models.MaxTopics {
			break
		}
	}

	return out
}
