package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/selivandex/news-pulse/pkg/models"
	"github.com/selivandex/news-pulse/pkg/templates"
)

// ExplainerConfig configures Explainer
type ExplainerConfig struct {
	Language    string
	Temperature float32
}

// Explainer produces the deep explanation of one article
type Explainer struct {
	provider Provider
	renderer templates.Renderer
	validate *validator.Validate
	system   string
	cfg      ExplainerConfig
}

// NewExplainer creates new explainer; the system instruction is rendered once
func NewExplainer(provider Provider, renderer templates.Renderer, cfg ExplainerConfig) (*Explainer, error) {
	if cfg.Language == "" {
		cfg.Language = "English"
	}

	system, err := renderer.ExecuteTemplate(templates.ExplainSystem, map[string]any{
		"Language": cfg.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render explanation prompt: %w", err)
	}

	return &Explainer{
		provider: provider,
		renderer: renderer,
		validate: validator.New(),
		system:   system,
		cfg:      cfg,
	}, nil
}

// Explain asks the model to explain text in the context of article
func (e *Explainer) Explain(ctx context.Context, article *models.Article, text string) (*models.Explanation, error) {
	if e.provider == nil || !e.provider.IsEnabled() {
		return nil, ErrNoProvider
	}

	user, err := e.renderer.ExecuteTemplate(templates.ExplainUser, map[string]any{
		"Title":  article.Title,
		"Source": article.Source,
		"Text":   text,
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.provider.Generate(ctx, &GenerateRequest{
		SystemInstruction: e.system,
		UserText:          user,
		Operation:         OperationExplain,
		Temperature:       e.cfg.Temperature,
		JSON:              true,
	})
	if err != nil {
		return nil, err
	}

	return e.parse(raw)
}

func (e *Explainer) parse(raw string) (*models.Explanation, error) {
	var explanation models.Explanation
	if err := json.Unmarshal([]byte(extractJSON(raw)), &explanation); err != nil {
		return nil, fmt.Errorf("unparseable explanation: %w", err)
	}

	bullets := make([]string, 0, len(explanation.Bullets))
	for _, b := range explanation.Bullets {
		if b = strings.TrimSpace(b); b != "" {
			bullets = append(bullets, b)
		}
	}
	explanation.Bullets = bullets
	explanation.ShortTermImpact = strings.TrimSpace(explanation.ShortTermImpact)
	explanation.LongTermImpact = strings.TrimSpace(explanation.LongTermImpact)

	if err := e.validate.Struct(&explanation); err != nil {
		return nil, fmt.Errorf("incomplete explanation: %w", err)
	}

	return &explanation, nil
}
