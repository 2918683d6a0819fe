package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/selivandex/news-pulse/internal/adapters/config"
)

var (
	// ErrNoProvider is returned when no API key is configured for the text-generation capability
	ErrNoProvider = errors.New("no AI provider configured")
	// ErrEmptyResponse is returned when the model produced no text
	ErrEmptyResponse = errors.New("empty AI response")
)

// Operation labels a request for logs and metrics
type Operation string

const (
	OperationExtract Operation = "extract"
	OperationExplain Operation = "explain"
)

// GenerateRequest is one request to a text-generation model
type GenerateRequest struct {
	SystemInstruction string
	UserText          string
	Operation         Operation
	Temperature       float32
	// JSON asks the model for a JSON-only response
	JSON bool
}

// Provider represents AI provider interface
type Provider interface {
	// Name returns provider name
	Name() string

	// IsEnabled reports whether credentials are configured
	IsEnabled() bool

	// Generate returns the raw model output
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// NewProvider builds the provider selected in configuration. A provider without
// an API key is returned disabled and fails every call with ErrNoProvider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.Gemini)
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
