package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/metrics"
)

// GuardConfig configures GuardedProvider
type GuardConfig struct {
	Metrics           metrics.Buffer // optional
	Timeout           time.Duration
	RequestsPerSecond float64
}

// GuardedProvider bounds every call of the wrapped provider by a timeout and
// a shared rate limit, and records each call as a metric
type GuardedProvider struct {
	next    Provider
	limiter *rate.Limiter
	metrics metrics.Buffer
	timeout time.Duration
}

// NewGuardedProvider wraps next
func NewGuardedProvider(next Provider, cfg GuardConfig) *GuardedProvider {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NopBuffer{}
	}

	return &GuardedProvider{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		metrics: cfg.Metrics,
		timeout: cfg.Timeout,
	}
}

func (g *GuardedProvider) Name() string {
	return g.next.Name()
}

func (g *GuardedProvider) IsEnabled() bool {
	return g.next.IsEnabled()
}

// Generate implements Provider
func (g *GuardedProvider) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	if !g.next.IsEnabled() {
		return "", ErrNoProvider
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	out, err := g.next.Generate(ctx, req)
	duration := time.Since(start)

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s call timed out after %s: %w", g.next.Name(), g.timeout, err)
	}

	g.record(req.Operation, duration, err)

	return out, err
}

func (g *GuardedProvider) record(op Operation, duration time.Duration, err error) {
	m := &metrics.AICallMetric{
		Timestamp:  time.Now().UTC(),
		Provider:   g.next.Name(),
		Operation:  string(op),
		DurationMs: duration.Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		m.Failure = truncateContent(err.Error(), 256)
	}

	if addErr := g.metrics.Add(m); addErr != nil {
		logger.Debug("failed to record AI call metric", zap.Error(addErr))
	}
}
