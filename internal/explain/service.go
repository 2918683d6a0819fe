package explain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/internal/adapters/news"
	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

// Request is one on-demand explanation request
type Request struct {
	ArticleID     string `json:"articleId" validate:"required"`
	TextToExplain string `json:"textToExplain" validate:"required"`
}

// ArticleStore loads articles and stores their explanations
type ArticleStore interface {
	GetArticle(ctx context.Context, id string) (*models.Article, error)
	SetExplanation(ctx context.Context, id string, explanation *models.Explanation) error
}

// Explainer is the text-generation side of the service
type Explainer interface {
	Explain(ctx context.Context, article *models.Article, text string) (*models.Explanation, error)
}

// CacheInvalidator drops read views that embed stored explanations
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service answers explanation requests, serving the stored explanation when present
type Service struct {
	articles     ArticleStore
	explainer    Explainer
	invalidators []CacheInvalidator
	validate     *validator.Validate
}

// NewService creates new explanation service
func NewService(articles ArticleStore, explainer Explainer) *Service {
	return &Service{
		articles:  articles,
		explainer: explainer,
		validate:  validator.New(),
	}
}

// WithInvalidators registers caches to drop after a new explanation is stored
func (s *Service) WithInvalidators(invalidators ...CacheInvalidator) *Service {
	s.invalidators = append(s.invalidators, invalidators...)
	return s
}

// Explain returns the explanation of an article on behalf of callerID.
// Every error is an *Error. A failed computation writes nothing.
func (s *Service) Explain(ctx context.Context, callerID string, req Request) (*models.Explanation, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, newError(Unauthenticated, "authentication required", nil)
	}

	req.ArticleID = strings.TrimSpace(req.ArticleID)
	req.TextToExplain = strings.TrimSpace(req.TextToExplain)
	if err := s.validate.Struct(&req); err != nil {
		return nil, newError(InvalidArgument, "articleId and textToExplain are required", err)
	}

	log := logger.With(zap.String("article_id", req.ArticleID), zap.String("caller", callerID))

	article, err := s.articles.GetArticle(ctx, req.ArticleID)
	if errors.Is(err, news.ErrArticleNotFound) {
		return nil, newError(InvalidArgument, "unknown article", err)
	}
	if err != nil {
		log.Error("failed to load article", zap.Error(err))
		return nil, newError(Internal, "failed to load article", err)
	}

	if !article.Explanation.IsEmpty() {
		log.Debug("explanation served from cache")
		return article.Explanation, nil
	}

	start := time.Now()
	explanation, err := s.explainer.Explain(ctx, article, req.TextToExplain)
	if err != nil {
		log.Warn("explanation failed", zap.Error(err))
		return nil, newError(Internal, "failed to generate explanation", err)
	}

	if err := s.articles.SetExplanation(ctx, article.ID, explanation); err != nil {
		log.Error("failed to store explanation", zap.Error(err))
		return nil, newError(Internal, "failed to store explanation", err)
	}

	// stale cached views expire on their own, so a failed drop does not fail the request
	for _, inv := range s.invalidators {
		if err := inv.Invalidate(ctx); err != nil {
			log.Warn("failed to invalidate cache after explanation", zap.Error(err))
		}
	}

	log.Info("explanation generated",
		zap.Int("bullets", len(explanation.Bullets)),
		zap.Duration("duration", time.Since(start)),
	)

	return explanation, nil
}
