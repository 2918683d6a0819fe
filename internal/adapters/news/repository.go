package news

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/selivandex/news-pulse/pkg/models"
)

// ErrArticleNotFound is returned when no article exists under the given id
var ErrArticleNotFound = errors.New("article not found")

// Repository handles database operations for articles
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new article repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Cursor marks the last article of a page; the next page starts strictly after it
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ArticleQuery selects a page of articles, newest first
type ArticleQuery struct {
	Before   *Cursor
	Category string
	Limit    int
}

type articleRow struct {
	PublishedAt sql.NullTime   `db:"published_at"`
	CreatedAt   time.Time      `db:"created_at"`
	ID          string         `db:"article_id"`
	Title       string         `db:"title"`
	Source      string         `db:"source"`
	Category    string         `db:"category"`
	URL         string         `db:"url"`
	Summary     string         `db:"summary"`
	Topics      pq.StringArray `db:"topics"`
	Explanation []byte         `db:"explanation"`
	Sentiment   int16          `db:"sentiment"`
}

func (r articleRow) toModel() (models.Article, error) {
	article := models.Article{
		ID:        r.ID,
		Title:     r.Title,
		Source:    r.Source,
		Category:  r.Category,
		URL:       r.URL,
		Summary:   r.Summary,
		Topics:    []string(r.Topics),
		Sentiment: models.Sentiment(r.Sentiment),
		CreatedAt: r.CreatedAt,
	}
	if r.PublishedAt.Valid {
		article.PublishedAt = r.PublishedAt.Time
	}
	if len(r.Explanation) > 0 {
		var explanation models.Explanation
		if err := json.Unmarshal(r.Explanation, &explanation); err != nil {
			return article, fmt.Errorf("failed to decode explanation of %s: %w", r.ID, err)
		}
		article.Explanation = &explanation
	}
	return article, nil
}

const articleColumns = `article_id, title, source, category, url, summary, sentiment, topics,
	published_at, created_at, explanation`

// ExistingIDs returns the subset of ids that are already stored
func (r *Repository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found,
		`SELECT article_id FROM articles WHERE article_id = ANY($1)`, pq.Array(ids),
	); err != nil {
		return nil, fmt.Errorf("failed to check existing articles: %w", err)
	}

	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// InsertArticlesTx inserts articles that are not stored yet. created_at is the
// transaction timestamp, so every article of one batch shares it.
// Returns the number of rows actually inserted.
func (r *Repository) InsertArticlesTx(ctx context.Context, tx *sqlx.Tx, articles []models.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (
			article_id, title, source, category, url, summary, sentiment, topics, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (article_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range articles {
		var publishedAt any
		if !a.PublishedAt.IsZero() {
			publishedAt = a.PublishedAt
		}

		res, err := stmt.ExecContext(ctx,
			a.ID,
			a.Title,
			a.Source,
			a.Category,
			a.URL,
			a.Summary,
			int16(a.Sentiment),
			pq.Array(a.Topics),
			publishedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert article %s: %w", a.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	return inserted, nil
}

// GetArticle loads one article
func (r *Repository) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var row articleRow
	err := r.db.GetContext(ctx, &row, `SELECT `+articleColumns+` FROM articles WHERE article_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load article %s: %w", id, err)
	}

	article, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// ListArticles returns a page of articles ordered by created_at desc.
// A category matches by substring on topics, title, summary or category;
// "general" also matches every article outside the specialized categories.
func (r *Repository) ListArticles(ctx context.Context, q ArticleQuery) ([]models.Article, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		pattern := arg("%" + category + "%")
		cond := fmt.Sprintf(`(category ILIKE %[1]s OR title ILIKE %[1]s OR summary ILIKE %[1]s
			OR EXISTS (SELECT 1 FROM unnest(topics) AS t WHERE t ILIKE %[1]s))`, pattern)
		if category == "general" {
			cond = fmt.Sprintf(`(%s OR lower(category) <> ALL(%s))`, cond, arg(pq.Array(models.SpecializedCategories)))
		}
		where = append(where, cond)
	}

	if q.Before != nil {
		where = append(where, fmt.Sprintf(`(created_at, article_id) < (%s, %s)`, arg(q.Before.CreatedAt), arg(q.Before.ID)))
	}

	query := `SELECT ` + articleColumns + ` FROM articles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, article_id DESC LIMIT ` + arg(q.Limit)

	var rows []articleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]models.Article, 0, len(rows))
	for _, row := range rows {
		article, err := row.toModel()
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// SetExplanation stores the explanation of an article, replacing any previous one
func (r *Repository) SetExplanation(ctx context.Context, id string, explanation *models.Explanation) error {
	payload, err := json.Marshal(explanation)
	if err != nil {
		return fmt.Errorf("failed to encode explanation: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE articles SET explanation = $2::jsonb WHERE article_id = $1`, id, string(payload))
	if err != nil {
		return fmt.Errorf("failed to store explanation of %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrArticleNotFound
	}

	return nil
}
