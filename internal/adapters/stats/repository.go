package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/selivandex/news-pulse/pkg/models"
)

// ErrNotFound is returned when the requested aggregate does not exist yet
var ErrNotFound = errors.New("aggregate not found")

// pulseScale is the number of fractional digits kept for the pulse score
const pulseScale = 6

// Repository persists topic counters and the market pulse singleton
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new stats repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// IncrementTopicTx adds amount to a topic counter, creating it when absent.
// The counter is never overwritten; last_updated always advances.
func (r *Repository) IncrementTopicTx(ctx context.Context, tx *sqlx.Tx, inc models.TopicIncrement) error {
	if inc.Amount <= 0 {
		return fmt.Errorf("topic %s: increment must be positive, got %d", inc.Key, inc.Amount)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO topic_stats (topic_key, topic, frequency, last_updated)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (topic_key) DO UPDATE SET
			frequency = topic_stats.frequency + EXCLUDED.frequency,
			topic = EXCLUDED.topic,
			last_updated = now()
	`, inc.Key, inc.Topic, inc.Amount)
	if err != nil {
		return fmt.Errorf("failed to increment topic %s: %w", inc.Key, err)
	}

	return nil
}

// SetMarketPulseTx overwrites the market pulse singleton
func (r *Repository) SetMarketPulseTx(ctx context.Context, tx *sqlx.Tx, pulse models.MarketPulse) error {
	score := decimal.NewFromFloat(pulse.Score).Round(pulseScale)

	_, err := tx.ExecContext(ctx, `
		INSERT INTO market_pulse (id, score, label, based_on_count, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			label = EXCLUDED.label,
			based_on_count = EXCLUDED.based_on_count,
			updated_at = EXCLUDED.updated_at
	`, models.MarketPulseKey, score, string(pulse.Label), pulse.BasedOnCount)
	if err != nil {
		return fmt.Errorf("failed to set market pulse: %w", err)
	}

	return nil
}

// TopTopics returns the most mentioned topics, excluding the given keys
func (r *Repository) TopTopics(ctx context.Context, limit int, exclude ...string) ([]models.TopicStat, error) {
	if exclude == nil {
		exclude = []string{}
	}

	var topics []models.TopicStat
	err := r.db.SelectContext(ctx, &topics, `
		SELECT topic_key, topic, frequency, last_updated
		FROM topic_stats
		WHERE NOT (topic_key = ANY($1))
		ORDER BY frequency DESC, topic_key ASC
		LIMIT $2
	`, pq.Array(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top topics: %w", err)
	}

	return topics, nil
}

// GetTopic loads one topic counter
func (r *Repository) GetTopic(ctx context.Context, key string) (*models.TopicStat, error) {
	var topic models.TopicStat
	err := r.db.GetContext(ctx, &topic, `
		SELECT topic_key, topic, frequency, last_updated FROM topic_stats WHERE topic_key = $1
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load topic %s: %w", key, err)
	}

	return &topic, nil
}

// GetMarketPulse loads the market pulse singleton
func (r *Repository) GetMarketPulse(ctx context.Context) (*models.MarketPulse, error) {
	var row struct {
		UpdatedAt    time.Time       `db:"updated_at"`
		Label        string          `db:"label"`
		Score        decimal.Decimal `db:"score"`
		BasedOnCount int             `db:"based_on_count"`
	}

	err := r.db.GetContext(ctx, &row, `
		SELECT score, label, based_on_count, updated_at FROM market_pulse WHERE id = $1
	`, models.MarketPulseKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load market pulse: %w", err)
	}

	return &models.MarketPulse{
		Score:        row.Score.InexactFloat64(),
		Label:        models.PulseLabel(row.Label),
		BasedOnCount: row.BasedOnCount,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
