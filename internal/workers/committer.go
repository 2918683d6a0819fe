package workers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
	"github.com/selivandex/news-pulse/pkg/models"
)

// ErrBatchConflict means another writer stored some of the batch's articles
// after the existence check; the batch is rolled back and left to the next run
var ErrBatchConflict = errors.New("articles were ingested concurrently")

// TxBeginner starts sqlx transactions
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ArticleWriter inserts articles inside a transaction
type ArticleWriter interface {
	InsertArticlesTx(ctx context.Context, tx *sqlx.Tx, articles []models.Article) (int, error)
}

// AggregateWriter updates topic counters and the market pulse inside a transaction
type AggregateWriter interface {
	IncrementTopicTx(ctx context.Context, tx *sqlx.Tx, inc models.TopicIncrement) error
	SetMarketPulseTx(ctx context.Context, tx *sqlx.Tx, pulse models.MarketPulse) error
}

// TxCommitter commits an IngestBatch in a single PostgreSQL transaction
type TxCommitter struct {
	db         TxBeginner
	articles   ArticleWriter
	aggregates AggregateWriter
}

// NewTxCommitter creates new transactional committer
func NewTxCommitter(db TxBeginner, articles ArticleWriter, aggregates AggregateWriter) *TxCommitter {
	return &TxCommitter{db: db, articles: articles, aggregates: aggregates}
}

// CommitBatch implements Committer. Any error rolls back every write of the batch.
func (c *TxCommitter) CommitBatch(ctx context.Context, batch *models.IngestBatch) error {
	if batch.IsEmpty() {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := c.articles.InsertArticlesTx(ctx, tx, batch.Articles)
	if err != nil {
		return err
	}
	if inserted != len(batch.Articles) {
		return fmt.Errorf("%w: %d of %d already present", ErrBatchConflict, len(batch.Articles)-inserted, len(batch.Articles))
	}

	for _, inc := range batch.Topics {
		if err := c.aggregates.IncrementTopicTx(ctx, tx, inc); err != nil {
			return err
		}
	}

	if batch.Pulse != nil {
		if err := c.aggregates.SetMarketPulseTx(ctx, tx, *batch.Pulse); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Debug("ingest batch committed",
		zap.Int("articles", len(batch.Articles)),
		zap.Int("topics", len(batch.Topics)),
		zap.Bool("pulse", batch.Pulse != nil),
	)

	return nil
}
