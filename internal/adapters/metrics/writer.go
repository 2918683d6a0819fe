package metrics

import (
	"context"
	"fmt"

	"github.com/selivandex/news-pulse/pkg/metrics"
)

// Repository stores metric rows
type Repository interface {
	InsertBatch(ctx context.Context, tableName string, values [][]interface{}) error
	Close() error
}

// knownTables are the only tables a Writer will insert into; the table name is
// interpolated into the INSERT statement
var knownTables = map[string]bool{
	(&metrics.IngestionRunMetric{}).TableName(): true,
	(&metrics.AICallMetric{}).TableName():       true,
}

// Writer implements metrics.Writer on top of a Repository
type Writer struct {
	repo Repository
}

// NewWriter creates new metrics writer
func NewWriter(repo Repository) *Writer {
	return &Writer{repo: repo}
}

// Write converts metrics to rows and inserts them in one batch
func (w *Writer) Write(ctx context.Context, tableName string, batch []metrics.Metric) error {
	if len(batch) == 0 {
		return nil
	}
	if !knownTables[tableName] {
		return fmt.Errorf("unknown metrics table %q", tableName)
	}

	values := make([][]interface{}, len(batch))
	for i, metric := range batch {
		values[i] = metric.Values()
	}

	return w.repo.InsertBatch(ctx, tableName, values)
}

// Close closes the underlying repository
func (w *Writer) Close() error {
	if w.repo != nil {
		return w.repo.Close()
	}
	return nil
}
