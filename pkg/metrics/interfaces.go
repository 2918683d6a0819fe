package metrics

import "context"

// Metric is one row of a metrics table
type Metric interface {
	TableName() string
	// Values are in table column order
	Values() []interface{}
}

// Writer persists batches of rows for one table
type Writer interface {
	Write(ctx context.Context, tableName string, metrics []Metric) error
	Close() error
}

// Buffer collects metrics from many goroutines and writes them in batches.
// Components take a Buffer so metrics can be switched off with NopBuffer.
type Buffer interface {
	Add(metric Metric) error
	Flush(ctx context.Context) error
	Size() int
	Close(ctx context.Context) error
}

var (
	_ Buffer = (*BufferedMetrics)(nil)
	_ Buffer = NopBuffer{}
)

// NopBuffer discards metrics; used when no metrics sink is configured
type NopBuffer struct{}

func (NopBuffer) Add(Metric) error            { return nil }
func (NopBuffer) Flush(context.Context) error { return nil }
func (NopBuffer) Size() int                   { return 0 }
func (NopBuffer) Close(context.Context) error { return nil }
