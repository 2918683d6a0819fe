package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
)

const flushTimeout = 5 * time.Second

// BufferedMetrics groups metrics per table and hands them to a Writer in batches,
// either when a table reaches BatchSize or on every FlushInterval tick
type BufferedMetrics struct {
	writer    Writer
	buffer    map[string][]Metric
	flushCh   chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	interval  time.Duration
	batchSize int
	mu        sync.Mutex
	closeOnce sync.Once
}

// BufferConfig configures metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int
	FlushInterval time.Duration
}

// NewBufferedMetrics creates new buffered metrics manager and starts its flush loop
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:    cfg.Writer,
		buffer:    make(map[string][]Metric),
		flushCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		interval:  cfg.FlushInterval,
		batchSize: cfg.BatchSize,
	}

	bm.wg.Add(1)
	go bm.loop()

	logger.Info("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add adds metric to buffer (thread-safe)
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	table := metric.TableName()
	if table == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.mu.Lock()
	bm.buffer[table] = append(bm.buffer[table], metric)
	full := len(bm.buffer[table]) >= bm.batchSize
	bm.mu.Unlock()

	if full {
		select {
		case bm.flushCh <- struct{}{}:
		default: // flush already pending
		}
	}

	return nil
}

// Flush writes all buffered metrics
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.mu.Lock()
	pending := bm.buffer
	bm.buffer = make(map[string][]Metric, len(pending))
	bm.mu.Unlock()

	var errs []error
	for table, batch := range pending {
		if len(batch) == 0 {
			continue
		}
		if err := bm.writer.Write(ctx, table, batch); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("table", table),
				zap.Int("count", len(batch)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
			continue
		}
		logger.Debug("metrics flushed",
			zap.String("table", table),
			zap.Int("count", len(batch)),
		)
	}

	return errors.Join(errs...)
}

// Size returns current buffer size across all tables
func (bm *BufferedMetrics) Size() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	total := 0
	for _, batch := range bm.buffer {
		total += len(batch)
	}
	return total
}

// Close stops the flush loop, flushes what is left and closes the writer
func (bm *BufferedMetrics) Close(ctx context.Context) error {
	var err error
	bm.closeOnce.Do(func() {
		close(bm.stopCh)
		bm.wg.Wait()

		if flushErr := bm.Flush(ctx); flushErr != nil {
			err = fmt.Errorf("final flush: %w", flushErr)
		}
		if closeErr := bm.writer.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close writer: %w", closeErr))
		}
		logger.Info("metrics buffer closed")
	})
	return err
}

func (bm *BufferedMetrics) loop() {
	defer bm.wg.Done()

	ticker := time.NewTicker(bm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-bm.flushCh:
		case <-bm.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		if err := bm.Flush(ctx); err != nil {
			logger.Warn("periodic flush failed", zap.Error(err))
		}
		cancel()
	}
}
