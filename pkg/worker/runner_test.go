package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	block chan struct{}
	start chan struct{}
	runs  atomic.Int32
	err   error
}

func (w *countingWorker) Name() string { return "counting" }

func (w *countingWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if w.start != nil {
		w.start <- struct{}{}
	}
	if w.block != nil {
		<-w.block
	}
	return w.err
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLock) Acquire(_ context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held[name] {
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *fakeLock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	l.released++
	return nil
}

func TestSchedulerAddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	err := s.Add("every hour", &countingWorker{})
	assert.Error(t, err)
}

func TestSchedulerAddRejectsDuplicateWorker(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	require.NoError(t, s.Add("0 * * * *", &countingWorker{}))
	assert.Error(t, s.Add("0 * * * *", &countingWorker{}))
}

func TestSchedulerRunNow(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	w := &countingWorker{err: errors.New("boom")}
	require.NoError(t, s.Add("0 * * * *", w))

	require.NoError(t, s.RunNow("counting"))
	require.NoError(t, s.RunNow("counting"))
	assert.Equal(t, int32(2), w.runs.Load())

	assert.Error(t, s.RunNow("unknown"))
}

func TestSchedulerSkipsOverlappingRun(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	w := &countingWorker{block: make(chan struct{}), start: make(chan struct{}, 1)}
	require.NoError(t, s.Add("0 * * * *", w))

	done := make(chan struct{})
	go func() {
		_ = s.RunNow("counting")
		close(done)
	}()
	<-w.start

	// first run still in flight
	require.NoError(t, s.RunNow("counting"))
	assert.Equal(t, int32(1), w.runs.Load())

	close(w.block)
	<-done
}

func TestSchedulerLock(t *testing.T) {
	t.Run("held elsewhere skips", func(t *testing.T) {
		lock := &fakeLock{held: map[string]bool{"counting": true}}
		s := NewScheduler(SchedulerConfig{Lock: lock})
		w := &countingWorker{}
		require.NoError(t, s.Add("0 * * * *", w))

		require.NoError(t, s.RunNow("counting"))
		assert.Equal(t, int32(0), w.runs.Load())
	})

	t.Run("lock error skips", func(t *testing.T) {
		lock := &fakeLock{held: map[string]bool{}, err: errors.New("redis down")}
		s := NewScheduler(SchedulerConfig{Lock: lock})
		w := &countingWorker{}
		require.NoError(t, s.Add("0 * * * *", w))

		require.NoError(t, s.RunNow("counting"))
		assert.Equal(t, int32(0), w.runs.Load())
	})

	t.Run("acquired and released", func(t *testing.T) {
		lock := &fakeLock{held: map[string]bool{}}
		s := NewScheduler(SchedulerConfig{Lock: lock})
		w := &countingWorker{}
		require.NoError(t, s.Add("0 * * * *", w))

		require.NoError(t, s.RunNow("counting"))
		assert.Equal(t, int32(1), w.runs.Load())
		assert.Equal(t, 1, lock.released)
		assert.Empty(t, lock.held)
	})
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(SchedulerConfig{RunTimeout: time.Second})
	require.NoError(t, s.Add("0 * * * *", &countingWorker{}))

	s.Start()
	s.Stop(time.Second)

	assert.Error(t, s.ctx.Err())
}
