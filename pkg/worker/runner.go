package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/selivandex/news-pulse/pkg/logger"
)

// Worker interface that background jobs should implement
type Worker interface {
	// Name returns worker name for logging and locking
	Name() string
	// Run executes one iteration of work
	Run(ctx context.Context) error
}

// Lock guards a job against running on several replicas at once
type Lock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// SchedulerConfig configures Scheduler
type SchedulerConfig struct {
	Location   *time.Location
	Lock       Lock          // optional
	LockTTL    time.Duration // defaults to RunTimeout
	RunTimeout time.Duration
}

// Scheduler runs workers on cron schedules. A tick that finds the previous
// run of the same worker still in flight, or loses the lock, is skipped.
type Scheduler struct {
	cron   *cron.Cron
	lock   Lock
	ctx    context.Context
	cancel context.CancelFunc
	jobs   map[string]cron.Job
	wg     sync.WaitGroup
	mu     sync.Mutex

	lockTTL    time.Duration
	runTimeout time.Duration
}

// NewScheduler creates new scheduler
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 15 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.RunTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(cfg.Location), cron.WithLogger(cronLogger{})),
		lock:       cfg.Lock,
		ctx:        ctx,
		cancel:     cancel,
		jobs:       make(map[string]cron.Job),
		lockTTL:    cfg.LockTTL,
		runTimeout: cfg.RunTimeout,
	}
}

// Add registers worker under a standard 5-field cron spec
func (s *Scheduler) Add(spec string, w Worker) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[w.Name()]; exists {
		return fmt.Errorf("worker %s already scheduled", w.Name())
	}

	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(cron.FuncJob(func() {
		s.wg.Add(1)
		defer s.wg.Done()
		s.execute(w)
	}))
	s.jobs[w.Name()] = job
	s.cron.Schedule(schedule, job)

	logger.Info("worker scheduled",
		zap.String("worker", w.Name()),
		zap.String("spec", spec),
	)

	return nil
}

// RunNow runs a scheduled worker immediately, sharing the overlap guard with its cron ticks.
// It blocks until the run finishes or is skipped.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("worker %s is not scheduled", name)
	}

	job.Run()
	return nil
}

// Start starts the cron loop
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("🚀 Scheduler started", zap.Int("workers", len(s.jobs)))
}

// Stop stops scheduling new runs and waits for in-flight runs up to timeout,
// after which their context is cancelled
func (s *Scheduler) Stop(timeout time.Duration) {
	logger.Info("🛑 Stopping scheduler...")

	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("✅ Scheduler stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("⚠️ Scheduler stop timeout, cancelling running workers")
	}

	s.cancel()
}

func (s *Scheduler) execute(w Worker) {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	name := w.Name()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			logger.Warn("failed to acquire worker lock, skipping run",
				zap.String("worker", name),
				zap.Error(err),
			)
			return
		}
		if !acquired {
			logger.Info("worker is running on another instance, skipping run",
				zap.String("worker", name),
			)
			return
		}
		defer func() {
			releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer releaseCancel()
			if err := s.lock.Release(releaseCtx, name); err != nil {
				logger.Warn("failed to release worker lock",
					zap.String("worker", name),
					zap.Error(err),
				)
			}
		}()
	}

	start := time.Now()
	if err := w.Run(ctx); err != nil {
		// Continue despite error - next tick retries
		logger.Error("worker execution failed",
			zap.String("worker", name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	logger.Debug("worker run finished",
		zap.String("worker", name),
		zap.Duration("duration", time.Since(start)),
	)
}

// cronLogger routes robfig/cron logs to zap
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
