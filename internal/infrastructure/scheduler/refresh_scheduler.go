package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apporderlist "github.com/backoffice/backend/internal/application/orderlist"
	"github.com/backoffice/backend/internal/infrastructure/logger"
)

// ---------------------------------------------------------------------------
// Sweep runs
// ---------------------------------------------------------------------------

// SweepStatus is the outcome of one refresh sweep
type SweepStatus string

const (
	SweepStatusRunning SweepStatus = "RUNNING"
	SweepStatusSuccess SweepStatus = "SUCCESS"
	SweepStatusPartial SweepStatus = "PARTIAL"
	SweepStatusFailed  SweepStatus = "FAILED"
	SweepStatusSkipped SweepStatus = "SKIPPED"
)

// SweepTrigger says what started a sweep
type SweepTrigger string

const (
	TriggerScheduled SweepTrigger = "scheduled"
	TriggerManual    SweepTrigger = "manual"
)

// SweepRun records one execution of the batch refresh
type SweepRun struct {
	ID          uuid.UUID                  `json:"id"`
	Trigger     SweepTrigger               `json:"trigger"`
	Status      SweepStatus                `json:"status"`
	StartedAt   time.Time                  `json:"started_at"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	Error       string                     `json:"error,omitempty"`
	Stats       *apporderlist.RefreshStats `json:"stats,omitempty"`
}

func newSweepRun(trigger SweepTrigger) *SweepRun {
	return &SweepRun{
		ID:        uuid.New(),
		Trigger:   trigger,
		Status:    SweepStatusRunning,
		StartedAt: time.Now(),
	}
}

// Complete records the stats of a finished sweep.
// A sweep with item or list failures is PARTIAL unless nothing succeeded.
func (r *SweepRun) Complete(stats *apporderlist.RefreshStats) {
	now := time.Now()
	r.CompletedAt = &now
	r.Stats = stats
	switch {
	case stats == nil || (stats.Failed == 0 && stats.FailedLists == 0):
		r.Status = SweepStatusSuccess
	case stats.Refreshed > 0:
		r.Status = SweepStatusPartial
	default:
		r.Status = SweepStatusFailed
	}
}

// Fail marks the sweep as failed
func (r *SweepRun) Fail(err string) {
	now := time.Now()
	r.Status = SweepStatusFailed
	r.CompletedAt = &now
	r.Error = err
}

// Skip marks the sweep as skipped because another replica holds the lock
func (r *SweepRun) Skip(reason string) {
	now := time.Now()
	r.Status = SweepStatusSkipped
	r.CompletedAt = &now
	r.Error = reason
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// SweepRunner executes one full refresh of all active lists
type SweepRunner interface {
	RefreshAll(ctx context.Context) (*apporderlist.RefreshStats, error)
}

// SweepLock keeps replicas from sweeping at the same time
type SweepLock interface {
	// TryAcquire takes the lock for ttl. It returns false when another holder has it.
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	// Release gives the lock back if this holder still owns it
	Release(ctx context.Context) error
}

// SweepObserver is told about every finished sweep
type SweepObserver interface {
	SweepFinished(ctx context.Context, status, trigger string)
}

// Ticker is the tick source driving scheduled sweeps
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker returns a Ticker backed by time.Ticker
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// ---------------------------------------------------------------------------
// RefreshSchedulerConfig
// ---------------------------------------------------------------------------

// RefreshSchedulerConfig holds configuration for the refresh scheduler
type RefreshSchedulerConfig struct {
	// Interval is the time between scheduled sweeps
	Interval time.Duration
	// SweepTimeout bounds a whole sweep; zero means no bound
	SweepTimeout time.Duration
	// LockTTL is how long the sweep lock is held before it expires on its own
	LockTTL time.Duration
	// HistorySize is the number of finished runs kept for inspection
	HistorySize int
	// RunOnStart runs one sweep as soon as the scheduler starts
	RunOnStart bool
}

// DefaultRefreshSchedulerConfig returns default configuration
func DefaultRefreshSchedulerConfig() RefreshSchedulerConfig {
	return RefreshSchedulerConfig{
		Interval:    time.Hour,
		LockTTL:     30 * time.Minute,
		HistorySize: 20,
	}
}

// Validate validates the configuration
func (c *RefreshSchedulerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	if c.LockTTL <= 0 {
		return ErrInvalidConfig
	}
	if c.HistorySize < 0 || c.SweepTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// RefreshScheduler
// ---------------------------------------------------------------------------

// RefreshScheduler runs the batch refresh on a fixed interval and on demand.
// At most one sweep runs per process; the SweepLock extends that across replicas.
type RefreshScheduler struct {
	config    RefreshSchedulerConfig
	runner    SweepRunner
	lock      SweepLock
	newTicker func(time.Duration) Ticker
	observer  SweepObserver
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	sweeping  atomic.Bool

	historyMu sync.RWMutex
	history   []SweepRun
}

// NewRefreshScheduler creates a refresh scheduler. lock may be nil for a single replica.
func NewRefreshScheduler(config RefreshSchedulerConfig, runner SweepRunner, lock SweepLock, logger *zap.Logger) (*RefreshScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RefreshScheduler{
		config:    config,
		runner:    runner,
		lock:      lock,
		newTicker: NewTimeTicker,
		logger:    logger,
		history:   make([]SweepRun, 0, config.HistorySize),
	}, nil
}

// SetTickerFactory replaces the tick source, used by tests
func (s *RefreshScheduler) SetTickerFactory(f func(time.Duration) Ticker) {
	s.newTicker = f
}

// SetObserver registers an observer for finished sweeps
func (s *RefreshScheduler) SetObserver(o SweepObserver) {
	s.observer = o
}

// Start starts the scheduling loop
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	ticker := s.newTicker(s.config.Interval)
	s.wg.Add(1)
	go s.runLoop(ctx, ticker)

	s.logger.Info("Refresh scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("lock_ttl", s.config.LockTTL),
		zap.Bool("run_on_start", s.config.RunOnStart),
	)
	return nil
}

// Stop stops the loop and waits for an in-flight sweep to finish or ctx to expire
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Refresh scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Refresh scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduling loop is active
func (s *RefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *RefreshScheduler) runLoop(ctx context.Context, ticker Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.runScheduled(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.runScheduled(ctx)
		}
	}
}

func (s *RefreshScheduler) runScheduled(ctx context.Context) {
	if _, err := s.sweep(ctx, TriggerScheduled); err != nil && !errors.Is(err, ErrSweepInProgress) {
		s.logger.Error("Scheduled refresh sweep failed", zap.Error(err))
	}
}

// TriggerNow runs a sweep immediately and waits for it to finish.
// It returns ErrSweepInProgress when a sweep is already running in this process.
func (s *RefreshScheduler) TriggerNow(ctx context.Context) (*SweepRun, error) {
	return s.sweep(ctx, TriggerManual)
}

func (s *RefreshScheduler) sweep(ctx context.Context, trigger SweepTrigger) (*SweepRun, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		return nil, ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	run := newSweepRun(trigger)
	ctx = logger.WithSweepID(ctx, run.ID.String())
	log := logger.L(ctx, s.logger).With(zap.String("trigger", string(trigger)))

	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx, s.config.LockTTL)
		if err != nil {
			run.Fail("acquire sweep lock: " + err.Error())
			s.record(ctx, *run)
			return run, err
		}
		if !acquired {
			run.Skip("another replica is sweeping")
			s.record(ctx, *run)
			log.Info("Refresh sweep skipped, lock held elsewhere")
			return run, nil
		}
		defer func() {
			// release even when ctx was cancelled mid-sweep
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := s.lock.Release(releaseCtx); err != nil {
				log.Warn("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	sweepCtx := ctx
	if s.config.SweepTimeout > 0 {
		var cancel context.CancelFunc
		sweepCtx, cancel = context.WithTimeout(ctx, s.config.SweepTimeout)
		defer cancel()
	}

	log.Info("Refresh sweep started")
	stats, err := s.runner.RefreshAll(sweepCtx)
	if err != nil {
		run.Fail(err.Error())
		s.record(ctx, *run)
		log.Error("Refresh sweep failed", zap.Error(err))
		return run, err
	}

	run.Complete(stats)
	s.record(ctx, *run)
	log.Info("Refresh sweep completed",
		zap.String("status", string(run.Status)),
		zap.Int("lists", stats.TotalLists),
		zap.Int("items", stats.TotalItems),
		zap.Int("refreshed", stats.Refreshed),
		zap.Int("changed", stats.Changed),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration()),
	)
	return run, nil
}

func (s *RefreshScheduler) record(ctx context.Context, run SweepRun) {
	if s.observer != nil {
		s.observer.SweepFinished(context.WithoutCancel(ctx), string(run.Status), string(run.Trigger))
	}
	if s.config.HistorySize == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	s.history = append(s.history, run)
	if over := len(s.history) - s.config.HistorySize; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// History returns finished runs, newest first
func (s *RefreshScheduler) History() []SweepRun {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	out := make([]SweepRun, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// LastRun returns the most recent finished run, if any
func (s *RefreshScheduler) LastRun() (SweepRun, bool) {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	if len(s.history) == 0 {
		return SweepRun{}, false
	}
	return s.history[len(s.history)-1], true
}
