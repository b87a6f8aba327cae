package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-presensi-api/pkg/errors"
)

// SchedulerState is the lifecycle state of the reminder scheduler.
type SchedulerState string

const (
	SchedulerIdle    SchedulerState = "idle"
	SchedulerTicking SchedulerState = "ticking"
	SchedulerStopped SchedulerState = "stopped"
)

// Clock abstracts wall-clock reads so tests can pin "now".
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Ticker abstracts the periodic trigger so tests can fire ticks manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker for the given interval.
type TickerFactory func(time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker is the production TickerFactory.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type tickRunner interface {
	ProcessExpired(ctx context.Context, now time.Time) (TickStats, error)
}

type schedulerObserver interface {
	RecordTick(duration time.Duration)
	RecordTickSkipped()
}

// SchedulerStatus is a point-in-time snapshot for the status endpoint.
type SchedulerStatus struct {
	State        SchedulerState `json:"state"`
	Interval     time.Duration  `json:"interval"`
	Lookback     time.Duration  `json:"lookback"`
	TicksRun     uint64         `json:"ticks_run"`
	TicksSkipped uint64         `json:"ticks_skipped"`
	LastTickAt   *time.Time     `json:"last_tick_at,omitempty"`
	LastStats    *TickStats     `json:"last_stats,omitempty"`
}

// Scheduler drives the reminder scan on a fixed interval. It moves from
// idle to ticking exactly once and from ticking to stopped exactly once;
// stopped is terminal. A fire that arrives while the previous scan is
// still running is skipped outright, never queued.
type Scheduler struct {
	runner    tickRunner
	clock     Clock
	newTicker TickerFactory
	metrics   schedulerObserver
	logger    *zap.Logger

	mu       sync.Mutex
	state    SchedulerState
	interval time.Duration
	lookback time.Duration
	cancel   context.CancelFunc
	loopDone chan struct{}

	inFlight     atomic.Bool
	tickWG       sync.WaitGroup
	ticksRun     atomic.Uint64
	ticksSkipped atomic.Uint64

	lastMu     sync.Mutex
	lastTickAt time.Time
	lastStats  TickStats
}

// NewScheduler constructs a Scheduler in the idle state.
func NewScheduler(runner tickRunner, clock Clock, newTicker TickerFactory, metrics schedulerObserver, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		runner:    runner,
		clock:     clock,
		newTicker: newTicker,
		metrics:   metrics,
		logger:    logger,
		state:     SchedulerIdle,
	}
}

// Start installs the periodic trigger. It may be called once, from idle.
func (s *Scheduler) Start(interval, lookback time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive")
	}
	if lookback <= interval {
		return fmt.Errorf("scheduler: lookback (%s) must exceed interval (%s) to avoid detection gaps", lookback, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedulerIdle {
		return fmt.Errorf("scheduler: cannot start from state %q", s.state)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.interval = interval
	s.lookback = lookback
	s.state = SchedulerTicking

	go s.loop(ctx, interval)

	s.logger.Info("reminder scheduler started",
		zap.Duration("interval", interval),
		zap.Duration("lookback", lookback),
	)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	defer close(s.loopDone)
	ticker := s.newTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.fire()
		}
	}
}

// fire launches one scan unless the previous one is still in flight.
func (s *Scheduler) fire() {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.ticksSkipped.Add(1)
		if s.metrics != nil {
			s.metrics.RecordTickSkipped()
		}
		s.logger.Warn("tick skipped, previous scan still running")
		return
	}

	s.tickWG.Add(1)
	go func() {
		defer s.tickWG.Done()
		defer s.inFlight.Store(false)
		s.runTick()
	}()
}

// runTick executes one scan. The scan keeps its own background context so
// stopping the scheduler cancels the trigger without killing work already
// in flight. Panics are contained; the scheduler waits for the next tick.
func (s *Scheduler) runTick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked", zap.Any("panic", r))
		}
	}()

	now := s.clock.Now()
	started := time.Now()
	stats, err := s.runner.ProcessExpired(context.Background(), now)
	elapsed := time.Since(started)

	s.ticksRun.Add(1)
	if s.metrics != nil {
		s.metrics.RecordTick(elapsed)
	}

	s.lastMu.Lock()
	s.lastTickAt = now
	s.lastStats = stats
	s.lastMu.Unlock()

	if err != nil {
		s.logger.Error("tick failed", zap.Time("now", now), zap.Error(err))
	}
}

// RunNow executes one scan synchronously through the same single-flight
// gate the periodic trigger uses, so a manual run never overlaps a tick
// or another manual run. The caller that loses the race gets
// ErrScanInFlight instead of a second concurrent scan. Works from idle
// too, for deployments that disable the periodic trigger.
func (s *Scheduler) RunNow(ctx context.Context) (TickStats, error) {
	s.mu.Lock()
	stopped := s.state == SchedulerStopped
	s.mu.Unlock()
	if stopped {
		return TickStats{}, appErrors.ErrSchedulerHalted
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return TickStats{}, appErrors.ErrScanInFlight
	}
	defer s.inFlight.Store(false)

	now := s.clock.Now()
	started := time.Now()
	stats, err := s.runner.ProcessExpired(ctx, now)
	elapsed := time.Since(started)

	s.ticksRun.Add(1)
	if s.metrics != nil {
		s.metrics.RecordTick(elapsed)
	}

	s.lastMu.Lock()
	s.lastTickAt = now
	s.lastStats = stats
	s.lastMu.Unlock()
	return stats, err
}

// Stop cancels the trigger and waits for any in-flight scan to finish.
// The scheduler cannot be restarted afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == SchedulerStopped {
		s.mu.Unlock()
		return
	}
	wasTicking := s.state == SchedulerTicking
	s.state = SchedulerStopped
	cancel := s.cancel
	loopDone := s.loopDone
	s.mu.Unlock()

	if wasTicking {
		cancel()
		<-loopDone
		s.tickWG.Wait()
	}
	s.logger.Info("reminder scheduler stopped")
}

// Status returns a snapshot of the scheduler's state and counters.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	status := SchedulerStatus{
		State:    s.state,
		Interval: s.interval,
		Lookback: s.lookback,
	}
	s.mu.Unlock()

	status.TicksRun = s.ticksRun.Load()
	status.TicksSkipped = s.ticksSkipped.Load()

	s.lastMu.Lock()
	if !s.lastTickAt.IsZero() {
		t := s.lastTickAt
		stats := s.lastStats
		status.LastTickAt = &t
		status.LastStats = &stats
	}
	s.lastMu.Unlock()
	return status
}
