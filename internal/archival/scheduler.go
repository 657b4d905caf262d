package archival

import (
	"context"
	"sync"
	"time"

	"github.com/bomizzel/helpdesk/internal/clock"
	"go.uber.org/zap"
)

// Status reports the scheduler's observable state.
type Status struct {
	Armed         bool        `json:"armed"`
	RunInProgress bool        `json:"run_in_progress"`
	NextRunAt     *time.Time  `json:"next_run_at,omitempty"`
	LastRun       *RunSummary `json:"last_run,omitempty"`
}

// Scheduler owns the recurring archival timer. It is constructed once at
// process start and passed by reference to whatever needs RunNow or Stop.
// At most one run is in flight at any time, whether timer- or
// manually-triggered; a run that cannot acquire the guard is skipped and
// logged, never queued.
type Scheduler struct {
	runner   *Runner
	log      *zap.Logger
	clock    clock.Clock
	interval time.Duration

	// mu guards the arming state; runMu is the process-wide overlap guard.
	mu        sync.Mutex
	armed     bool
	stop      chan struct{}
	nextRunAt time.Time

	runMu   sync.Mutex
	running bool
	lastRun *RunSummary
}

// NewScheduler builds a scheduler around the runner. The timer starts armed
// only after Start is called.
func NewScheduler(runner *Runner, log *zap.Logger, clk clock.Clock) *Scheduler {
	return &Scheduler{
		runner:   runner,
		log:      log.Named("archival.scheduler"),
		clock:    clk,
		interval: runner.cfg.Interval,
	}
}

// Start arms the recurring timer and immediately triggers one run. Calling
// Start while armed is a no-op warning, never an error.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		s.log.Warn("scheduler already started")
		return
	}
	s.armed = true
	s.stop = make(chan struct{})
	s.nextRunAt = s.clock.Now().Add(s.interval)
	stop := s.stop
	s.mu.Unlock()

	s.log.Info("scheduler armed", zap.Duration("interval", s.interval))
	go s.loop(stop)
}

// Stop disarms the timer. An in-flight run is never interrupted; Stop only
// prevents future scheduled triggers. Stopping an idle scheduler is a
// no-op warning.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		s.log.Warn("scheduler already stopped")
		return
	}
	s.armed = false
	close(s.stop)
	s.stop = nil
	s.nextRunAt = time.Time{}
	s.log.Info("scheduler disarmed")
}

// RunNow executes one run regardless of timer state. The returned flag is
// false when another run already holds the overlap guard, in which case
// this invocation was skipped.
func (s *Scheduler) RunNow(ctx context.Context) (RunSummary, bool) {
	if !s.runMu.TryLock() {
		s.log.Warn("archival run skipped, another run is in progress")
		return RunSummary{}, false
	}
	s.setRunning(true)
	defer func() {
		s.setRunning(false)
		s.runMu.Unlock()
	}()

	summary := s.runner.Run(ctx)
	s.mu.Lock()
	s.lastRun = &summary
	s.mu.Unlock()
	return summary, true
}

// Status reports whether the timer is armed and, if so, the next estimated
// run time.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Armed:         s.armed,
		RunInProgress: s.running,
		LastRun:       s.lastRun,
	}
	if s.armed && !s.nextRunAt.IsZero() {
		next := s.nextRunAt
		status.NextRunAt = &next
	}
	return status
}

func (s *Scheduler) loop(stop chan struct{}) {
	// First run fires immediately on Start; the ticker drives the rest.
	s.RunNow(context.Background())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.nextRunAt = s.clock.Now().Add(s.interval)
			s.mu.Unlock()
			s.RunNow(context.Background())
		}
	}
}

func (s *Scheduler) setRunning(value bool) {
	s.mu.Lock()
	s.running = value
	s.mu.Unlock()
}
