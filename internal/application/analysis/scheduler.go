package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	domain "github.com/bryanwahyu/automaton-logwatch/internal/domain/analysis"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (RunResult, error)
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Running     bool          `json:"running"`
	Interval    string        `json:"interval"`
	LastRunAt   *time.Time    `json:"last_run_at"`
	LastSuccess *time.Time    `json:"last_success_at"`
	LastError   string        `json:"last_error,omitempty"`
	Runs        int64         `json:"runs"`
	Failures    int64         `json:"failures"`
	Latest      *domain.State `json:"latest,omitempty"`
}

// Scheduler triggers the pipeline on a fixed interval and on demand.
// At most one run is in flight at any time; overlapping triggers are refused with ErrBusy.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	observer Observer

	running  atomic.Bool
	runs     atomic.Int64
	failures atomic.Int64

	mu          sync.Mutex
	baseCtx     context.Context
	lastRunAt   time.Time
	lastSuccess time.Time
	lastErr     error
}

// NewScheduler builds a scheduler. interval <= 0 disables periodic runs.
func NewScheduler(r Runner, interval time.Duration, obs Observer) *Scheduler {
	return &Scheduler{
		runner:   r,
		interval: interval,
		observer: obs,
		baseCtx:  context.Background(),
	}
}

// Start runs once immediately, then on every tick until ctx is done.
// Manual triggers issued while Start is active share ctx, so cancellation stops them too.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.tick()
	if s.interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	_, err := s.Trigger()
	switch {
	case errors.Is(err, domain.ErrBusy):
		log.Warn().Msg("previous analysis run still in progress, skipping tick")
	case err != nil:
		log.Error().Err(err).Msg("scheduled analysis run failed")
	}
}

// Trigger runs the pipeline synchronously. It returns ErrBusy without
// running when another run is in flight.
func (s *Scheduler) Trigger() (RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunResult{}, domain.ErrBusy
	}
	defer s.running.Store(false)
	if s.observer != nil {
		s.observer.SetRunning(true)
		defer s.observer.SetRunning(false)
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	started := time.Now()
	res, err := s.runner.Run(ctx)

	s.runs.Add(1)
	s.mu.Lock()
	s.lastRunAt = started
	s.lastErr = err
	if err == nil {
		s.lastSuccess = time.Now()
	}
	s.mu.Unlock()
	if err != nil {
		s.failures.Add(1)
	}
	return res, err
}

// Running reports whether a run is in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Status returns counters and the timestamps of the last runs.
func (s *Scheduler) Status() Status {
	st := Status{
		Running:  s.running.Load(),
		Runs:     s.runs.Load(),
		Failures: s.failures.Load(),
		Interval: s.interval.String(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastRunAt.IsZero() {
		t := s.lastRunAt
		st.LastRunAt = &t
	}
	if !s.lastSuccess.IsZero() {
		t := s.lastSuccess
		st.LastSuccess = &t
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
