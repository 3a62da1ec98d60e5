// Package scheduler runs the ledger poll on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/taskbridge/internal/persistence"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Locker guards a run across processes.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config holds scheduler settings
type Config struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per-run deadline; zero means the interval
	// RunOnStart fires one run immediately instead of waiting a full interval
	RunOnStart bool
}

// Status represents scheduler status
type Status struct {
	Running   bool          `json:"running"`
	Interval  time.Duration `json:"interval"`
	Runs      int64         `json:"runs"`
	Failures  int64         `json:"failures"`
	Skipped   int64         `json:"skipped"`
	NextRun   time.Time     `json:"next_run,omitempty"`
	LastRun   *JobResult    `json:"last_run,omitempty"`
	Uptime    time.Duration `json:"uptime"`
	startTime time.Time
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler runs a job on a ticker. Runs never overlap in-process, and when a
// Locker is set they never overlap across processes sharing its store either.
// Job errors and panics are logged and never stop later ticks.
type Scheduler struct {
	cfg  Config
	job  Job
	lock Locker

	busy atomic.Bool

	mu     sync.Mutex
	status Status
}

// New creates a scheduler. lock may be nil.
func New(cfg Config, job Job, lock Locker) *Scheduler {
	if cfg.Name == "" {
		cfg.Name = "job"
	}
	return &Scheduler{cfg: cfg, job: job, lock: lock, status: Status{Interval: cfg.Interval}}
}

// WithStoreLock guards runs with a lease named key in kv.
func (s *Scheduler) WithStoreLock(kv persistence.KV, key string, ttl time.Duration) *Scheduler {
	s.lock = persistence.NewLock(kv, key, ttl)
	return s
}

// Start blocks until ctx is cancelled, running the job every interval.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive", s.cfg.Name)
	}

	s.mu.Lock()
	s.status.Running = true
	s.status.startTime = time.Now()
	s.status.NextRun = time.Now().Add(s.cfg.Interval)
	s.mu.Unlock()

	log.Info().Str("job", s.cfg.Name).Dur("interval", s.cfg.Interval).Msg("Scheduler starting")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.RunNow(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.status.Running = false
			s.mu.Unlock()
			log.Info().Str("job", s.cfg.Name).Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			s.status.NextRun = time.Now().Add(s.cfg.Interval)
			s.mu.Unlock()
			s.RunNow(ctx)
		}
	}
}

// RunNow executes the job once in the calling goroutine. It returns a skipped
// result when another run holds the in-process guard or the store lock.
func (s *Scheduler) RunNow(ctx context.Context) *JobResult {
	result := &JobResult{JobName: s.cfg.Name, StartTime: time.Now()}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		s.record(result)
	}()

	if !s.busy.CompareAndSwap(false, true) {
		log.Warn().Str("job", s.cfg.Name).Msg("Previous run still in progress, skipping tick")
		result.Skipped = true
		return result
	}
	defer s.busy.Store(false)

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = s.cfg.Interval
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.lock != nil {
		ok, err := s.lock.TryAcquire(runCtx)
		if err != nil {
			log.Error().Err(err).Str("job", s.cfg.Name).Msg("Failed to acquire run lock")
			result.Error = err.Error()
			return result
		}
		if !ok {
			log.Info().Str("job", s.cfg.Name).Msg("Run lock held elsewhere, skipping tick")
			result.Skipped = true
			return result
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(runCtx)); err != nil {
				log.Warn().Err(err).Str("job", s.cfg.Name).Msg("Failed to release run lock")
			}
		}()
	}

	if err := s.execute(runCtx); err != nil {
		log.Error().Err(err).Str("job", s.cfg.Name).Msg("Scheduled run failed")
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

func (s *Scheduler) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.job(ctx)
}

func (s *Scheduler) record(r *JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case r.Skipped:
		s.status.Skipped++
		return
	case !r.Success:
		s.status.Failures++
	}
	s.status.Runs++
	s.status.LastRun = r
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.Running {
		st.Uptime = time.Since(st.startTime)
	}
	if st.LastRun != nil {
		last := *st.LastRun
		st.LastRun = &last
	}
	return st
}
