package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Status is a point-in-time view of the scheduler and its jobs
type Status struct {
	SchedulerRunning bool             `json:"scheduler_running"`
	TotalJobs        int              `json:"total_jobs"`
	Jobs             []models.JobInfo `json:"jobs"`
}

// Scheduler owns a registry of jobs and fires them when their triggers
// are due. Each job runs at most once concurrently; overlapping firings
// are rejected, not queued.
type Scheduler struct {
	tick  time.Duration
	grace time.Duration

	mu      sync.Mutex
	jobs    map[string]*job
	order   []string
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler that checks triggers every tick and
// waits up to grace for in-flight jobs when stopping.
func NewScheduler(tick, grace time.Duration) *Scheduler {
	return &Scheduler{
		tick:  tick,
		grace: grace,
		jobs:  make(map[string]*job),
	}
}

// Register adds a job to the registry. Cron expressions are validated
// here so a bad schedule fails at startup, not at fire time.
func (s *Scheduler) Register(id, name string, trigger models.TriggerSpec, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %q already registered", id)
	}

	j := newJob(id, name, trigger, fn)
	next, err := nextFire(trigger, time.Now())
	if err != nil {
		return fmt.Errorf("job %q: %w", id, err)
	}
	j.setNextRun(next)

	s.jobs[id] = j
	s.order = append(s.order, id)

	log.Info().
		Str("job", id).
		Str("trigger", trigger.String()).
		Time("next_run", next).
		Msg("Job registered")
	return nil
}

// Start launches the tick loop. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn().Msg("Scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.runCtx = ctx
	s.cancel = cancel
	s.running = true
	metrics.SchedulerRunning.Set(1)

	s.wg.Add(1)
	go s.loop(ctx)

	log.Info().Dur("tick", s.tick).Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop cancels in-flight jobs and waits up to the grace period for them
// to finish. Jobs still running after that are abandoned to their
// cancelled contexts. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.runCtx = nil
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Scheduler stopped")
	case <-time.After(s.grace):
		log.Warn().Dur("grace", s.grace).Msg("Scheduler stop grace period elapsed, abandoning in-flight jobs")
	}
	metrics.SchedulerRunning.Set(0)
}

// Running reports whether the tick loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunJobNow fires a job immediately, outside its schedule. The job's
// next scheduled run is not changed. Returns ErrJobNotFound for an
// unknown ID and ErrAlreadyRunning when an execution is in flight.
// The job outlives the caller's context: it runs on the scheduler's
// lifecycle context so an HTTP trigger returning does not cancel it.
func (s *Scheduler) RunJobNow(ctx context.Context, id string) error {
	s.mu.Lock()
	j, ok := s.jobs[id]
	runCtx := s.runCtx
	if runCtx == nil {
		runCtx = context.WithoutCancel(ctx)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	if err := j.acquire(); err != nil {
		metrics.JobRejectionsTotal.WithLabelValues(id).Inc()
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		j.execute(runCtx)
	}()
	return nil
}

// Status returns the scheduler state and every job in registration order
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{SchedulerRunning: s.running, TotalJobs: len(s.jobs)}
	for _, id := range s.order {
		st.Jobs = append(st.Jobs, s.jobs[id].info())
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.fireDue(ctx, now)
		}
	}
}

// fireDue launches every job whose next run time has passed. The next
// run advances whether or not the launch is accepted, so a long-running
// execution cannot pile up firings behind itself.
func (s *Scheduler) fireDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	due := make([]*job, 0)
	for _, id := range s.order {
		j := s.jobs[id]
		if next := j.getNextRun(); !next.IsZero() && !next.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		next, err := nextFire(j.trigger, now)
		if err != nil {
			log.Error().Err(err).Str("job", j.id).Msg("Failed to compute next run")
		} else {
			j.setNextRun(next)
		}

		if err := j.acquire(); err != nil {
			metrics.JobRejectionsTotal.WithLabelValues(j.id).Inc()
			log.Warn().Str("job", j.id).Msg("Skipping scheduled run, previous run still in flight")
			continue
		}

		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			j.execute(ctx)
		}(j)
	}
}

// nextFire computes the next firing time for a trigger after now
func nextFire(trigger models.TriggerSpec, now time.Time) (time.Time, error) {
	if trigger.Cron != "" {
		sched, err := cron.ParseStandard(trigger.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", trigger.Cron, err)
		}
		return sched.Next(now), nil
	}
	if trigger.Interval <= 0 {
		return time.Time{}, fmt.Errorf("trigger has neither cron nor positive interval")
	}
	return now.Add(trigger.Interval), nil
}
