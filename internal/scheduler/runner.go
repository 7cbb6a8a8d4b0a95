package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"afltips/automation/internal/metrics"
	"afltips/automation/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	// ErrAlreadyRunning is returned when a job execution is requested
	// while a previous execution of the same job is still in flight.
	ErrAlreadyRunning = errors.New("job is already running")

	// ErrJobNotFound is returned for an unknown job ID
	ErrJobNotFound = errors.New("job not found")
)

// JobFunc is the work a scheduled job performs
type JobFunc func(ctx context.Context) error

// job is one registered unit of work with its trigger and run state
type job struct {
	id      string
	name    string
	trigger models.TriggerSpec
	run     JobFunc

	// sem holds one token; execution requires it, so at most one
	// run of this job is ever in flight.
	sem chan struct{}

	mu       sync.Mutex
	nextRun  time.Time
	lastRun  time.Time
	status   models.JobStatus
	lastErr  string
}

func newJob(id, name string, trigger models.TriggerSpec, fn JobFunc) *job {
	j := &job{
		id:      id,
		name:    name,
		trigger: trigger,
		run:     fn,
		sem:     make(chan struct{}, 1),
		status:  models.JobIdle,
	}
	j.sem <- struct{}{}
	return j
}

// acquire claims the job's execution slot without blocking
func (j *job) acquire() error {
	select {
	case <-j.sem:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, j.id)
	}
}

// execute runs the job function while holding the slot acquired by acquire.
// It always releases the slot, including when the job panics.
func (j *job) execute(ctx context.Context) {
	start := time.Now()

	j.mu.Lock()
	j.status = models.JobRunning
	j.lastRun = start
	j.mu.Unlock()

	log.Info().Str("job", j.id).Msg("Job started")

	err := j.runSafely(ctx)

	status := models.JobSucceeded
	errText := ""
	if err != nil {
		status = models.JobFailed
		errText = err.Error()
		log.Error().Err(err).Str("job", j.id).Dur("duration", time.Since(start)).Msg("Job failed")
	} else {
		log.Info().Str("job", j.id).Dur("duration", time.Since(start)).Msg("Job succeeded")
	}

	j.mu.Lock()
	j.status = status
	j.lastErr = errText
	j.mu.Unlock()

	metrics.RecordJobRun(j.id, string(status), time.Since(start))
	j.sem <- struct{}{}
}

// runSafely converts a panic in the job function into a failed run
func (j *job) runSafely(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return j.run(ctx)
}

// info returns a snapshot of the job's state
func (j *job) info() models.JobInfo {
	j.mu.Lock()
	defer j.mu.Unlock()

	info := models.JobInfo{
		ID:         j.id,
		Name:       j.name,
		Trigger:    j.trigger.String(),
		LastStatus: j.status,
		LastError:  j.lastErr,
	}
	if !j.nextRun.IsZero() {
		t := j.nextRun
		info.NextRun = &t
	}
	if !j.lastRun.IsZero() {
		t := j.lastRun
		info.LastRun = &t
	}
	return info
}

func (j *job) setNextRun(t time.Time) {
	j.mu.Lock()
	j.nextRun = t
	j.mu.Unlock()
}

func (j *job) getNextRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextRun
}
