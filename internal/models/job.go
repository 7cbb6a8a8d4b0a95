package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a scheduled job
type JobStatus string

const (
	JobIdle      JobStatus = "Idle"
	JobRunning   JobStatus = "Running"
	JobSucceeded JobStatus = "Succeeded"
	JobFailed    JobStatus = "Failed"
)

// TriggerSpec is a tagged variant describing when a job fires: either a
// fixed interval or a standard 5-field cron expression. Exactly one of the
// fields is set.
type TriggerSpec struct {
	Interval time.Duration
	Cron     string
}

// IntervalTrigger builds an interval trigger
func IntervalTrigger(d time.Duration) TriggerSpec {
	return TriggerSpec{Interval: d}
}

// CronTrigger builds a cron trigger
func CronTrigger(spec string) TriggerSpec {
	return TriggerSpec{Cron: spec}
}

func (t TriggerSpec) String() string {
	if t.Cron != "" {
		return fmt.Sprintf("cron(%s)", t.Cron)
	}
	return fmt.Sprintf("interval(%s)", t.Interval)
}

// JobInfo is a read-only snapshot of one job's state for status reporting
type JobInfo struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Trigger    string     `json:"trigger"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	LastStatus JobStatus  `json:"last_status"`
	LastError  string     `json:"last_error,omitempty"`
}
