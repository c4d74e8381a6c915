// Package jobstatus provides the durable per-job status record and the
// atomic start/finish run protocol. The job_status row is the sole arbiter
// of the "at most one concurrent run per job" invariant; in-process flags
// must never be trusted across instances.
package jobstatus

import (
	"encoding/json"
	"time"
)

// Job name constants for the two recurring syncs.
const (
	JobChargeSync  = "charge-sync"
	JobProjudiSync = "projudi-sync"
)

// JobStatus is one row per named job.
type JobStatus struct {
	JobName             string
	Enabled             bool
	Running             bool
	IntervalMS          int64
	LookbackMS          int64
	OverlapMS           int64
	LastRunID           string
	LastRunAt           *time.Time
	LastSuccessAt       *time.Time
	LastErrorAt         *time.Time
	LastErrorMessage    string
	LastResult          json.RawMessage
	LastReferenceUsed   *time.Time
	NextReference       *time.Time
	LastManualTriggerAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Defaults are the caller-provided fallback configuration values, used when
// neither an override nor a persisted value exists.
type Defaults struct {
	IntervalMS int64
	LookbackMS int64
	OverlapMS  int64
}

// Run describes an acquired run: the lock is held until FinishRun is called
// with the same run id.
type Run struct {
	ID            string
	JobName       string
	StartedAt     time.Time
	ReferenceUsed time.Time
	IntervalMS    int64
	LookbackMS    int64
	OverlapMS     int64
}
