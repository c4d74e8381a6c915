package billing

import (
	"context"
	"time"

	"github.com/legalflow/lexsync/jobstatus"
)

// Job exposes the charge sync as a runnable recurring job.
type Job struct {
	service *SyncService
}

// NewJob wraps a sync service for the runner.
func NewJob(service *SyncService) *Job {
	return &Job{service: service}
}

func (j *Job) JobName() string { return jobstatus.JobChargeSync }

func (j *Job) Configured() bool { return j.service.Configured() }

// Windowed is false: every pass reconciles the full tracked set, so no
// watermark is kept.
func (j *Job) Windowed() bool { return false }

func (j *Job) Run(ctx context.Context, _ time.Time) (any, error) {
	return j.service.SyncPendingCharges(ctx)
}
