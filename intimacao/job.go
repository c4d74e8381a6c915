package intimacao

import (
	"context"
	"time"

	"github.com/legalflow/lexsync/jobstatus"
)

// Job exposes the court-notification fetch as a runnable recurring job.
type Job struct {
	service *Service
}

// NewJob wraps a fetch service for the runner.
func NewJob(service *Service) *Job {
	return &Job{service: service}
}

func (j *Job) JobName() string { return jobstatus.JobProjudiSync }

func (j *Job) Configured() bool { return j.service.Configured() }

// Windowed is true: each run fetches records changed since the persisted
// watermark and a fresh watermark is stored on success.
func (j *Job) Windowed() bool { return true }

func (j *Job) Run(ctx context.Context, since time.Time) (any, error) {
	return j.service.FetchNew(ctx, since)
}
