// Package runner is the single entry point through which sync jobs
// execute: it resolves configuration, acquires the durable job lock, runs
// the service and always releases the lock, for scheduled and manual
// triggers alike.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/jobstatus"
	"github.com/legalflow/lexsync/logger"
)

// Service is a sync job executable by the runner. Windowed services
// receive a reference time computed from the persisted watermark and get a
// new watermark persisted on success; non-windowed services ignore the
// reference.
type Service interface {
	JobName() string
	Configured() bool
	Run(ctx context.Context, since time.Time) (any, error)
	Windowed() bool
}

// Params configures a single Execute call.
type Params struct {
	// Manual marks administratively triggered runs; they stamp
	// last_manual_trigger_at but follow the exact same locking path as
	// scheduled runs.
	Manual bool
}

// Outcome reports whether a run actually happened.
type Outcome struct {
	Triggered      bool
	AlreadyRunning bool
	RunID          string
	ReferenceUsed  time.Time
	Result         any
}

// DefaultRunTimeout bounds a single run end to end, covering all outbound
// calls the service makes.
const DefaultRunTimeout = 10 * time.Minute

// Runner executes one registered service under the job status store's
// mutual exclusion.
type Runner struct {
	store      *jobstatus.Store
	service    Service
	defaults   jobstatus.Defaults
	runTimeout time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
}

// New creates a runner for the given service. defaults supplies the
// per-job fallback interval plus lookback/overlap when the environment and
// the persisted row configure neither.
func New(store *jobstatus.Store, service Service, defaults jobstatus.Defaults) *Runner {
	if defaults.LookbackMS == 0 {
		defaults.LookbackMS = DefaultLookbackMS
	}
	if defaults.OverlapMS == 0 {
		defaults.OverlapMS = DefaultOverlapMS
	}
	return &Runner{
		store:      store,
		service:    service,
		defaults:   defaults,
		runTimeout: DefaultRunTimeout,
		log:        logger.Named("runner").With(logger.FieldJobName, service.JobName()),
		now:        time.Now,
	}
}

// JobName returns the name of the underlying service's job.
func (r *Runner) JobName() string {
	return r.service.JobName()
}

// Execute runs the service once. An unconfigured service fails with
// ErrConfiguration before the lock is touched. A concurrent run is not an
// error: the outcome reports AlreadyRunning and the caller decides whether
// that matters (manual triggers surface it, scheduled ticks skip).
func (r *Runner) Execute(ctx context.Context, params Params) (*Outcome, error) {
	if !r.service.Configured() {
		return nil, errors.Wrapf(errors.ErrConfiguration, "job %s is not configured", r.service.JobName())
	}

	overrides := ResolveOverrides(r.service.JobName())
	run, err := r.store.StartRun(r.service.JobName(), jobstatus.StartOptions{
		Manual:     params.Manual,
		IntervalMS: overrides.IntervalMS,
		LookbackMS: overrides.LookbackMS,
		OverlapMS:  overrides.OverlapMS,
		Defaults:   r.defaults,
	})
	if errors.IsAlreadyRunning(err) {
		return &Outcome{AlreadyRunning: true}, nil
	}
	if err != nil {
		return nil, err
	}

	r.log.Infow("Run started",
		logger.FieldRunID, run.ID,
		"manual", params.Manual,
		"reference", run.ReferenceUsed,
	)

	runCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	result, runErr := r.service.Run(runCtx, run.ReferenceUsed)
	if runErr != nil {
		// Release the lock before propagating; next_reference stays
		// untouched so the next tick retries the same window.
		if finishErr := r.store.FinishRun(run.JobName, run.ID, jobstatus.FinishOptions{
			Success: false,
			Err:     runErr,
		}); finishErr != nil {
			r.log.Errorw("Failed to record run failure",
				logger.FieldRunID, run.ID,
				"error", finishErr,
			)
		}
		return nil, runErr
	}

	finish := jobstatus.FinishOptions{Success: true, Result: result}
	if r.service.Windowed() {
		// The watermark comes from the wall clock, not from source
		// timestamps: a source with lagging or absent timestamps must not
		// stall the window.
		next := r.now().UTC().Add(-time.Duration(run.OverlapMS) * time.Millisecond)
		finish.NextReference = &next
	}
	if err := r.store.FinishRun(run.JobName, run.ID, finish); err != nil {
		return nil, err
	}

	r.log.Infow("Run finished", logger.FieldRunID, run.ID)

	return &Outcome{
		Triggered:     true,
		RunID:         run.ID,
		ReferenceUsed: run.ReferenceUsed,
		Result:        result,
	}, nil
}

// Status returns the read-only job status snapshot.
func (r *Runner) Status() (*jobstatus.JobStatus, error) {
	return r.store.FetchStatus(r.service.JobName())
}

// Interval returns the effective scheduling interval for the job: the env
// override when present, then the persisted value, then the default. The
// daemon calls this every tick so interval changes apply without restart.
func (r *Runner) Interval() time.Duration {
	if o := ResolveOverrides(r.service.JobName()); o.IntervalMS != nil {
		return time.Duration(*o.IntervalMS) * time.Millisecond
	}
	if status, err := r.store.FetchStatus(r.service.JobName()); err == nil && status != nil && status.IntervalMS > 0 {
		return time.Duration(status.IntervalMS) * time.Millisecond
	}
	return time.Duration(r.defaults.IntervalMS) * time.Millisecond
}
