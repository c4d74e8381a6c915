// Package daemon hosts the recurring sync jobs: one goroutine per
// registered runner, each firing on its own interval. The daemon is a thin
// timer; all locking and error recording lives in the runner and the job
// status store beneath it.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/logger"
	"github.com/legalflow/lexsync/runner"
)

// Daemon schedules registered runners until stopped.
type Daemon struct {
	runners []*runner.Runner
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *zap.SugaredLogger
}

// New creates a daemon hosting the given runners.
func New(ctx context.Context, runners ...*runner.Runner) *Daemon {
	daemonCtx, cancel := context.WithCancel(ctx)
	return &Daemon{
		runners: runners,
		ctx:     daemonCtx,
		cancel:  cancel,
		log:     logger.Named("daemon"),
	}
}

// Start launches one scheduling loop per runner and returns immediately.
func (d *Daemon) Start() {
	for _, r := range d.runners {
		d.wg.Add(1)
		go d.run(r)
	}
	d.log.Infow("Daemon started", logger.FieldCount, len(d.runners))
}

// Stop cancels all loops and waits for in-flight runs to finish.
func (d *Daemon) Stop() {
	d.cancel()
	d.wg.Wait()
	d.log.Infow("Daemon stopped")
}

// run is the scheduling loop for a single job. The interval is re-resolved
// after every tick so env changes apply without a restart. A failed run is
// logged and the loop keeps going; nothing a job does can take the host
// down.
func (d *Daemon) run(r *runner.Runner) {
	defer d.wg.Done()

	log := d.log.With(logger.FieldJobName, r.JobName())
	timer := time.NewTimer(r.Interval())
	defer timer.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-timer.C:
			d.tick(r, log)
			timer.Reset(r.Interval())
		}
	}
}

func (d *Daemon) tick(r *runner.Runner, log *zap.SugaredLogger) {
	outcome, err := r.Execute(d.ctx, runner.Params{})
	switch {
	case errors.IsConfiguration(err):
		// Stays quiet per tick at debug; an unconfigured job is a normal
		// deployment state, not an incident.
		log.Debugw("Job not configured, skipping tick")
	case errors.IsJobDisabled(err):
		log.Debugw("Job disabled, skipping tick")
	case err != nil:
		log.Warnw("Scheduled run failed", logger.FieldError, err)
	case outcome.AlreadyRunning:
		log.Debugw("Previous run still in progress, skipping tick")
	default:
		log.Debugw("Scheduled run finished", logger.FieldRunID, outcome.RunID)
	}
}
