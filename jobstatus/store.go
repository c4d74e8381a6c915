package jobstatus

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/legalflow/lexsync/errors"
)

// Store handles persistence of job status rows.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new job status store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// StartOptions configures a StartRun call. Override fields, when non-nil,
// take precedence over persisted values, which take precedence over Defaults.
type StartOptions struct {
	Manual     bool
	IntervalMS *int64
	LookbackMS *int64
	OverlapMS  *int64
	Defaults   Defaults
}

// FinishOptions records the outcome of a run.
type FinishOptions struct {
	Success       bool
	NextReference *time.Time
	Result        any
	Err           error
}

// ConfigPatch merges only its non-nil fields into the persisted row.
type ConfigPatch struct {
	Enabled    *bool
	IntervalMS *int64
	LookbackMS *int64
	OverlapMS  *int64
}

// StartRun atomically acquires the run lock for jobName. If a prior run
// holds the lock it fails with ErrAlreadyRunning; callers must not retry in
// a tight loop. The returned reference is the persisted next_reference, or
// now minus the effective lookback when no watermark exists yet. The chosen
// interval/lookback/overlap values are persisted so later status reads are
// consistent.
//
// The acquisition is a conditional UPDATE guarded by running = 0: two
// processes both observing running=false cannot both set it to true.
func (s *Store) StartRun(jobName string, opts StartOptions) (*Run, error) {
	now := s.now().UTC()

	if err := s.ensureRow(jobName, now); err != nil {
		return nil, err
	}

	var enabled, running bool
	var intervalMS, lookbackMS, overlapMS int64
	var nextReference sql.NullString
	err := s.db.QueryRow(`
		SELECT enabled, running, interval_ms, lookback_ms, overlap_ms, next_reference
		FROM job_status
		WHERE job_name = ?
	`, jobName).Scan(&enabled, &running, &intervalMS, &lookbackMS, &overlapMS, &nextReference)
	if err != nil {
		return nil, errors.Wrapf(err, "read job status for %s", jobName)
	}

	if !enabled {
		return nil, errors.Wrap(errors.ErrJobDisabled, jobName)
	}
	if running {
		return nil, errors.Wrap(errors.ErrAlreadyRunning, jobName)
	}

	run := &Run{
		ID:         uuid.NewString(),
		JobName:    jobName,
		StartedAt:  now,
		IntervalMS: effective(opts.IntervalMS, intervalMS, opts.Defaults.IntervalMS),
		LookbackMS: effective(opts.LookbackMS, lookbackMS, opts.Defaults.LookbackMS),
		OverlapMS:  effective(opts.OverlapMS, overlapMS, opts.Defaults.OverlapMS),
	}

	run.ReferenceUsed = now.Add(-time.Duration(run.LookbackMS) * time.Millisecond)
	if nextReference.Valid {
		ref, err := time.Parse(time.RFC3339Nano, nextReference.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse next_reference for %s", jobName)
		}
		run.ReferenceUsed = ref
	}

	var manualTriggerAt any
	if opts.Manual {
		manualTriggerAt = now.Format(time.RFC3339Nano)
	}

	// Conditional check-and-set: only one caller can flip running 0 -> 1.
	result, err := s.db.Exec(`
		UPDATE job_status
		SET running = 1,
		    last_run_id = ?,
		    last_run_at = ?,
		    last_reference_used = ?,
		    interval_ms = ?,
		    lookback_ms = ?,
		    overlap_ms = ?,
		    last_manual_trigger_at = COALESCE(?, last_manual_trigger_at),
		    updated_at = ?
		WHERE job_name = ? AND running = 0 AND enabled = 1
	`,
		run.ID,
		now.Format(time.RFC3339Nano),
		run.ReferenceUsed.Format(time.RFC3339Nano),
		run.IntervalMS,
		run.LookbackMS,
		run.OverlapMS,
		manualTriggerAt,
		now.Format(time.RFC3339Nano),
		jobName,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "acquire run lock for %s", jobName)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "rows affected")
	}
	if rows == 0 {
		// Lost the race to another process between the snapshot and the CAS.
		return nil, errors.Wrap(errors.ErrAlreadyRunning, jobName)
	}

	return run, nil
}

// FinishRun releases the run lock and records the outcome. The update is
// guarded by last_run_id so a stale caller cannot finish a newer run. On
// failure next_reference is left untouched so the next attempt retries the
// same window.
func (s *Store) FinishRun(jobName, runID string, opts FinishOptions) error {
	now := s.now().UTC().Format(time.RFC3339Nano)

	var (
		result sql.Result
		err    error
	)

	if opts.Success {
		var nextReference any
		if opts.NextReference != nil {
			nextReference = opts.NextReference.UTC().Format(time.RFC3339Nano)
		}

		var lastResult any
		if opts.Result != nil {
			encoded, marshalErr := json.Marshal(opts.Result)
			if marshalErr != nil {
				return errors.Wrap(marshalErr, "marshal run result")
			}
			lastResult = string(encoded)
		}

		result, err = s.db.Exec(`
			UPDATE job_status
			SET running = 0,
			    last_success_at = ?,
			    next_reference = COALESCE(?, next_reference),
			    last_result = COALESCE(?, last_result),
			    updated_at = ?
			WHERE job_name = ? AND last_run_id = ?
		`, now, nextReference, lastResult, now, jobName, runID)
	} else {
		message := "unknown error"
		if opts.Err != nil {
			message = opts.Err.Error()
		}

		result, err = s.db.Exec(`
			UPDATE job_status
			SET running = 0,
			    last_error_at = ?,
			    last_error_message = ?,
			    updated_at = ?
			WHERE job_name = ? AND last_run_id = ?
		`, now, message, now, jobName, runID)
	}

	if err != nil {
		return errors.Wrapf(err, "finish run for %s", jobName)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "run %s for job %s", runID, jobName)
	}

	return nil
}

// UpsertConfiguration merges only the provided fields into the job row,
// creating it lazily on first use. It never touches the running flag, so it
// cannot race an in-flight run.
func (s *Store) UpsertConfiguration(jobName string, patch ConfigPatch) error {
	now := s.now().UTC()

	if err := s.ensureRow(jobName, now); err != nil {
		return err
	}

	var enabled any
	if patch.Enabled != nil {
		if *patch.Enabled {
			enabled = 1
		} else {
			enabled = 0
		}
	}

	_, err := s.db.Exec(`
		UPDATE job_status
		SET enabled = COALESCE(?, enabled),
		    interval_ms = COALESCE(?, interval_ms),
		    lookback_ms = COALESCE(?, lookback_ms),
		    overlap_ms = COALESCE(?, overlap_ms),
		    updated_at = ?
		WHERE job_name = ?
	`, enabled, patch.IntervalMS, patch.LookbackMS, patch.OverlapMS, now.Format(time.RFC3339Nano), jobName)
	if err != nil {
		return errors.Wrapf(err, "upsert configuration for %s", jobName)
	}

	return nil
}

// FetchStatus returns a read-only snapshot of the job row, or nil when the
// job has never been configured or run.
func (s *Store) FetchStatus(jobName string) (*JobStatus, error) {
	var status JobStatus
	var enabled, running int
	var lastRunID, lastErrorMessage, lastResult sql.NullString
	var lastRunAt, lastSuccessAt, lastErrorAt sql.NullString
	var lastReferenceUsed, nextReference sql.NullString
	var lastManualTriggerAt, createdAt, updatedAt sql.NullString

	err := s.db.QueryRow(`
		SELECT job_name, enabled, running, interval_ms, lookback_ms, overlap_ms,
		       last_run_id, last_run_at, last_success_at, last_error_at,
		       last_error_message, last_result, last_reference_used,
		       next_reference, last_manual_trigger_at, created_at, updated_at
		FROM job_status
		WHERE job_name = ?
	`, jobName).Scan(
		&status.JobName,
		&enabled,
		&running,
		&status.IntervalMS,
		&status.LookbackMS,
		&status.OverlapMS,
		&lastRunID,
		&lastRunAt,
		&lastSuccessAt,
		&lastErrorAt,
		&lastErrorMessage,
		&lastResult,
		&lastReferenceUsed,
		&nextReference,
		&lastManualTriggerAt,
		&createdAt,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetch status for %s", jobName)
	}

	status.Enabled = enabled != 0
	status.Running = running != 0
	if lastRunID.Valid {
		status.LastRunID = lastRunID.String
	}
	if lastErrorMessage.Valid {
		status.LastErrorMessage = lastErrorMessage.String
	}
	if lastResult.Valid {
		status.LastResult = json.RawMessage(lastResult.String)
	}

	for _, field := range []struct {
		src  sql.NullString
		dst  **time.Time
		name string
	}{
		{lastRunAt, &status.LastRunAt, "last_run_at"},
		{lastSuccessAt, &status.LastSuccessAt, "last_success_at"},
		{lastErrorAt, &status.LastErrorAt, "last_error_at"},
		{lastReferenceUsed, &status.LastReferenceUsed, "last_reference_used"},
		{nextReference, &status.NextReference, "next_reference"},
		{lastManualTriggerAt, &status.LastManualTriggerAt, "last_manual_trigger_at"},
	} {
		if !field.src.Valid {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, field.src.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s for %s", field.name, jobName)
		}
		*field.dst = &t
	}

	if createdAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, createdAt.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at for %s", jobName)
		}
		status.CreatedAt = t
	}
	if updatedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, updatedAt.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse updated_at for %s", jobName)
		}
		status.UpdatedAt = t
	}

	return &status, nil
}

// ensureRow lazily creates the job row with defaults on first use.
func (s *Store) ensureRow(jobName string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO job_status (job_name, created_at, updated_at)
		VALUES (?, ?, ?)
	`, jobName, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "ensure job row for %s", jobName)
	}
	return nil
}

// effective picks the override when provided, else the persisted value when
// set, else the default.
func effective(override *int64, persisted, fallback int64) int64 {
	if override != nil {
		return *override
	}
	if persisted > 0 {
		return persisted
	}
	return fallback
}
