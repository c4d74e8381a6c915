package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalflow/lexsync/errors"
	lexsynctest "github.com/legalflow/lexsync/internal/testing"
	"github.com/legalflow/lexsync/jobstatus"
)

type fakeService struct {
	name       string
	configured bool
	windowed   bool
	result     any
	err        error
	calls      int
	lastSince  time.Time
	block      chan struct{}
}

func (s *fakeService) JobName() string { return s.name }
func (s *fakeService) Configured() bool { return s.configured }
func (s *fakeService) Windowed() bool { return s.windowed }

func (s *fakeService) Run(_ context.Context, since time.Time) (any, error) {
	s.calls++
	s.lastSince = since
	if s.block != nil {
		<-s.block
	}
	return s.result, s.err
}

var testDefaults = jobstatus.Defaults{
	IntervalMS: 300_000,
	LookbackMS: 86_400_000,
	OverlapMS:  60_000,
}

func TestExecuteUnconfiguredNeverTouchesLock(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{name: "test-sync", configured: false}

	_, err := New(store, service, testDefaults).Execute(context.Background(), Params{})
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, 0, service.calls)

	// No row was created and no lock taken.
	status, err := store.FetchStatus("test-sync")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestExecuteSuccessPersistsWatermark(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{
		name:       "test-sync",
		configured: true,
		windowed:   true,
		result:     map[string]int{"processed": 3},
	}

	before := time.Now().UTC()
	outcome, err := New(store, service, testDefaults).Execute(context.Background(), Params{Manual: true})
	require.NoError(t, err)
	assert.True(t, outcome.Triggered)
	assert.NotEmpty(t, outcome.RunID)

	// First run: reference is now minus the lookback window.
	assert.WithinDuration(t, before.Add(-24*time.Hour), service.lastSince, 5*time.Second)

	status, err := store.FetchStatus("test-sync")
	require.NoError(t, err)
	assert.False(t, status.Running)
	require.NotNil(t, status.NextReference)
	// Watermark is completion wall clock minus overlap, not a source time.
	assert.WithinDuration(t, time.Now().UTC().Add(-time.Minute), *status.NextReference, 5*time.Second)
	require.NotNil(t, status.LastManualTriggerAt)
	assert.JSONEq(t, `{"processed":3}`, string(status.LastResult))
}

func TestExecuteFailureReleasesLockKeepsWatermark(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)

	ok := &fakeService{name: "test-sync", configured: true, windowed: true}
	_, err := New(store, ok, testDefaults).Execute(context.Background(), Params{})
	require.NoError(t, err)

	statusBefore, err := store.FetchStatus("test-sync")
	require.NoError(t, err)
	require.NotNil(t, statusBefore.NextReference)

	failing := &fakeService{
		name: "test-sync", configured: true, windowed: true,
		err: errors.New("remote unavailable"),
	}
	_, err = New(store, failing, testDefaults).Execute(context.Background(), Params{})
	require.Error(t, err)
	// The failed run was handed the previous watermark.
	assert.True(t, failing.lastSince.Equal(*statusBefore.NextReference))

	statusAfter, err := store.FetchStatus("test-sync")
	require.NoError(t, err)
	assert.False(t, statusAfter.Running, "lock released after failure")
	assert.Equal(t, "remote unavailable", statusAfter.LastErrorMessage)
	// Watermark unchanged: the next run retries the same window.
	assert.True(t, statusAfter.NextReference.Equal(*statusBefore.NextReference))
}

func TestExecuteConcurrentReportsAlreadyRunning(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{
		name: "test-sync", configured: true,
		block: make(chan struct{}),
	}
	r := New(store, service, testDefaults)

	done := make(chan error, 1)
	go func() {
		_, err := r.Execute(context.Background(), Params{})
		done <- err
	}()

	// Wait for the first run to hold the lock.
	require.Eventually(t, func() bool {
		status, err := store.FetchStatus("test-sync")
		return err == nil && status != nil && status.Running
	}, 2*time.Second, 10*time.Millisecond)

	outcome, err := r.Execute(context.Background(), Params{Manual: true})
	require.NoError(t, err, "a concurrent run is not an error")
	assert.False(t, outcome.Triggered)
	assert.True(t, outcome.AlreadyRunning)

	close(service.block)
	require.NoError(t, <-done)
}

func TestExecuteNonWindowedKeepsNoWatermark(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{name: "test-sync", configured: true, windowed: false}

	_, err := New(store, service, testDefaults).Execute(context.Background(), Params{})
	require.NoError(t, err)

	status, err := store.FetchStatus("test-sync")
	require.NoError(t, err)
	assert.Nil(t, status.NextReference)
}

func TestExecuteDisabledJob(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{name: "test-sync", configured: true}
	r := New(store, service, testDefaults)

	_, err := r.Execute(context.Background(), Params{})
	require.NoError(t, err)

	disabled := false
	require.NoError(t, store.UpsertConfiguration("test-sync", jobstatus.ConfigPatch{Enabled: &disabled}))

	_, err = r.Execute(context.Background(), Params{})
	assert.True(t, errors.IsJobDisabled(err))
}

func TestIntervalPrecedence(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	store := jobstatus.NewStore(db)
	service := &fakeService{name: "test-sync", configured: true}
	r := New(store, service, testDefaults)

	// No row, no env: default.
	assert.Equal(t, 5*time.Minute, r.Interval())

	// Persisted value wins over the default.
	interval := int64(120_000)
	require.NoError(t, store.UpsertConfiguration("test-sync", jobstatus.ConfigPatch{IntervalMS: &interval}))
	assert.Equal(t, 2*time.Minute, r.Interval())

	// Env override wins over everything.
	t.Setenv("TEST_SYNC_INTERVAL_SECONDS", "30")
	assert.Equal(t, 30*time.Second, r.Interval())
}
