package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalflow/lexsync/errors"
	lexsynctest "github.com/legalflow/lexsync/internal/testing"
	"github.com/legalflow/lexsync/jobstatus"
	"github.com/legalflow/lexsync/runner"
)

type tickingService struct {
	name  string
	calls atomic.Int64
	err   error
}

func (s *tickingService) JobName() string  { return s.name }
func (s *tickingService) Configured() bool { return true }
func (s *tickingService) Windowed() bool   { return false }

func (s *tickingService) Run(context.Context, time.Time) (any, error) {
	s.calls.Add(1)
	return nil, s.err
}

func newTestRunner(t *testing.T, service runner.Service) *runner.Runner {
	t.Helper()
	store := jobstatus.NewStore(lexsynctest.CreateTestDB(t))
	return runner.New(store, service, jobstatus.Defaults{
		IntervalMS: 20,
		LookbackMS: 86_400_000,
		OverlapMS:  60_000,
	})
}

func TestDaemonRunsJobsUntilStopped(t *testing.T) {
	service := &tickingService{name: "tick-sync"}
	d := New(context.Background(), newTestRunner(t, service))

	d.Start()
	require.Eventually(t, func() bool {
		return service.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	d.Stop()

	after := service.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, service.calls.Load(), "no ticks after Stop")
}

func TestDaemonSurvivesFailingJob(t *testing.T) {
	failing := &tickingService{name: "bad-sync", err: errors.New("remote down")}
	healthy := &tickingService{name: "good-sync"}
	d := New(context.Background(), newTestRunner(t, failing), newTestRunner(t, healthy))

	d.Start()
	defer d.Stop()

	require.Eventually(t, func() bool {
		return failing.calls.Load() >= 2 && healthy.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond, "failures must not stop either loop")
}

func TestDaemonStopIsIdempotentlySafeWithNoRunners(t *testing.T) {
	d := New(context.Background())
	d.Start()
	d.Stop()
}
