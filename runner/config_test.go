package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOverridesUnitConversion(t *testing.T) {
	t.Setenv("PROJUDI_SYNC_INTERVAL_MINUTES", "5")
	t.Setenv("PROJUDI_SYNC_LOOKBACK_DAYS", "2")
	t.Setenv("PROJUDI_SYNC_OVERLAP_SECONDS", "90")

	o := ResolveOverrides("projudi-sync")
	require.NotNil(t, o.IntervalMS)
	assert.Equal(t, int64(5*60*1000), *o.IntervalMS)
	require.NotNil(t, o.LookbackMS)
	assert.Equal(t, int64(2*24*60*60*1000), *o.LookbackMS)
	require.NotNil(t, o.OverlapMS)
	assert.Equal(t, int64(90*1000), *o.OverlapMS)
}

func TestResolveOverridesFinerUnitWins(t *testing.T) {
	t.Setenv("CHARGE_SYNC_INTERVAL_MS", "15000")
	t.Setenv("CHARGE_SYNC_INTERVAL_MINUTES", "10")

	o := ResolveOverrides("charge-sync")
	require.NotNil(t, o.IntervalMS)
	assert.Equal(t, int64(15_000), *o.IntervalMS)
}

func TestResolveOverridesAbsent(t *testing.T) {
	o := ResolveOverrides("charge-sync")
	assert.Nil(t, o.IntervalMS)
	assert.Nil(t, o.LookbackMS)
	assert.Nil(t, o.OverlapMS)
}

func TestResolveOverridesInvalidValuesSkipped(t *testing.T) {
	t.Setenv("CHARGE_SYNC_INTERVAL_MS", "not-a-number")
	t.Setenv("CHARGE_SYNC_INTERVAL_SECONDS", "45")

	o := ResolveOverrides("charge-sync")
	require.NotNil(t, o.IntervalMS)
	assert.Equal(t, int64(45_000), *o.IntervalMS)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "CHARGE", envPrefix("charge-sync"))
	assert.Equal(t, "PROJUDI", envPrefix("projudi-sync"))
}
