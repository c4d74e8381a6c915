package runner

import (
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/legalflow/lexsync/logger"
)

// Fallbacks applied when neither env nor the persisted row configures a
// knob.
const (
	DefaultLookbackMS = int64(24 * 60 * 60 * 1000)
	DefaultOverlapMS  = int64(60 * 1000)
)

// Overrides holds the scheduling knobs found in the environment. A nil
// field means the env does not configure that knob and the persisted value
// (or default) applies.
type Overrides struct {
	IntervalMS *int64
	LookbackMS *int64
	OverlapMS  *int64
}

type envProbe struct {
	suffix     string
	multiplier int64
}

var (
	intervalProbes = []envProbe{
		{"_SYNC_INTERVAL_MS", 1},
		{"_SYNC_INTERVAL_SECONDS", 1000},
		{"_SYNC_INTERVAL_MINUTES", 60 * 1000},
	}
	lookbackProbes = []envProbe{
		{"_SYNC_LOOKBACK_MS", 1},
		{"_SYNC_LOOKBACK_HOURS", 60 * 60 * 1000},
		{"_SYNC_LOOKBACK_DAYS", 24 * 60 * 60 * 1000},
	}
	overlapProbes = []envProbe{
		{"_SYNC_OVERLAP_MS", 1},
		{"_SYNC_OVERLAP_SECONDS", 1000},
		{"_SYNC_OVERLAP_MINUTES", 60 * 1000},
	}
)

// ResolveOverrides reads the scheduling knobs for a job from the
// environment. It is called on every run rather than once at startup so the
// deployment can be reconfigured live. Variables are probed in unit order
// (ms, then coarser units); the first one set wins and is converted to
// milliseconds. Unparseable values are logged and skipped.
//
// The job name maps to an env prefix by uppercasing and replacing dashes:
// "charge-sync" reads CHARGE_SYNC_INTERVAL_MS and friends.
func ResolveOverrides(jobName string) Overrides {
	prefix := envPrefix(jobName)
	return Overrides{
		IntervalMS: probeEnv(prefix, intervalProbes),
		LookbackMS: probeEnv(prefix, lookbackProbes),
		OverlapMS:  probeEnv(prefix, overlapProbes),
	}
}

func envPrefix(jobName string) string {
	name := strings.ToUpper(strings.ReplaceAll(jobName, "-", "_"))
	// Job names already end in "-sync"; the env convention is
	// <JOB>_SYNC_<KNOB>, so strip the trailing segment before the probes
	// re-append it.
	return strings.TrimSuffix(name, "_SYNC")
}

func probeEnv(prefix string, probes []envProbe) *int64 {
	for _, probe := range probes {
		raw, ok := os.LookupEnv(prefix + probe.suffix)
		if !ok || raw == "" {
			continue
		}
		value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || value <= 0 {
			envConfigLog().Warnw("Ignoring invalid scheduling value",
				"variable", prefix+probe.suffix,
				"value", raw,
			)
			continue
		}
		ms := value * probe.multiplier
		return &ms
	}
	return nil
}

func envConfigLog() *zap.SugaredLogger {
	return logger.Named("runner")
}
