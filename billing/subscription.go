package billing

import "time"

// Subscription statuses.
const (
	StatusInactive    = "inactive"
	StatusTrialing    = "trialing"
	StatusActive      = "active"
	StatusGracePeriod = "grace_period"
	StatusExpired     = "expired"
)

// Blocking reasons reported on states out of good standing.
const (
	ReasonInactive           = "inactive"
	ReasonTrialExpired       = "trial_expired"
	ReasonGracePeriodExpired = "grace_period_expired"
)

// Defaults applied when a boundary is not explicitly persisted.
const (
	trialPeriod = 14 * 24 * time.Hour
	gracePeriod = 10 * 24 * time.Hour
)

// SubscriptionRow holds the raw subscription fields of a company as
// persisted, before resolution.
type SubscriptionRow struct {
	CompanyID          string
	PlanID             string
	Active             bool
	Cadence            string
	TrialStartedAt     *time.Time
	TrialEndsAt        *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	GraceExpiresAt     *time.Time
}

// State is the resolved subscription lifecycle of a company at a point in
// time.
type State struct {
	PlanID              string
	Status              string
	StartedAt           *time.Time
	TrialEndsAt         *time.Time
	CurrentPeriodEndsAt *time.Time
	GracePeriodEndsAt   *time.Time
	IsInGoodStanding    bool
	BlockingReason      string
}

// Resolve derives the subscription state of a company row at the given
// instant. It is a pure function of its inputs.
//
// Rules, in order: no plan or explicitly inactive → inactive (blocked);
// inside the trial window → trialing; inside the current period → active;
// inside the grace window → grace_period; no temporal boundaries at all →
// active (unmanaged); otherwise expired with the applicable blocking
// reason.
func Resolve(row SubscriptionRow, now time.Time) State {
	state := State{
		PlanID:    row.PlanID,
		StartedAt: row.CurrentPeriodStart,
	}

	if row.PlanID == "" || !row.Active {
		state.Status = StatusInactive
		state.BlockingReason = ReasonInactive
		return state
	}

	trialEnd := row.TrialEndsAt
	if trialEnd == nil && row.TrialStartedAt != nil {
		t := row.TrialStartedAt.Add(trialPeriod)
		trialEnd = &t
	}
	state.TrialEndsAt = trialEnd
	state.CurrentPeriodEndsAt = row.CurrentPeriodEnd

	graceEnd := row.GraceExpiresAt
	if row.CurrentPeriodEnd != nil {
		computed := row.CurrentPeriodEnd.Add(gracePeriod)
		if graceEnd == nil || computed.After(*graceEnd) {
			graceEnd = &computed
		}
	}
	state.GracePeriodEndsAt = graceEnd

	switch {
	case trialEnd != nil && now.Before(*trialEnd):
		state.Status = StatusTrialing
		state.IsInGoodStanding = true
	case row.CurrentPeriodEnd != nil && !now.After(*row.CurrentPeriodEnd):
		state.Status = StatusActive
		state.IsInGoodStanding = true
	case graceEnd != nil && !now.After(*graceEnd):
		state.Status = StatusGracePeriod
		state.IsInGoodStanding = true
	case trialEnd == nil && row.CurrentPeriodEnd == nil && graceEnd == nil:
		// No temporal boundaries at all: treated as unmanaged.
		state.Status = StatusActive
		state.IsInGoodStanding = true
	default:
		state.Status = StatusExpired
		switch {
		case graceEnd != nil:
			state.BlockingReason = ReasonGracePeriodExpired
		case trialEnd != nil && row.CurrentPeriodEnd == nil:
			state.BlockingReason = ReasonTrialExpired
		default:
			state.BlockingReason = ReasonInactive
		}
	}
	return state
}
