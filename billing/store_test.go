package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalflow/lexsync/asaas"
	"github.com/legalflow/lexsync/errors"
	lexsynctest "github.com/legalflow/lexsync/internal/testing"
)

func TestListTrackedChargesFiltersByStatus(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCharge(t, db, Charge{ID: "ch-1", ExternalID: "pay_1", Status: asaas.StatusPending})
	seedCharge(t, db, Charge{ID: "ch-2", ExternalID: "pay_2", Status: "CANCELLED"})
	seedCharge(t, db, Charge{ID: "ch-3", ExternalID: "pay_3", Status: asaas.StatusReceived})

	charges, err := NewStore(db).ListTrackedCharges(asaas.TrackedStatuses)
	require.NoError(t, err)
	require.Len(t, charges, 2)
	assert.Equal(t, "pay_1", charges[0].ExternalID)
	assert.Equal(t, "pay_3", charges[1].ExternalID)
}

func TestApplySubscriptionOverdueNeverShrinksGrace(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	store := NewStore(db)

	early := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.ApplySubscriptionOverdue("comp-1", late))
	row, err := store.GetSubscription("comp-1")
	require.NoError(t, err)
	assert.Equal(t, late.Add(10*24*time.Hour), row.GraceExpiresAt.UTC())

	// An earlier due date must not pull the grace window back.
	require.NoError(t, store.ApplySubscriptionOverdue("comp-1", early))
	row, err = store.GetSubscription("comp-1")
	require.NoError(t, err)
	assert.Equal(t, late.Add(10*24*time.Hour), row.GraceExpiresAt.UTC())
}

func TestApplySubscriptionPaymentYearlyCadence(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	_, err := db.Exec(`UPDATE companies SET cadence = 'yearly', active = 0 WHERE id = 'comp-1'`)
	require.NoError(t, err)

	store := NewStore(db)
	paidAt := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.ApplySubscriptionPayment("comp-1", paidAt))

	row, err := store.GetSubscription("comp-1")
	require.NoError(t, err)
	assert.True(t, row.Active, "payment reactivates the company")
	assert.Equal(t, paidAt.AddDate(1, 0, 0), row.CurrentPeriodEnd.UTC())
}

func TestApplySubscriptionPaymentUnknownCompany(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	err := NewStore(db).ApplySubscriptionPayment("missing", time.Now())
	assert.True(t, errors.IsNotFound(err))
}

func TestGetFlowMissingReturnsNil(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	flow, err := NewStore(db).GetFlow("missing")
	require.NoError(t, err)
	assert.Nil(t, flow)
}
