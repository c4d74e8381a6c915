package billing

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalflow/lexsync/asaas"
	"github.com/legalflow/lexsync/errors"
	lexsynctest "github.com/legalflow/lexsync/internal/testing"
	"github.com/legalflow/lexsync/notify"
)

type fakeGateway struct {
	configured bool
	payments   map[string]asaas.Payment
	err        error
	calls      int
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) ListPaymentsByStatus(_ context.Context, _ []string) (map[string]asaas.Payment, error) {
	g.calls++
	return g.payments, g.err
}

type capturePublisher struct {
	published []notify.Notification
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, n notify.Notification) error {
	p.published = append(p.published, n)
	return p.err
}

func seedCompany(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.Exec(`
		INSERT INTO companies (id, name, plan_id, active, cadence, created_at, updated_at)
		VALUES (?, 'Escritório Teste', 'pro', 1, 'monthly', ?, ?)
	`, id, now, now)
	require.NoError(t, err)
}

func seedFlow(t *testing.T, db *sql.DB, id, companyID, clientID string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := db.Exec(`
		INSERT INTO financial_flows (id, company_id, client_id, status, created_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), 'pendente', ?, ?)
	`, id, companyID, clientID, now, now)
	require.NoError(t, err)
}

func seedCharge(t *testing.T, db *sql.DB, c Charge) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var dueDate any
	if c.DueDate != nil {
		dueDate = c.DueDate.UTC().Format(time.RFC3339Nano)
	}
	_, err := db.Exec(`
		INSERT INTO charges (id, external_id, financial_flow_id, status, origin, due_date, created_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
	`, c.ID, c.ExternalID, c.FinancialFlowID, c.Status, c.Origin, dueDate, now, now)
	require.NoError(t, err)
}

func chargeStatus(t *testing.T, db *sql.DB, id string) string {
	t.Helper()
	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM charges WHERE id = ?`, id).Scan(&status))
	return status
}

func TestSyncNoOpWithoutTrackedCharges(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	gateway := &fakeGateway{configured: true}
	service := NewSyncService(gateway, NewStore(db), nil, nil)

	result, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalCharges)
	assert.Equal(t, 0, gateway.calls, "gateway must not be called with zero tracked charges")
}

func TestSyncOverdueConvergence(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	seedFlow(t, db, "flow-1", "comp-1", "client-1")
	dueDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1", FinancialFlowID: "flow-1",
		Status: asaas.StatusPending, Origin: OriginPlanPayment, DueDate: &dueDate,
	})

	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {ID: "pay_1", Status: asaas.StatusOverdue},
		},
	}
	publisher := &capturePublisher{}
	service := NewSyncService(gateway, NewStore(db), publisher, nil)

	result, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ChargesUpdated)
	assert.Equal(t, 1, result.FlowsUpdated)

	assert.Equal(t, asaas.StatusOverdue, chargeStatus(t, db, "ch-1"))

	flow, err := NewStore(db).GetFlow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, FlowPending, flow.Status, "overdue is still the open family")

	// Grace extends to due date + 10 days.
	row, err := NewStore(db).GetSubscription("comp-1")
	require.NoError(t, err)
	require.NotNil(t, row.GraceExpiresAt)
	assert.Equal(t, dueDate.Add(10*24*time.Hour), row.GraceExpiresAt.UTC())

	require.Len(t, publisher.published, 1)
	assert.Equal(t, notify.SeverityWarning, publisher.published[0].Severity)
	assert.Equal(t, "comp-1", publisher.published[0].CompanyID)
}

func TestSyncPaymentAdvancesSubscription(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	seedFlow(t, db, "flow-1", "comp-1", "")
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1", FinancialFlowID: "flow-1",
		Status: asaas.StatusPending, Origin: OriginPlanPayment,
	})

	paidAt := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {
				ID:          "pay_1",
				Status:      asaas.StatusReceived,
				PaymentDate: &asaas.ISODate{Time: paidAt},
			},
		},
	}
	publisher := &capturePublisher{}
	service := NewSyncService(gateway, NewStore(db), publisher, nil)

	_, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)

	flow, err := NewStore(db).GetFlow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, FlowPaid, flow.Status)
	require.NotNil(t, flow.PaymentDate)
	assert.Equal(t, paidAt, flow.PaymentDate.UTC())

	row, err := NewStore(db).GetSubscription("comp-1")
	require.NoError(t, err)
	assert.True(t, row.Active)
	require.NotNil(t, row.CurrentPeriodStart)
	assert.Equal(t, paidAt, row.CurrentPeriodStart.UTC())
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, paidAt.AddDate(0, 1, 0), row.CurrentPeriodEnd.UTC())
	assert.Nil(t, row.GraceExpiresAt, "payment clears any grace extension")

	require.Len(t, publisher.published, 1)
	assert.Equal(t, notify.SeveritySuccess, publisher.published[0].Severity)
}

func TestSyncGuardBlocksUnrelatedInvoice(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	// Flow without an owning client, charge without the plan-payment origin.
	seedFlow(t, db, "flow-1", "comp-1", "")
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1", FinancialFlowID: "flow-1",
		Status: asaas.StatusPending, Origin: "invoice",
	})

	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {ID: "pay_1", Status: asaas.StatusConfirmed},
		},
	}
	service := NewSyncService(gateway, NewStore(db), nil, nil)

	_, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)

	// Flow status still maps, but subscription fields stay untouched.
	flow, err := NewStore(db).GetFlow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, FlowPaid, flow.Status)

	row, err := NewStore(db).GetSubscription("comp-1")
	require.NoError(t, err)
	assert.Nil(t, row.CurrentPeriodEnd)
}

func TestSyncUnchangedStatusIsSkipped(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1",
		Status: asaas.StatusPending, Origin: "invoice",
	})

	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {ID: "pay_1", Status: asaas.StatusPending},
		},
	}
	publisher := &capturePublisher{}
	service := NewSyncService(gateway, NewStore(db), publisher, nil)

	result, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCharges)
	assert.Equal(t, 0, result.ChargesUpdated)
	assert.Empty(t, publisher.published)
}

func TestSyncIdempotentRerun(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCompany(t, db, "comp-1")
	seedFlow(t, db, "flow-1", "comp-1", "client-1")
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1", FinancialFlowID: "flow-1",
		Status: asaas.StatusPending, Origin: OriginPlanPayment,
	})

	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {ID: "pay_1", Status: asaas.StatusReceived},
		},
	}
	service := NewSyncService(gateway, NewStore(db), nil, nil)

	first, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ChargesUpdated)

	// The charge now sits in the paid family, which is still tracked, but
	// its status matches the gateway: the rerun changes nothing.
	second, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.ChargesUpdated)
	assert.Equal(t, 0, second.FlowsUpdated)
}

func TestSyncPublishFailureIsSwallowed(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1",
		Status: asaas.StatusPending, Origin: "invoice",
	})

	gateway := &fakeGateway{
		configured: true,
		payments: map[string]asaas.Payment{
			"pay_1": {ID: "pay_1", Status: asaas.StatusOverdue},
		},
	}
	publisher := &capturePublisher{err: errors.New("broker down")}
	service := NewSyncService(gateway, NewStore(db), publisher, nil)

	result, err := service.SyncPendingCharges(context.Background())
	require.NoError(t, err, "publish failures never fail the run")
	assert.Equal(t, 1, result.ChargesUpdated)
}

func TestSyncGatewayErrorPropagates(t *testing.T) {
	db := lexsynctest.CreateTestDB(t)
	seedCharge(t, db, Charge{
		ID: "ch-1", ExternalID: "pay_1",
		Status: asaas.StatusPending, Origin: "invoice",
	})

	gateway := &fakeGateway{
		configured: true,
		err:        errors.Wrap(errors.ErrConfiguration, "gateway rejected credentials"),
	}
	service := NewSyncService(gateway, NewStore(db), nil, nil)

	_, err := service.SyncPendingCharges(context.Background())
	assert.True(t, errors.IsConfiguration(err))
	// The charge is untouched on failure.
	assert.Equal(t, asaas.StatusPending, chargeStatus(t, db, "ch-1"))
}
