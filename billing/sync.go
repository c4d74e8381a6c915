package billing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/legalflow/lexsync/asaas"
	"github.com/legalflow/lexsync/notify"
)

// Gateway is the slice of the payment gateway client used by the charge
// sync.
type Gateway interface {
	Configured() bool
	ListPaymentsByStatus(ctx context.Context, statuses []string) (map[string]asaas.Payment, error)
}

// SyncResult summarizes a single reconciliation pass.
type SyncResult struct {
	TotalCharges      int      `json:"totalCharges"`
	PaymentsRetrieved int      `json:"paymentsRetrieved"`
	ChargesUpdated    int      `json:"chargesUpdated"`
	FlowsUpdated      int      `json:"flowsUpdated"`
	FetchedStatuses   []string `json:"fetchedStatuses"`
}

// SyncService reconciles open local charges against the gateway and drives
// subscription side effects from the outcomes.
type SyncService struct {
	gateway   Gateway
	store     *Store
	publisher notify.Publisher
	log       *zap.SugaredLogger
	now       func() time.Time
}

// NewSyncService creates a charge sync service. A nil publisher disables
// notifications; a nil logger falls back to nop.
func NewSyncService(gateway Gateway, store *Store, publisher notify.Publisher, log *zap.SugaredLogger) *SyncService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SyncService{
		gateway:   gateway,
		store:     store,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Configured reports whether the gateway credentials are present.
func (s *SyncService) Configured() bool {
	return s.gateway.Configured()
}

// SyncPendingCharges runs one reconciliation pass. With zero locally
// tracked charges the gateway is never called. Each statement is safe to
// re-run: an interrupted pass converges to the same end state on the next
// tick.
func (s *SyncService) SyncPendingCharges(ctx context.Context) (*SyncResult, error) {
	charges, err := s.store.ListTrackedCharges(asaas.TrackedStatuses)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{
		TotalCharges:    len(charges),
		FetchedStatuses: asaas.TrackedStatuses,
	}
	if len(charges) == 0 {
		return result, nil
	}

	payments, err := s.gateway.ListPaymentsByStatus(ctx, asaas.TrackedStatuses)
	if err != nil {
		return nil, err
	}
	result.PaymentsRetrieved = len(payments)

	for _, charge := range charges {
		payment, ok := payments[charge.ExternalID]
		if !ok || payment.Status == charge.Status {
			continue
		}

		if err := s.store.UpdateChargeStatus(charge.ID, payment.Status); err != nil {
			return nil, err
		}
		result.ChargesUpdated++

		if charge.FinancialFlowID != "" {
			if err := s.reconcileFlow(ctx, charge, payment); err != nil {
				return nil, err
			}
			result.FlowsUpdated++
		}

		s.publish(ctx, charge, payment)
	}

	return result, nil
}

func (s *SyncService) reconcileFlow(ctx context.Context, charge Charge, payment asaas.Payment) error {
	flowStatus := FlowPending
	var paymentDate *time.Time
	switch {
	case asaas.IsPaid(payment.Status):
		flowStatus = FlowPaid
		if payment.PaymentDate != nil && !payment.PaymentDate.IsZero() {
			t := payment.PaymentDate.Time
			paymentDate = &t
		}
	case asaas.IsRefund(payment.Status):
		flowStatus = FlowRefunded
	}

	if err := s.store.UpdateFlowStatus(charge.FinancialFlowID, flowStatus, paymentDate); err != nil {
		return err
	}

	flow, err := s.store.GetFlow(charge.FinancialFlowID)
	if err != nil {
		return err
	}
	if flow == nil || flow.CompanyID == "" {
		return nil
	}

	// Subscription mutation is restricted to plan invoices; an unrelated
	// charge that happens to reference a flow must not touch it.
	if charge.Origin != OriginPlanPayment && flow.ClientID == "" {
		return nil
	}

	switch {
	case asaas.IsPaid(payment.Status):
		paidAt := s.now().UTC()
		if paymentDate != nil {
			paidAt = *paymentDate
		}
		return s.store.ApplySubscriptionPayment(flow.CompanyID, paidAt)
	case payment.Status == asaas.StatusOverdue && charge.DueDate != nil:
		return s.store.ApplySubscriptionOverdue(flow.CompanyID, *charge.DueDate)
	}
	return nil
}

// publish emits a payments notification for a status change. Delivery is
// best effort: failures are logged and never fail the run.
func (s *SyncService) publish(ctx context.Context, charge Charge, payment asaas.Payment) {
	if s.publisher == nil {
		return
	}

	severity := notify.SeverityInfo
	switch {
	case asaas.IsPaid(payment.Status):
		severity = notify.SeveritySuccess
	case asaas.IsRefund(payment.Status), payment.Status == asaas.StatusOverdue:
		severity = notify.SeverityWarning
	}

	var companyID string
	if charge.FinancialFlowID != "" {
		if flow, err := s.store.GetFlow(charge.FinancialFlowID); err == nil && flow != nil {
			companyID = flow.CompanyID
		}
	}

	n := notify.Notification{
		Category:  notify.CategoryPayments,
		Severity:  severity,
		Title:     "Cobrança atualizada",
		Body:      fmt.Sprintf("Cobrança %s mudou para %s", charge.ExternalID, payment.Status),
		CompanyID: companyID,
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.log.Warnw("Failed to publish payment notification",
			"charge_id", charge.ID,
			"error", err,
		)
	}
}
