// Package billing reconciles local charge and financial-flow records with
// the payment gateway and derives each company's subscription lifecycle
// status from its temporal boundaries.
package billing

import "time"

// Local financial-flow statuses. The charge sync is the only writer.
const (
	FlowPending  = "pendente"
	FlowPaid     = "pago"
	FlowRefunded = "estornado"
)

// OriginPlanPayment marks charges created for subscription plan invoices.
// Only these (or flows with an owning client) may mutate subscription
// fields during reconciliation.
const OriginPlanPayment = "plan-payment"

// Charge mirrors a gateway charge. ID is local; ExternalID is the gateway
// identifier used for reconciliation.
type Charge struct {
	ID              string
	ExternalID      string
	FinancialFlowID string
	Status          string
	Origin          string
	DueDate         *time.Time
}

// FinancialFlow is a ledger entry optionally linked to a company and a
// client.
type FinancialFlow struct {
	ID          string
	CompanyID   string
	ClientID    string
	Status      string
	PaymentDate *time.Time
}

// Cadence values accepted on companies.cadence.
const (
	CadenceMonthly = "monthly"
	CadenceYearly  = "yearly"
)
