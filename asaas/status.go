package asaas

// Gateway charge statuses tracked by the charge sync.
const (
	StatusPending             = "PENDING"
	StatusAwaitingRiskReview  = "AWAITING_RISK_ANALYSIS"
	StatusOverdue             = "OVERDUE"
	StatusReceived            = "RECEIVED"
	StatusConfirmed           = "CONFIRMED"
	StatusReceivedInCash      = "RECEIVED_IN_CASH"
	StatusRefunded            = "REFUNDED"
	StatusRefundRequested     = "REFUND_REQUESTED"
	StatusChargebackRequested = "CHARGEBACK_REQUESTED"
)

// TrackedStatuses is the full set scanned by every sync run. Charges that
// reached a paid or refunded state stay tracked in case of later correction
// (e.g. a chargeback).
var TrackedStatuses = []string{
	StatusPending,
	StatusOverdue,
	StatusReceived,
	StatusConfirmed,
	StatusReceivedInCash,
	StatusRefunded,
	StatusRefundRequested,
	StatusChargebackRequested,
}

// IsPaid reports whether a status belongs to the paid family.
func IsPaid(status string) bool {
	switch status {
	case StatusReceived, StatusConfirmed, StatusReceivedInCash:
		return true
	}
	return false
}

// IsRefund reports whether a status belongs to the refund family.
func IsRefund(status string) bool {
	switch status {
	case StatusRefunded, StatusRefundRequested, StatusChargebackRequested:
		return true
	}
	return false
}

// IsOpen reports whether a status belongs to the open family (not yet
// settled either way).
func IsOpen(status string) bool {
	switch status {
	case StatusPending, StatusAwaitingRiskReview, StatusOverdue:
		return true
	}
	return false
}
