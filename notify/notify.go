// Package notify defines the publish contract consumed by the sync
// services. Delivery (webhooks, email, in-app) lives elsewhere; only the
// contract is owned here, so services depend on an interface rather than a
// delivery implementation.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Severity of a notification.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// CategoryPayments groups charge-status notifications.
const CategoryPayments = "payments"

// Notification is a single message for downstream delivery.
type Notification struct {
	Category  string
	Severity  string
	Title     string
	Body      string
	CompanyID string
}

// Publisher delivers notifications. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// LogPublisher writes notifications to the structured log. It is the
// default when no delivery layer is wired.
type LogPublisher struct {
	log *zap.SugaredLogger
}

// NewLogPublisher creates a LogPublisher. A nil logger falls back to nop.
func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, n Notification) error {
	p.log.Infow("Notification published",
		"category", n.Category,
		"severity", n.Severity,
		"title", n.Title,
		"company_id", n.CompanyID,
	)
	return nil
}
