package billing

import (
	"database/sql"
	"time"

	"github.com/legalflow/lexsync/errors"
)

// Store handles persistence of charges, financial flows and company
// subscription fields.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new billing store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// ListTrackedCharges returns local charges whose status is in the given
// set. These are the charges a sync run reconciles against the gateway.
func (s *Store) ListTrackedCharges(statuses []string) ([]Charge, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(statuses)*3)
	args := make([]any, 0, len(statuses))
	for i, status := range statuses {
		if i > 0 {
			placeholders = append(placeholders, ", "...)
		}
		placeholders = append(placeholders, '?')
		args = append(args, status)
	}

	rows, err := s.db.Query(`
		SELECT id, external_id, financial_flow_id, status, origin, due_date
		FROM charges
		WHERE status IN (`+string(placeholders)+`)
		ORDER BY created_at
	`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list tracked charges")
	}
	defer rows.Close()

	var charges []Charge
	for rows.Next() {
		var c Charge
		var flowID, dueDate sql.NullString
		if err := rows.Scan(&c.ID, &c.ExternalID, &flowID, &c.Status, &c.Origin, &dueDate); err != nil {
			return nil, errors.Wrap(err, "scan charge")
		}
		c.FinancialFlowID = flowID.String
		if dueDate.Valid {
			t, err := parseStoredTime(dueDate.String)
			if err != nil {
				return nil, errors.Wrapf(err, "parse due_date for charge %s", c.ID)
			}
			c.DueDate = &t
		}
		charges = append(charges, c)
	}
	return charges, rows.Err()
}

// UpdateChargeStatus persists a new gateway status on a local charge.
func (s *Store) UpdateChargeStatus(chargeID, status string) error {
	_, err := s.db.Exec(`
		UPDATE charges SET status = ?, updated_at = ? WHERE id = ?
	`, status, s.now().UTC().Format(time.RFC3339Nano), chargeID)
	return errors.Wrapf(err, "update charge %s status", chargeID)
}

// GetFlow retrieves a financial flow, or nil when absent.
func (s *Store) GetFlow(flowID string) (*FinancialFlow, error) {
	var f FinancialFlow
	var companyID, clientID, paymentDate sql.NullString
	err := s.db.QueryRow(`
		SELECT id, company_id, client_id, status, payment_date
		FROM financial_flows WHERE id = ?
	`, flowID).Scan(&f.ID, &companyID, &clientID, &f.Status, &paymentDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetch flow %s", flowID)
	}
	f.CompanyID = companyID.String
	f.ClientID = clientID.String
	if paymentDate.Valid {
		t, err := parseStoredTime(paymentDate.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse payment_date for flow %s", flowID)
		}
		f.PaymentDate = &t
	}
	return &f, nil
}

// UpdateFlowStatus persists a flow status and, when non-nil, the payment
// date reported by the gateway.
func (s *Store) UpdateFlowStatus(flowID, status string, paymentDate *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE financial_flows
		SET status = ?, payment_date = COALESCE(?, payment_date), updated_at = ?
		WHERE id = ?
	`, status, nullTime(paymentDate), s.now().UTC().Format(time.RFC3339Nano), flowID)
	return errors.Wrapf(err, "update flow %s status", flowID)
}

// GetSubscription reads the subscription fields of a company, or nil when
// the company does not exist.
func (s *Store) GetSubscription(companyID string) (*SubscriptionRow, error) {
	var row SubscriptionRow
	var planID sql.NullString
	var active int
	var trialStarted, trialEnds, periodStart, periodEnd, graceExpires sql.NullString
	err := s.db.QueryRow(`
		SELECT id, plan_id, active, cadence, trial_started_at, trial_ends_at,
		       current_period_start, current_period_end, grace_expires_at
		FROM companies WHERE id = ?
	`, companyID).Scan(&row.CompanyID, &planID, &active, &row.Cadence,
		&trialStarted, &trialEnds, &periodStart, &periodEnd, &graceExpires)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "fetch subscription for company %s", companyID)
	}
	row.PlanID = planID.String
	row.Active = active != 0

	for _, field := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{trialStarted, &row.TrialStartedAt},
		{trialEnds, &row.TrialEndsAt},
		{periodStart, &row.CurrentPeriodStart},
		{periodEnd, &row.CurrentPeriodEnd},
		{graceExpires, &row.GraceExpiresAt},
	} {
		if !field.src.Valid {
			continue
		}
		t, err := parseStoredTime(field.src.String)
		if err != nil {
			return nil, errors.Wrapf(err, "parse subscription field for company %s", companyID)
		}
		*field.dst = &t
	}
	return &row, nil
}

// ApplySubscriptionPayment records a successful plan payment: the company
// is activated, the current period advances by one cadence step from the
// paid date, and any grace extension is cleared.
func (s *Store) ApplySubscriptionPayment(companyID string, paidAt time.Time) error {
	row, err := s.GetSubscription(companyID)
	if err != nil {
		return err
	}
	if row == nil {
		return errors.Wrapf(errors.ErrNotFound, "company %s", companyID)
	}

	paidAt = paidAt.UTC()
	periodEnd := advancePeriod(paidAt, row.Cadence)

	_, err = s.db.Exec(`
		UPDATE companies
		SET active = 1,
		    current_period_start = ?,
		    current_period_end = ?,
		    grace_expires_at = NULL,
		    updated_at = ?
		WHERE id = ?
	`, paidAt.Format(time.RFC3339Nano), periodEnd.Format(time.RFC3339Nano),
		s.now().UTC().Format(time.RFC3339Nano), companyID)
	return errors.Wrapf(err, "apply payment for company %s", companyID)
}

// ApplySubscriptionOverdue extends the grace window to due date + 10 days.
// An explicitly extended grace period is never shrunk.
func (s *Store) ApplySubscriptionOverdue(companyID string, dueDate time.Time) error {
	row, err := s.GetSubscription(companyID)
	if err != nil {
		return err
	}
	if row == nil {
		return errors.Wrapf(errors.ErrNotFound, "company %s", companyID)
	}

	grace := dueDate.UTC().Add(gracePeriod)
	if row.GraceExpiresAt != nil && row.GraceExpiresAt.After(grace) {
		grace = *row.GraceExpiresAt
	}

	_, err = s.db.Exec(`
		UPDATE companies SET grace_expires_at = ?, updated_at = ? WHERE id = ?
	`, grace.Format(time.RFC3339Nano), s.now().UTC().Format(time.RFC3339Nano), companyID)
	return errors.Wrapf(err, "apply overdue for company %s", companyID)
}

func advancePeriod(from time.Time, cadence string) time.Time {
	if cadence == CadenceYearly {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

func parseStoredTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
	}
	return t, err
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
