package logger

// Standard field names for consistent structured logging across lexsync.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldJobName   = "job_name"
	FieldRunID     = "run_id"
	FieldCompanyID = "company_id"
	FieldChargeID  = "charge_id"

	// Components
	FieldComponent = "component"
	FieldService   = "service"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldReference  = "reference"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount      = "count"
	FieldTotalCount = "total_count"

	// Status
	FieldStatus = "status"
	FieldState  = "state"
)
