package log

// Common field names for structured logging
const (
	FieldComponent       = "component"
	FieldError           = "error"
	FieldUserID          = "user_id"
	FieldCSVPath         = "csv_path"
	FieldRecordsInWindow = "records_in_window"
	FieldMonthsInWindow  = "months_in_window"
	FieldMonthFraction   = "month_fraction"
	FieldAmountCents     = "amount_cents"
	FieldTxnKind         = "kind"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentWorker = "worker"
	ComponentCLI    = "cli"
)
