package core

// InsightReport is the transient result of comparing a user's partial-month
// figures against their trained baseline. It is computed on demand and never
// stored. All monetary figures are rounded for presentation; percentages
// carry one decimal.
type InsightReport struct {
	Historical HistoricalAverages `json:"historical_average"`
	Current    CurrentStatus      `json:"current_status"`
	Comparison Comparison         `json:"comparison"`
	Feedback   []string           `json:"feedback"`
}

// HistoricalAverages are the baseline means the report was computed against.
type HistoricalAverages struct {
	Expenses float64 `json:"expenses"`
	Savings  float64 `json:"savings"`
	Income   float64 `json:"income"`
}

// CurrentStatus echoes the caller-reported figures alongside their
// full-month projections and how much of the month has elapsed.
type CurrentStatus struct {
	ReportedExpenses  float64 `json:"reported_expenses"`
	ReportedSavings   float64 `json:"reported_savings"`
	MonthCompletion   float64 `json:"month_completion"` // percent, one decimal
	ProjectedExpenses float64 `json:"projected_expenses"`
	ProjectedSavings  float64 `json:"projected_savings"`
}

// Comparison holds the percentage deltas of the projections against the
// baseline averages.
type Comparison struct {
	ExpenseChangePct float64 `json:"expense_change_percent"`
	SavingsChangePct float64 `json:"savings_change_percent"`
}
