// Package insight projects a user's partial-month totals to full-month
// equivalents and compares them against the trained baseline.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"finsight/internal/core"
	"finsight/internal/log"
)

// changeThresholdPct is the symmetric band around the baseline average:
// deltas inside it read as "in line with history".
const changeThresholdPct = 10.0

// partialMonthNoteBelow: under this month fraction the report carries a
// note that projections will sharpen as the month progresses.
const partialMonthNoteBelow = 0.9

// BaselineReader is the slice of the store the generator needs.
type BaselineReader interface {
	Get(userID string) (core.Baseline, bool)
}

// Generator builds insight reports. The clock is injectable because the
// month fraction depends on the current date; production code uses
// time.Now.
type Generator struct {
	baselines BaselineReader
	now       func() time.Time
}

func NewGenerator(baselines BaselineReader) *Generator {
	return &Generator{baselines: baselines, now: time.Now}
}

// WithClock replaces the generator's clock. Intended for tests and for
// replaying reports at a fixed date.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Report compares the caller-reported current-month totals against the
// user's baseline. currentExpense must be non-negative; currentSavings may
// be negative.
//
// The call is pure given an unchanged baseline and clock: no retries, no
// partial state. Absent baseline → core.ErrNoBaseline; a baseline average
// of exactly zero → core.ErrZeroAverage (a percentage change against zero
// is undefined, and NaN or Inf must never reach the caller).
func (g *Generator) Report(ctx context.Context, userID string, currentExpense, currentSavings float64) (core.InsightReport, error) {
	if currentExpense < 0 {
		return core.InsightReport{}, fmt.Errorf("%w: negative current expense", core.ErrMalformedInput)
	}

	b, ok := g.baselines.Get(userID)
	if !ok {
		return core.InsightReport{}, fmt.Errorf("%w: %s", core.ErrNoBaseline, userID)
	}

	now := g.now()
	fraction := monthFraction(now)

	projectedExpense := currentExpense
	projectedSavings := currentSavings
	if fraction > 0 { // day-of-month is at least 1, so this always holds; boundary guard only
		projectedExpense = currentExpense / fraction
		projectedSavings = currentSavings / fraction
	}

	if b.Averages.Expenses == 0 {
		return core.InsightReport{}, fmt.Errorf("%w: average expenses", core.ErrZeroAverage)
	}
	if b.Averages.Savings == 0 {
		return core.InsightReport{}, fmt.Errorf("%w: average savings", core.ErrZeroAverage)
	}
	expenseDelta := (projectedExpense - b.Averages.Expenses) / b.Averages.Expenses * 100
	savingsDelta := (projectedSavings - b.Averages.Savings) / b.Averages.Savings * 100

	feedback := []string{
		expenseFeedback(expenseDelta),
		savingsFeedback(savingsDelta),
	}
	if fraction < partialMonthNoteBelow {
		feedback = append(feedback, fmt.Sprintf(
			"Note: only %d%% of the month has elapsed, so these figures are projections; they will sharpen as the month progresses.",
			int(math.Round(fraction*100))))
	}

	slog.DebugContext(ctx, "insight report computed",
		log.FieldUserID, userID,
		log.FieldMonthFraction, fraction,
		"expense_delta_pct", expenseDelta,
		"savings_delta_pct", savingsDelta)

	return core.InsightReport{
		Historical: core.HistoricalAverages{
			Expenses: core.Round2(b.Averages.Expenses),
			Savings:  core.Round2(b.Averages.Savings),
			Income:   core.Round2(b.Averages.Income),
		},
		Current: core.CurrentStatus{
			ReportedExpenses:  core.Round2(currentExpense),
			ReportedSavings:   core.Round2(currentSavings),
			MonthCompletion:   core.Round1(fraction * 100),
			ProjectedExpenses: core.Round2(projectedExpense),
			ProjectedSavings:  core.Round2(projectedSavings),
		},
		Comparison: core.Comparison{
			ExpenseChangePct: core.Round1(expenseDelta),
			SavingsChangePct: core.Round1(savingsDelta),
		},
		Feedback: feedback,
	}, nil
}

// monthFraction is the elapsed share of now's calendar month, in (0, 1].
func monthFraction(now time.Time) float64 {
	return float64(now.Day()) / float64(core.DaysIn(now.Year(), now.Month()))
}

// Higher expenses warn, lower expenses praise; savings carry the opposite
// polarity.
func expenseFeedback(deltaPct float64) string {
	pct := int(math.Round(math.Abs(deltaPct)))
	switch {
	case deltaPct > changeThresholdPct:
		return fmt.Sprintf("Warning: your projected monthly expenses are %d%% above your 3-month average. Worth reviewing your spending.", pct)
	case deltaPct < -changeThresholdPct:
		return fmt.Sprintf("Great job! Your projected monthly expenses are %d%% below your 3-month average.", pct)
	default:
		return "Your expenses are in line with your historical average."
	}
}

func savingsFeedback(deltaPct float64) string {
	pct := int(math.Round(math.Abs(deltaPct)))
	switch {
	case deltaPct > changeThresholdPct:
		return fmt.Sprintf("Excellent! Your projected monthly savings are %d%% above your 3-month average.", pct)
	case deltaPct < -changeThresholdPct:
		return fmt.Sprintf("Caution: your projected monthly savings are %d%% below your 3-month average. Consider setting a little more aside.", pct)
	default:
		return "Your savings are consistent with your historical pattern."
	}
}
