package insight

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"finsight/internal/baseline"
	"finsight/internal/core"
)

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func storeWith(b core.Baseline) *baseline.Store {
	s := baseline.NewStore()
	s.Put(b)
	return s
}

func trainedBaseline(avgExpenses, avgSavings float64) core.Baseline {
	return core.Baseline{
		UserID:    "alice",
		Averages:  core.Averages{Expenses: avgExpenses, Savings: avgSavings, Income: avgExpenses + avgSavings},
		TrainedAt: time.Now(),
	}
}

func TestReportProjectionMidMonth(t *testing.T) {
	// Day 15 of a 30-day month: fraction 0.5, so 300 projects to 600.
	// Against avg expenses 450 that is +33.3%, a cautionary band.
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-15"))

	rep, err := g.Report(context.Background(), "alice", 300, 325)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if rep.Current.ProjectedExpenses != 600 {
		t.Errorf("projected expenses = %v, want 600", rep.Current.ProjectedExpenses)
	}
	if rep.Current.MonthCompletion != 50.0 {
		t.Errorf("month completion = %v, want 50.0", rep.Current.MonthCompletion)
	}
	if rep.Comparison.ExpenseChangePct != 33.3 {
		t.Errorf("expense delta = %v, want 33.3", rep.Comparison.ExpenseChangePct)
	}
	if !strings.HasPrefix(rep.Feedback[0], "Warning:") {
		t.Errorf("expected cautionary expense feedback, got %q", rep.Feedback[0])
	}
}

func TestReportFullMonthIsIdentity(t *testing.T) {
	// Last day of the month: fraction exactly 1, projection equals input.
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-30"))

	rep, err := g.Report(context.Background(), "alice", 450, 650)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if rep.Current.ProjectedExpenses != 450 {
		t.Errorf("projected expenses = %v, want exactly 450", rep.Current.ProjectedExpenses)
	}
	if rep.Current.ProjectedSavings != 650 {
		t.Errorf("projected savings = %v, want exactly 650", rep.Current.ProjectedSavings)
	}
	if rep.Current.MonthCompletion != 100.0 {
		t.Errorf("month completion = %v, want 100.0", rep.Current.MonthCompletion)
	}
	// Deltas are zero: both figures read as in line with history.
	if !strings.Contains(rep.Feedback[0], "in line") {
		t.Errorf("expected neutral expense feedback, got %q", rep.Feedback[0])
	}
	if !strings.Contains(rep.Feedback[1], "consistent") {
		t.Errorf("expected neutral savings feedback, got %q", rep.Feedback[1])
	}
	// Fraction 1.0 >= 0.9: no partial-month note.
	if len(rep.Feedback) != 2 {
		t.Errorf("expected 2 feedback entries, got %d: %v", len(rep.Feedback), rep.Feedback)
	}
}

func TestReportPartialMonthNote(t *testing.T) {
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-06"))

	rep, err := g.Report(context.Background(), "alice", 90, 130)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if len(rep.Feedback) != 3 {
		t.Fatalf("expected partial-month note, got %v", rep.Feedback)
	}
	if !strings.Contains(rep.Feedback[2], "20%") {
		t.Errorf("note should state 20%% of the month elapsed, got %q", rep.Feedback[2])
	}
}

func TestReportFeedbackBands(t *testing.T) {
	// avg expenses 1000, avg savings 1000, clock at end of a 30-day month
	// so reported values are the projections.
	g := NewGenerator(storeWith(trainedBaseline(1000, 1000))).WithClock(fixedClock("2024-04-30"))

	cases := []struct {
		name            string
		expense, saving float64
		expensePrefix   string
		savingsPrefix   string
	}{
		{"both high", 1200, 1200, "Warning:", "Excellent!"},
		{"both low", 800, 800, "Great job!", "Caution:"},
		{"both neutral", 1050, 950, "Your expenses", "Your savings"},
		{"exactly +10 is neutral", 1100, 1100, "Your expenses", "Your savings"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := g.Report(context.Background(), "alice", tc.expense, tc.saving)
			if err != nil {
				t.Fatalf("Report failed: %v", err)
			}
			if !strings.HasPrefix(rep.Feedback[0], tc.expensePrefix) {
				t.Errorf("expense feedback %q, want prefix %q", rep.Feedback[0], tc.expensePrefix)
			}
			if !strings.HasPrefix(rep.Feedback[1], tc.savingsPrefix) {
				t.Errorf("savings feedback %q, want prefix %q", rep.Feedback[1], tc.savingsPrefix)
			}
		})
	}
}

func TestReportNoBaseline(t *testing.T) {
	g := NewGenerator(baseline.NewStore()).WithClock(fixedClock("2024-04-15"))
	_, err := g.Report(context.Background(), "nobody", 100, 100)
	if !errors.Is(err, core.ErrNoBaseline) {
		t.Fatalf("expected ErrNoBaseline, got %v", err)
	}
}

func TestReportZeroAverage(t *testing.T) {
	t.Run("zero expenses average", func(t *testing.T) {
		g := NewGenerator(storeWith(trainedBaseline(0, 650))).WithClock(fixedClock("2024-04-15"))
		_, err := g.Report(context.Background(), "alice", 100, 100)
		if !errors.Is(err, core.ErrZeroAverage) {
			t.Fatalf("expected ErrZeroAverage, got %v", err)
		}
	})
	t.Run("zero savings average", func(t *testing.T) {
		g := NewGenerator(storeWith(trainedBaseline(450, 0))).WithClock(fixedClock("2024-04-15"))
		_, err := g.Report(context.Background(), "alice", 100, 100)
		if !errors.Is(err, core.ErrZeroAverage) {
			t.Fatalf("expected ErrZeroAverage, got %v", err)
		}
	})
}

func TestReportNeverNaNOrInf(t *testing.T) {
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-15"))
	rep, err := g.Report(context.Background(), "alice", 0, 0)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	for name, v := range map[string]float64{
		"projected expenses": rep.Current.ProjectedExpenses,
		"projected savings":  rep.Current.ProjectedSavings,
		"expense delta":      rep.Comparison.ExpenseChangePct,
		"savings delta":      rep.Comparison.SavingsChangePct,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is %v", name, v)
		}
	}
}

func TestReportNegativeCurrentExpenseRejected(t *testing.T) {
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-15"))
	_, err := g.Report(context.Background(), "alice", -1, 100)
	if !errors.Is(err, core.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}
}

func TestReportIdempotent(t *testing.T) {
	g := NewGenerator(storeWith(trainedBaseline(450, 650))).WithClock(fixedClock("2024-04-15"))

	first, err := g.Report(context.Background(), "alice", 300, 325)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	second, err := g.Report(context.Background(), "alice", 300, 325)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ:\n%+v\n%+v", first, second)
	}
}
