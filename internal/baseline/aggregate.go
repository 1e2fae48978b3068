package baseline

import (
	"sort"

	"finsight/internal/core"
)

// Result is the outcome of aggregating a windowed history: one aggregate
// per month present, chronological, plus the means across exactly those
// months. Sums are exact integer cents; the averages are full-precision
// floats, rounded only when presented.
type Result struct {
	Months   []core.MonthlyAggregate
	Averages core.Averages
}

// Aggregate groups records by calendar month and computes income, expenses
// and savings per month. A month with no transactions simply does not
// appear; the averages divide by the number of months present, never by
// the window length.
func Aggregate(records []core.TransactionRecord) Result {
	type sums struct {
		income   int64
		expenses int64
	}
	byMonth := make(map[core.MonthKey]*sums)
	for _, r := range records {
		key := core.KeyOf(r.Date)
		s, ok := byMonth[key]
		if !ok {
			s = &sums{}
			byMonth[key] = s
		}
		switch r.Kind {
		case core.Credit:
			s.income += r.Amount.Cents
		case core.Debit:
			s.expenses += r.Amount.Cents
		}
	}

	keys := make([]core.MonthKey, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	res := Result{Months: make([]core.MonthlyAggregate, 0, len(keys))}
	var totalIncome, totalExpenses, totalSavings int64
	for _, k := range keys {
		s := byMonth[k]
		savings := s.income - s.expenses
		res.Months = append(res.Months, core.MonthlyAggregate{
			Month:    k,
			Income:   core.Money{Cents: s.income},
			Expenses: core.Money{Cents: s.expenses},
			Savings:  core.Money{Cents: savings},
		})
		totalIncome += s.income
		totalExpenses += s.expenses
		totalSavings += savings
	}

	if n := len(res.Months); n > 0 {
		res.Averages = core.Averages{
			Expenses: float64(totalExpenses) / float64(n) / 100,
			Savings:  float64(totalSavings) / float64(n) / 100,
			Income:   float64(totalIncome) / float64(n) / 100,
		}
	}
	return res
}
