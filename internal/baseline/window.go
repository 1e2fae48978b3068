// Package baseline turns a transaction history into a per-user monthly
// baseline: the trailing-window selection, the monthly aggregation and the
// in-memory store that holds the trained result.
package baseline

import (
	"fmt"
	"time"

	"finsight/internal/core"
)

// DefaultWindowMonths is the trailing window length used for training.
const DefaultWindowMonths = 3

// Window filters records down to the trailing span of n calendar months
// anchored at the latest transaction date: records strictly newer than
// latest minus n months are kept. Subtraction is calendar-aware, clamping
// the day to the length of the target month (May 31 minus 3 months is
// Feb 28/29), not a fixed 90 days.
//
// An empty result, including an empty input, is reported as
// core.ErrEmptyWindow.
func Window(records []core.TransactionRecord, months int) ([]core.TransactionRecord, error) {
	if months < 1 {
		return nil, fmt.Errorf("window length must be positive, got %d", months)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty history", core.ErrEmptyWindow)
	}

	latest := records[0].Date
	for _, r := range records[1:] {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}

	cutoff := monthsBefore(latest, months)
	out := make([]core.TransactionRecord, 0, len(records))
	for _, r := range records {
		if r.Date.After(cutoff) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: latest %s, cutoff %s", core.ErrEmptyWindow,
			latest.Format("2006-01-02"), cutoff.Format("2006-01-02"))
	}
	return out, nil
}

// monthsBefore subtracts n calendar months from t. Unlike time.AddDate it
// does not normalize overflow into the next month: the day is clamped to
// the last day of the target month.
func monthsBefore(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	m := int(month) - n
	for m < 1 {
		m += 12
		year--
	}
	if last := core.DaysIn(year, time.Month(m)); day > last {
		day = last
	}
	return time.Date(year, time.Month(m), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
