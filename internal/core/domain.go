package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Credit TxnKind = "Credited"
	Debit  TxnKind = "Debited"
)

type (
	// TxnKind is the direction of a transaction as it appears in bank exports.
	TxnKind string

	Money struct {
		Cents int64
	}

	// TransactionRecord is a single parsed statement row. Immutable once parsed.
	TransactionRecord struct {
		Date   time.Time
		Amount Money
		Kind   TxnKind
	}

	// MonthKey identifies a calendar month.
	MonthKey struct {
		Year  int
		Month time.Month
	}

	// MonthlyAggregate holds the totals for one month of the window.
	MonthlyAggregate struct {
		Month    MonthKey
		Income   Money
		Expenses Money
		Savings  Money // Income minus Expenses; may be negative
	}

	// Averages are arithmetic means over the months present in a window,
	// kept at full precision. Rounding happens at presentation boundaries.
	Averages struct {
		Expenses float64
		Savings  float64
		Income   float64
	}

	// Baseline is the trained reference for one user. It is replaced as a
	// whole on every successful training run, never patched.
	Baseline struct {
		UserID    string
		Months    []MonthlyAggregate
		Averages  Averages
		TrainedAt time.Time
	}
)

var (
	// ErrMalformedInput covers structurally invalid statement data: missing
	// columns, unparseable dates or amounts, unknown transaction kinds, or
	// an input with no rows at all.
	ErrMalformedInput = errors.New("malformed statement input")

	// ErrEmptyWindow means no transactions fall inside the trailing window.
	// This is an "insufficient recent data" condition, not a fault.
	ErrEmptyWindow = errors.New("no transactions in the trailing window")

	// ErrNoBaseline means insights were requested before any successful
	// training run for the user.
	ErrNoBaseline = errors.New("no baseline trained for user")

	// ErrZeroAverage means a baseline average is exactly zero, so a
	// percentage change against it is undefined.
	ErrZeroAverage = errors.New("baseline average is zero, percentage change undefined")
)

func (k TxnKind) Validate() error {
	switch k {
	case Credit, Debit:
		return nil
	}
	return fmt.Errorf("%w: unknown transaction kind %q", ErrMalformedInput, string(k))
}

func (r TransactionRecord) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: zero transaction date", ErrMalformedInput)
	}
	if r.Amount.Cents < 0 {
		return fmt.Errorf("%w: negative amount", ErrMalformedInput)
	}
	return r.Kind.Validate()
}

// KeyOf returns the MonthKey of the month containing t.
func KeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// String renders the key as YYYY-MM, the format used in train output.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Before reports whether k is chronologically earlier than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// DaysIn returns the number of days in the given calendar month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
