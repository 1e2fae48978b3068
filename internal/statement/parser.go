// Package statement parses raw bank statement exports into transaction
// records the baseline engine can aggregate.
package statement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"finsight/internal/core"
)

// Column headers expected in the export. Matching is by name, so column
// order does not matter.
const (
	colDate   = "Date"
	colAmount = "Amount"
	colType   = "Type"
)

// dateLayouts are tried in order for each Date cell.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
}

// Parse converts CSV bytes into transaction records sorted ascending by
// date. It is a pure transform: no I/O, no shared state.
//
// The input must have a header row naming the Date, Amount and Type
// columns. Type cells must be exactly "Credited" or "Debited". Any
// structural problem, and an input that yields zero rows, is reported as
// core.ErrMalformedInput.
func Parse(data []byte) ([]core.TransactionRecord, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader is Parse for streaming callers.
func ParseReader(r io.Reader) ([]core.TransactionRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", core.ErrMalformedInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", core.ErrMalformedInput, err)
	}

	dateIdx := indexOf(header, colDate)
	amountIdx := indexOf(header, colAmount)
	typeIdx := indexOf(header, colType)
	if dateIdx == -1 || amountIdx == -1 || typeIdx == -1 {
		return nil, fmt.Errorf("%w: missing column %s", core.ErrMalformedInput, missingColumns(dateIdx, amountIdx, typeIdx))
	}

	var records []core.TransactionRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrMalformedInput, line, err)
		}

		rec, err := parseRow(row, dateIdx, amountIdx, typeIdx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", core.ErrMalformedInput, line, err)
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no transaction rows", core.ErrMalformedInput)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

func parseRow(row []string, dateIdx, amountIdx, typeIdx int) (core.TransactionRecord, error) {
	date, err := parseDate(safeGet(row, dateIdx))
	if err != nil {
		return core.TransactionRecord{}, err
	}

	cents, err := core.ParseAmountToCents(safeGet(row, amountIdx))
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("invalid amount %q", safeGet(row, amountIdx))
	}

	kind := core.TxnKind(strings.TrimSpace(safeGet(row, typeIdx)))
	if err := kind.Validate(); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("invalid type %q", safeGet(row, typeIdx))
	}

	return core.TransactionRecord{Date: date, Amount: core.Money{Cents: cents}, Kind: kind}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == name {
			return i
		}
	}
	return -1
}

func missingColumns(dateIdx, amountIdx, typeIdx int) string {
	var missing []string
	if dateIdx == -1 {
		missing = append(missing, colDate)
	}
	if amountIdx == -1 {
		missing = append(missing, colAmount)
	}
	if typeIdx == -1 {
		missing = append(missing, colType)
	}
	return strings.Join(missing, ",")
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
