package statement

import (
	"errors"
	"testing"
	"time"

	"finsight/internal/core"
)

func TestParseValidStatement(t *testing.T) {
	csvData := "Date,Amount,Type\n" +
		"2024-02-15,500,Debited\n" +
		"2024-01-05,1000,Credited\n" +
		"2024-01-10,400,Debited\n" +
		"2024-02-03,1200,Credited\n"

	records, err := Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}

	// Output must be date-ascending regardless of input order.
	for i := 1; i < len(records); i++ {
		if records[i].Date.Before(records[i-1].Date) {
			t.Fatalf("records not sorted: %v before %v", records[i].Date, records[i-1].Date)
		}
	}

	first := records[0]
	if !first.Date.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first record date = %v", first.Date)
	}
	if first.Amount.Cents != 100000 {
		t.Errorf("first record amount = %d cents, want 100000", first.Amount.Cents)
	}
	if first.Kind != core.Credit {
		t.Errorf("first record kind = %q, want Credited", first.Kind)
	}
}

func TestParseColumnOrderIndependent(t *testing.T) {
	csvData := "Type,Date,Amount\n" +
		"Credited,2024-01-05,1000\n"

	records, err := Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if records[0].Kind != core.Credit || records[0].Amount.Cents != 100000 {
		t.Errorf("columns mapped wrong: %+v", records[0])
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty input", ""},
		{"header only", "Date,Amount,Type\n"},
		{"missing type column", "Date,Amount\n2024-01-05,1000\n"},
		{"missing date column", "Amount,Type\n1000,Credited\n"},
		{"unparseable date", "Date,Amount,Type\nnot-a-date,1000,Credited\n"},
		{"negative amount", "Date,Amount,Type\n2024-01-05,-1000,Credited\n"},
		{"garbage amount", "Date,Amount,Type\n2024-01-05,ten,Credited\n"},
		{"unknown type", "Date,Amount,Type\n2024-01-05,1000,Transferred\n"},
		{"wrong type case", "Date,Amount,Type\n2024-01-05,1000,credited\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.in))
			if !errors.Is(err, core.ErrMalformedInput) {
				t.Fatalf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-01-05 13:45:00", time.Date(2024, 1, 5, 13, 45, 0, 0, time.UTC)},
		{"2024/01/05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"05/01/2024", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseDate(tc.in)
		if err != nil {
			t.Errorf("parseDate(%q) failed: %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseZeroAmountAllowed(t *testing.T) {
	csvData := "Date,Amount,Type\n2024-01-05,0,Debited\n"
	records, err := Parse([]byte(csvData))
	if err != nil {
		t.Fatalf("zero amount should parse: %v", err)
	}
	if records[0].Amount.Cents != 0 {
		t.Errorf("amount = %d, want 0", records[0].Amount.Cents)
	}
}
