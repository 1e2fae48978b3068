// Package core holds the engine's domain types and money handling.
//
// Amounts are carried as integer cents so that monthly sums and savings stay
// exact; float64 only appears for averages, projections and percentages.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmountToCents converts a non-negative decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Zero is a valid
// amount; signs and currency symbols are not.
//
// Examples:
//
//	ParseAmountToCents("12.34") -> 1234, nil
//	ParseAmountToCents("12,34") -> 1234, nil
//	ParseAmountToCents("12.345") -> 1235, nil (rounds up)
//	ParseAmountToCents("0")     -> 0, nil
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedInput
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Amounts are unsigned; direction lives in the Type column.
		return 0, ErrMalformedInput
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrMalformedInput
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrMalformedInput
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrMalformedInput
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrMalformedInput
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrMalformedInput
	}
	// Take first two fractional digits; half-up rounding on the third.
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// Units returns the amount in major currency units as a float64. Meant for
// display and for the float math in projections; sums stay in cents.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// Round2 rounds to two decimal places, half away from zero. Applied to
// user-facing monetary figures only, never inside aggregation.
func Round2(x float64) float64 {
	return roundDecimal(x, 2)
}

// Round1 rounds to one decimal place, half away from zero. Used for
// percentages in reports.
func Round1(x float64) float64 {
	return roundDecimal(x, 1)
}

// roundDecimal rounds half away from zero at the given number of decimal
// places. It operates on the shortest decimal representation of x rather
// than on the binary value: averages like 100.005 have no exact float64
// form (the nearest is fractionally below the tie), and scaling the binary
// value would round them down instead of up.
func roundDecimal(x float64, places int) float64 {
	s := strconv.FormatFloat(x, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if len(fracPart) <= places {
		return x
	}

	scaled, err := strconv.ParseInt(intPart+fracPart[:places], 10, 64)
	if err != nil {
		// Magnitude beyond int64 in cents; decimals are noise out there.
		return math.Round(x*math.Pow10(places)) / math.Pow10(places)
	}
	if fracPart[places] >= '5' {
		scaled++
	}
	out := float64(scaled) / math.Pow10(places)
	if neg {
		out = -out
	}
	return out
}
