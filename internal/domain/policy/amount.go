package policy

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountCleaner = strings.NewReplacer(`"`, "", "'", "", ",", "")

// ParseOptionalAmount strips quotes and thousands separators and parses the
// rest.  The boolean is false for empty or non-numeric input.
func ParseOptionalAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(amountCleaner.Replace(s))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAmount is ParseOptionalAmount with failures mapped to zero.
func ParseAmount(s string) decimal.Decimal {
	d, _ := ParseOptionalAmount(s)
	return d
}

// ParseNullAmount maps a missing or non-numeric value to an invalid
// NullDecimal, for fields whose absence must not count as zero.
func ParseNullAmount(s string) decimal.NullDecimal {
	d, ok := ParseOptionalAmount(s)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}
