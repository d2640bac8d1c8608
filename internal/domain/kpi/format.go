package kpi

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatPercent renders a percentage with two decimals ("73.33%").
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}

// FormatMoney renders an amount in the given ISO currency using its symbol
// and minor-unit precision ("$1,500.00").
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := *money.New(0, currency).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
