// Package kpi reduces a filtered policy collection to underwriting metrics.
// Aggregation is a pure function of the records' contents; nothing is
// memoized.
package kpi

import (
	"github.com/shopspring/decimal"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

var hundred = decimal.NewFromInt(100)

// Set is the fixed KPI bundle.  Ratios are percentages.
type Set struct {
	Premium           decimal.Decimal `json:"premium"`
	PaidClaims        decimal.Decimal `json:"paid_claims"`
	OutstandingClaims decimal.Decimal `json:"outstanding_claims"`
	IncurredClaims    decimal.Decimal `json:"incurred_claims"`
	Expense           decimal.Decimal `json:"expense"`
	LossRatio         decimal.Decimal `json:"loss_ratio"`
	ExpenseRatio      decimal.Decimal `json:"expense_ratio"`
	CombinedRatio     decimal.Decimal `json:"combined_ratio"`
	NumberOfAccounts  int             `json:"number_of_accounts"`
	AvgMaxLiability   decimal.Decimal `json:"avg_max_liability"`
}

// Aggregate computes the KPI set.  Incurred claims is derived from the
// paid and outstanding totals; ratios are zero when premium is zero.
// Records without a maximum liability are left out of its average.
func Aggregate(records []policy.Record) Set {
	var (
		s          Set
		liability  decimal.Decimal
		liableRecs int64
	)
	for _, r := range records {
		s.Premium = s.Premium.Add(r.GrossPremium)
		s.PaidClaims = s.PaidClaims.Add(r.PaidClaims)
		s.OutstandingClaims = s.OutstandingClaims.Add(r.OutstandingClaims)
		s.Expense = s.Expense.Add(r.AcquisitionCost)
		if r.MaxLiability.Valid {
			liability = liability.Add(r.MaxLiability.Decimal)
			liableRecs++
		}
	}

	s.IncurredClaims = s.PaidClaims.Add(s.OutstandingClaims)
	s.LossRatio = Ratio(s.IncurredClaims, s.Premium)
	s.ExpenseRatio = Ratio(s.Expense, s.Premium)
	s.CombinedRatio = s.LossRatio.Add(s.ExpenseRatio)
	s.NumberOfAccounts = len(records)
	s.AvgMaxLiability = decimal.Zero
	if liableRecs > 0 {
		s.AvgMaxLiability = liability.Div(decimal.NewFromInt(liableRecs))
	}
	return s
}

// Ratio returns part / whole × 100, or zero when whole is zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}
