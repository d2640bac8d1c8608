package renewal

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "not renewed", NormalizeStatus("NOT_RENEWED"))
	assert.Equal(t, "not renewed", NormalizeStatus("  Not -- renewed "))
	assert.Equal(t, "up coming", NormalizeStatus("Up-Coming"))
}

func TestClassifyStatus(t *testing.T) {
	cases := map[string]Status{
		"Not Renewed":          StatusNotRenewed,
		"NOT_RENEWED":          StatusNotRenewed,
		"not  renewed":         StatusNotRenewed,
		"Renewed":              StatusRenewed,
		"renewed-in-full":      StatusRenewed,
		"Upcoming Renewal":     StatusUpcoming,
		"UP_COMING":            StatusUpcoming,
		"upcoming not renewed": StatusUpcoming,
		"Not taken up":         StatusNotRenewed,
		"expired":              StatusNotRenewed,
		"Cancelled":            StatusNotRenewed,
		"":                     StatusNotRenewed,
		"pending":              StatusNotRenewed,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClassifyStatus(in), in)
	}
}

func TestResolveRenewalYear_Precedence(t *testing.T) {
	r := policy.Record{
		Renewal:   period.Fields{Year: "2026", Date: "01/01/2027"},
		Inception: period.Fields{Year: "2025"},
	}
	assert.Equal(t, 2026, ResolveRenewalYear(r))

	r.Renewal.Year = "soon"
	assert.Equal(t, 2025, ResolveRenewalYear(r))

	r.Inception.Year = ""
	assert.Equal(t, 2027, ResolveRenewalYear(r))

	r.Renewal.Date = ""
	assert.Equal(t, 0, ResolveRenewalYear(r))
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC) }
}

func TestClassify_RenewalDateFromIngestedFields(t *testing.T) {
	var raws []policy.Raw
	require.NoError(t, json.Unmarshal([]byte(`[
		{"srl": "f", "policy_status": "Renewed", "renewal_day": "16", "renewal_month": "Mar", "renewal_year": "2025"},
		{"srl": "p", "policy_status": "Renewed", "renewal_day": 14.0, "renewal_month": 3, "renewal_year": 2025}
	]`), &raws))

	rep := NewClassifierAt(fixedClock()).Classify(policy.RecordsFromRaw(raws))
	require.Len(t, rep.Records, 2)

	future, past := rep.Records[0], rep.Records[1]
	assert.Equal(t, "2025-03-16", future.RenewalDate.String())
	assert.True(t, future.IsUpcoming)
	assert.Equal(t, "2025-03-14", past.RenewalDate.String())
	assert.False(t, past.IsUpcoming)
	assert.Equal(t, 1, rep.Summary.UpcomingByDate)
}

func TestClassify_Report(t *testing.T) {
	prem := decimal.NewFromInt
	records := []policy.Record{
		{SerialNumber: "a", PolicyName: "Alpha QS", Status: "Renewed", GrossPremium: prem(600), PaidClaims: prem(100),
			Renewal: period.Fields{Date: "16/03/2025"}},
		{SerialNumber: "b", PolicyName: "Beta XL", Status: "NOT_RENEWED", GrossPremium: prem(300), OutstandingClaims: prem(50),
			Renewal: period.Fields{Date: "15/03/2025"}},
		{SerialNumber: "c", PolicyName: "Gamma Surplus", Status: "upcoming", GrossPremium: prem(100),
			Renewal: period.Fields{Day: "1", Month: "Jan", Year: "2026"}},
		{SerialNumber: "d", PolicyName: "XYZ Fronting Treaty", Status: "Renewed", GrossPremium: prem(1000),
			Renewal: period.Fields{Year: "2025"}},
		{SerialNumber: "e", PolicyName: "No Year", Status: "Renewed", GrossPremium: prem(5)},
	}

	rep := NewClassifierAt(fixedClock()).Classify(records)

	require.Len(t, rep.Records, 3)
	assert.Equal(t, "2025-03-15", rep.GeneratedOn.String())

	byID := map[string]Record{}
	for _, r := range rep.Records {
		byID[r.SerialNumber] = r
		assert.NotContains(t, r.PolicyName, "Fronting")
	}
	assert.Equal(t, StatusRenewed, byID["a"].StatusFlag)
	assert.True(t, byID["a"].IsUpcoming, "renewed text but future date keeps both signals")
	assert.Equal(t, StatusNotRenewed, byID["b"].StatusFlag)
	assert.False(t, byID["b"].IsUpcoming, "today is not strictly in the future")
	assert.Equal(t, StatusUpcoming, byID["c"].StatusFlag)
	assert.Equal(t, 2026, byID["c"].RenewalYear)
	assert.True(t, byID["c"].IsUpcoming)

	s := rep.Summary
	assert.Equal(t, 3, s.TotalCount)
	assert.Equal(t, 2, s.Excluded)
	assert.Equal(t, 2, s.UpcomingByDate)
	assert.True(t, s.TotalPremium.Equal(prem(1000)))
	assert.True(t, s.IncurredClaims.Equal(prem(150)))
	assert.Equal(t, "15.00", s.LossRatio.StringFixed(2))

	renewed := s.ByStatus[StatusRenewed]
	assert.Equal(t, 1, renewed.Count)
	assert.Equal(t, "33.33", renewed.CountPercent.StringFixed(2))
	assert.Equal(t, "60.00", renewed.PremiumPercent.StringFixed(2))
	assert.Equal(t, "10.00", s.ByStatus[StatusUpcoming].PremiumPercent.StringFixed(2))
}

func TestClassify_FrontingNeverAppears(t *testing.T) {
	for _, status := range []string{"Renewed", "upcoming", "", "not renewed"} {
		rep := NewClassifier().Classify([]policy.Record{{
			PolicyName: "XYZ Fronting Treaty",
			Status:     status,
			Renewal:    period.Fields{Year: "2025"},
		}})
		assert.Empty(t, rep.Records, status)
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	rep := NewClassifier().Classify(nil)
	assert.Empty(t, rep.Records)
	assert.Equal(t, 0, rep.Summary.TotalCount)
	for _, st := range Statuses {
		assert.True(t, rep.Summary.ByStatus[st].CountPercent.IsZero())
	}
}
