package policy

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
)

func TestRaw_UnmarshalJSONAcceptsMixedTypes(t *testing.T) {
	in := `{
		"srl": 1042,
		"Policy_Name": "  Acme QS  ",
		"gross_premium": 1234567.891,
		"max_liability": null,
		"underwriting_year": "2023",
		"inception_quarter": 2,
		"renewal_date": 45366,
		"unexpected": {"nested": true},
		"class": true
	}`
	var r Raw
	require.NoError(t, json.Unmarshal([]byte(in), &r))

	assert.Equal(t, "1042", r.SerialNumber)
	assert.Equal(t, "  Acme QS  ", r.PolicyName)
	assert.Equal(t, "1234567.891", r.GrossPremium)
	assert.Empty(t, r.MaxLiability)
	assert.Equal(t, "2", r.InceptionQuarter)
	assert.Equal(t, "45366", r.RenewalDate)
	assert.Equal(t, "true", r.Class)
}

func TestRaw_PeriodGroups(t *testing.T) {
	in := `{
		"inception_day": 1, "inception_month": "Jan", "inception_quarter": "Q1", "inception_year": 2024,
		"expiry_day": "31", "expiry_month": "Dec", "expiry_quarter": "4", "expiry_year": "2025",
		"renewal_day": "15", "renewal_month": "Mar", "renewal_quarter": "Q1", "renewal_year": 2026
	}`
	var r Raw
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	rec := r.Record()

	assert.Equal(t, period.Fields{Day: "1", Month: "Jan", Quarter: "Q1", Year: "2024"}, rec.Inception)
	assert.Equal(t, period.Fields{Day: "31", Month: "Dec", Quarter: "4", Year: "2025"}, rec.Expiry)
	assert.Equal(t, period.Fields{Day: "15", Month: "Mar", Quarter: "Q1", Year: "2026"}, rec.Renewal)

	d, ok := period.ResolveDate(rec.Renewal)
	require.True(t, ok)
	assert.Equal(t, "2026-03-15", d.String())
}

func TestRaw_UnmarshalJSONRejectsNonObject(t *testing.T) {
	var r Raw
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
}

func TestRaw_Record(t *testing.T) {
	r := Raw{
		SerialNumber:      " 7 ",
		PolicyName:        "Acme QS",
		GrossPremium:      `"1,500.50"`,
		PaidClaims:        "n/a",
		OutstandingClaims: "250",
		MaxLiability:      "TBA",
		UnderwritingYear:  "UY2021",
		InceptionMonth:    "Mar",
		InceptionDate:     "15/03/2021",
		RenewalYear:       "2022",
		RenewalDate:       "45366",
	}
	rec := r.Record()

	assert.Equal(t, "7", rec.SerialNumber)
	assert.Equal(t, "1500.5", rec.GrossPremium.String())
	assert.True(t, rec.PaidClaims.IsZero())
	assert.Equal(t, "250", rec.IncurredClaims().String())
	assert.False(t, rec.MaxLiability.Valid)
	assert.Equal(t, "Mar", rec.Inception.Month)
	assert.Equal(t, "2022", rec.Renewal.Year)
	assert.Equal(t, "45366", rec.Renewal.Date)

	enriched := Enrich(rec)
	assert.Equal(t, 2021, enriched.Period.Year)
	assert.Equal(t, 3, enriched.Period.Month)
}

func TestRecordsFromRaw(t *testing.T) {
	out := RecordsFromRaw([]Raw{{SerialNumber: "a"}, {SerialNumber: "b"}})
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].SerialNumber)
	assert.Len(t, RawColumns, len((&Raw{}).columns()))
}

func TestRaw_Set(t *testing.T) {
	var r Raw
	assert.True(t, r.Set(" Gross_Premium ", "10"))
	assert.False(t, r.Set("nope", "x"))
	assert.Equal(t, "10", r.GrossPremium)
}
