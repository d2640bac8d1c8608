// Package policy defines the policy record read by the reporting core and
// the collaborator contracts that supply it.
package policy

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/turtacn/TreatyBoard/internal/domain/geo"
	"github.com/turtacn/TreatyBoard/internal/domain/period"
)

// Record is one underwriting line.  Records are read-only once ingested;
// enrichment returns a copy with the derived fields populated.
type Record struct {
	// Identifiers
	SerialNumber string `json:"srl"`
	PolicyName   string `json:"policy_name"`
	Broker       string `json:"broker"`
	Cedant       string `json:"cedant"`

	// Classification
	ExtractType string `json:"extract_type"`
	Class       string `json:"class"`
	Subclass    string `json:"subclass"`
	Arrangement string `json:"arrangement"`
	Office      string `json:"office"`
	Hub         string `json:"hub"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	Status      string `json:"policy_status"`

	// Amounts in the reporting currency
	GrossPremium      decimal.Decimal     `json:"gross_premium"`
	AcquisitionCost   decimal.Decimal     `json:"acquisition_cost"`
	PaidClaims        decimal.Decimal     `json:"paid_claims"`
	OutstandingClaims decimal.Decimal     `json:"outstanding_claims"`
	MaxLiability      decimal.NullDecimal `json:"max_liability"`
	SignedShare       decimal.Decimal     `json:"signed_share"`
	WrittenShare      decimal.Decimal     `json:"written_share"`

	// Period fields
	UnderwritingYear string        `json:"underwriting_year"`
	Inception        period.Fields `json:"inception"`
	Expiry           period.Fields `json:"expiry"`
	Renewal          period.Fields `json:"renewal"`

	// Derived by Enrich
	Period           period.Resolved `json:"period"`
	InceptionDate    period.Date     `json:"inception_date"`
	CanonicalCountry string          `json:"canonical_country"`
}

// IncurredClaims is always paid plus outstanding.
func (r Record) IncurredClaims() decimal.Decimal {
	return r.PaidClaims.Add(r.OutstandingClaims)
}

// IsFronting reports whether the policy is a fronting arrangement, which is
// kept out of portfolio reporting.
func (r Record) IsFronting() bool {
	return strings.Contains(strings.ToLower(r.PolicyName), "fronting")
}

// Enrich returns a copy of r with the resolved period, inception date and
// canonical country populated.
func Enrich(r Record) Record {
	r.Period = period.Resolve(r.UnderwritingYear, r.Inception)
	r.InceptionDate, _ = period.ResolveDate(r.Inception)
	r.CanonicalCountry = geo.CanonicalCountry(r.Country)
	return r
}

// EnrichAll enriches every record into a new slice.
func EnrichAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Enrich(r)
	}
	return out
}
