package policy

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
)

// Raw is a policy row exactly as a source delivers it: every column is text
// and may be blank, quoted, or otherwise dirty.  Raw.Record does the cleaning.
type Raw struct {
	SerialNumber string `json:"srl" db:"srl"`
	PolicyName   string `json:"policy_name" db:"policy_name"`
	Broker       string `json:"broker" db:"broker"`
	Cedant       string `json:"cedant" db:"cedant"`

	ExtractType string `json:"extract_type" db:"extract_type"`
	Class       string `json:"class" db:"class"`
	Subclass    string `json:"subclass" db:"subclass"`
	Arrangement string `json:"arrangement" db:"arrangement"`
	Office      string `json:"office" db:"office"`
	Hub         string `json:"hub" db:"hub"`
	Region      string `json:"region" db:"region"`
	Country     string `json:"country" db:"country"`
	Status      string `json:"policy_status" db:"policy_status"`

	GrossPremium      string `json:"gross_premium" db:"gross_premium"`
	AcquisitionCost   string `json:"acquisition_cost" db:"acquisition_cost"`
	PaidClaims        string `json:"paid_claims" db:"paid_claims"`
	OutstandingClaims string `json:"outstanding_claims" db:"outstanding_claims"`
	MaxLiability      string `json:"max_liability" db:"max_liability"`
	SignedShare       string `json:"signed_share" db:"signed_share"`
	WrittenShare      string `json:"written_share" db:"written_share"`

	UnderwritingYear string `json:"underwriting_year" db:"underwriting_year"`
	InceptionDay     string `json:"inception_day" db:"inception_day"`
	InceptionMonth   string `json:"inception_month" db:"inception_month"`
	InceptionQuarter string `json:"inception_quarter" db:"inception_quarter"`
	InceptionYear    string `json:"inception_year" db:"inception_year"`
	InceptionDate    string `json:"inception_date" db:"inception_date"`
	ExpiryDay        string `json:"expiry_day" db:"expiry_day"`
	ExpiryMonth      string `json:"expiry_month" db:"expiry_month"`
	ExpiryQuarter    string `json:"expiry_quarter" db:"expiry_quarter"`
	ExpiryYear       string `json:"expiry_year" db:"expiry_year"`
	ExpiryDate       string `json:"expiry_date" db:"expiry_date"`
	RenewalDay       string `json:"renewal_day" db:"renewal_day"`
	RenewalMonth     string `json:"renewal_month" db:"renewal_month"`
	RenewalQuarter   string `json:"renewal_quarter" db:"renewal_quarter"`
	RenewalYear      string `json:"renewal_year" db:"renewal_year"`
	RenewalDate      string `json:"renewal_date" db:"renewal_date"`
}

// RawColumns lists the column names of Raw in declaration order.
var RawColumns = []string{
	"srl", "policy_name", "broker", "cedant",
	"extract_type", "class", "subclass", "arrangement", "office", "hub", "region", "country", "policy_status",
	"gross_premium", "acquisition_cost", "paid_claims", "outstanding_claims", "max_liability", "signed_share", "written_share",
	"underwriting_year", "inception_day", "inception_month", "inception_quarter", "inception_year", "inception_date",
	"expiry_day", "expiry_month", "expiry_quarter", "expiry_year", "expiry_date",
	"renewal_day", "renewal_month", "renewal_quarter", "renewal_year", "renewal_date",
}

func (r *Raw) columns() map[string]*string {
	return map[string]*string{
		"srl":                &r.SerialNumber,
		"policy_name":        &r.PolicyName,
		"broker":             &r.Broker,
		"cedant":             &r.Cedant,
		"extract_type":       &r.ExtractType,
		"class":              &r.Class,
		"subclass":           &r.Subclass,
		"arrangement":        &r.Arrangement,
		"office":             &r.Office,
		"hub":                &r.Hub,
		"region":             &r.Region,
		"country":            &r.Country,
		"policy_status":      &r.Status,
		"gross_premium":      &r.GrossPremium,
		"acquisition_cost":   &r.AcquisitionCost,
		"paid_claims":        &r.PaidClaims,
		"outstanding_claims": &r.OutstandingClaims,
		"max_liability":      &r.MaxLiability,
		"signed_share":       &r.SignedShare,
		"written_share":      &r.WrittenShare,
		"underwriting_year":  &r.UnderwritingYear,
		"inception_day":      &r.InceptionDay,
		"inception_month":    &r.InceptionMonth,
		"inception_quarter":  &r.InceptionQuarter,
		"inception_year":     &r.InceptionYear,
		"inception_date":     &r.InceptionDate,
		"expiry_day":         &r.ExpiryDay,
		"expiry_month":       &r.ExpiryMonth,
		"expiry_quarter":     &r.ExpiryQuarter,
		"expiry_year":        &r.ExpiryYear,
		"expiry_date":        &r.ExpiryDate,
		"renewal_day":        &r.RenewalDay,
		"renewal_month":      &r.RenewalMonth,
		"renewal_quarter":    &r.RenewalQuarter,
		"renewal_year":       &r.RenewalYear,
		"renewal_date":       &r.RenewalDate,
	}
}

// UnmarshalJSON accepts strings, numbers, booleans and nulls for every
// column, since exported spreadsheets mix them freely.  Unknown keys are
// ignored.
func (r *Raw) UnmarshalJSON(b []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = Raw{}
	cols := r.columns()
	for key, val := range obj {
		if dst, ok := cols[columnKey(key)]; ok {
			*dst = jsonText(val)
		}
	}
	return nil
}

// Set assigns value to the named column and reports whether the column
// exists.  Names are matched case-insensitively.
func (r *Raw) Set(column, value string) bool {
	dst, ok := r.columns()[columnKey(column)]
	if ok {
		*dst = value
	}
	return ok
}

func columnKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func jsonText(v json.RawMessage) string {
	s := strings.TrimSpace(string(v))
	switch {
	case s == "" || s == "null":
		return ""
	case s[0] == '"':
		var out string
		if err := json.Unmarshal(v, &out); err != nil {
			return ""
		}
		return out
	case s == "true" || s == "false":
		return s
	default:
		// Numbers keep their literal text so no precision is lost.
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return ""
		}
		return s
	}
}

// Record cleans the raw row into a Record.  Unparseable amounts become zero,
// except maximum liability which becomes absent.
func (r Raw) Record() Record {
	return Record{
		SerialNumber: clean(r.SerialNumber),
		PolicyName:   clean(r.PolicyName),
		Broker:       clean(r.Broker),
		Cedant:       clean(r.Cedant),
		ExtractType:  clean(r.ExtractType),
		Class:        clean(r.Class),
		Subclass:     clean(r.Subclass),
		Arrangement:  clean(r.Arrangement),
		Office:       clean(r.Office),
		Hub:          clean(r.Hub),
		Region:       clean(r.Region),
		Country:      clean(r.Country),
		Status:       clean(r.Status),

		GrossPremium:      ParseAmount(r.GrossPremium),
		AcquisitionCost:   ParseAmount(r.AcquisitionCost),
		PaidClaims:        ParseAmount(r.PaidClaims),
		OutstandingClaims: ParseAmount(r.OutstandingClaims),
		MaxLiability:      ParseNullAmount(r.MaxLiability),
		SignedShare:       ParseAmount(r.SignedShare),
		WrittenShare:      ParseAmount(r.WrittenShare),

		UnderwritingYear: clean(r.UnderwritingYear),
		Inception: period.Fields{
			Day:     clean(r.InceptionDay),
			Month:   clean(r.InceptionMonth),
			Quarter: clean(r.InceptionQuarter),
			Year:    clean(r.InceptionYear),
			Date:    clean(r.InceptionDate),
		},
		Expiry: period.Fields{
			Day:     clean(r.ExpiryDay),
			Month:   clean(r.ExpiryMonth),
			Quarter: clean(r.ExpiryQuarter),
			Year:    clean(r.ExpiryYear),
			Date:    clean(r.ExpiryDate),
		},
		Renewal: period.Fields{
			Day:     clean(r.RenewalDay),
			Month:   clean(r.RenewalMonth),
			Quarter: clean(r.RenewalQuarter),
			Year:    clean(r.RenewalYear),
			Date:    clean(r.RenewalDate),
		},
	}
}

// RecordsFromRaw cleans every row into a new slice.
func RecordsFromRaw(rows []Raw) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(s)
}
