// Package query applies user-chosen filters to a visible record set.  All
// matching here is exact; fuzzy matching lives only in Interpreter.
package query

import (
	"github.com/shopspring/decimal"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// Spec is a conjunction of optional predicates.  Zero values mean "no
// constraint" for every field.
type Spec struct {
	Office     string `json:"office,omitempty"`
	Hub        string `json:"hub,omitempty"`
	Region     string `json:"region,omitempty"`
	Broker     string `json:"broker,omitempty"`
	Cedant     string `json:"cedant,omitempty"`
	PolicyName string `json:"policy_name,omitempty"`

	Year    int            `json:"year,omitempty"`
	Month   int            `json:"month,omitempty"`
	Quarter period.Quarter `json:"quarter,omitempty"`

	ExtractTypes []string `json:"extract_types,omitempty"`
	Arrangements []string `json:"arrangements,omitempty"`
	Classes      []string `json:"classes,omitempty"`
	Subclasses   []string `json:"subclasses,omitempty"`
	Countries    []string `json:"countries,omitempty"`

	MinPremium    decimal.NullDecimal `json:"min_premium"`
	MaxPremium    decimal.NullDecimal `json:"max_premium"`
	InceptionFrom period.Date         `json:"inception_from"`
	InceptionTo   period.Date         `json:"inception_to"`
}

// IsEmpty reports whether s constrains nothing.
func (s Spec) IsEmpty() bool {
	return s.Office == "" && s.Hub == "" && s.Region == "" && s.Broker == "" &&
		s.Cedant == "" && s.PolicyName == "" && s.Year == 0 && s.Month == 0 &&
		s.Quarter == period.QuarterNone && len(s.ExtractTypes) == 0 &&
		len(s.Arrangements) == 0 && len(s.Classes) == 0 && len(s.Subclasses) == 0 &&
		len(s.Countries) == 0 && !s.MinPremium.Valid && !s.MaxPremium.Valid &&
		s.InceptionFrom.IsZero() && s.InceptionTo.IsZero()
}

// Matches reports whether an enriched record satisfies every populated
// predicate.
func (s Spec) Matches(r policy.Record) bool {
	return equalOrAny(s.Office, r.Office) &&
		equalOrAny(s.Hub, r.Hub) &&
		equalOrAny(s.Region, r.Region) &&
		equalOrAny(s.Broker, r.Broker) &&
		equalOrAny(s.Cedant, r.Cedant) &&
		equalOrAny(s.PolicyName, r.PolicyName) &&
		(s.Year == 0 || s.Year == r.Period.Year) &&
		(s.Month == 0 || s.Month == r.Period.Month) &&
		(s.Quarter == period.QuarterNone || s.Quarter == r.Period.Quarter) &&
		memberOrAny(s.ExtractTypes, r.ExtractType) &&
		memberOrAny(s.Arrangements, r.Arrangement) &&
		memberOrAny(s.Classes, r.Class) &&
		memberOrAny(s.Subclasses, r.Subclass) &&
		memberOrAny(s.Countries, r.CanonicalCountry) &&
		s.premiumInRange(r.GrossPremium) &&
		s.inceptionInRange(r.InceptionDate)
}

func (s Spec) premiumInRange(p decimal.Decimal) bool {
	if s.MinPremium.Valid && p.LessThan(s.MinPremium.Decimal) {
		return false
	}
	if s.MaxPremium.Valid && p.GreaterThan(s.MaxPremium.Decimal) {
		return false
	}
	return true
}

func (s Spec) inceptionInRange(d period.Date) bool {
	if s.InceptionFrom.IsZero() && s.InceptionTo.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !s.InceptionFrom.IsZero() && d.Before(s.InceptionFrom) {
		return false
	}
	if !s.InceptionTo.IsZero() && d.After(s.InceptionTo) {
		return false
	}
	return true
}

func equalOrAny(want, got string) bool { return want == "" || want == got }

func memberOrAny(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Apply returns the records matching spec, in input order, as a new slice.
func Apply(records []policy.Record, spec Spec) []policy.Record {
	out := make([]policy.Record, 0, len(records))
	for _, r := range records {
		if spec.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// WithClasses returns a copy of s selecting classes.  Subclasses no longer
// present in the narrowed domain are dropped; an empty class selection
// clears the subclass selection.
func (s Spec) WithClasses(records []policy.Record, classes []string) Spec {
	s.Classes = append([]string(nil), classes...)
	if len(classes) == 0 {
		s.Subclasses = nil
		return s
	}
	domain := make(map[string]struct{})
	for _, sub := range SubclassOptions(records, classes) {
		domain[sub] = struct{}{}
	}
	kept := make([]string, 0, len(s.Subclasses))
	for _, sub := range s.Subclasses {
		if _, ok := domain[sub]; ok {
			kept = append(kept, sub)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	s.Subclasses = kept
	return s
}

// InferClasses fills an empty class selection with the classes of records
// carrying one of the selected subclasses, so a subclass picked on its own
// survives WithClasses.
func (s Spec) InferClasses(records []policy.Record) Spec {
	if len(s.Classes) > 0 || len(s.Subclasses) == 0 {
		return s
	}
	set := newStringSet()
	for _, r := range records {
		if memberOrAny(s.Subclasses, r.Subclass) {
			set.add(r.Class)
		}
	}
	s.Classes = set.sorted()
	if len(s.Classes) == 0 {
		s.Classes = nil
	}
	return s
}
