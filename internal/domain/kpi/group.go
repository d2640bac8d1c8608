package kpi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/TreatyBoard/internal/domain/geo"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// Dimension is a breakdown axis.
type Dimension string

const (
	ByYear     Dimension = "year"
	ByQuarter  Dimension = "quarter"
	ByMonth    Dimension = "month"
	ByClass    Dimension = "class"
	BySubclass Dimension = "subclass"
	ByCountry  Dimension = "country"
	ByBroker   Dimension = "broker"
	ByCedant   Dimension = "cedant"
	ByOffice   Dimension = "office"
	ByHub      Dimension = "hub"
	ByRegion   Dimension = "region"
)

var dimensions = []Dimension{
	ByYear, ByQuarter, ByMonth, ByClass, BySubclass, ByCountry,
	ByBroker, ByCedant, ByOffice, ByHub, ByRegion,
}

// Dimensions lists every supported breakdown axis.
func Dimensions() []Dimension { return append([]Dimension(nil), dimensions...) }

// ParseDimension accepts a dimension name in any case.
func ParseDimension(s string) (Dimension, bool) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range dimensions {
		if d == known {
			return d, true
		}
	}
	return "", false
}

// Group is the KPI set of one bucket.
type Group struct {
	Key string `json:"key"`
	Set
}

// key returns the bucket of r, or false when r has no value on a period
// axis.
func (d Dimension) key(r policy.Record) (string, bool) {
	switch d {
	case ByYear:
		return strconv.Itoa(r.Period.Year), r.Period.HasYear()
	case ByQuarter:
		return r.Period.Quarter.String(), r.Period.Quarter.Valid()
	case ByMonth:
		return fmt.Sprintf("%02d", r.Period.Month), r.Period.HasMonth()
	case ByCountry:
		if r.CanonicalCountry == "" {
			return geo.CanonicalCountry(r.Country), true
		}
		return r.CanonicalCountry, true
	}
	var v string
	switch d {
	case ByClass:
		v = r.Class
	case BySubclass:
		v = r.Subclass
	case ByBroker:
		v = r.Broker
	case ByCedant:
		v = r.Cedant
	case ByOffice:
		v = r.Office
	case ByHub:
		v = r.Hub
	case ByRegion:
		v = r.Region
	}
	if strings.TrimSpace(v) == "" {
		return geo.Unknown, true
	}
	return v, true
}

// GroupBy aggregates records per bucket of d, sorted by key.  Period axes
// skip records whose component is absent.
func GroupBy(records []policy.Record, d Dimension) []Group {
	buckets := make(map[string][]policy.Record)
	for _, r := range records {
		k, ok := d.key(r)
		if !ok {
			continue
		}
		buckets[k] = append(buckets[k], r)
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, Group{Key: k, Set: Aggregate(buckets[k])})
	}
	return out
}
