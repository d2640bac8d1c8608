package query

import (
	"sort"

	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// Options holds the observed value domain of every filterable field.
type Options struct {
	Offices      []string `json:"offices"`
	Hubs         []string `json:"hubs"`
	Regions      []string `json:"regions"`
	Brokers      []string `json:"brokers"`
	Cedants      []string `json:"cedants"`
	PolicyNames  []string `json:"policy_names"`
	ExtractTypes []string `json:"extract_types"`
	Arrangements []string `json:"arrangements"`
	Classes      []string `json:"classes"`
	Subclasses   []string `json:"subclasses"`
	Countries    []string `json:"countries"`
	Years        []int    `json:"years"`
}

// SubclassOptions returns the sorted distinct subclasses among records whose
// class is in classes.  With no class selected the domain is every
// observed subclass.
func SubclassOptions(records []policy.Record, classes []string) []string {
	set := newStringSet()
	for _, r := range records {
		if memberOrAny(classes, r.Class) {
			set.add(r.Subclass)
		}
	}
	return set.sorted()
}

// CollectOptions gathers option domains from enriched records.  The
// subclass domain depends on the class selection.
func CollectOptions(records []policy.Record, classes []string) Options {
	offices, hubs, regions := newStringSet(), newStringSet(), newStringSet()
	brokers, cedants, names := newStringSet(), newStringSet(), newStringSet()
	extracts, arrangements, cls := newStringSet(), newStringSet(), newStringSet()
	countries := newStringSet()
	years := make(map[int]struct{})

	for _, r := range records {
		offices.add(r.Office)
		hubs.add(r.Hub)
		regions.add(r.Region)
		brokers.add(r.Broker)
		cedants.add(r.Cedant)
		names.add(r.PolicyName)
		extracts.add(r.ExtractType)
		arrangements.add(r.Arrangement)
		cls.add(r.Class)
		countries.add(r.CanonicalCountry)
		if r.Period.HasYear() {
			years[r.Period.Year] = struct{}{}
		}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Ints(yearList)

	return Options{
		Offices:      offices.sorted(),
		Hubs:         hubs.sorted(),
		Regions:      regions.sorted(),
		Brokers:      brokers.sorted(),
		Cedants:      cedants.sorted(),
		PolicyNames:  names.sorted(),
		ExtractTypes: extracts.sorted(),
		Arrangements: arrangements.sorted(),
		Classes:      cls.sorted(),
		Subclasses:   SubclassOptions(records, classes),
		Countries:    countries.sorted(),
		Years:        yearList,
	}
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

// add ignores empty values; they are not selectable options.
func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
