package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
)

// Field names reported in Match.
const (
	FieldCountry  = "country"
	FieldClass    = "class"
	FieldSubclass = "subclass"
	FieldBroker   = "broker"
	FieldCedant   = "cedant"
	FieldOffice   = "office"
	FieldHub      = "hub"
	FieldRegion   = "region"
	FieldYear     = "year"
	FieldQuarter  = "quarter"
	FieldMonth    = "month"
)

// Match records how one phrase of the question was understood.
type Match struct {
	Phrase string `json:"phrase"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// Interpretation is the structured reading of a free-text question.
type Interpretation struct {
	Spec      Spec     `json:"spec"`
	Matches   []Match  `json:"matches"`
	Unmatched []string `json:"unmatched,omitempty"`
}

// minTokenLen is the shortest word considered for fuzzy matching.
const minTokenLen = 3

var (
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}&'-]+`)
	quarterPattern = regexp.MustCompile(`^q([1-4])$`)
)

var stopWords = map[string]struct{}{
	"and": {}, "are": {}, "for": {}, "from": {}, "how": {}, "in": {}, "is": {},
	"of": {}, "on": {}, "show": {}, "the": {}, "what": {}, "with": {}, "me": {},
	"all": {}, "by": {}, "give": {}, "list": {}, "total": {}, "year": {},
	"premium": {}, "premiums": {}, "claims": {}, "claim": {}, "loss": {},
	"ratio": {}, "ratios": {}, "kpi": {}, "kpis": {}, "expense": {},
	"combined": {}, "paid": {}, "outstanding": {}, "incurred": {}, "policies": {},
	"business": {}, "book": {}, "portfolio": {}, "much": {}, "many": {},
}

type domain struct {
	field  string
	values []string
}

// Interpreter reads questions against the option domains observed in the
// caller's visible records.
type Interpreter struct {
	domains []domain
}

// NewInterpreter builds an Interpreter over opts.  Domain order breaks ties
// between equally close matches.
func NewInterpreter(opts Options) *Interpreter {
	return &Interpreter{domains: []domain{
		{FieldCountry, opts.Countries},
		{FieldClass, opts.Classes},
		{FieldSubclass, opts.Subclasses},
		{FieldBroker, opts.Brokers},
		{FieldCedant, opts.Cedants},
		{FieldOffice, opts.Offices},
		{FieldHub, opts.Hubs},
		{FieldRegion, opts.Regions},
	}}
}

// Interpret turns text into a Spec.  Multi-word option values are matched
// verbatim first, then each remaining word is read as a year, quarter or
// month, and finally fuzzy-matched against the option domains.
func (in *Interpreter) Interpret(text string) Interpretation {
	var res Interpretation
	lowered := " " + strings.ToLower(text) + " "

	for _, d := range in.domains {
		for _, v := range d.values {
			if !strings.Contains(v, " ") {
				continue
			}
			needle := strings.ToLower(v)
			if strings.Contains(lowered, needle) {
				lowered = strings.ReplaceAll(lowered, needle, " ")
				res.apply(Match{Phrase: needle, Field: d.field, Value: v})
			}
		}
	}

	for _, word := range wordPattern.FindAllString(lowered, -1) {
		if m, ok := periodMatch(word); ok {
			res.apply(m)
			continue
		}
		if _, stop := stopWords[word]; stop || len(word) < minTokenLen {
			continue
		}
		if m, ok := in.fuzzyMatch(word); ok {
			res.apply(m)
			continue
		}
		res.Unmatched = append(res.Unmatched, word)
	}
	return res
}

func periodMatch(word string) (Match, bool) {
	if y := period.ParseYear(word); y != 0 {
		return Match{Phrase: word, Field: FieldYear, Value: word}, true
	}
	if m := quarterPattern.FindStringSubmatch(word); m != nil {
		return Match{Phrase: word, Field: FieldQuarter, Value: "Q" + m[1]}, true
	}
	if len(word) >= minTokenLen && !strings.ContainsAny(word, "0123456789") {
		if month := period.ParseMonth(word); month != 0 {
			return Match{Phrase: word, Field: FieldMonth, Value: word}, true
		}
	}
	return Match{}, false
}

func (in *Interpreter) fuzzyMatch(word string) (Match, bool) {
	var (
		best  Match
		bestD = -1
	)
	for _, d := range in.domains {
		ranks := fuzzy.RankFindNormalizedFold(word, d.values)
		if len(ranks) == 0 {
			continue
		}
		sort.Sort(ranks)
		top := ranks[0]
		if bestD == -1 || top.Distance < bestD {
			bestD = top.Distance
			best = Match{Phrase: word, Field: d.field, Value: top.Target}
		}
	}
	return best, bestD != -1
}

func (r *Interpretation) apply(m Match) {
	s := &r.Spec
	switch m.Field {
	case FieldYear:
		s.Year = period.ParseYear(m.Value)
	case FieldQuarter:
		s.Quarter = period.ParseQuarter(m.Value)
	case FieldMonth:
		s.Month = period.ParseMonth(m.Value)
	case FieldCountry:
		s.Countries = appendUnique(s.Countries, m.Value)
	case FieldClass:
		s.Classes = appendUnique(s.Classes, m.Value)
	case FieldSubclass:
		s.Subclasses = appendUnique(s.Subclasses, m.Value)
	case FieldBroker:
		s.Broker = m.Value
	case FieldCedant:
		s.Cedant = m.Value
	case FieldOffice:
		s.Office = m.Value
	case FieldHub:
		s.Hub = m.Value
	case FieldRegion:
		s.Region = m.Value
	}
	r.Matches = append(r.Matches, m)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
