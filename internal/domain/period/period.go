// Package period resolves the heterogeneous year, month, quarter and date
// inputs found on policy records into a canonical (year, quarter, month)
// tuple.  Every function is total: unparsable input yields an absent value,
// never an error and never a default such as the current year.
package period

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Bounds for any accepted year.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Quarter is a calendar quarter.  QuarterNone marks an absent quarter.
type Quarter int

const (
	QuarterNone Quarter = iota
	Q1
	Q2
	Q3
	Q4
)

// String returns "Q1".."Q4", or "" when absent.
func (q Quarter) String() string {
	if !q.Valid() {
		return ""
	}
	return fmt.Sprintf("Q%d", int(q))
}

// Valid reports whether q is one of Q1..Q4.
func (q Quarter) Valid() bool { return q >= Q1 && q <= Q4 }

// Resolved is the canonical period of a record.  Zero fields are absent.
type Resolved struct {
	Year    int     `json:"year,omitempty"`
	Quarter Quarter `json:"quarter,omitempty"`
	Month   int     `json:"month,omitempty"`
}

// HasYear reports whether the year resolved.  Records without a year are
// excluded from year-bucketed views.
func (r Resolved) HasYear() bool { return r.Year != 0 }

// HasMonth reports whether the month resolved.
func (r Resolved) HasMonth() bool { return r.Month != 0 }

// Fields is one day/month/quarter/year group of a record (inception, expiry
// or renewal), plus the optional single-string display date.
type Fields struct {
	Day     string `json:"day,omitempty"`
	Month   string `json:"month,omitempty"`
	Quarter string `json:"quarter,omitempty"`
	Year    string `json:"year,omitempty"`
	Date    string `json:"date,omitempty"`
}

var yearPattern = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)

// ParseYear accepts an integer (or integral float such as "2023.0") within
// [MinYear, MaxYear].  It returns 0 otherwise.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return boundYear(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return boundYear(int(f))
	}
	return 0
}

// ExtractYear finds the first 19xx/20xx token in free text such as
// "UY 2023" or "2023/24".
func ExtractYear(s string) int {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return boundYear(n)
}

func boundYear(n int) int {
	if n < MinYear || n > MaxYear {
		return 0
	}
	return n
}

// ResolveYear applies the year precedence: the underwriting-year field as
// an integer, then a year embedded in that same text, then the inception
// year field.  It returns 0 when nothing resolves.
func ResolveYear(underwritingYear, inceptionYear string) int {
	if y := ParseYear(underwritingYear); y != 0 {
		return y
	}
	if y := ExtractYear(underwritingYear); y != 0 {
		return y
	}
	return ParseYear(inceptionYear)
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseMonth accepts a number in [1,12] or an English month name, full or
// three-letter, in any case.  It returns 0 otherwise.
func ParseMonth(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 1 && n <= 12 {
			return n
		}
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f == float64(int(f)) && f >= 1 && f <= 12 {
			return int(f)
		}
		return 0
	}
	if m, ok := monthNames[s]; ok {
		return m
	}
	if len(s) == 3 {
		for name, m := range monthNames {
			if name[:3] == s {
				return m
			}
		}
	}
	return 0
}

// ParseQuarter accepts "1".."4" (or an integral float such as "2.0") and
// "Q1".."Q4" (any case, optional space).
func ParseQuarter(s string) Quarter {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "Q"))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 4 {
			return QuarterNone
		}
		return Quarter(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 1 && f <= 4 && f == math.Trunc(f) {
		return Quarter(int(f))
	}
	return QuarterNone
}

// QuarterOf maps a month to its quarter.
func QuarterOf(month int) Quarter {
	if month < 1 || month > 12 {
		return QuarterNone
	}
	return Quarter((month-1)/3 + 1)
}

// Resolve derives the canonical period from the underwriting-year string
// and an inception field group.  The month falls back to the group's display
// date; the quarter prefers an explicit token over the month bucket.
func Resolve(underwritingYear string, inception Fields) Resolved {
	r := Resolved{
		Year:  ResolveYear(underwritingYear, inception.Year),
		Month: ParseMonth(inception.Month),
	}
	if r.Month == 0 {
		if d, ok := ParseDate(inception.Date); ok {
			r.Month = d.Month()
		}
	}
	r.Quarter = ParseQuarter(inception.Quarter)
	if r.Quarter == QuarterNone {
		r.Quarter = QuarterOf(r.Month)
	}
	return r
}
