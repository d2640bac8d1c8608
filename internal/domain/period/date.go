package period

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goccy/go-json"
)

// DateFormat is the ISO layout used to render a Date.
const DateFormat = "2006-01-02"

// Date is a calendar day.  The zero Date is absent.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date { return NewDate(t.Date()) }

// Today returns the current calendar day.
func Today() Date { return DateOf(time.Now()) }

func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) IsZero() bool { return d == Date{} }
func (d Date) Year() int    { return d.y }
func (d Date) Month() int   { return int(d.m) }
func (d Date) Day() int     { return d.d }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Period returns the canonical period of the day.
func (d Date) Period() Resolved {
	if d.IsZero() {
		return Resolved{}
	}
	return Resolved{Year: d.y, Quarter: QuarterOf(int(d.m)), Month: int(d.m)}
}

// String formats d as YYYY-MM-DD, or "" when absent.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.time().Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, _ := ParseDate(s)
	*d = parsed
	return nil
}

var (
	dayFirstPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})$`)
	isoPattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	serialPattern   = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// Spreadsheet serial dates count days from 1899-12-31 and include the
// phantom 1900-02-29 at serial 60.
var serialEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31.
const maxSerial = 2958465

// ParseDate parses a single-string date.  Rules are tried in order and the
// first success wins: day/month/year with / or - separators, ISO
// YYYY-MM-DD, spreadsheet serial number, then a generic date literal.  The
// boolean is false when nothing matches.
func ParseDate(s string) (Date, bool) {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return Date{}, false
	}
	for _, rule := range []func(string) (Date, bool){parseDayFirst, parseISO, parseSerial, parseLiteral} {
		if d, ok := rule(s); ok {
			return d, true
		}
	}
	return Date{}, false
}

func parseDayFirst(s string) (Date, bool) {
	m := dayFirstPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	return exactDate(year, month, day)
}

func parseISO(s string) (Date, bool) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return exactDate(year, month, day)
}

func parseSerial(s string) (Date, bool) {
	if !serialPattern.MatchString(s) {
		return Date{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Date{}, false
	}
	serial := int(math.Floor(f))
	if serial < 1 || serial > maxSerial {
		return Date{}, false
	}
	days := serial
	if serial >= 60 {
		days--
	}
	return DateOf(serialEpoch.AddDate(0, 0, days)), true
}

func parseLiteral(s string) (Date, bool) {
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return Date{}, false
	}
	return DateOf(t), true
}

// exactDate rejects components that time.Date would silently normalize,
// such as 31/02.
func exactDate(year, month, day int) (Date, bool) {
	if month < 1 || month > 12 || day < 1 {
		return Date{}, false
	}
	d := NewDate(year, time.Month(month), day)
	if d.y != year || int(d.m) != month || d.d != day {
		return Date{}, false
	}
	return d, true
}

// FromFields composes a Date from separate day/month/year fields.  All
// three must resolve.
func FromFields(f Fields) (Date, bool) {
	year := ParseYear(f.Year)
	month := ParseMonth(f.Month)
	day, err := strconv.Atoi(strings.TrimSpace(f.Day))
	if err != nil {
		fl, ferr := strconv.ParseFloat(strings.TrimSpace(f.Day), 64)
		if ferr != nil || fl != math.Trunc(fl) {
			return Date{}, false
		}
		day = int(fl)
	}
	if year == 0 || month == 0 {
		return Date{}, false
	}
	return exactDate(year, month, day)
}

// ResolveDate prefers the display date string and falls back to the
// separate fields.
func ResolveDate(f Fields) (Date, bool) {
	if d, ok := ParseDate(f.Date); ok {
		return d, true
	}
	return FromFields(f)
}
