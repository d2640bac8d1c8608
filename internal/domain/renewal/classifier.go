package renewal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/TreatyBoard/internal/domain/kpi"
	"github.com/turtacn/TreatyBoard/internal/domain/period"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
)

// Record is a policy reshaped for renewal reporting.  Status comes from the
// status text and IsUpcoming from the renewal date; the two are independent
// and may disagree.
type Record struct {
	policy.Record
	RenewalYear int         `json:"renewal_year"`
	RenewalDate period.Date `json:"renewal_date"`
	StatusFlag  Status      `json:"status_flag"`
	IsUpcoming  bool        `json:"is_upcoming"`
}

// StatusTotals summarizes one status.
type StatusTotals struct {
	Count          int             `json:"count"`
	Premium        decimal.Decimal `json:"premium"`
	CountPercent   decimal.Decimal `json:"count_percent"`
	PremiumPercent decimal.Decimal `json:"premium_percent"`
}

// Summary holds report totals.
type Summary struct {
	TotalCount        int                     `json:"total_count"`
	TotalPremium      decimal.Decimal         `json:"total_premium"`
	PaidClaims        decimal.Decimal         `json:"paid_claims"`
	OutstandingClaims decimal.Decimal         `json:"outstanding_claims"`
	IncurredClaims    decimal.Decimal         `json:"incurred_claims"`
	LossRatio         decimal.Decimal         `json:"loss_ratio"`
	ByStatus          map[Status]StatusTotals `json:"by_status"`
	UpcomingByDate    int                     `json:"upcoming_by_date"`
	Excluded          int                     `json:"excluded"`
}

// Report is the output of one classification run.
type Report struct {
	GeneratedOn period.Date `json:"generated_on"`
	Records     []Record    `json:"records"`
	Summary     Summary     `json:"summary"`
}

// Classifier classifies records against a clock.
type Classifier struct {
	now func() time.Time
}

// NewClassifier returns a Classifier reading the wall clock.
func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// NewClassifierAt returns a Classifier with a fixed clock, for tests and
// as-of reports.
func NewClassifierAt(now func() time.Time) *Classifier {
	return &Classifier{now: now}
}

// ResolveRenewalYear applies the renewal-year precedence: explicit renewal
// year, inception year, then the year of the renewal date string.
func ResolveRenewalYear(r policy.Record) int {
	if y := period.ParseYear(r.Renewal.Year); y != 0 {
		return y
	}
	if y := period.ParseYear(r.Inception.Year); y != 0 {
		return y
	}
	if d, ok := period.ParseDate(r.Renewal.Date); ok {
		if y := d.Year(); y >= period.MinYear && y <= period.MaxYear {
			return y
		}
	}
	return 0
}

// Classify builds the renewal report.  Fronting policies and records with
// no resolvable renewal year are excluded before classification.
func (c *Classifier) Classify(records []policy.Record) Report {
	today := period.DateOf(c.now())
	rep := Report{GeneratedOn: today, Records: make([]Record, 0, len(records))}

	for _, r := range records {
		if r.IsFronting() {
			rep.Summary.Excluded++
			continue
		}
		year := ResolveRenewalYear(r)
		if year == 0 {
			rep.Summary.Excluded++
			continue
		}
		date, _ := period.ResolveDate(r.Renewal)
		rep.Records = append(rep.Records, Record{
			Record:      r,
			RenewalYear: year,
			RenewalDate: date,
			StatusFlag:  ClassifyStatus(r.Status),
			IsUpcoming:  !date.IsZero() && date.After(today),
		})
	}
	rep.Summary = summarize(rep.Records, rep.Summary.Excluded)
	return rep
}

func summarize(records []Record, excluded int) Summary {
	s := Summary{
		TotalCount: len(records),
		ByStatus:   make(map[Status]StatusTotals, len(Statuses)),
		Excluded:   excluded,
	}
	for _, r := range records {
		s.TotalPremium = s.TotalPremium.Add(r.GrossPremium)
		s.PaidClaims = s.PaidClaims.Add(r.PaidClaims)
		s.OutstandingClaims = s.OutstandingClaims.Add(r.OutstandingClaims)
		if r.IsUpcoming {
			s.UpcomingByDate++
		}
		t := s.ByStatus[r.StatusFlag]
		t.Count++
		t.Premium = t.Premium.Add(r.GrossPremium)
		s.ByStatus[r.StatusFlag] = t
	}
	s.IncurredClaims = s.PaidClaims.Add(s.OutstandingClaims)
	s.LossRatio = kpi.Ratio(s.IncurredClaims, s.TotalPremium)

	total := decimal.NewFromInt(int64(s.TotalCount))
	for _, st := range Statuses {
		t := s.ByStatus[st]
		t.CountPercent = kpi.Ratio(decimal.NewFromInt(int64(t.Count)), total)
		t.PremiumPercent = kpi.Ratio(t.Premium, s.TotalPremium)
		s.ByStatus[st] = t
	}
	return s
}
