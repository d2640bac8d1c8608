package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Filter narrows a report.  Zero values leave a predicate unconstrained.
// Multi-valued fields match any of their values.
type Filter struct {
	Office     string
	Hub        string
	Region     string
	Broker     string
	Cedant     string
	PolicyName string

	Year    int
	Month   int
	Quarter string // Q1..Q4

	ExtractTypes []string
	Arrangements []string
	Classes      []string
	Subclasses   []string
	Countries    []string

	MinPremium decimal.NullDecimal
	MaxPremium decimal.NullDecimal

	InceptionFrom string // YYYY-MM-DD
	InceptionTo   string
}

func (f Filter) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("office", f.Office)
	set("hub", f.Hub)
	set("region", f.Region)
	set("broker", f.Broker)
	set("cedant", f.Cedant)
	set("policy_name", f.PolicyName)
	if f.Year != 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month != 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	set("quarter", f.Quarter)
	for k, vs := range map[string][]string{
		"extract_type": f.ExtractTypes,
		"arrangement":  f.Arrangements,
		"class":        f.Classes,
		"subclass":     f.Subclasses,
		"country":      f.Countries,
	} {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if f.MinPremium.Valid {
		q.Set("min_premium", f.MinPremium.Decimal.String())
	}
	if f.MaxPremium.Valid {
		q.Set("max_premium", f.MaxPremium.Decimal.String())
	}
	set("inception_from", f.InceptionFrom)
	set("inception_to", f.InceptionTo)
	return q
}

// Period is the resolved reporting period of a policy.
type Period struct {
	Year    int `json:"year,omitempty"`
	Quarter int `json:"quarter,omitempty"`
	Month   int `json:"month,omitempty"`
}

// Policy is one underwriting line as returned by the API.
type Policy struct {
	SerialNumber     string `json:"srl"`
	PolicyName       string `json:"policy_name"`
	Broker           string `json:"broker"`
	Cedant           string `json:"cedant"`
	ExtractType      string `json:"extract_type"`
	Class            string `json:"class"`
	Subclass         string `json:"subclass"`
	Arrangement      string `json:"arrangement"`
	Office           string `json:"office"`
	Hub              string `json:"hub"`
	Region           string `json:"region"`
	Country          string `json:"country"`
	CanonicalCountry string `json:"canonical_country"`
	Status           string `json:"policy_status"`

	GrossPremium      decimal.Decimal     `json:"gross_premium"`
	AcquisitionCost   decimal.Decimal     `json:"acquisition_cost"`
	PaidClaims        decimal.Decimal     `json:"paid_claims"`
	OutstandingClaims decimal.Decimal     `json:"outstanding_claims"`
	MaxLiability      decimal.NullDecimal `json:"max_liability"`

	Period        Period `json:"period"`
	InceptionDate string `json:"inception_date"`
}

type PolicyList struct {
	Count    int      `json:"count"`
	Policies []Policy `json:"policies"`
}

// KPIs is the underwriting KPI set.  Ratios are percentages.
type KPIs struct {
	Premium           decimal.Decimal `json:"premium"`
	PaidClaims        decimal.Decimal `json:"paid_claims"`
	OutstandingClaims decimal.Decimal `json:"outstanding_claims"`
	IncurredClaims    decimal.Decimal `json:"incurred_claims"`
	Expense           decimal.Decimal `json:"expense"`
	LossRatio         decimal.Decimal `json:"loss_ratio"`
	ExpenseRatio      decimal.Decimal `json:"expense_ratio"`
	CombinedRatio     decimal.Decimal `json:"combined_ratio"`
	NumberOfAccounts  int             `json:"number_of_accounts"`
	AvgMaxLiability   decimal.Decimal `json:"avg_max_liability"`
}

// KPIReport carries the KPIs plus display strings keyed by KPI name.
type KPIReport struct {
	KPIs     KPIs              `json:"kpis"`
	Currency string            `json:"currency"`
	Display  map[string]string `json:"display"`
}

type Group struct {
	Key string `json:"key"`
	KPIs
}

type Breakdown struct {
	Dimension string  `json:"dimension"`
	Groups    []Group `json:"groups"`
}

type RenewalRecord struct {
	Policy
	RenewalYear int    `json:"renewal_year"`
	RenewalDate string `json:"renewal_date"`
	StatusFlag  string `json:"status_flag"`
	IsUpcoming  bool   `json:"is_upcoming"`
}

type StatusTotals struct {
	Count          int             `json:"count"`
	Premium        decimal.Decimal `json:"premium"`
	CountPercent   decimal.Decimal `json:"count_percent"`
	PremiumPercent decimal.Decimal `json:"premium_percent"`
}

type RenewalSummary struct {
	TotalCount        int                     `json:"total_count"`
	TotalPremium      decimal.Decimal         `json:"total_premium"`
	PaidClaims        decimal.Decimal         `json:"paid_claims"`
	OutstandingClaims decimal.Decimal         `json:"outstanding_claims"`
	IncurredClaims    decimal.Decimal         `json:"incurred_claims"`
	LossRatio         decimal.Decimal         `json:"loss_ratio"`
	ByStatus          map[string]StatusTotals `json:"by_status"`
	UpcomingByDate    int                     `json:"upcoming_by_date"`
	Excluded          int                     `json:"excluded"`
}

type RenewalReport struct {
	GeneratedOn string          `json:"generated_on"`
	Records     []RenewalRecord `json:"records"`
	Summary     RenewalSummary  `json:"summary"`
}

// FilterOptions lists the distinct values available to each filter.
type FilterOptions struct {
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

// Match is one phrase of a question bound to a filter value.
type Match struct {
	Phrase string `json:"phrase"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

type Answer struct {
	Interpretation struct {
		Matches   []Match  `json:"matches"`
		Unmatched []string `json:"unmatched"`
	} `json:"interpretation"`
	Records int  `json:"records"`
	KPIs    KPIs `json:"kpis"`
}

// ReportsClient calls the /api/v1 reporting endpoints.
type ReportsClient struct {
	client *Client
}

func (r *ReportsClient) Policies(ctx context.Context, f Filter) (*PolicyList, error) {
	var out PolicyList
	if err := r.client.get(ctx, "/policies", f.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReportsClient) KPIs(ctx context.Context, f Filter) (*KPIReport, error) {
	var out KPIReport
	if err := r.client.get(ctx, "/kpis", f.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Breakdown groups the KPIs by dimension.  An empty dimension lets the
// server pick its default (year).
func (r *ReportsClient) Breakdown(ctx context.Context, f Filter, dimension string) (*Breakdown, error) {
	q := f.values()
	if dimension != "" {
		q.Set("dimension", dimension)
	}
	var out Breakdown
	if err := r.client.get(ctx, "/kpis/breakdown", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ReportsClient) Renewals(ctx context.Context, f Filter) (*RenewalReport, error) {
	var out RenewalReport
	if err := r.client.get(ctx, "/renewals", f.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ArchiveRenewals stores the renewal report on the server's object store
// and returns its key.
func (r *ReportsClient) ArchiveRenewals(ctx context.Context, f Filter) (string, error) {
	var out struct {
		Key string `json:"key"`
	}
	if err := r.client.post(ctx, "/renewals/archive", f.values(), nil, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

// FilterOptions lists filter values, optionally narrowed to classes.
func (r *ReportsClient) FilterOptions(ctx context.Context, classes ...string) (*FilterOptions, error) {
	q := url.Values{}
	for _, c := range classes {
		q.Add("class", c)
	}
	var out FilterOptions
	if err := r.client.get(ctx, "/filters/options", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask sends a free-text question.
func (r *ReportsClient) Ask(ctx context.Context, text string) (*Answer, error) {
	var out Answer
	body := struct {
		Text string `json:"text"`
	}{Text: text}
	if err := r.client.post(ctx, "/ask", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reload makes the server re-read its source and returns the record count.
func (r *ReportsClient) Reload(ctx context.Context) (int, error) {
	var out struct {
		Records int `json:"records"`
	}
	if err := r.client.post(ctx, "/cache/reload", nil, nil, &out); err != nil {
		return 0, err
	}
	return out.Records, nil
}
