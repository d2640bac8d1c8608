package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/turtacn/TreatyBoard/internal/domain/period"
	"github.com/turtacn/TreatyBoard/internal/domain/query"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Filter query parameters.
const (
	ParamOffice        = "office"
	ParamHub           = "hub"
	ParamRegion        = "region"
	ParamBroker        = "broker"
	ParamCedant        = "cedant"
	ParamPolicyName    = "policy_name"
	ParamYear          = "year"
	ParamMonth         = "month"
	ParamQuarter       = "quarter"
	ParamExtractType   = "extract_type"
	ParamArrangement   = "arrangement"
	ParamClass         = "class"
	ParamSubclass      = "subclass"
	ParamCountry       = "country"
	ParamMinPremium    = "min_premium"
	ParamMaxPremium    = "max_premium"
	ParamInceptionFrom = "inception_from"
	ParamInceptionTo   = "inception_to"
	ParamDimension     = "dimension"
)

func invalidParam(name, value string) error {
	return errors.Newf(errors.ErrCodeInvalidFilter, "invalid %s", name).WithDetail(value)
}

// ParseSpec builds a query.Spec from filter parameters.  Absent and blank
// parameters leave their predicate unconstrained; malformed ones fail with
// QRY_001.
func ParseSpec(q url.Values) (query.Spec, error) {
	spec := query.Spec{
		Office:       strings.TrimSpace(q.Get(ParamOffice)),
		Hub:          strings.TrimSpace(q.Get(ParamHub)),
		Region:       strings.TrimSpace(q.Get(ParamRegion)),
		Broker:       strings.TrimSpace(q.Get(ParamBroker)),
		Cedant:       strings.TrimSpace(q.Get(ParamCedant)),
		PolicyName:   strings.TrimSpace(q.Get(ParamPolicyName)),
		ExtractTypes: multi(q, ParamExtractType),
		Arrangements: multi(q, ParamArrangement),
		Classes:      multi(q, ParamClass),
		Subclasses:   multi(q, ParamSubclass),
		Countries:    multi(q, ParamCountry),
	}

	if v := strings.TrimSpace(q.Get(ParamYear)); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < period.MinYear || y > period.MaxYear {
			return query.Spec{}, invalidParam(ParamYear, v)
		}
		spec.Year = y
	}
	if v := strings.TrimSpace(q.Get(ParamMonth)); v != "" {
		if spec.Month = period.ParseMonth(v); spec.Month == 0 {
			return query.Spec{}, invalidParam(ParamMonth, v)
		}
	}
	if v := strings.TrimSpace(q.Get(ParamQuarter)); v != "" {
		if spec.Quarter = period.ParseQuarter(v); spec.Quarter == period.QuarterNone {
			return query.Spec{}, invalidParam(ParamQuarter, v)
		}
	}

	var err error
	if spec.MinPremium, err = amountParam(q, ParamMinPremium); err != nil {
		return query.Spec{}, err
	}
	if spec.MaxPremium, err = amountParam(q, ParamMaxPremium); err != nil {
		return query.Spec{}, err
	}
	if spec.MinPremium.Valid && spec.MaxPremium.Valid && spec.MinPremium.Decimal.GreaterThan(spec.MaxPremium.Decimal) {
		return query.Spec{}, invalidParam(ParamMinPremium, "greater than "+ParamMaxPremium)
	}

	if spec.InceptionFrom, err = dateParam(q, ParamInceptionFrom); err != nil {
		return query.Spec{}, err
	}
	if spec.InceptionTo, err = dateParam(q, ParamInceptionTo); err != nil {
		return query.Spec{}, err
	}
	if !spec.InceptionFrom.IsZero() && !spec.InceptionTo.IsZero() && spec.InceptionFrom.After(spec.InceptionTo) {
		return query.Spec{}, invalidParam(ParamInceptionFrom, "after "+ParamInceptionTo)
	}
	return spec, nil
}

// multi collects a repeated parameter, dropping blanks.
func multi(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func amountParam(q url.Values, name string) (decimal.NullDecimal, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, invalidParam(name, v)
	}
	return decimal.NewNullDecimal(d), nil
}

func dateParam(q url.Values, name string) (period.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return period.Date{}, nil
	}
	d, ok := period.ParseDate(v)
	if !ok {
		return period.Date{}, invalidParam(name, v)
	}
	return d, nil
}
