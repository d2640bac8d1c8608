package cli

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turtacn/TreatyBoard/internal/application/reporting"
	"github.com/turtacn/TreatyBoard/internal/domain/kpi"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/domain/query"
	"github.com/turtacn/TreatyBoard/internal/domain/renewal"
	"github.com/turtacn/TreatyBoard/internal/interfaces/http/handlers"
)

// filterFlag maps a command line flag onto an HTTP filter parameter so both
// surfaces validate the same way.
type filterFlag struct {
	name  string
	param string
	multi bool
	usage string
}

var filterFlags = []filterFlag{
	{"office", handlers.ParamOffice, false, "office"},
	{"hub", handlers.ParamHub, false, "hub"},
	{"region", handlers.ParamRegion, false, "region"},
	{"broker", handlers.ParamBroker, false, "broker"},
	{"cedant", handlers.ParamCedant, false, "cedant"},
	{"policy-name", handlers.ParamPolicyName, false, "policy name"},
	{"year", handlers.ParamYear, false, "underwriting year"},
	{"month", handlers.ParamMonth, false, "inception month, number or name"},
	{"quarter", handlers.ParamQuarter, false, "inception quarter, 1-4 or Q1-Q4"},
	{"extract-type", handlers.ParamExtractType, true, "extract types"},
	{"arrangement", handlers.ParamArrangement, true, "arrangements"},
	{"class", handlers.ParamClass, true, "classes of business"},
	{"subclass", handlers.ParamSubclass, true, "subclasses"},
	{"country", handlers.ParamCountry, true, "countries"},
	{"min-premium", handlers.ParamMinPremium, false, "minimum gross premium"},
	{"max-premium", handlers.ParamMaxPremium, false, "maximum gross premium"},
	{"inception-from", handlers.ParamInceptionFrom, false, "earliest inception date"},
	{"inception-to", handlers.ParamInceptionTo, false, "latest inception date"},
}

// addFilterFlags registers the selection flags on cmd.
func addFilterFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	for _, f := range filterFlags {
		if f.multi {
			fs.StringSlice(f.name, nil, f.usage)
		} else {
			fs.String(f.name, "", f.usage)
		}
	}
}

// specFromFlags builds a query.Spec from the flags that were set.
func specFromFlags(fs *pflag.FlagSet) (query.Spec, error) {
	values := url.Values{}
	for _, f := range filterFlags {
		if !fs.Changed(f.name) {
			continue
		}
		if f.multi {
			list, err := fs.GetStringSlice(f.name)
			if err != nil {
				return query.Spec{}, err
			}
			values[f.param] = list
			continue
		}
		v, err := fs.GetString(f.name)
		if err != nil {
			return query.Spec{}, err
		}
		values.Set(f.param, v)
	}
	return handlers.ParseSpec(values)
}

func request(cmd *cobra.Command, cliCtx *CLIContext) (reporting.Request, error) {
	spec, err := specFromFlags(cmd.Flags())
	if err != nil {
		return reporting.Request{}, err
	}
	return reporting.Request{Roles: cliCtx.Roles, Spec: spec}, nil
}

// NewPoliciesCmd lists the selected policies.
func NewPoliciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List the policies visible to the roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				req, err := request(cmd, cliCtx)
				if err != nil {
					return err
				}
				records, err := cliCtx.Service.Policies(ctx, req)
				if err != nil {
					return err
				}
				return PrintResult(cmd, policyTable{records: records, currency: cliCtx.Service.Currency()})
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// NewKPICmd prints the KPI set of the selection.
func NewKPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Compute premium, claims and ratio KPIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				req, err := request(cmd, cliCtx)
				if err != nil {
					return err
				}
				set, err := cliCtx.Service.KPIs(ctx, req)
				if err != nil {
					return err
				}
				return PrintResult(cmd, kpiTable{set: set, currency: cliCtx.Service.Currency()})
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// NewBreakdownCmd groups the selection by a dimension.
func NewBreakdownCmd() *cobra.Command {
	var dims []string
	for _, d := range kpi.Dimensions() {
		dims = append(dims, string(d))
	}

	cmd := &cobra.Command{
		Use:   "breakdown [dimension]",
		Short: "Break KPIs down by a dimension",
		Long:  "Break KPIs down by one of: " + strings.Join(dims, ", ") + ". The default is year.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim := string(kpi.ByYear)
			if len(args) == 1 {
				dim = args[0]
			}
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				req, err := request(cmd, cliCtx)
				if err != nil {
					return err
				}
				groups, err := cliCtx.Service.Breakdown(ctx, req, dim)
				if err != nil {
					return err
				}
				return PrintResult(cmd, breakdownTable{
					BreakdownResponse: handlers.BreakdownResponse{Dimension: dim, Groups: groups},
					currency:          cliCtx.Service.Currency(),
				})
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

// NewRenewalsCmd classifies the selection by renewal status.
func NewRenewalsCmd() *cobra.Command {
	var archive bool
	cmd := &cobra.Command{
		Use:   "renewals",
		Short: "Classify policies by renewal status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				req, err := request(cmd, cliCtx)
				if err != nil {
					return err
				}
				if archive {
					key, err := cliCtx.Service.ArchiveRenewals(ctx, req)
					if err != nil {
						return err
					}
					PrintSuccess(cmd, "renewal report archived as "+key)
					return nil
				}
				report, err := cliCtx.Service.Renewals(ctx, req)
				if err != nil {
					return err
				}
				return PrintResult(cmd, renewalTable{report: report, currency: cliCtx.Service.Currency()})
			})
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "store the report in the archive instead of printing it")
	addFilterFlags(cmd)
	return cmd
}

// NewOptionsCmd prints the filter values available to the roles.
func NewOptionsCmd() *cobra.Command {
	var classes []string
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the filter values present in the visible book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				opts, err := cliCtx.Service.FilterOptions(ctx, cliCtx.Roles, classes)
				if err != nil {
					return err
				}
				return PrintResult(cmd, optionsTable{opts})
			})
		},
	}
	cmd.Flags().StringSliceVar(&classes, "class", nil, "narrow subclasses to these classes")
	return cmd
}

// NewAskCmd interprets a free-text question.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a free-text question about the book",
		Example: `  treatyboard ask "marine premium in Ghana for 2023"
  treatyboard ask --roles fi how did Aon do last quarter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				res, err := cliCtx.Service.Ask(ctx, cliCtx.Roles, text)
				if err != nil {
					return err
				}
				return PrintResult(cmd, askTable{res: res, currency: cliCtx.Service.Currency()})
			})
		},
	}
}

// NewReloadCmd drops the cached book and reads it again.
func NewReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the policy book from its source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(cmd, func(ctx context.Context, cliCtx *CLIContext) error {
				n, err := cliCtx.Service.Reload(ctx)
				if err != nil {
					return err
				}
				if cliCtx.OutputFormat == OutputJSON {
					return printJSON(cmd, handlers.ReloadResponse{Records: n})
				}
				PrintSuccess(cmd, fmt.Sprintf("reloaded %d policies", n))
				return nil
			})
		},
	}
}

// NewVersionCmd prints build information.  It needs no configuration.
func NewVersionCmd() *cobra.Command {
	var asJSON bool
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if f := cmd.Flag("output"); f != nil {
				asJSON = f.Value.String() == OutputJSON
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := BuildInfo{Version: Version, Commit: GitCommit, BuildDate: BuildDate}
			if asJSON {
				return printJSON(cmd, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "treatyboard %s (commit: %s, built: %s)\n", info.Version, info.Commit, info.BuildDate)
			return nil
		},
	}
}

// Table views

type policyTable struct {
	records  []policy.Record
	currency string
}

func (t policyTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(handlers.PoliciesResponse{Count: len(t.records), Policies: t.records})
}

func (t policyTable) TableHeaders() []string {
	return []string{"SRL", "POLICY", "CLASS", "COUNTRY", "YEAR", "PREMIUM", "STATUS"}
}

func (t policyTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.records))
	for _, r := range t.records {
		rows = append(rows, []string{
			r.SerialNumber,
			truncateString(r.PolicyName, 40),
			r.Class,
			r.CanonicalCountry,
			yearString(r.Period.Year),
			kpi.FormatMoney(r.GrossPremium, t.currency),
			r.Status,
		})
	}
	return rows
}

type kpiTable struct {
	set      kpi.Set
	currency string
}

func (t kpiTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(handlers.KPIResponse{KPIs: t.set, Currency: t.currency, Display: handlers.DisplayKPIs(t.set, t.currency)})
}

func (t kpiTable) TableHeaders() []string { return []string{"KPI", "VALUE"} }

func (t kpiTable) TableRows() [][]string {
	display := handlers.DisplayKPIs(t.set, t.currency)
	keys := []string{
		"premium", "paid_claims", "outstanding_claims", "incurred_claims", "expense",
		"loss_ratio", "expense_ratio", "combined_ratio", "avg_max_liability",
	}
	rows := make([][]string, 0, len(keys)+1)
	for _, k := range keys {
		if k == "avg_max_liability" {
			rows = append(rows, []string{"number_of_accounts", strconv.Itoa(t.set.NumberOfAccounts)})
		}
		rows = append(rows, []string{k, display[k]})
	}
	return rows
}

type breakdownTable struct {
	handlers.BreakdownResponse
	currency string
}

func (t breakdownTable) TableHeaders() []string {
	return []string{strings.ToUpper(t.Dimension), "ACCOUNTS", "PREMIUM", "INCURRED", "LOSS RATIO", "COMBINED RATIO"}
}

func (t breakdownTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.Groups))
	for _, g := range t.Groups {
		rows = append(rows, []string{
			g.Key,
			strconv.Itoa(g.NumberOfAccounts),
			kpi.FormatMoney(g.Premium, t.currency),
			kpi.FormatMoney(g.IncurredClaims, t.currency),
			kpi.FormatPercent(g.LossRatio),
			kpi.FormatPercent(g.CombinedRatio),
		})
	}
	return rows
}

type renewalTable struct {
	report   renewal.Report
	currency string
}

func (t renewalTable) MarshalJSON() ([]byte, error) { return json.Marshal(t.report) }

func (t renewalTable) TableHeaders() []string {
	return []string{"SRL", "POLICY", "CLASS", "RENEWAL DATE", "STATUS", "UPCOMING", "PREMIUM"}
}

func (t renewalTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t.report.Records)+len(renewal.Statuses))
	for _, r := range t.report.Records {
		upcoming := ""
		if r.IsUpcoming {
			upcoming = "yes"
		}
		rows = append(rows, []string{
			r.SerialNumber,
			truncateString(r.PolicyName, 40),
			r.Class,
			r.RenewalDate.String(),
			string(r.StatusFlag),
			upcoming,
			kpi.FormatMoney(r.GrossPremium, t.currency),
		})
	}
	for _, s := range renewal.Statuses {
		tot := t.report.Summary.ByStatus[s]
		rows = append(rows, []string{
			"", "total", "", "", string(s),
			fmt.Sprintf("%d (%s)", tot.Count, kpi.FormatPercent(tot.CountPercent)),
			kpi.FormatMoney(tot.Premium, t.currency),
		})
	}
	return rows
}

type optionsTable struct {
	opts query.Options
}

func (t optionsTable) MarshalJSON() ([]byte, error) { return json.Marshal(t.opts) }

func (t optionsTable) TableHeaders() []string { return []string{"FILTER", "VALUES"} }

func (t optionsTable) TableRows() [][]string {
	years := make([]string, 0, len(t.opts.Years))
	for _, y := range t.opts.Years {
		years = append(years, strconv.Itoa(y))
	}
	fields := map[string][]string{
		"office":       t.opts.Offices,
		"hub":          t.opts.Hubs,
		"region":       t.opts.Regions,
		"broker":       t.opts.Brokers,
		"cedant":       t.opts.Cedants,
		"policy-name":  t.opts.PolicyNames,
		"extract-type": t.opts.ExtractTypes,
		"arrangement":  t.opts.Arrangements,
		"class":        t.opts.Classes,
		"subclass":     t.opts.Subclasses,
		"country":      t.opts.Countries,
		"year":         years,
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strings.Join(fields[name], ", ")})
	}
	return rows
}

type askTable struct {
	res      reporting.AskResult
	currency string
}

func (t askTable) MarshalJSON() ([]byte, error) { return json.Marshal(t.res) }

func (t askTable) TableHeaders() []string { return []string{"", "VALUE"} }

func (t askTable) TableRows() [][]string {
	var rows [][]string
	for _, m := range t.res.Interpretation.Matches {
		rows = append(rows, []string{m.Field, fmt.Sprintf("%s (%q)", m.Value, m.Phrase)})
	}
	if len(t.res.Interpretation.Unmatched) > 0 {
		rows = append(rows, []string{"unmatched", strings.Join(t.res.Interpretation.Unmatched, ", ")})
	}
	rows = append(rows, []string{"policies", strconv.Itoa(t.res.Records)})
	return append(rows, kpiTable{set: t.res.KPIs, currency: t.currency}.TableRows()...)
}

func yearString(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
