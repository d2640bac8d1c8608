// Package cli implements the treatyboard command line.  Commands run the
// reporting service in-process against the configured policy source.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/turtacn/TreatyBoard/internal/application/reporting"
	"github.com/turtacn/TreatyBoard/internal/bootstrap"
	"github.com/turtacn/TreatyBoard/internal/config"
	"github.com/turtacn/TreatyBoard/internal/domain/kpi"
	"github.com/turtacn/TreatyBoard/internal/domain/policy"
	"github.com/turtacn/TreatyBoard/internal/domain/query"
	"github.com/turtacn/TreatyBoard/internal/domain/renewal"
	"github.com/turtacn/TreatyBoard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TreatyBoard/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// ReportService is the reporting surface the commands drive.
type ReportService interface {
	Policies(ctx context.Context, req reporting.Request) ([]policy.Record, error)
	KPIs(ctx context.Context, req reporting.Request) (kpi.Set, error)
	Breakdown(ctx context.Context, req reporting.Request, dimension string) ([]kpi.Group, error)
	Renewals(ctx context.Context, req reporting.Request) (renewal.Report, error)
	FilterOptions(ctx context.Context, roles []string, classes []string) (query.Options, error)
	Ask(ctx context.Context, roles []string, text string) (reporting.AskResult, error)
	Reload(ctx context.Context) (int, error)
	ArchiveRenewals(ctx context.Context, req reporting.Request) (string, error)
	Currency() string
}

var _ ReportService = (*reporting.Service)(nil)

// ServiceFactory builds the service for one command run.  The returned
// func releases whatever the service holds.
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (ReportService, func(), error)

// DefaultServiceFactory wires the service from configuration.
func DefaultServiceFactory(ctx context.Context, cfg *config.Config, logger logging.Logger) (ReportService, func(), error) {
	infra, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return nil, nil, err
	}
	return infra.Service, infra.Close, nil
}

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Roles        []string
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Service      ReportService
	OutputFormat string
	Roles        []string
	Timeout      time.Duration

	closeOnce sync.Once
	release   func()
}

// Close releases the service.  Safe to call more than once.
func (c *CLIContext) Close() {
	c.closeOnce.Do(func() {
		if c.release != nil {
			c.release()
		}
	})
}

// NewRootCommand creates the root command with every subcommand.  A nil
// factory selects DefaultServiceFactory.
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultServiceFactory
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "treatyboard",
		Short: "Reinsurance policy book reporting",
		Long: "treatyboard reports on a reinsurance policy book: KPIs, breakdowns,\n" +
			"renewal status and filter options, scoped by business-line roles.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, factory)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./treatyboard.yaml)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputTable, "output format (table, json)")
	pf.StringSliceVarP(&opts.Roles, "roles", "r", nil, "business-line roles to report as, comma separated")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "per-command timeout")

	cmd.AddCommand(
		NewPoliciesCmd(),
		NewKPICmd(),
		NewBreakdownCmd(),
		NewRenewalsCmd(),
		NewOptionsCmd(),
		NewAskCmd(),
		NewReloadCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// persistentPreRun initializes config, logger and service, then stores the
// CLIContext on the command.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory ServiceFactory) error {
	switch opts.OutputFormat {
	case OutputTable, OutputJSON:
	default:
		return errors.Newf(errors.ErrCodeBadRequest, "unknown output format %q", opts.OutputFormat)
	}

	cfg, err := initConfig(cmd.ErrOrStderr(), opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, release, err := factory(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("service initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Service:      svc,
		OutputFormat: opts.OutputFormat,
		Roles:        opts.Roles,
		Timeout:      opts.Timeout,
		release:      release,
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration: the --config file when given, otherwise
// the first file found on the search path, otherwise the environment alone.
func initConfig(stderr io.Writer, opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./treatyboard.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".treatyboard", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/treatyboard/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}

	fmt.Fprintln(stderr, "Warning: no config file found, using environment and defaults")
	return config.LoadFromEnv()
}

// initLogger creates a console logger on stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:            opts.LogLevel,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// runService resolves the CLIContext, applies the timeout and releases the
// service when fn returns.
func runService(cmd *cobra.Command, fn func(ctx context.Context, cliCtx *CLIContext) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	defer cliCtx.Close()

	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}
	return fn(ctx, cliCtx)
}

// Execute is the main entry point for the CLI application.
func Execute(factory ServiceFactory) error {
	rootCmd := NewRootCommand(factory)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult outputs data in the format selected by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == OutputJSON {
		return printJSON(cmd, data)
	}
	return printTable(cmd, data)
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// printText outputs data as a simple string representation to stdout.
func printText(cmd *cobra.Command, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// printTable renders a tableProvider, falling back to text.
func printTable(cmd *cobra.Command, data interface{}) error {
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	return printText(cmd, data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells func(i int) string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(padRight(cells(i), colWidths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(func(i int) string { return headers[i] })
	writeRow(func(i int) string { return strings.Repeat("-", colWidths[i]) })
	for _, row := range rows {
		writeRow(func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		})
	}
	return sb.String()
}

// padRight pads s with spaces to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
