package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/kurihiro0119/rum-count/internal/app"
	"github.com/kurihiro0119/rum-count/internal/config"
	"github.com/kurihiro0119/rum-count/internal/domain"
	"github.com/kurihiro0119/rum-count/internal/report"
	"github.com/kurihiro0119/rum-count/pkg/client"
)

var version = "dev"

var (
	cfgFile        string
	addr           string
	logLevel       string
	logFormat      string
	outputJSON     bool
	outputCSV      bool
	verbose        bool
	pageSize       int
	concurrency    int
	orgConcurrency int
	maxRetries     int
	requestsPerSec float64
	organizations  []string
	apiEndpoint    string
)

var rootCmd = &cobra.Command{
	Use:   "rum-count",
	Short: "Terraform Cloud / Enterprise resource-under-management counter",
	Long: `A CLI tool that counts Resources Under Management (RUM) across every
organization and workspace of a Terraform Cloud or Terraform Enterprise
installation.

Resources are classified as managed (RUM), data sources or null resources
and reported per workspace, per organization and as a grand total.`,
	SilenceUsage: true,
	RunE:         runCount,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count resources through the Terraform API",
	Long:  `Walk every organization and workspace visible to the token and count their resources.`,
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

var stateCmd = &cobra.Command{
	Use:   "state [path]",
	Short: "Count resources in local state files",
	Long:  `Count the resources recorded in *.tfstate files under a directory, or in a single state file.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runState,
}

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Show a report from a running rum-count API server",
	Args:  cobra.NoArgs,
	RunE:  runRemote,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	pf.StringVar(&addr, "addr", config.DefaultBaseURL, "Terraform Cloud / Enterprise address")
	pf.StringVar(&logLevel, "log-level", "error", "log level (debug, info, warning, error, critical)")
	pf.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	pf.BoolVar(&outputJSON, "json", false, "output in JSON format")
	pf.BoolVar(&outputCSV, "csv", false, "output in CSV format")
	pf.BoolVarP(&verbose, "verbose", "v", false, "print every workspace, otherwise only a summary per organization")
	pf.IntVar(&pageSize, "page-size", config.DefaultPageSize, "page size for list requests")
	pf.IntVar(&concurrency, "concurrency", config.DefaultConcurrencyLimit, "maximum workspaces resolved at once per organization")
	pf.IntVar(&orgConcurrency, "org-concurrency", 1, "maximum organizations resolved at once")
	pf.IntVar(&maxRetries, "max-retries", 0, "maximum retries of a rate limited request (0 is unlimited)")
	pf.Float64Var(&requestsPerSec, "rps", 0, "client side request rate limit (0 is unlimited)")
	pf.StringSliceVar(&organizations, "org", nil, "only count these organizations")

	remoteCmd.Flags().StringVar(&apiEndpoint, "endpoint", "", "API server endpoint (default $API_ENDPOINT)")

	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies explicitly set flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfgFile != "" {
		if err := godotenv.Load(cfgFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.BaseURL = addr
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("page-size") {
		cfg.PageSize = pageSize
	}
	if flags.Changed("concurrency") {
		cfg.ConcurrencyLimit = concurrency
	}
	if flags.Changed("org-concurrency") {
		cfg.OrgConcurrency = orgConcurrency
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = maxRetries
	}
	if flags.Changed("rps") {
		cfg.RequestsPerSecond = requestsPerSec
	}
	if flags.Changed("org") {
		cfg.Organizations = organizations
	}
	return cfg, nil
}

// resolveToken falls back to the credentials file and then to a prompt
func resolveToken(cfg *config.Config, logger *zap.Logger) error {
	if cfg.Token != "" {
		logger.Info("using token from $TF_TOKEN")
		return nil
	}
	err := cfg.ResolveToken()
	if err == nil {
		logger.Info("using token from credentials file")
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return err
	}

	fmt.Fprint(os.Stderr, "Enter a Terraform token: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	cfg.Token = strings.TrimSpace(string(raw))
	logger.Info("using token from prompt")
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := resolveToken(cfg, logger); err != nil {
		return fmt.Errorf("no API token: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger.Info("using base URL", zap.String("addr", cfg.BaseURL))

	agg, err := app.NewAggregator(cfg, logger)
	if err != nil {
		return err
	}

	result, err := agg.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count resources: %w", err)
	}
	return render(cmd, result)
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.StatePath
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		path = "."
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	result, err := app.NewStateFileAggregator(cfg, logger).RunStateFiles(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to count state files: %w", err)
	}
	return render(cmd, result)
}

func runRemote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	endpoint := cfg.APIEndpoint
	if apiEndpoint != "" {
		endpoint = apiEndpoint
	}

	org, err := remoteOrganization(cfg.Organizations)
	if err != nil {
		return err
	}

	c := client.NewClient(endpoint)
	if err := c.HealthCheck(cmd.Context()); err != nil {
		return fmt.Errorf("API server at %s is not healthy: %w", endpoint, err)
	}

	out := cmd.OutOrStdout()
	if verbose || outputJSON || outputCSV {
		doc, err := c.GetReport(cmd.Context(), org)
		if err != nil {
			return fmt.Errorf("failed to get report: %w", err)
		}
		if outputJSON {
			return writeJSON(out, doc)
		}
		return render(cmd, documentToResult(doc))
	}

	summary, err := c.GetSummary(cmd.Context(), org)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Org ID", "Workspaces", "RUM", "Data RS", "Null RS", "Total"})
	for _, o := range summary.Organizations {
		table.Append([]string{
			o.ID, fmt.Sprintf("%d", o.Workspaces),
			fmt.Sprintf("%d", o.Subtotal.RUM), fmt.Sprintf("%d", o.Subtotal.DataResource),
			fmt.Sprintf("%d", o.Subtotal.NullResource), fmt.Sprintf("%d", o.Subtotal.Total),
		})
	}
	table.SetFooter([]string{
		"Grand Total", fmt.Sprintf("%d", summary.Workspaces),
		fmt.Sprintf("%d", summary.GrandTotal.RUM), fmt.Sprintf("%d", summary.GrandTotal.DataResource),
		fmt.Sprintf("%d", summary.GrandTotal.NullResource), fmt.Sprintf("%d", summary.GrandTotal.Total),
	})
	table.Render()
	return nil
}

func render(cmd *cobra.Command, result *domain.RunResult) error {
	out := cmd.OutOrStdout()
	switch {
	case outputJSON:
		return report.JSON(out, result, false)
	case outputCSV:
		return report.CSV(out, result)
	default:
		report.Table(out, result, report.TableOptions{Verbose: verbose})
		return nil
	}
}
