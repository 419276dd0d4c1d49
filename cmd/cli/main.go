package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-profile-miner/internal/collector"
	"github.com/kurihiro0119/github-profile-miner/internal/config"
	"github.com/kurihiro0119/github-profile-miner/internal/discovery"
	"github.com/kurihiro0119/github-profile-miner/internal/domain"
	"github.com/kurihiro0119/github-profile-miner/internal/export"
	"github.com/kurihiro0119/github-profile-miner/internal/features"
	"github.com/kurihiro0119/github-profile-miner/internal/pipeline"
	"github.com/kurihiro0119/github-profile-miner/internal/storage"
	"github.com/kurihiro0119/github-profile-miner/internal/storage/postgres"
	"github.com/kurihiro0119/github-profile-miner/internal/storage/sqlite"
)

var (
	tokenFlag    string
	outputFlag   string
	workersFlag  int
	allCommits   bool
	deferSave    bool
	discoverMode string
	language     string
	location     string
	company      string
	minFollowers int
	minRepos     int
	topics       []string
	orgs         []string
	maxUsers     int
	mineAfter    bool
)

var rootCmd = &cobra.Command{
	Use:   "github-miner",
	Short: "GitHub profile mining tool",
	Long: `A CLI tool for collecting GitHub user profiles and flattening them
into ML-ready feature rows.

Profiles are fetched through the GitHub REST API with rate-limit aware
retries, flattened to a fixed feature schema and persisted incrementally
to JSON and CSV files as each user completes.`,
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Mine GitHub profiles",
}

var mineUsersCmd = &cobra.Command{
	Use:   "users [login...]",
	Short: "Mine the given user logins",
	Long:  `Collect profiles for the given GitHub logins and append their feature rows to the output files.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMineUsers,
}

var mineRepoCmd = &cobra.Command{
	Use:   "repo [owner/repo]",
	Short: "Mine the contributors of a repository",
	Long: `List the contributors of a repository and collect a profile for each.
Accepts either owner/repo or a full https://github.com/owner/repo URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runMineRepo,
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover users to mine",
	Long: `Discover GitHub users by search criteria, popular repositories or
organization membership. Prints the discovered logins, or mines them
directly with --mine.`,
	RunE: runDiscover,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past collection runs",
	RunE:  runListRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one collection run with per-target outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "GitHub API token (default from GITHUB_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "", "output file prefix (default from MINER_OUTPUT_PREFIX)")
	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", 0, "number of concurrent workers (default from MINER_WORKERS)")
	rootCmd.PersistentFlags().BoolVar(&allCommits, "all-commits", false, "walk full commit history instead of the recent window")
	rootCmd.PersistentFlags().BoolVar(&deferSave, "defer-save", false, "buffer feature rows and write once at the end of the run")

	discoverCmd.Flags().StringVar(&discoverMode, "mode", "search", "discovery mode (search, popular, organizations)")
	discoverCmd.Flags().StringVar(&language, "language", "", "filter by primary language")
	discoverCmd.Flags().StringVar(&location, "location", "", "filter by profile location")
	discoverCmd.Flags().StringVar(&company, "company", "", "filter by company")
	discoverCmd.Flags().IntVar(&minFollowers, "min-followers", 0, "minimum follower count")
	discoverCmd.Flags().IntVar(&minRepos, "min-repos", 0, "minimum public repository count")
	discoverCmd.Flags().StringSliceVar(&topics, "topics", nil, "repository topics for popular mode")
	discoverCmd.Flags().StringSliceVar(&orgs, "orgs", nil, "organizations for organizations mode")
	discoverCmd.Flags().IntVar(&maxUsers, "max-users", discovery.DefaultLimit, "maximum number of users to discover")
	discoverCmd.Flags().BoolVar(&mineAfter, "mine", false, "mine the discovered users immediately")

	mineCmd.AddCommand(mineUsersCmd)
	mineCmd.AddCommand(mineRepoCmd)
	runsCmd.AddCommand(runsShowCmd)

	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if tokenFlag != "" {
		cfg.GitHubToken = tokenFlag
	}
	if outputFlag != "" {
		cfg.OutputPrefix = outputFlag
	}
	if workersFlag > 0 {
		cfg.Workers = workersFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// timestampedPrefix keeps each run's output files distinct while still
// allowing re-runs against an explicit prefix to merge.
func timestampedPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102_150405"))
}

func runMineUsers(cmd *cobra.Command, args []string) error {
	targets := make([]domain.Target, 0, len(args))
	for _, login := range args {
		targets = append(targets, domain.NewTarget(login))
	}
	return mineTargets(targets, "users")
}

func runMineRepo(cmd *cobra.Command, args []string) error {
	owner, repo, err := parseRepoArg(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := collector.NewGitHubSource(cfg.GitHubToken)
	ctx := context.Background()

	fmt.Printf("Listing contributors of %s/%s...\n", owner, repo)
	logins, err := source.ListContributors(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("failed to list contributors: %w", err)
	}
	fmt.Printf("Found %d contributors\n", len(logins))

	targets := make([]domain.Target, 0, len(logins))
	for _, login := range logins {
		targets = append(targets, domain.ContributorTarget(login, owner+"/"+repo))
	}
	return mineTargets(targets, "repo")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	disc := discovery.New(cfg.GitHubToken)
	ctx := context.Background()

	var logins []string
	switch discoverMode {
	case "search":
		logins, err = disc.BySearch(ctx, discovery.Criteria{
			Language:     language,
			Location:     location,
			Company:      company,
			MinFollowers: minFollowers,
			MinRepos:     minRepos,
		}, maxUsers)
	case "popular":
		selected := topics
		if len(selected) == 0 {
			selected = discovery.DefaultTopics
		}
		logins, err = disc.ByPopularRepos(ctx, selected, maxUsers)
	case "organizations":
		if len(orgs) == 0 {
			return fmt.Errorf("organizations mode requires --orgs")
		}
		logins, err = disc.ByOrganizations(ctx, orgs, maxUsers)
	default:
		return fmt.Errorf("unknown discovery mode: %s", discoverMode)
	}
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	fmt.Printf("Discovered %d users\n", len(logins))
	if !mineAfter {
		for _, login := range logins {
			fmt.Println(login)
		}
		return nil
	}

	targets := make([]domain.Target, 0, len(logins))
	for _, login := range logins {
		targets = append(targets, domain.NewTarget(login))
	}
	return mineTargets(targets, "discover")
}

// mineTargets runs the pipeline over the targets, persists the run
// report and renders a summary table. A stopped or per-target-failed
// run exits zero; only a run-level failure returns an error.
func mineTargets(targets []domain.Target, mode string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	prefix := timestampedPrefix(cfg.OutputPrefix)
	writer, err := export.NewWriter(prefix, features.Columns)
	if err != nil {
		return fmt.Errorf("failed to open output files: %w", err)
	}

	stop := pipeline.NewStopSignal()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nStop requested, letting in-flight targets finish...")
		stop.Set()
	}()
	defer signal.Stop(sigCh)

	source := collector.NewGitHubSource(cfg.GitHubToken)
	pipe := pipeline.New(source, writer, pipeline.Options{
		Workers:         cfg.Workers,
		AllCommits:      allCommits,
		SaveImmediately: !deferSave,
		Mode:            mode,
		OutputPrefix:    prefix,
		Stop:            stop,
		OnProgress: func(message string, completed, total int) {
			fmt.Printf("[%d/%d] %s\n", completed, total, message)
		},
	})

	fmt.Printf("Mining %d users with %d workers\n", len(targets), cfg.Workers)
	report, runErr := pipe.Run(context.Background(), targets)

	saveReport(cfg, report)
	renderReport(report, writer)

	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// saveReport persists the run to storage, best effort
func saveReport(cfg *config.Config, report *domain.Report) {
	store, err := getStorage(cfg)
	if err != nil {
		fmt.Printf("Warning: failed to open run storage: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.SaveReport(context.Background(), report); err != nil {
		fmt.Printf("Warning: failed to save run report: %v\n", err)
	}
}

func renderReport(report *domain.Report, writer *export.Writer) {
	fmt.Printf("\nRun %s (%s)\n", report.ID, report.Status)
	fmt.Printf("Duration: %s\n\n", report.Duration().Round(time.Millisecond))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Targets", fmt.Sprintf("%d", report.Total)})
	table.Append([]string{"Succeeded", fmt.Sprintf("%d", report.Succeeded)})
	table.Append([]string{"Failed", fmt.Sprintf("%d", report.Failed)})
	table.Append([]string{"Skipped", fmt.Sprintf("%d", report.Skipped)})
	table.Render()

	if failed := report.FailedLogins(); len(failed) > 0 {
		fmt.Printf("\nFailed: %s\n", strings.Join(failed, ", "))
	}
	if skipped := report.SkippedLogins(); len(skipped) > 0 {
		fmt.Printf("Skipped: %s\n", strings.Join(skipped, ", "))
	}

	if writer != nil && writer.Len() > 0 {
		fmt.Printf("\nWrote %d rows to:\n  %s\n  %s\n", writer.Len(), writer.JSONPath(), writer.CSVPath())
	}
}

func runListRuns(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	reports, err := store.ListReports(context.Background(), 20)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Status", "Mode", "Total", "OK", "Failed", "Skipped", "Started"})
	for _, r := range reports {
		table.Append([]string{
			r.ID,
			string(r.Status),
			r.Mode,
			fmt.Sprintf("%d", r.Total),
			fmt.Sprintf("%d", r.Succeeded),
			fmt.Sprintf("%d", r.Failed),
			fmt.Sprintf("%d", r.Skipped),
			r.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	report, err := store.GetReport(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	renderReport(report, nil)

	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Login", "Origin", "Status", "Duration", "Error"})
	for _, o := range report.Outcomes {
		table.Append([]string{
			o.Login,
			o.Origin,
			string(o.Status),
			o.Duration.Round(time.Millisecond).String(),
			o.Error,
		})
	}
	table.Render()
	return nil
}

// parseRepoArg accepts owner/repo or a github.com URL
func parseRepoArg(arg string) (owner, repo string, err error) {
	s := strings.TrimSuffix(arg, ".git")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.Trim(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo or a github.com URL", arg)
	}
	return parts[0], parts[1], nil
}
