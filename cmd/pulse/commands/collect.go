// Package commands implements CLI command handlers for pulse.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/teammetrics/pulse/internal/collect"
	"github.com/teammetrics/pulse/internal/config"
	"github.com/teammetrics/pulse/internal/daterange"
	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/internal/eventbus"
	"github.com/teammetrics/pulse/internal/forge"
	"github.com/teammetrics/pulse/internal/observability"
	"github.com/teammetrics/pulse/internal/repocache"
	"github.com/teammetrics/pulse/internal/scheduler"
	"github.com/teammetrics/pulse/internal/snapshot"
	"github.com/teammetrics/pulse/internal/tracker"
)

// CollectOptions holds the flags for the collect command.
type CollectOptions struct {
	configPath string
	dateRange  string
	env        string
	logFile    string
	verbose    bool
	quiet      bool
}

// NewCollectCommand builds the "collect" command: load config, resolve the
// date range, fan out across teams, score, and persist a snapshot.
func NewCollectCommand() *cobra.Command {
	opts := &CollectOptions{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection across configured teams and write a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollect(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to the config file (default: search ./.pulse.yaml, $HOME/.pulse.yaml)")
	cmd.Flags().StringVar(&opts.dateRange, "date-range", "90d", `date range: "<N>d" (last N days), "YYYY", "Q<1-4>-YYYY", or "YYYY-MM-DD:YYYY-MM-DD"`)
	cmd.Flags().StringVar(&opts.env, "env", defaultEnv(), "target environment name")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose (debug) logging")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "quiet (warnings and errors only) logging")

	return cmd
}

// defaultEnv resolves the --env flag's default from TEAM_METRICS_ENV, so a
// deployment can pin its target environment once in the process environment
// instead of on every invocation; "prod" when unset.
func defaultEnv() string {
	if v := os.Getenv("TEAM_METRICS_ENV"); v != "" {
		return v
	}

	return "prod"
}

func runCollect(cmd *cobra.Command, opts *CollectOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath, opts.env)
	if err != nil {
		return err
	}

	rng, err := daterange.Parse(opts.dateRange, time.Now())
	if err != nil {
		return fmt.Errorf("parse date range: %w", err)
	}

	env := domain.Environment{Name: opts.env}
	if jiraEnv, ok := cfg.Jira.Resolve(opts.env); ok {
		env.TimeOffsetDays = jiraEnv.TimeOffsetDays
	}

	rng = daterange.ApplyOffset(rng, env.TimeOffsetDays)

	logOut := os.Stderr

	if opts.logFile != "" {
		f, openErr := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if openErr != nil {
			return fmt.Errorf("open log file: %w", openErr)
		}
		defer f.Close()

		logOut = f
	}

	tp, err := observability.NewTracerProvider("pulse")
	if err != nil {
		return fmt.Errorf("build tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	logger := observability.NewLogger("pulse", opts.env, "", verbosity(opts), logOut)
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)

	sc, err := forge.NewClient(cfg.GitHub.BaseURL, cfg.GitHub.Token)
	if err != nil {
		return fmt.Errorf("build source-control client: %w", err)
	}

	var it collect.IssueTracker
	if jiraEnv, ok := cfg.Jira.Resolve(opts.env); ok {
		it = tracker.NewClient(jiraEnv.Server, jiraEnv.Username, jiraEnv.APIToken)
	}

	teams := make([]domain.TeamConfig, 0, len(cfg.Teams))
	for _, t := range cfg.Teams {
		teams = append(teams, t.ToDomain())
	}

	cache := repocache.New(repocache.DefaultDir())
	sched := scheduler.New(scheduler.Limits{
		Teams:   cfg.Scheduler.TeamWorkers,
		Repos:   cfg.Scheduler.RepoWorkers,
		Persons: cfg.Scheduler.PersonWorkers,
	})
	bus := eventbus.New()

	if collect.IsInteractive() {
		collect.AttachProgress(bus, newLogProgressSink(logger))
	}

	report, err := collect.Run(ctx, collect.Options{
		Teams:         teams,
		Range:         rng,
		Environment:   env,
		SourceControl: sc,
		IssueTracker:  it,
		RepoCache:     cache,
		Scheduler:     sched,
		Bus:           bus,
		SnapshotStore: snapshot.New(cfg.Snapshot.Dir).WithEnvironment(opts.env),
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.String())

	if report.Degraded() {
		return &domain.DegradedResult{FailedTeams: degradedTeamNames(report)}
	}

	return nil
}

func degradedTeamNames(report collect.Report) []string {
	var names []string

	for _, t := range report.Teams {
		if t.PartialResult {
			names = append(names, t.Team)
		}
	}

	return names
}

func verbosity(opts *CollectOptions) observability.Verbosity {
	switch {
	case opts.verbose:
		return observability.VerbosityVerbose
	case opts.quiet:
		return observability.VerbosityQuiet
	default:
		return observability.VerbosityNormal
	}
}

type logProgressSink struct {
	logger *slog.Logger
}

func newLogProgressSink(logger *slog.Logger) *logProgressSink {
	return &logProgressSink{logger: logger}
}

func (s *logProgressSink) TeamStarted(team string) {
	s.logger.Info("team collection started", "team", team)
}

func (s *logProgressSink) TeamCompleted(team string) {
	s.logger.Info("team collection completed", "team", team)
}

func (s *logProgressSink) SnapshotWritten(runID string) {
	s.logger.Info("snapshot written", "run_id", runID)
}
