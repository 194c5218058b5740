// Package collect orchestrates one end-to-end collection run: resolving
// the repository list, fanning out across teams/repos, collecting from
// both upstreams, mapping pull requests to releases, scoring, and
// persisting the result.
package collect

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/internal/engine"
	"github.com/teammetrics/pulse/internal/eventbus"
	"github.com/teammetrics/pulse/internal/mapper"
	"github.com/teammetrics/pulse/internal/repocache"
	"github.com/teammetrics/pulse/internal/scheduler"
	"github.com/teammetrics/pulse/internal/snapshot"
)

// SourceControl is the subset of internal/forge.Client this package needs,
// abstracted so integration tests can substitute fakes for S1–S6 without
// making real HTTP calls.
type SourceControl interface {
	CollectPullRequests(ctx context.Context, repo string, r domain.DateRange) ([]domain.PullRequest, error)
	CollectReleases(ctx context.Context, repo string) ([]domain.Release, error)
}

// IssueTracker is the subset of internal/tracker.Client this package needs.
type IssueTracker interface {
	SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error)
	PersonIssues(ctx context.Context, login string, window domain.DateRange) ([]domain.Issue, bool, error)
}

// Options configures one call to Run.
type Options struct {
	Teams         []domain.TeamConfig
	Range         domain.DateRange
	Environment   domain.Environment
	SourceControl SourceControl
	IssueTracker  IssueTracker
	RepoCache     *repocache.Cache
	Scheduler     *scheduler.Scheduler
	Bus           *eventbus.Bus
	SnapshotStore *snapshot.Store
	Now           time.Time
}

var tracer = otel.Tracer("github.com/teammetrics/pulse/internal/collect")

// Run executes one collection across every configured team and returns a
// Report summarizing the outcome. An error is returned only when the run
// could not produce any usable result (e.g. context cancellation before
// any team finished, or zero source-control records across every team) or
// when the snapshot could not be persisted; individual team failures are
// instead recorded as diagnostics and reflected in the Report/Snapshot as
// partial results, per the collector's partial-result policy.
func Run(ctx context.Context, opts Options) (Report, error) {
	ctx, span := tracer.Start(ctx, "collect.Run")
	defer span.End()

	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(scheduler.DefaultLimits)
	}

	if opts.Bus == nil {
		opts.Bus = eventbus.New()
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	runID := uuid.NewString()

	var (
		mu           sync.Mutex
		teamResults  = make(map[string]domain.TeamSnapshot)
		recordCounts = make(map[string]int)
		diagnostics  []domain.Diagnostic
	)

	err := opts.Scheduler.RunTeams(ctx, teamNames(opts.Teams), func(ctx context.Context, name string) error {
		team := findTeam(opts.Teams, name)

		opts.Bus.Publish(eventbus.Event{Topic: eventbus.TopicTeamStarted, Payload: name})

		result, records, teamDiags := collectTeam(ctx, opts, team)

		mu.Lock()
		teamResults[name] = result
		recordCounts[name] = records
		diagnostics = append(diagnostics, teamDiags...)
		mu.Unlock()

		opts.Bus.Publish(eventbus.Event{Topic: eventbus.TopicTeamCompleted, Payload: name})

		return nil
	})
	if err != nil && len(teamResults) == 0 {
		return Report{}, fmt.Errorf("collection run produced no results: %w", err)
	}

	// A run with zero source-control records across every team is treated
	// as a failed collection, not an empty one: no snapshot is written, so
	// a prior good snapshot is left in place (S1).
	if totalRecords(recordCounts) == 0 {
		return Report{}, fmt.Errorf("collection run produced no source-control records: %s", zeroRecordSummary(opts.Teams, recordCounts))
	}

	snap := buildSnapshot(runID, now, opts, teamResults, diagnostics)

	if opts.SnapshotStore != nil {
		if saveErr := opts.SnapshotStore.Save(snap); saveErr != nil {
			return Report{}, fmt.Errorf("persist snapshot: %w", saveErr)
		}

		opts.Bus.Publish(eventbus.Event{Topic: eventbus.TopicSnapshotWritten, Payload: runID})
	}

	return buildReport(snap), nil
}

func collectTeam(ctx context.Context, opts Options, team domain.TeamConfig) (domain.TeamSnapshot, int, []domain.Diagnostic) {
	ctx, span := tracer.Start(ctx, "collect.team", trace.WithAttributes(attribute.String("team", team.Name)))
	defer span.End()

	repos := resolveRepos(opts, team)

	var (
		allPRs      []domain.PullRequest
		allReleases []domain.Release
		diagnostics []domain.Diagnostic
	)

	for _, repo := range repos {
		prs, err := opts.SourceControl.CollectPullRequests(ctx, repo, opts.Range)
		if err != nil {
			diagnostics = append(diagnostics, diagnostic(team.Name, "forge", err))

			continue
		}

		releases, err := opts.SourceControl.CollectReleases(ctx, repo)
		if err != nil {
			diagnostics = append(diagnostics, diagnostic(team.Name, "forge", err))

			continue
		}

		allPRs = append(allPRs, prs...)
		allReleases = append(allReleases, releases...)
	}

	var issues []domain.Issue

	if opts.IssueTracker != nil && len(team.ProjectKeys) > 0 {
		jql := buildJQL(team.ProjectKeys, opts.Range)

		fetched, err := opts.IssueTracker.SearchIssues(ctx, jql)
		if err != nil {
			diagnostics = append(diagnostics, diagnostic(team.Name, "tracker", err))
		} else {
			issues = fetched
		}
	}

	idx := mapper.NewIndex(allReleases, issues, team.ReleasePattern)

	var resolved []engine.ResolvedPR

	for _, pr := range allPRs {
		if !pr.Merged {
			continue
		}

		resolved = append(resolved, engine.ResolvedPR{PR: pr, DeployedAt: idx.ResolveDeploymentTime(pr)})
	}

	teamSize := len(team.Members)
	if teamSize == 0 {
		teamSize = 1
	}

	_, incidentsConfigured := team.FilterIDs["incidents"]

	in := engine.TeamInput{
		Range:               opts.Range,
		TeamSize:            teamSize,
		AllPRs:              allPRs,
		MergedPRs:           resolved,
		Deployments:         productionReleases(allReleases, team.ReleasePattern, opts.Range),
		Incidents:           extractIncidents(issues),
		IncidentsConfigured: incidentsConfigured,
		Issues:              issues,
	}

	dora := engine.New().ComputeDORA(in)
	gh := engine.BuildGithubMetrics(allPRs)
	jira := engine.BuildJiraMetrics(issues, opts.Range)
	persons, repoMetrics := engine.Rollup(team, in)

	if opts.IssueTracker != nil {
		for _, d := range resolvePersonIssues(ctx, opts, team) {
			pm := persons[d.member]
			pm.Member = d.member
			pm.IssuesResolved = d.resolved
			pm.Degraded = d.degraded
			pm.DegradedReason = d.reason
			persons[d.member] = pm
		}
	}

	scorePersons(persons, dora, team)

	snap := domain.TeamSnapshot{
		Team:          team.Name,
		GitHub:        gh,
		Jira:          jira,
		DORA:          dora,
		Size:          teamSize,
		DateRangeInfo: opts.Range,
		PersonMetrics: persons,
		RepoMetrics:   repoMetrics,
		PartialResult: len(diagnostics) > 0,
	}

	return snap, len(allPRs), diagnostics
}

// scorePersons normalizes each team member's composite score against their
// own teammates: the DORA component is the team's shared figure (DORA is a
// pipeline-level signal, not attributable to one person), while volume,
// cycle time, merge rate, and Jira throughput differentiate among
// teammates by their individual activity.
func scorePersons(persons map[string]domain.PersonMetrics, dora domain.DORAMetrics, team domain.TeamConfig) {
	if len(persons) == 0 {
		return
	}

	inputs := make([]engine.CompositeInputs, 0, len(persons))
	weights := make(map[string]domain.PerformanceWeights, len(persons))

	for name, pm := range persons {
		var mergeRate float64
		if pm.PRsOpened > 0 {
			mergeRate = float64(pm.PRsMerged) / float64(pm.PRsOpened)
		}

		inputs = append(inputs, engine.CompositeInputs{
			Key:                 name,
			TeamSize:            1,
			PRs:                 float64(pm.PRsOpened),
			Reviews:             float64(pm.ReviewsGiven),
			Commits:             float64(pm.CommitsAuthored),
			CycleTimeHours:      pm.LeadTimeHours,
			MergeRate:           mergeRate,
			JiraCompleted:       float64(pm.IssuesResolved),
			DeploymentFrequency: dora.DeploymentFrequency.PerWeek,
			LeadTimeHours:       dora.LeadTime.MedianHours,
			ChangeFailureRate:   dora.ChangeFailureRate.Rate,
			MTTRHours:           dora.MTTR.MedianHours,
		})

		weights[name] = team.PerformanceWeights
	}

	scores := engine.CompositeScore(inputs, weights)

	for name, score := range scores {
		pm := persons[name]
		pm.PerformanceScore = score
		persons[name] = pm
	}
}

type personIssueCount struct {
	member   string
	resolved int
	degraded bool
	reason   string
}

// resolvePersonIssues runs one PersonQuery (C5.PersonQuery) per team member
// with a tracker login, counting resolved issues within the run's window.
// A member whose query degrades to the 30-day fallback (S6) still
// contributes a count, flagged so the snapshot can surface it.
func resolvePersonIssues(ctx context.Context, opts Options, team domain.TeamConfig) []personIssueCount {
	var out []personIssueCount

	for _, member := range team.Members {
		if member.TrackerLogin == "" {
			continue
		}

		issues, degraded, err := opts.IssueTracker.PersonIssues(ctx, member.TrackerLogin, opts.Range)
		if err != nil {
			continue
		}

		resolved := 0

		for _, issue := range issues {
			if issue.ResolvedAt != nil {
				resolved++
			}
		}

		count := personIssueCount{member: member.Name, resolved: resolved}

		if degraded {
			count.degraded = true
			count.reason = "fallback:30d"
		}

		out = append(out, count)
	}

	return out
}

func resolveRepos(opts Options, team domain.TeamConfig) []string {
	if opts.RepoCache == nil {
		return team.Repositories
	}

	if cached, ok := opts.RepoCache.Get(team.Name); ok {
		return cached
	}

	_ = opts.RepoCache.Put(team.Name, team.Repositories)

	return team.Repositories
}

func productionReleases(releases []domain.Release, pattern string, window domain.DateRange) []domain.Release {
	var out []domain.Release

	for _, r := range releases {
		if !r.Released || r.ReleasedAt == nil || !window.Contains(*r.ReleasedAt) {
			continue
		}

		matches := mapper.MatchesReleasePattern(pattern, r.Name) || mapper.MatchesReleasePattern(pattern, r.TagName)

		if !r.ReleasedAt.After(time.Now().UTC()) && matches {
			out = append(out, r)
		}
	}

	return out
}

func totalRecords(recordCounts map[string]int) int {
	total := 0
	for _, n := range recordCounts {
		total += n
	}

	return total
}

func zeroRecordSummary(teams []domain.TeamConfig, recordCounts map[string]int) string {
	var b strings.Builder

	for i, t := range teams {
		if i > 0 {
			b.WriteString(", ")
		}

		fmt.Fprintf(&b, "%s: %d source-control records", t.Name, recordCounts[t.Name])
	}

	return b.String()
}

func teamNames(teams []domain.TeamConfig) []string {
	names := make([]string, 0, len(teams))
	for _, t := range teams {
		names = append(names, t.Name)
	}

	return names
}

func findTeam(teams []domain.TeamConfig, name string) domain.TeamConfig {
	for _, t := range teams {
		if t.Name == name {
			return t
		}
	}

	return domain.TeamConfig{Name: name}
}

func diagnostic(team, source string, err error) domain.Diagnostic {
	return domain.Diagnostic{
		Team:      team,
		Source:    source,
		Message:   err.Error(),
		Severity:  "error",
		Timestamp: time.Now().UTC(),
	}
}

func extractIncidents(issues []domain.Issue) []domain.Incident {
	var out []domain.Incident

	for _, issue := range issues {
		if !issue.IsIncident {
			continue
		}

		out = append(out, domain.Incident{
			IssueKey:   issue.Key,
			DetectedAt: issue.CreatedAt,
			ResolvedAt: issue.ResolvedAt,
			References: issue.IncidentRefs,
		})
	}

	return out
}

func buildJQL(projectKeys []string, r domain.DateRange) string {
	jql := "project in ("
	for i, key := range projectKeys {
		if i > 0 {
			jql += ", "
		}

		jql += key
	}

	jql += fmt.Sprintf(") AND created >= \"%s\" AND created < \"%s\"", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))

	return jql
}

func buildSnapshot(runID string, now time.Time, opts Options, teamResults map[string]domain.TeamSnapshot, diagnostics []domain.Diagnostic) domain.Snapshot {
	inputs := make([]engine.CompositeInputs, 0, len(teamResults))
	weights := make(map[string]domain.PerformanceWeights, len(opts.Teams))

	for _, t := range opts.Teams {
		weights[t.Name] = t.PerformanceWeights
	}

	for name, result := range teamResults {
		size := result.Size
		if size == 0 {
			size = 1
		}

		inputs = append(inputs, engine.CompositeInputs{
			Key:                 name,
			TeamSize:            size,
			PRs:                 float64(result.GitHub.PRCount),
			Reviews:             float64(result.GitHub.ReviewCount),
			Commits:             float64(result.GitHub.CommitCount),
			CycleTimeHours:      result.GitHub.CycleTimeMedianHours,
			MergeRate:           result.GitHub.MergeRate,
			JiraCompleted:       float64(result.Jira.Throughput),
			DeploymentFrequency: result.DORA.DeploymentFrequency.PerWeek,
			LeadTimeHours:       result.DORA.LeadTime.MedianHours,
			ChangeFailureRate:   result.DORA.ChangeFailureRate.Rate,
			MTTRHours:           result.DORA.MTTR.MedianHours,
		})
	}

	composites := engine.CompositeScore(inputs, weights)

	teams := make([]domain.TeamSnapshot, 0, len(teamResults))

	for name, result := range teamResults {
		result.PerformanceScore = composites[name]
		teams = append(teams, result)
	}

	return domain.Snapshot{
		RunID:       runID,
		GeneratedAt: now,
		Range:       opts.Range,
		Environment: opts.Environment,
		Teams:       teams,
		Diagnostics: diagnostics,
	}
}
