package collect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/internal/snapshot"
)

type fakeSourceControl struct {
	prsByRepo      map[string][]domain.PullRequest
	releasesByRepo map[string][]domain.Release
	err            error
}

func (f *fakeSourceControl) CollectPullRequests(_ context.Context, repo string, _ domain.DateRange) ([]domain.PullRequest, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.prsByRepo[repo], nil
}

func (f *fakeSourceControl) CollectReleases(_ context.Context, repo string) ([]domain.Release, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.releasesByRepo[repo], nil
}

type fakeIssueTracker struct {
	issues         []domain.Issue
	err            error
	personDegraded bool
}

func (f *fakeIssueTracker) SearchIssues(_ context.Context, _ string) ([]domain.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.issues, nil
}

func (f *fakeIssueTracker) PersonIssues(_ context.Context, _ string, _ domain.DateRange) ([]domain.Issue, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}

	return f.issues, f.personDegraded, nil
}

func day(n int) time.Time { return time.Date(2025, time.October, n, 12, 0, 0, 0, time.UTC) }

// S1: no source-control records collected at all → no snapshot written,
// Run returns an error naming each team's zero record count.
func TestRun_S1_NoRecordsWritesNoSnapshot(t *testing.T) {
	store := snapshot.New(t.TempDir())

	opts := Options{
		Teams: []domain.TeamConfig{
			{Name: "team-a", Repositories: []string{"acme/a"}},
			{Name: "team-b", Repositories: []string{"acme/b"}},
		},
		Range:         domain.DateRange{Start: day(1), End: day(30)},
		SourceControl: &fakeSourceControl{},
		SnapshotStore: store,
	}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team-a: 0 source-control records")
	assert.Contains(t, err.Error(), "team-b: 0 source-control records")

	_, ok := store.Latest()
	assert.False(t, ok, "no snapshot should have been written")
}

// S2: merged PRs mapped through released, pattern-matching fix versions
// produce deployment_frequency counting only production releases and a
// lead time computed from the mapped merge-to-release gap.
func TestRun_S2_DeploymentFrequencyAndLeadTime(t *testing.T) {
	released := func(d time.Time) *time.Time { return &d }

	prs := []domain.PullRequest{
		{
			Repository: "acme/svc", Number: 1, Merged: true,
			MergedAt:  released(day(1)),
			IssueKeys: map[string]struct{}{"PROJ-1": {}},
			Commits:   []domain.Commit{{SHA: "a", CommittedAt: day(1)}},
		},
		{
			Repository: "acme/svc", Number: 2, Merged: true,
			MergedAt:  released(day(5)),
			IssueKeys: map[string]struct{}{"PROJ-2": {}},
			Commits:   []domain.Commit{{SHA: "b", CommittedAt: day(5)}},
		},
	}

	issues := []domain.Issue{
		{Key: "PROJ-1", FixVersions: []domain.FixVersion{{Name: "Live - 6/Oct/2025", Released: true, ReleasedAt: released(day(6))}}},
		{Key: "PROJ-2", FixVersions: []domain.FixVersion{{Name: "Beta - 7/Oct/2025", Released: true, ReleasedAt: released(day(7))}}},
	}

	releases := []domain.Release{
		{Repository: "acme/svc", Name: "Live - 6/Oct/2025", Released: true, ReleasedAt: released(day(6))},
		{Repository: "acme/svc", Name: "Beta - 7/Oct/2025", Released: true, ReleasedAt: released(day(7))},
		{Repository: "acme/svc", Name: "Live - 20/Oct/2025", Released: true, ReleasedAt: released(day(20))},
	}

	opts := Options{
		Teams: []domain.TeamConfig{
			{Name: "team-a", Repositories: []string{"acme/svc"}, ProjectKeys: []string{"PROJ"}, ReleasePattern: "Live*"},
		},
		Range: domain.DateRange{Start: day(1), End: day(30)},
		SourceControl: &fakeSourceControl{
			prsByRepo:      map[string][]domain.PullRequest{"acme/svc": prs},
			releasesByRepo: map[string][]domain.Release{"acme/svc": releases},
		},
		IssueTracker: &fakeIssueTracker{issues: issues},
		Now:          day(25),
	}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Teams, 1)

	team := report.Teams[0]
	// Only "Live - 6/Oct/2025" and "Live - 20/Oct/2025" match the "Live*"
	// pattern and are released within the range; "Beta - ..." is excluded.
	// 2 deployments over a 29-day (29/7 week) window.
	assert.InDelta(t, 2.0/(29.0/7.0), team.DORA.DeploymentFrequency.PerWeek, 1e-6)
	// PR #1 merges day(1), mapped to "Live - 6/Oct/2025" (day 6) via its
	// fix version: 5 days = 120h. PR #2's fix version ("Beta - ...")
	// doesn't match the team's release pattern, so it falls through to
	// the time-based fallback and picks up the next "Live*" release,
	// also day 6: merged day(5) -> 1 day = 24h. Median of [120, 24] = 72h.
	assert.InDelta(t, 72.0, team.DORA.LeadTime.MedianHours, 1e-6)
}

// S6 analogue: a tracker failure degrades the team's result (diagnostics
// recorded, PartialResult set) without failing the run, since
// source-control records were still collected.
func TestRun_TrackerFailureDegradesNotFails(t *testing.T) {
	prs := []domain.PullRequest{
		{Repository: "acme/svc", Number: 1, Merged: true, MergedAt: func() *time.Time { d := day(1); return &d }()},
	}

	opts := Options{
		Teams: []domain.TeamConfig{
			{Name: "team-a", Repositories: []string{"acme/svc"}, ProjectKeys: []string{"PROJ"}},
		},
		Range: domain.DateRange{Start: day(1), End: day(30)},
		SourceControl: &fakeSourceControl{
			prsByRepo: map[string][]domain.PullRequest{"acme/svc": prs},
		},
		IssueTracker: &fakeIssueTracker{err: assertErr{}},
	}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Teams, 1)
	assert.True(t, report.Teams[0].PartialResult)
	assert.True(t, report.Degraded())
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, "tracker", report.Diagnostics[0].Source)
}

// S6: a per-person issue query that degrades to its 30-day fallback still
// contributes an issue count, flagged rather than dropped or failed.
func TestRun_S6_PersonQueryDegradesGracefully(t *testing.T) {
	resolved := func(d time.Time) *time.Time { return &d }

	prs := []domain.PullRequest{
		{Repository: "acme/svc", Number: 1, Merged: true, MergedAt: resolved(day(1)), AuthorLogin: "ada-gh"},
	}

	opts := Options{
		Teams: []domain.TeamConfig{
			{
				Name:         "team-a",
				Repositories: []string{"acme/svc"},
				Members:      []domain.Member{{Name: "Ada", SCLogin: "ada-gh", TrackerLogin: "ada", Team: "team-a"}},
			},
		},
		Range: domain.DateRange{Start: day(1), End: day(30)},
		SourceControl: &fakeSourceControl{
			prsByRepo: map[string][]domain.PullRequest{"acme/svc": prs},
		},
		IssueTracker: &fakeIssueTracker{
			issues: []domain.Issue{
				{Key: "PROJ-1", ResolvedAt: resolved(day(10))},
				{Key: "PROJ-2"},
			},
			personDegraded: true,
		},
	}

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Teams, 1)
	assert.False(t, report.Teams[0].PartialResult, "a degraded PersonQuery fallback is not a team-level failure")

	ada := report.Teams[0].PersonMetrics["Ada"]
	assert.Equal(t, 1, ada.IssuesResolved)
	assert.True(t, ada.Degraded)
	assert.Equal(t, "fallback:30d", ada.DegradedReason)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated tracker outage" }
