package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teammetrics/pulse/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDeploymentFrequency(t *testing.T) {
	in := TeamInput{
		Range:       domain.DateRange{Start: day(0), End: day(10)},
		Deployments: []domain.Release{{}, {}, {}, {}, {}},
	}

	got := NewDeploymentFrequency().Compute(in)
	assert.InDelta(t, 3.5, got.PerWeek, 1e-9)
	assert.Equal(t, domain.LevelHigh, got.Level)
}

func TestDeploymentFrequency_eliteAtLeastDaily(t *testing.T) {
	in := TeamInput{
		Range:       domain.DateRange{Start: day(0), End: day(7)},
		Deployments: make([]domain.Release, 10),
	}

	got := NewDeploymentFrequency().Compute(in)
	assert.Equal(t, domain.LevelElite, got.Level)
}

func TestLeadTimeForChanges(t *testing.T) {
	mergedAt := day(0)

	in := TeamInput{
		MergedPRs: []ResolvedPR{
			{
				PR:         domain.PullRequest{MergedAt: timePtr(mergedAt)},
				DeployedAt: timePtr(mergedAt.Add(24 * time.Hour)),
			},
			{
				PR:         domain.PullRequest{MergedAt: timePtr(mergedAt)},
				DeployedAt: timePtr(mergedAt.Add(72 * time.Hour)),
			},
		},
	}

	got := NewLeadTimeForChanges().Compute(in)
	assert.False(t, got.Unavailable)
	assert.InDelta(t, 48, got.MedianHours, 1e-9)
	assert.InDelta(t, 69.6, got.P95Hours, 1e-9)
	assert.Equal(t, domain.LevelHigh, got.Level)
}

func TestLeadTimeForChanges_unavailableWithoutMappedDeployments(t *testing.T) {
	in := TeamInput{MergedPRs: []ResolvedPR{{PR: domain.PullRequest{MergedAt: timePtr(day(0))}}}}

	got := NewLeadTimeForChanges().Compute(in)
	assert.True(t, got.Unavailable)
	assert.Equal(t, domain.LevelUnavailable, got.Level)
}

func TestChangeFailureRate(t *testing.T) {
	deployTime := day(5)

	in := TeamInput{
		IncidentsConfigured: true,
		Deployments: []domain.Release{
			{ReleasedAt: timePtr(deployTime)},
			{ReleasedAt: timePtr(day(10))},
		},
		Incidents: []domain.Incident{
			{DetectedAt: deployTime.Add(2 * time.Hour)},
		},
	}

	got := NewChangeFailureRate().Compute(in)
	assert.False(t, got.Unavailable)
	assert.InDelta(t, 0.5, got.Rate, 1e-9)
	assert.Equal(t, domain.LevelLow, got.Level)
}

func TestChangeFailureRate_referencesDeploymentByTag(t *testing.T) {
	in := TeamInput{
		IncidentsConfigured: true,
		Deployments:         []domain.Release{{Name: "v2.3.0", TagName: "v2.3.0", ReleasedAt: timePtr(day(0))}},
		Incidents:           []domain.Incident{{DetectedAt: day(30), References: []string{"v2.3.0"}}},
	}

	got := NewChangeFailureRate().Compute(in)
	assert.InDelta(t, 1.0, got.Rate, 1e-9)
}

func TestChangeFailureRate_unavailableWithoutIncidentsFilter(t *testing.T) {
	in := TeamInput{Deployments: []domain.Release{{ReleasedAt: timePtr(day(0))}}}

	got := NewChangeFailureRate().Compute(in)
	assert.True(t, got.Unavailable)
	assert.Equal(t, domain.LevelUnavailable, got.Level)
}

func TestMTTR(t *testing.T) {
	in := TeamInput{
		Incidents: []domain.Incident{
			{DetectedAt: day(0), ResolvedAt: timePtr(day(0).Add(2 * time.Hour))},
			{DetectedAt: day(0), ResolvedAt: timePtr(day(0).Add(6 * time.Hour))},
		},
	}

	got := NewMTTR().Compute(in)
	assert.False(t, got.Unavailable)
	assert.InDelta(t, 4, got.MedianHours, 1e-9)
	assert.InDelta(t, 5.8, got.P95Hours, 1e-9)
	assert.Equal(t, domain.LevelHigh, got.Level)
}

func TestMTTR_unavailableWithoutIncidents(t *testing.T) {
	got := NewMTTR().Compute(TeamInput{})
	assert.True(t, got.Unavailable)
	assert.Equal(t, domain.LevelUnavailable, got.Level)
}

func TestOverallLevel_dropsUnavailableBeforeCounting(t *testing.T) {
	dora := domain.DORAMetrics{
		DeploymentFrequency: domain.DeploymentFrequencyResult{Level: domain.LevelElite},
		LeadTime:            domain.LeadTimeResult{Level: domain.LevelElite},
		ChangeFailureRate:   domain.ChangeFailureRateResult{Unavailable: true, Level: domain.LevelUnavailable},
		MTTR:                domain.MTTRResult{Level: domain.LevelElite},
	}

	assert.Equal(t, domain.LevelElite, OverallLevel(dora))
}

func TestOverallLevel_twoLowIsLow(t *testing.T) {
	dora := domain.DORAMetrics{
		DeploymentFrequency: domain.DeploymentFrequencyResult{Level: domain.LevelLow},
		LeadTime:            domain.LeadTimeResult{Level: domain.LevelLow},
		ChangeFailureRate:   domain.ChangeFailureRateResult{Level: domain.LevelMedium},
		MTTR:                domain.MTTRResult{Level: domain.LevelMedium},
	}

	assert.Equal(t, domain.LevelLow, OverallLevel(dora))
}

func TestCompositeScore_higherIsAlwaysBetter(t *testing.T) {
	all := []CompositeInputs{
		{
			Key: "fast", TeamSize: 1,
			PRs: 40, Reviews: 40, Commits: 200, JiraCompleted: 30,
			CycleTimeHours: 10, MergeRate: 0.95,
			DeploymentFrequency: 5, LeadTimeHours: 10, ChangeFailureRate: 0.05, MTTRHours: 1,
		},
		{
			Key: "slow", TeamSize: 1,
			PRs: 4, Reviews: 4, Commits: 20, JiraCompleted: 2,
			CycleTimeHours: 300, MergeRate: 0.3,
			DeploymentFrequency: 0.5, LeadTimeHours: 200, ChangeFailureRate: 0.5, MTTRHours: 48,
		},
	}

	scores := CompositeScore(all, nil)
	assert.Greater(t, scores["fast"], scores["slow"])
}

func TestCompositeScore_dividesVolumeInputsByTeamSize(t *testing.T) {
	all := []CompositeInputs{
		{Key: "solo", TeamSize: 1, PRs: 10},
		{Key: "squad", TeamSize: 5, PRs: 10},
	}

	scores := CompositeScore(all, nil)
	assert.Greater(t, scores["solo"], scores["squad"])
}
