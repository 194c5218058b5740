// Package config loads and validates the YAML configuration that drives a
// collection run: upstream credentials, team rosters, and scoring weights.
package config

import (
	"errors"

	"github.com/teammetrics/pulse/internal/domain"
)

// Config is the top-level configuration struct. Field tags use mapstructure
// for viper unmarshalling.
type Config struct {
	GitHub    GitHubConfig      `mapstructure:"github"`
	Jira      JiraConfig        `mapstructure:"jira"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler"`
	Snapshot  SnapshotConfig    `mapstructure:"snapshot"`
	Teams     []TeamConfigInput `mapstructure:"teams"`
}

// GitHubConfig holds source-control collector settings.
type GitHubConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// JiraConfig holds issue-tracker collector settings: one credential set
// per named environment ("production", "uat", ...), each with its own
// server, basic-auth identity, and query-window offset.
type JiraConfig struct {
	Environments map[string]JiraEnvironment `mapstructure:"environments"`
}

// JiraEnvironment is one entry of jira.environments in the config file.
type JiraEnvironment struct {
	Server         string `mapstructure:"server"`
	Username       string `mapstructure:"username"`
	APIToken       string `mapstructure:"api_token"`
	TimeOffsetDays int    `mapstructure:"time_offset_days"`
}

// Resolve looks up the named Jira environment, falling back to an unset
// (disabled) entry when it is not configured: teams with no project_keys
// never need one, and Validate catches the case where they do.
func (j JiraConfig) Resolve(name string) (JiraEnvironment, bool) {
	env, ok := j.Environments[name]
	return env, ok
}

// SchedulerConfig holds fan-out concurrency knobs.
type SchedulerConfig struct {
	TeamWorkers   int `mapstructure:"team_workers"`
	RepoWorkers   int `mapstructure:"repo_workers"`
	PersonWorkers int `mapstructure:"person_workers"`
}

// SnapshotConfig holds the output directory for the atomic snapshot store.
type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// TeamConfigInput is the raw, unmarshalled form of domain.TeamConfig.
type TeamConfigInput struct {
	Name               string             `mapstructure:"name"`
	Members            []MemberInput      `mapstructure:"members"`
	Repositories       []string           `mapstructure:"repositories"`
	ProjectKeys        []string           `mapstructure:"project_keys"`
	ReleasePattern     string             `mapstructure:"release_pattern"`
	PerformanceWeights PerformanceWeights `mapstructure:"performance_weights"`
	// FilterIDs maps a saved-search role ("wip", "bugs", "completed",
	// "incidents", ...) to the issue-tracker filter ID that implements it.
	FilterIDs map[string]int `mapstructure:"filter_ids"`
}

// MemberInput is the raw, unmarshalled form of domain.Member.
type MemberInput struct {
	Name         string `mapstructure:"name"`
	SCLogin      string `mapstructure:"sc_login"`
	TrackerLogin string `mapstructure:"tracker_login"`
}

// PerformanceWeights mirrors domain.PerformanceWeights for unmarshalling.
// The ten fields are the composite score's normalized inputs; they must sum
// to 1.0 (within 0.01), checked by Validate.
type PerformanceWeights struct {
	PRs                 float64 `mapstructure:"prs"`
	Reviews             float64 `mapstructure:"reviews"`
	Commits             float64 `mapstructure:"commits"`
	CycleTime           float64 `mapstructure:"cycle_time"`
	MergeRate           float64 `mapstructure:"merge_rate"`
	JiraCompleted       float64 `mapstructure:"jira_completed"`
	DeploymentFrequency float64 `mapstructure:"deployment_frequency"`
	LeadTime            float64 `mapstructure:"lead_time"`
	ChangeFailureRate   float64 `mapstructure:"change_failure_rate"`
	MTTR                float64 `mapstructure:"mttr"`
}

// weightSumTolerance is how far a team's performance_weights total may
// drift from 1.0 and still be accepted; YAML float round-tripping rarely
// lands on an exact sum.
const weightSumTolerance = 0.01

// Sentinel errors for configuration validation.
var (
	ErrMissingGitHubToken   = errors.New("github.token is required")
	ErrUnknownJiraEnv       = errors.New("jira.environments has no entry for the active --env")
	ErrInvalidTeamWorkers   = errors.New("scheduler.team_workers must be positive")
	ErrInvalidRepoWorkers   = errors.New("scheduler.repo_workers must be positive")
	ErrInvalidPersonWorkers = errors.New("scheduler.person_workers must be positive")
	ErrMissingSnapshotDir   = errors.New("snapshot.dir is required")
	ErrTeamMissingName      = errors.New("team entry missing name")
	ErrTeamMissingRepos     = errors.New("team has no repositories configured")
	ErrMemberMissingLogins  = errors.New("member has neither sc_login nor tracker_login")
	ErrWeightsDoNotSumToOne = errors.New("performance_weights must sum to 1.0 (±0.01)")
)

// Validate checks Config invariants against the environment a run targets
// and returns the first error found. This is invariant 5 from the
// collector's testable properties: a configuration missing required
// fields must fail fast, before any network call is attempted.
func (c *Config) Validate(env string) error {
	if c.GitHub.Token == "" {
		return domain.NewConfigError("github.token", ErrMissingGitHubToken)
	}

	if c.Scheduler.TeamWorkers <= 0 {
		return domain.NewConfigError("scheduler.team_workers", ErrInvalidTeamWorkers)
	}

	if c.Scheduler.RepoWorkers <= 0 {
		return domain.NewConfigError("scheduler.repo_workers", ErrInvalidRepoWorkers)
	}

	if c.Scheduler.PersonWorkers <= 0 {
		return domain.NewConfigError("scheduler.person_workers", ErrInvalidPersonWorkers)
	}

	if c.Snapshot.Dir == "" {
		return domain.NewConfigError("snapshot.dir", ErrMissingSnapshotDir)
	}

	if len(c.Teams) == 0 {
		return domain.NewConfigError("teams", domain.ErrNoTeamsConfigured)
	}

	needsJira := false

	for _, team := range c.Teams {
		if err := validateTeam(team); err != nil {
			return err
		}

		if len(team.ProjectKeys) > 0 {
			needsJira = true
		}
	}

	if needsJira {
		if _, ok := c.Jira.Resolve(env); !ok {
			return domain.NewConfigError("jira.environments["+env+"]", ErrUnknownJiraEnv)
		}
	}

	return nil
}

func validateTeam(team TeamConfigInput) error {
	if team.Name == "" {
		return domain.NewConfigError("teams[].name", ErrTeamMissingName)
	}

	if len(team.Repositories) == 0 {
		return domain.NewConfigError("teams["+team.Name+"].repositories", ErrTeamMissingRepos)
	}

	for _, member := range team.Members {
		if member.SCLogin == "" && member.TrackerLogin == "" {
			return domain.NewConfigError("teams["+team.Name+"].members", ErrMemberMissingLogins)
		}
	}

	// An all-zero weights block means "use the defaults" (unset); anything
	// else must add up to a real distribution.
	sum := team.PerformanceWeights.sum()
	if sum != 0 {
		if diff := sum - 1.0; diff < -weightSumTolerance || diff > weightSumTolerance {
			return domain.NewConfigError("teams["+team.Name+"].performance_weights", ErrWeightsDoNotSumToOne)
		}
	}

	return nil
}

func (w PerformanceWeights) sum() float64 {
	return w.PRs + w.Reviews + w.Commits + w.CycleTime + w.MergeRate +
		w.JiraCompleted + w.DeploymentFrequency + w.LeadTime +
		w.ChangeFailureRate + w.MTTR
}

// ToDomain converts one parsed team entry into its domain representation.
func (t TeamConfigInput) ToDomain() domain.TeamConfig {
	members := make([]domain.Member, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, domain.Member{
			Name:         m.Name,
			SCLogin:      m.SCLogin,
			TrackerLogin: m.TrackerLogin,
			Team:         t.Name,
		})
	}

	weights := domain.PerformanceWeights{
		PRs:                 t.PerformanceWeights.PRs,
		Reviews:             t.PerformanceWeights.Reviews,
		Commits:             t.PerformanceWeights.Commits,
		CycleTime:           t.PerformanceWeights.CycleTime,
		MergeRate:           t.PerformanceWeights.MergeRate,
		JiraCompleted:       t.PerformanceWeights.JiraCompleted,
		DeploymentFrequency: t.PerformanceWeights.DeploymentFrequency,
		LeadTime:            t.PerformanceWeights.LeadTime,
		ChangeFailureRate:   t.PerformanceWeights.ChangeFailureRate,
		MTTR:                t.PerformanceWeights.MTTR,
	}
	if weights.Sum() == 0 {
		weights = domain.DefaultPerformanceWeights
	}

	return domain.TeamConfig{
		Name:               t.Name,
		Members:            members,
		Repositories:       t.Repositories,
		ProjectKeys:        t.ProjectKeys,
		ReleasePattern:     t.ReleasePattern,
		FilterIDs:          domain.FilterIDs(t.FilterIDs),
		PerformanceWeights: weights,
	}
}
