// Package domain holds the shared entity types collected, mapped, and
// scored by the rest of the pipeline.
package domain

import "time"

// DateRange is an inclusive start, exclusive end window in UTC, plus the
// canonical label it was parsed from ("<N>d", "YYYY", "Q<1-4>-YYYY", or
// "YYYY-MM-DD:YYYY-MM-DD") and the number of calendar days it spans. Label
// is part of a snapshot's identity: two runs over the same range produce
// the same label regardless of how the flag was cased or spaced.
type DateRange struct {
	Start time.Time
	End   time.Time
	Label string
	Days  int
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	u := t.UTC()

	return !u.Before(r.Start) && u.Before(r.End)
}

// Duration returns the length of the range.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Weeks returns the range's length in (fractional) weeks, the denominator
// deployment frequency is measured against.
func (r DateRange) Weeks() float64 {
	return r.Duration().Hours() / (24 * 7)
}

// Member is a person tracked across both upstream systems.
type Member struct {
	Name         string
	SCLogin      string // source-control login, e.g. a GitHub username
	TrackerLogin string // issue-tracker login, e.g. a Jira account ID
	Team         string
}

// FilterIDs maps a named saved-search role to the issue-tracker filter ID
// that implements it for one team. The collector reads only the
// "incidents" role, and only for its presence: it decides whether change
// failure rate is reported or Unavailable. No saved-search query is run
// for any role; WIP, throughput and bug counts come from the team's
// project-key issue search.
type FilterIDs map[string]int

// TeamConfig describes one team's roster and the repositories/projects it owns.
type TeamConfig struct {
	Name               string
	Members            []Member
	Repositories       []string // "owner/repo" slugs
	ProjectKeys        []string // issue-tracker project keys
	ReleasePattern     string   // glob/regex matched against release names
	PerformanceWeights PerformanceWeights
	FilterIDs          FilterIDs
}

// PerformanceWeights controls how the ten composite-score inputs combine
// into one performance score per the collector's scoring model. Weights
// must sum to 1.0 (within 0.01); config.Validate enforces this before any
// network call, so a misconfigured team fails fast rather than producing a
// silently skewed score.
type PerformanceWeights struct {
	PRs                 float64
	Reviews             float64
	Commits             float64
	CycleTime           float64
	MergeRate           float64
	JiraCompleted       float64
	DeploymentFrequency float64
	LeadTime            float64
	ChangeFailureRate   float64
	MTTR                float64
}

// Sum returns the total of all ten weights, used by config validation to
// check the 1.0 (±0.01) invariant.
func (w PerformanceWeights) Sum() float64 {
	return w.PRs + w.Reviews + w.Commits + w.CycleTime + w.MergeRate +
		w.JiraCompleted + w.DeploymentFrequency + w.LeadTime +
		w.ChangeFailureRate + w.MTTR
}

// DefaultPerformanceWeights applies when a team declares no explicit
// performance_weights: all ten composite-score inputs contribute equally.
var DefaultPerformanceWeights = PerformanceWeights{
	PRs: 0.1, Reviews: 0.1, Commits: 0.1, CycleTime: 0.1, MergeRate: 0.1,
	JiraCompleted: 0.1, DeploymentFrequency: 0.1, LeadTime: 0.1,
	ChangeFailureRate: 0.1, MTTR: 0.1,
}

// Environment identifies a single run's target deployment environment
// (e.g. "production", "uat").
// TimeOffsetDays shifts the effective collection window by that many days
// on both ends, so a UAT environment that lags production by six months
// can still be compared on a matching window of real calendar activity.
type Environment struct {
	Name           string
	TimeOffsetDays int
}

// PullRequest is a source-control merge request, enriched with the issue
// keys parsed out of its title/body/branch name.
type PullRequest struct {
	Repository  string
	Number      int
	Title       string
	AuthorLogin string
	CreatedAt   time.Time
	MergedAt    *time.Time
	ClosedAt    *time.Time
	Merged      bool
	BaseBranch  string
	HeadBranch  string
	Additions   int
	Deletions   int
	IssueKeys   map[string]struct{}
	Reviews     []Review
	Commits     []Commit
}

// Review is a single review event on a pull request.
type Review struct {
	AuthorLogin string
	State       string // "APPROVED", "CHANGES_REQUESTED", "COMMENTED", ...
	SubmittedAt time.Time
}

// Commit is a single commit attached to a pull request.
type Commit struct {
	SHA         string
	AuthorLogin string
	CommittedAt time.Time
}

// Release is a tagged release/deployment on a repository.
type Release struct {
	Repository   string
	Name         string
	TagName      string
	Released     bool
	CreatedAt    time.Time
	ReleasedAt   *time.Time
	IsProduction bool
}

// Issue is an issue-tracker ticket.
type Issue struct {
	Key         string
	ProjectKey  string
	Type        string // "Bug", "Story", "Task", "Incident", ...
	Status      string
	StatusCategory string // "To Do", "In Progress", "Done"
	AssigneeKey string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	FixVersions []FixVersion
	IsIncident  bool
	// IncidentRefs lists release/tag names this issue's labels reference
	// (summary and description are not read), used to tie an incident to
	// the deployment it was caused by without relying on timing alone.
	IncidentRefs []string
}

// FixVersion is an issue-tracker release/version attached to an issue.
type FixVersion struct {
	Name       string
	ReleasedAt *time.Time
	Released   bool
}

// Incident is an issue flagged as a production incident, used for change
// failure rate and MTTR.
type Incident struct {
	IssueKey     string
	DetectedAt   time.Time
	ResolvedAt   *time.Time
	References   []string // release/tag names this incident's labels point to
}

// Level is a DORA classification tier, ordered worst to best: Low, Medium,
// High, Elite. LevelUnavailable marks a metric with no denominator (e.g. no
// incidents filter configured, or no PR ever mapped to a deployment); it
// counts toward neither side of the overall-level rollup.
type Level string

// Classification tiers used by every DORA indicator.
const (
	LevelElite       Level = "elite"
	LevelHigh        Level = "high"
	LevelMedium      Level = "medium"
	LevelLow         Level = "low"
	LevelUnavailable Level = "unavailable"
)

// DeploymentFrequencyResult is production deployments per week, classified
// against the DORA thresholds.
type DeploymentFrequencyResult struct {
	TotalDeployments int
	PerWeek          float64
	Level            Level
}

// LeadTimeResult is the time from a pull request's merge to the production
// deployment that shipped it, in hours. Unavailable (distinct from zero)
// when no merged PR in the window ever mapped to a deployment.
type LeadTimeResult struct {
	MedianHours float64
	P95Hours    float64
	Level       Level
	Unavailable bool
}

// ChangeFailureRateResult is the fraction of production deployments that
// caused an incident, by direct tag reference or by a following incident
// inside the correlation window. Unavailable when the team has no
// incidents filter configured.
type ChangeFailureRateResult struct {
	Rate        float64
	Level       Level
	Unavailable bool
}

// MTTRResult is the time from incident detection to resolution, in hours.
// Unavailable (distinct from zero) when the team has no incidents in the
// window.
type MTTRResult struct {
	MedianHours float64
	P95Hours    float64
	Level       Level
	Unavailable bool
}

// DORAMetrics is the four DORA indicators for one team or person, plus the
// overall maturity level rolled up across whichever of them are available.
type DORAMetrics struct {
	DeploymentFrequency DeploymentFrequencyResult
	LeadTime            LeadTimeResult
	ChangeFailureRate   ChangeFailureRateResult
	MTTR                MTTRResult
	OverallLevel        Level
}

// SizeDistribution buckets merged pull requests by lines changed
// (additions+deletions): XS<10, S 10-99, M 100-499, L 500-999, XL>=1000.
type SizeDistribution struct {
	XS int
	S  int
	M  int
	L  int
	XL int
}

// AuthorStat is one contributor's commit activity within a window.
type AuthorStat struct {
	Commits   int
	Additions int
	Deletions int
}

// GithubMetrics is one team or person's pull-request, review, and commit
// activity within a window.
type GithubMetrics struct {
	PRCount                int
	MergedCount            int
	MergeRate              float64
	CycleTimeMedianHours   float64
	CycleTimeAvgHours      float64
	SizeDistribution       SizeDistribution
	TimeToFirstReviewHours float64
	ReviewCount            int
	UniqueReviewers        int
	AvgReviewsPerPR        float64
	ReviewLeaderboard      map[string]int
	CommitCount            int
	UniqueAuthors          int
	AuthorStats            map[string]AuthorStat
	DailyCommitHistogram   map[string]int
}

// JiraMetrics is one team's issue-tracker throughput, work-in-progress, and
// bug signal within a window. ScopeTrend holds one sign per week in the
// window (-1 shrinking, 0 flat, +1 growing), comparing issues created to
// issues resolved that week.
type JiraMetrics struct {
	Throughput   int
	WIP          int
	BugsCreated  int
	BugsResolved int
	ScopeTrend   []int
}

// Snapshot is the durable, point-in-time output of one collection run.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time
	Range       DateRange
	Environment Environment
	Teams       []TeamSnapshot
	Diagnostics []Diagnostic
}

// TeamSnapshot is one team's computed results for a run: source-control and
// issue-tracker activity, DORA metrics, a composite performance score, the
// team's size, and the date range the run covered.
type TeamSnapshot struct {
	Team             string
	GitHub           GithubMetrics
	Jira             JiraMetrics
	DORA             DORAMetrics
	PerformanceScore float64
	Size             int
	DateRangeInfo    DateRange
	PersonMetrics    map[string]PersonMetrics
	RepoMetrics      map[string]RepoMetrics
	PartialResult    bool
}

// PersonMetrics is per-contributor rollup within a team snapshot.
type PersonMetrics struct {
	Member          string
	PRsOpened       int
	PRsMerged       int
	ReviewsGiven    int
	CommitsAuthored int
	IssuesResolved  int
	LeadTimeHours   float64
	// PerformanceScore is this person's composite score, normalized against
	// their teammates the same way a team is normalized against its peers.
	PerformanceScore float64
	// Degraded is set when this person's issue count came from a
	// PersonQuery fallback (a shrunk window after repeated gateway
	// timeouts) rather than the full requested range.
	Degraded       bool
	DegradedReason string
}

// RepoMetrics is per-repository rollup within a team snapshot.
type RepoMetrics struct {
	Repository  string
	Deployments int
	PRsMerged   int
	Incidents   int
}

// Diagnostic records a non-fatal problem encountered during collection,
// threaded through to the snapshot so a degraded run is still explainable.
type Diagnostic struct {
	Team      string
	Source    string // "forge", "tracker", "mapper", "engine"
	Message   string
	Severity  string // "warn", "error"
	Timestamp time.Time
}
