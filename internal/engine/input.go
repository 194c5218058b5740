// Package engine computes the four DORA metrics, the GitHub/Jira activity
// metrics, and the composite performance score from a team's collected
// pull requests, releases, and issues over a date range.
package engine

import (
	"time"

	"github.com/teammetrics/pulse/internal/domain"
)

// TeamInput is everything one team's metric computations need: every pull
// request opened in the window, the merged subset resolved to a deployment
// time (or nil if unresolved), production releases, incidents, every
// tracker issue collected, and the window and team size they're scoped to.
type TeamInput struct {
	Range               domain.DateRange
	TeamSize            int
	AllPRs              []domain.PullRequest
	MergedPRs           []ResolvedPR
	Deployments         []domain.Release
	Incidents           []domain.Incident
	IncidentsConfigured bool
	Issues              []domain.Issue
}

// ResolvedPR pairs a merged pull request with the deployment time the
// mapper resolved for it (C8's output), nil if unresolved.
type ResolvedPR struct {
	PR         domain.PullRequest
	DeployedAt *time.Time
}
