package engine

import (
	"time"

	"github.com/teammetrics/pulse/internal/domain"
)

// Engine computes one team's DORA metrics from its collected, mapped data.
type Engine struct {
	freq DeploymentFrequency
	lead LeadTimeForChanges
	cfr  ChangeFailureRate
	mttr MTTR
}

// New builds an Engine with the standard four DORA metric implementations.
func New() *Engine {
	return &Engine{
		freq: NewDeploymentFrequency(),
		lead: NewLeadTimeForChanges(),
		cfr:  NewChangeFailureRate(),
		mttr: NewMTTR(),
	}
}

// ComputeDORA runs the four DORA computations for one team and rolls them
// into an overall maturity level.
func (e *Engine) ComputeDORA(in TeamInput) domain.DORAMetrics {
	dora := domain.DORAMetrics{
		DeploymentFrequency: e.freq.Compute(in),
		LeadTime:            e.lead.Compute(in),
		ChangeFailureRate:   e.cfr.Compute(in),
		MTTR:                e.mttr.Compute(in),
	}
	dora.OverallLevel = OverallLevel(dora)

	return dora
}

// Rollup builds the per-person and per-repository breakdowns for a team
// snapshot, attributing unmatched logins to an "unattributed" bucket
// rather than dropping them (person/login reconciliation). Lead time uses
// the same merge-to-deployment basis as the team-level DORA figure.
func Rollup(team domain.TeamConfig, in TeamInput) (map[string]domain.PersonMetrics, map[string]domain.RepoMetrics) {
	persons := make(map[string]domain.PersonMetrics)
	repos := make(map[string]domain.RepoMetrics)

	memberBySCLogin := make(map[string]string, len(team.Members))
	for _, m := range team.Members {
		if m.SCLogin != "" {
			memberBySCLogin[m.SCLogin] = m.Name
		}
	}

	resolveMember := func(login string) string {
		if name, ok := memberBySCLogin[login]; ok {
			return name
		}

		return "unattributed"
	}

	type prID struct {
		repo   string
		number int
	}

	deployedAt := make(map[prID]*time.Time, len(in.MergedPRs))
	for _, resolved := range in.MergedPRs {
		deployedAt[prID{resolved.PR.Repository, resolved.PR.Number}] = resolved.DeployedAt
	}

	for _, pr := range in.AllPRs {
		author := resolveMember(pr.AuthorLogin)
		pm := persons[author]
		pm.Member = author
		pm.PRsOpened++

		if pr.Merged {
			pm.PRsMerged++
			pm.CommitsAuthored += len(pr.Commits)

			if deployed := deployedAt[prID{pr.Repository, pr.Number}]; deployed != nil && pr.MergedAt != nil {
				if leadHours := deployed.Sub(*pr.MergedAt).Hours(); leadHours >= 0 {
					pm.LeadTimeHours = runningAverage(pm.LeadTimeHours, pm.PRsMerged, leadHours)
				}
			}
		}

		persons[author] = pm

		for _, review := range pr.Reviews {
			reviewer := resolveMember(review.AuthorLogin)
			rm := persons[reviewer]
			rm.Member = reviewer
			rm.ReviewsGiven++
			persons[reviewer] = rm
		}

		rep := repos[pr.Repository]
		rep.Repository = pr.Repository

		if pr.Merged {
			rep.PRsMerged++
		}

		repos[pr.Repository] = rep
	}

	for _, deploy := range in.Deployments {
		rep := repos[deploy.Repository]
		rep.Repository = deploy.Repository
		rep.Deployments++
		repos[deploy.Repository] = rep
	}

	return persons, repos
}

func runningAverage(current float64, countAfterIncrement int, next float64) float64 {
	if countAfterIncrement <= 1 {
		return next
	}

	return current + (next-current)/float64(countAfterIncrement)
}
