package engine

import (
	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/pkg/mathutil"
)

// CompositeInputs are the ten raw, pre-normalization inputs to the
// performance score for one team or one person. TeamSize divides the four
// volume inputs (PRs, Reviews, Commits, JiraCompleted) before normalization,
// so a five-person team isn't penalized against a solo contributor purely
// on headcount; pass 1 when scoring a single person against peers.
type CompositeInputs struct {
	Key                 string
	TeamSize            int
	PRs                 float64
	Reviews             float64
	Commits             float64
	CycleTimeHours      float64
	MergeRate           float64
	JiraCompleted       float64
	DeploymentFrequency float64
	LeadTimeHours       float64
	ChangeFailureRate   float64
	MTTRHours           float64
}

// CompositeScore computes each key's performance score: every input is
// min-max normalized across the peer set in all (0.5 when every peer
// ties), cycle time/lead time/change failure rate/MTTR are inverted since
// lower is better for them, and the result is 100 times the configured
// weighted sum of the ten normalized inputs. Works identically whether all
// is a run's teams or one team's members, since the shape is the same.
func CompositeScore(all []CompositeInputs, weights map[string]domain.PerformanceWeights) map[string]float64 {
	prs := normalizeAcross(all, true, func(c CompositeInputs) float64 { return c.PRs })
	reviews := normalizeAcross(all, true, func(c CompositeInputs) float64 { return c.Reviews })
	commits := normalizeAcross(all, true, func(c CompositeInputs) float64 { return c.Commits })
	jiraCompleted := normalizeAcross(all, true, func(c CompositeInputs) float64 { return c.JiraCompleted })
	mergeRate := normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.MergeRate })
	deployFreq := normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.DeploymentFrequency })

	cycleTime := invert(normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.CycleTimeHours }))
	leadTime := invert(normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.LeadTimeHours }))
	cfr := invert(normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.ChangeFailureRate }))
	mttr := invert(normalizeAcross(all, false, func(c CompositeInputs) float64 { return c.MTTRHours }))

	out := make(map[string]float64, len(all))

	for _, in := range all {
		w, ok := weights[in.Key]
		if !ok {
			w = domain.DefaultPerformanceWeights
		}

		out[in.Key] = 100 * (w.PRs*prs[in.Key] +
			w.Reviews*reviews[in.Key] +
			w.Commits*commits[in.Key] +
			w.CycleTime*cycleTime[in.Key] +
			w.MergeRate*mergeRate[in.Key] +
			w.JiraCompleted*jiraCompleted[in.Key] +
			w.DeploymentFrequency*deployFreq[in.Key] +
			w.LeadTime*leadTime[in.Key] +
			w.ChangeFailureRate*cfr[in.Key] +
			w.MTTR*mttr[in.Key])
	}

	return out
}

// normalizeAcross min-max normalizes one input across the peer set, first
// dividing by team size when the input is a volume metric.
func normalizeAcross(all []CompositeInputs, volume bool, get func(CompositeInputs) float64) map[string]float64 {
	values := make(map[string]float64, len(all))

	for _, in := range all {
		v := get(in)

		if volume && in.TeamSize > 0 {
			v /= float64(in.TeamSize)
		}

		values[in.Key] = v
	}

	lo, hi := boundsOf(values)

	out := make(map[string]float64, len(values))
	for k, v := range values {
		out[k] = mathutil.MinMaxNormalize(v, lo, hi)
	}

	return out
}

func invert(normalized map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(normalized))
	for k, v := range normalized {
		out[k] = 1 - v
	}

	return out
}

func boundsOf(values map[string]float64) (lo, hi float64) {
	first := true

	for _, v := range values {
		if first {
			lo, hi = v, v
			first = false

			continue
		}

		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return lo, hi
}
