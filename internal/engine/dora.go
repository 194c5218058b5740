package engine

import (
	"strings"
	"time"

	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/pkg/mathutil"
	"github.com/teammetrics/pulse/pkg/metrics"
)

// changeFailureWindow is the fixed correlation window between a deployment
// and a following incident for it to count as a deployment-caused failure,
// used only when the incident's labels don't directly reference the
// deployment by name.
const changeFailureWindow = 24 * time.Hour

// DeploymentFrequency is production deployments per week across the
// collection window, classified against the DORA thresholds.
type DeploymentFrequency struct {
	metrics.MetricMeta
}

// NewDeploymentFrequency constructs the metric with its display metadata.
func NewDeploymentFrequency() DeploymentFrequency {
	return DeploymentFrequency{MetricMeta: metrics.MetricMeta{
		MetricName:        "deployment_frequency",
		MetricDisplayName: "Deployment Frequency",
		MetricDescription: "Production deployments per week over the collection window.",
		MetricType:        "aggregate",
	}}
}

// Compute implements metrics.Metric[TeamInput, domain.DeploymentFrequencyResult].
func (DeploymentFrequency) Compute(in TeamInput) domain.DeploymentFrequencyResult {
	total := len(in.Deployments)

	weeks := in.Range.Weeks()

	var perWeek float64
	if weeks > 0 {
		perWeek = float64(total) / weeks
	}

	return domain.DeploymentFrequencyResult{
		TotalDeployments: total,
		PerWeek:          perWeek,
		Level:            classifyDeploymentFrequency(perWeek),
	}
}

// classifyDeploymentFrequency applies the DORA 2024 thresholds: Elite is at
// least daily (7/week), High at least weekly, Medium at least monthly, and
// Low anything slower.
func classifyDeploymentFrequency(perWeek float64) domain.Level {
	switch {
	case perWeek >= 7:
		return domain.LevelElite
	case perWeek >= 1:
		return domain.LevelHigh
	case perWeek >= 7.0/30.0:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// LeadTimeForChanges is the time from a pull request's merge to the
// production deployment that shipped it.
type LeadTimeForChanges struct {
	metrics.MetricMeta
}

// NewLeadTimeForChanges constructs the metric with its display metadata.
func NewLeadTimeForChanges() LeadTimeForChanges {
	return LeadTimeForChanges{MetricMeta: metrics.MetricMeta{
		MetricName:        "lead_time_for_changes",
		MetricDisplayName: "Lead Time for Changes",
		MetricDescription: "Median and p95 hours from a pull request's merge to its production deployment.",
		MetricType:        "aggregate",
	}}
}

// Compute implements metrics.Metric[TeamInput, domain.LeadTimeResult]. A
// pull request contributes only once it is both merged and mapped to a
// deployment; a team with no such mapping in the window reports
// Unavailable rather than a misleading zero.
func (LeadTimeForChanges) Compute(in TeamInput) domain.LeadTimeResult {
	var samples []float64

	for _, resolved := range in.MergedPRs {
		if resolved.DeployedAt == nil || resolved.PR.MergedAt == nil {
			continue
		}

		hours := resolved.DeployedAt.Sub(*resolved.PR.MergedAt).Hours()
		if hours < 0 {
			continue
		}

		samples = append(samples, hours)
	}

	if len(samples) == 0 {
		return domain.LeadTimeResult{Unavailable: true, Level: domain.LevelUnavailable}
	}

	median := mathutil.Median(samples)

	return domain.LeadTimeResult{
		MedianHours: median,
		P95Hours:    mathutil.Percentile(samples, 95),
		Level:       classifyLeadTime(median),
	}
}

func classifyLeadTime(hours float64) domain.Level {
	switch {
	case hours < 24:
		return domain.LevelElite
	case hours < 168:
		return domain.LevelHigh
	case hours < 720:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// ChangeFailureRate is the fraction of production deployments that caused
// an incident, either by direct tag reference in the incident's labels or by
// a following incident within changeFailureWindow.
type ChangeFailureRate struct {
	metrics.MetricMeta
}

// NewChangeFailureRate constructs the metric with its display metadata.
func NewChangeFailureRate() ChangeFailureRate {
	return ChangeFailureRate{MetricMeta: metrics.MetricMeta{
		MetricName:        "change_failure_rate",
		MetricDisplayName: "Change Failure Rate",
		MetricDescription: "Fraction of production deployments that caused an incident.",
		MetricType:        "aggregate",
	}}
}

// Compute implements metrics.Metric[TeamInput, domain.ChangeFailureRateResult].
// A team with no incidents filter configured reports Unavailable: a zero
// failure rate would otherwise be indistinguishable from "we never looked".
func (ChangeFailureRate) Compute(in TeamInput) domain.ChangeFailureRateResult {
	if !in.IncidentsConfigured {
		return domain.ChangeFailureRateResult{Unavailable: true, Level: domain.LevelUnavailable}
	}

	if len(in.Deployments) == 0 {
		return domain.ChangeFailureRateResult{Rate: 0, Level: classifyChangeFailureRate(0)}
	}

	failed := 0

	for _, deploy := range in.Deployments {
		if referencesDeployment(deploy, in.Incidents) {
			failed++

			continue
		}

		if deploy.ReleasedAt == nil {
			continue
		}

		if hasIncidentWithin(*deploy.ReleasedAt, in.Incidents, changeFailureWindow) {
			failed++
		}
	}

	rate := float64(failed) / float64(len(in.Deployments))

	return domain.ChangeFailureRateResult{Rate: rate, Level: classifyChangeFailureRate(rate)}
}

// referencesDeployment reports whether any incident's labels (captured in
// Incident.References at collection time) name this deployment's release
// or tag directly.
func referencesDeployment(deploy domain.Release, incidents []domain.Incident) bool {
	for _, inc := range incidents {
		for _, ref := range inc.References {
			if strings.EqualFold(ref, deploy.Name) || (deploy.TagName != "" && strings.EqualFold(ref, deploy.TagName)) {
				return true
			}
		}
	}

	return false
}

func hasIncidentWithin(deployTime time.Time, incidents []domain.Incident, window time.Duration) bool {
	for _, inc := range incidents {
		if inc.DetectedAt.After(deployTime) && !inc.DetectedAt.After(deployTime.Add(window)) {
			return true
		}
	}

	return false
}

func classifyChangeFailureRate(rate float64) domain.Level {
	switch {
	case rate < 0.15:
		return domain.LevelElite
	case rate < 0.20:
		return domain.LevelHigh
	case rate < 0.30:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// MTTR is the time from an incident's detection to its resolution.
type MTTR struct {
	metrics.MetricMeta
}

// NewMTTR constructs the metric with its display metadata.
func NewMTTR() MTTR {
	return MTTR{MetricMeta: metrics.MetricMeta{
		MetricName:        "mttr",
		MetricDisplayName: "Mean Time to Recovery",
		MetricDescription: "Median and p95 hours from incident detection to resolution.",
		MetricType:        "aggregate",
	}}
}

// Compute implements metrics.Metric[TeamInput, domain.MTTRResult]. A team
// with no incidents in the window reports Unavailable, not zero.
func (MTTR) Compute(in TeamInput) domain.MTTRResult {
	if len(in.Incidents) == 0 {
		return domain.MTTRResult{Unavailable: true, Level: domain.LevelUnavailable}
	}

	var samples []float64

	for _, inc := range in.Incidents {
		if inc.ResolvedAt == nil {
			continue
		}

		hours := inc.ResolvedAt.Sub(inc.DetectedAt).Hours()
		if hours < 0 {
			continue
		}

		samples = append(samples, hours)
	}

	if len(samples) == 0 {
		return domain.MTTRResult{Unavailable: true, Level: domain.LevelUnavailable}
	}

	median := mathutil.Median(samples)

	return domain.MTTRResult{
		MedianHours: median,
		P95Hours:    mathutil.Percentile(samples, 95),
		Level:       classifyMTTR(median),
	}
}

func classifyMTTR(hours float64) domain.Level {
	switch {
	case hours < 1:
		return domain.LevelElite
	case hours < 24:
		return domain.LevelHigh
	case hours < 168:
		return domain.LevelMedium
	default:
		return domain.LevelLow
	}
}

// OverallLevel rolls the four DORA indicators into one maturity tier.
// Metrics marked Unavailable are dropped before counting, so a team
// missing an incidents filter is judged on the three it does have rather
// than being dragged toward Medium by a metric it never configured.
func OverallLevel(d domain.DORAMetrics) domain.Level {
	var levels []domain.Level

	for _, lvl := range []domain.Level{d.DeploymentFrequency.Level, d.LeadTime.Level, d.ChangeFailureRate.Level, d.MTTR.Level} {
		if lvl == domain.LevelUnavailable || lvl == "" {
			continue
		}

		levels = append(levels, lvl)
	}

	count := func(target domain.Level) int {
		n := 0

		for _, l := range levels {
			if l == target {
				n++
			}
		}

		return n
	}

	elite, high, low := count(domain.LevelElite), count(domain.LevelHigh), count(domain.LevelLow)

	switch {
	case elite >= 3:
		return domain.LevelElite
	case elite >= 2 || elite+high >= 3:
		return domain.LevelHigh
	case low >= 2:
		return domain.LevelLow
	default:
		return domain.LevelMedium
	}
}
