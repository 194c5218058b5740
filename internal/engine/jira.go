package engine

import (
	"strings"
	"time"

	"github.com/teammetrics/pulse/internal/domain"
)

// BuildJiraMetrics derives throughput, work-in-progress, bug signal, and
// weekly scope trend from one team's collected issues over its window.
func BuildJiraMetrics(issues []domain.Issue, r domain.DateRange) domain.JiraMetrics {
	var throughput, wip, bugsCreated, bugsResolved int

	for _, issue := range issues {
		if issue.ResolvedAt != nil && r.Contains(*issue.ResolvedAt) {
			throughput++
		}

		if !strings.EqualFold(issue.StatusCategory, "Done") {
			wip++
		}

		if !isBug(issue) {
			continue
		}

		if r.Contains(issue.CreatedAt) {
			bugsCreated++
		}

		if issue.ResolvedAt != nil && r.Contains(*issue.ResolvedAt) {
			bugsResolved++
		}
	}

	return domain.JiraMetrics{
		Throughput:   throughput,
		WIP:          wip,
		BugsCreated:  bugsCreated,
		BugsResolved: bugsResolved,
		ScopeTrend:   scopeTrend(issues, r),
	}
}

func isBug(issue domain.Issue) bool {
	return strings.EqualFold(issue.Type, "Bug")
}

// scopeTrend buckets issues into calendar weeks within r and returns, for
// each week, the sign of created minus resolved: +1 scope growing, -1
// shrinking, 0 flat.
func scopeTrend(issues []domain.Issue, r domain.DateRange) []int {
	weeks := int(r.Weeks()) + 1

	created := make([]int, weeks)
	resolved := make([]int, weeks)

	weekIndex := func(t time.Time) int {
		idx := int(t.Sub(r.Start).Hours() / (24 * 7))

		switch {
		case idx < 0:
			return 0
		case idx >= weeks:
			return weeks - 1
		default:
			return idx
		}
	}

	for _, issue := range issues {
		if r.Contains(issue.CreatedAt) {
			created[weekIndex(issue.CreatedAt)]++
		}

		if issue.ResolvedAt != nil && r.Contains(*issue.ResolvedAt) {
			resolved[weekIndex(*issue.ResolvedAt)]++
		}
	}

	trend := make([]int, weeks)

	for i := range trend {
		switch {
		case created[i] > resolved[i]:
			trend[i] = 1
		case created[i] < resolved[i]:
			trend[i] = -1
		default:
			trend[i] = 0
		}
	}

	return trend
}
