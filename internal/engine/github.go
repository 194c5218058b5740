package engine

import (
	"sort"

	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/pkg/mathutil"
)

// BuildGithubMetrics rolls up pull-request, review, and commit activity for
// one slice of pull requests: a team's whole window, or one person's
// authored-and-reviewed subset of it.
func BuildGithubMetrics(prs []domain.PullRequest) domain.GithubMetrics {
	gh := prVolumeMetrics(prs)

	count, uniqueReviewers, avgPerPR, leaderboard := reviewMetrics(prs)
	gh.ReviewCount = count
	gh.UniqueReviewers = uniqueReviewers
	gh.AvgReviewsPerPR = avgPerPR
	gh.ReviewLeaderboard = leaderboard

	commitCount, uniqueAuthors, authorStats, daily := contributorMetrics(prs)
	gh.CommitCount = commitCount
	gh.UniqueAuthors = uniqueAuthors
	gh.AuthorStats = authorStats
	gh.DailyCommitHistogram = daily

	return gh
}

func prVolumeMetrics(prs []domain.PullRequest) domain.GithubMetrics {
	var (
		merged     int
		cycleTimes []float64
		ttfr       []float64
	)

	dist := domain.SizeDistribution{}

	for _, pr := range prs {
		if pr.Merged && pr.MergedAt != nil {
			merged++

			if hours := pr.MergedAt.Sub(pr.CreatedAt).Hours(); hours >= 0 {
				cycleTimes = append(cycleTimes, hours)
			}

			bucketSize(&dist, pr.Additions+pr.Deletions)
		}

		if hours, ok := firstReviewDelay(pr); ok {
			ttfr = append(ttfr, hours)
		}
	}

	var mergeRate float64
	if len(prs) > 0 {
		mergeRate = float64(merged) / float64(len(prs))
	}

	return domain.GithubMetrics{
		PRCount:                len(prs),
		MergedCount:            merged,
		MergeRate:              mergeRate,
		CycleTimeMedianHours:   mathutil.Median(cycleTimes),
		CycleTimeAvgHours:      average(cycleTimes),
		SizeDistribution:       dist,
		TimeToFirstReviewHours: average(ttfr),
	}
}

// bucketSize assigns one merged pull request to a size bucket by total
// lines changed: XS<10, S<100, M<500, L<1000, XL>=1000.
func bucketSize(dist *domain.SizeDistribution, changed int) {
	switch {
	case changed < 10:
		dist.XS++
	case changed < 100:
		dist.S++
	case changed < 500:
		dist.M++
	case changed < 1000:
		dist.L++
	default:
		dist.XL++
	}
}

func firstReviewDelay(pr domain.PullRequest) (float64, bool) {
	if len(pr.Reviews) == 0 {
		return 0, false
	}

	reviews := append([]domain.Review(nil), pr.Reviews...)
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].SubmittedAt.Before(reviews[j].SubmittedAt) })

	hours := reviews[0].SubmittedAt.Sub(pr.CreatedAt).Hours()
	if hours < 0 {
		return 0, false
	}

	return hours, true
}

func reviewMetrics(prs []domain.PullRequest) (count, uniqueReviewers int, avgPerPR float64, leaderboard map[string]int) {
	leaderboard = make(map[string]int)

	for _, pr := range prs {
		for _, r := range pr.Reviews {
			count++
			leaderboard[r.AuthorLogin]++
		}
	}

	uniqueReviewers = len(leaderboard)

	if len(prs) > 0 {
		avgPerPR = float64(count) / float64(len(prs))
	}

	return count, uniqueReviewers, avgPerPR, leaderboard
}

func contributorMetrics(prs []domain.PullRequest) (commitCount, uniqueAuthors int, authorStats map[string]domain.AuthorStat, daily map[string]int) {
	authorStats = make(map[string]domain.AuthorStat)
	daily = make(map[string]int)

	for _, pr := range prs {
		for _, c := range pr.Commits {
			commitCount++

			stat := authorStats[c.AuthorLogin]
			stat.Commits++
			authorStats[c.AuthorLogin] = stat

			daily[c.CommittedAt.Format("2006-01-02")]++
		}

		if pr.Merged {
			stat := authorStats[pr.AuthorLogin]
			stat.Additions += pr.Additions
			stat.Deletions += pr.Deletions
			authorStats[pr.AuthorLogin] = stat
		}
	}

	uniqueAuthors = len(authorStats)

	return commitCount, uniqueAuthors, authorStats, daily
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
