// Package mapper resolves which release deployed which pull request, by
// joining pull requests to issues (via extracted issue keys) to fix
// versions to releases, falling back to a time-based heuristic when the
// issue-tracker link is unavailable or incomplete.
package mapper

import (
	"sort"
	"strings"
	"time"

	"github.com/teammetrics/pulse/internal/domain"
)

// timeBasedFallbackWindow bounds how far after a PR merge a release can be
// considered its deployment when no issue/fix-version link exists.
const timeBasedFallbackWindow = 14 * 24 * time.Hour

// Index resolves pull requests to the release that shipped them, for the
// lifetime of a single collection run. It is never persisted (per the
// data model: MappingIndex is a run-scoped working structure).
type Index struct {
	releasesByRepo  map[string][]domain.Release
	fixVersionIndex map[string]domain.FixVersion // fix version name -> version, across all issues seen
	issuesByKey     map[string]domain.Issue
	releasePattern  *releaseMatcher
}

// NewIndex builds an Index over releases and issues observed for one team's
// repositories, matching release names against pattern (spec.md's
// release-name-pattern rules: case-insensitive glob with "*" wildcards).
func NewIndex(releases []domain.Release, issues []domain.Issue, pattern string) *Index {
	idx := &Index{
		releasesByRepo:  make(map[string][]domain.Release),
		fixVersionIndex: make(map[string]domain.FixVersion),
		issuesByKey:     make(map[string]domain.Issue),
		releasePattern:  newReleaseMatcher(pattern),
	}

	for _, rel := range releases {
		idx.releasesByRepo[rel.Repository] = append(idx.releasesByRepo[rel.Repository], rel)
	}

	for repo := range idx.releasesByRepo {
		sort.Slice(idx.releasesByRepo[repo], func(i, j int) bool {
			return releaseTime(idx.releasesByRepo[repo][i]).Before(releaseTime(idx.releasesByRepo[repo][j]))
		})
	}

	for _, issue := range issues {
		idx.issuesByKey[issue.Key] = issue

		for _, fv := range issue.FixVersions {
			idx.fixVersionIndex[fv.Name] = fv
		}
	}

	return idx
}

func releaseTime(r domain.Release) time.Time {
	if r.ReleasedAt != nil {
		return *r.ReleasedAt
	}

	return r.CreatedAt
}

// ResolveDeploymentTime returns the time pr was considered deployed to
// production, or nil if no matching release could be found. The lookup
// order is: (1) an issue key on the PR with a released, production-pattern
// fix version — earliest such release wins ties, per spec.md's lead-time
// tie-break rule; (2) the first production-pattern release on the PR's
// repository released after the PR's merge, within the fallback window.
func (idx *Index) ResolveDeploymentTime(pr domain.PullRequest) *time.Time {
	if t := idx.resolveViaIssues(pr); t != nil {
		return t
	}

	return idx.resolveViaTimeFallback(pr)
}

func (idx *Index) resolveViaIssues(pr domain.PullRequest) *time.Time {
	var earliest *time.Time

	for key := range pr.IssueKeys {
		issue, ok := idx.issuesByKey[key]
		if !ok {
			continue
		}

		for _, fv := range issue.FixVersions {
			if !fv.Released || fv.ReleasedAt == nil {
				continue
			}

			if !idx.releasePattern.Match(fv.Name) {
				continue
			}

			if earliest == nil || fv.ReleasedAt.Before(*earliest) {
				t := *fv.ReleasedAt
				earliest = &t
			}
		}
	}

	return earliest
}

func (idx *Index) resolveViaTimeFallback(pr domain.PullRequest) *time.Time {
	if pr.MergedAt == nil {
		return nil
	}

	releases := idx.releasesByRepo[pr.Repository]
	deadline := pr.MergedAt.Add(timeBasedFallbackWindow)

	for _, rel := range releases {
		if !rel.Released || rel.ReleasedAt == nil {
			continue
		}

		if !idx.releasePattern.Match(rel.Name) && !idx.releasePattern.Match(rel.TagName) {
			continue
		}

		// A released release counts only if it was released after the
		// merge and no later than deadline; no separate comparison
		// against the current time is made here.
		if rel.ReleasedAt.After(*pr.MergedAt) && !rel.ReleasedAt.After(deadline) {
			t := *rel.ReleasedAt

			return &t
		}
	}

	return nil
}

// MatchesReleasePattern reports whether name matches pattern under the same
// case-insensitive, "*"-only glob rules used internally to resolve
// deployments, so callers outside this package (e.g. filtering the
// production-release list before it reaches the DORA engine) don't have to
// duplicate the matching logic.
func MatchesReleasePattern(pattern, name string) bool {
	return newReleaseMatcher(pattern).Match(name)
}

// releaseMatcher matches a release name/tag against spec.md's pattern
// rules: case-insensitive, "*" matches any run of characters, everything
// else matched literally.
type releaseMatcher struct {
	pattern string
}

func newReleaseMatcher(pattern string) *releaseMatcher {
	return &releaseMatcher{pattern: strings.ToLower(strings.TrimSpace(pattern))}
}

func (m *releaseMatcher) Match(name string) bool {
	if m.pattern == "" {
		return true
	}

	return globMatch(m.pattern, strings.ToLower(name))
}

// globMatch implements "*"-only glob matching (no "?", no character
// classes), which is all spec.md's release-pattern rules require.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")

	if len(parts) == 1 {
		return pattern == s
	}

	if !strings.HasPrefix(s, parts[0]) {
		return false
	}

	s = s[len(parts[0]):]

	if !strings.HasSuffix(s, parts[len(parts)-1]) {
		return false
	}

	s = s[:len(s)-len(parts[len(parts)-1])]
	middle := parts[1 : len(parts)-1]

	for _, part := range middle {
		if part == "" {
			continue
		}

		i := strings.Index(s, part)
		if i < 0 {
			return false
		}

		s = s[i+len(part):]
	}

	return true
}
