// Package forge collects pull requests, reviews, commits, and releases
// from a GitHub-compatible source-control host.
package forge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/teammetrics/pulse/internal/domain"
)

// perPage is the page size requested from the list endpoints; GitHub caps
// this at 100.
const perPage = 100

// Client collects source-control data for repositories within a date range.
type Client struct {
	gh *github.Client
}

// NewClient builds a Client authenticated against baseURL (empty for the
// public github.com API) with token.
func NewClient(baseURL, token string) (*Client, error) {
	httpClient, err := newHTTPClient(token)
	if err != nil {
		return nil, fmt.Errorf("build github transport: %w", err)
	}

	gh := github.NewClient(httpClient)

	if baseURL != "" {
		gh, err = gh.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise base url: %w", err)
		}
	}

	return &Client{gh: gh}, nil
}

// CollectPullRequests fetches every pull request on repo whose creation or
// merge time falls within r, along with its reviews and commits.
func (c *Client) CollectPullRequests(ctx context.Context, repo string, r domain.DateRange) ([]domain.PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: perPage,
		},
	}

	var out []domain.PullRequest

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, name, opts)
		if err != nil {
			return nil, wrapUpstreamErr("list pull requests", resp, err)
		}

		stop := false

		for _, pr := range prs {
			updatedAt := pr.GetUpdatedAt().Time
			if updatedAt.Before(r.Start) {
				// Results are sorted by update time descending: once we see
				// one older than the window, every later page is too.
				stop = true

				break
			}

			if !withinWindow(pr, r) {
				continue
			}

			mapped, err := c.mapPullRequest(ctx, owner, name, pr)
			if err != nil {
				return nil, err
			}

			out = append(out, mapped)
		}

		if stop || resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

func withinWindow(pr *github.PullRequest, r domain.DateRange) bool {
	if r.Contains(pr.GetCreatedAt().Time) {
		return true
	}

	if pr.MergedAt != nil && r.Contains(pr.GetMergedAt().Time) {
		return true
	}

	return false
}

func (c *Client) mapPullRequest(ctx context.Context, owner, repo string, pr *github.PullRequest) (domain.PullRequest, error) {
	reviews, err := c.collectReviews(ctx, owner, repo, pr.GetNumber())
	if err != nil {
		return domain.PullRequest{}, err
	}

	commits, err := c.collectCommits(ctx, owner, repo, pr.GetNumber())
	if err != nil {
		return domain.PullRequest{}, err
	}

	// The list endpoint doesn't carry additions/deletions; only Get does, so
	// size distribution costs one extra request per pull request, same as
	// the reviews/commits fetches above.
	additions, deletions, err := c.collectDiffStat(ctx, owner, repo, pr.GetNumber())
	if err != nil {
		return domain.PullRequest{}, err
	}

	mapped := domain.PullRequest{
		Repository:  owner + "/" + repo,
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		AuthorLogin: pr.GetUser().GetLogin(),
		CreatedAt:   pr.GetCreatedAt().Time,
		BaseBranch:  pr.GetBase().GetRef(),
		HeadBranch:  pr.GetHead().GetRef(),
		Merged:      pr.GetMerged(),
		Additions:   additions,
		Deletions:   deletions,
		Reviews:     reviews,
		Commits:     commits,
		IssueKeys:   extractIssueKeys(pr.GetTitle(), pr.GetBody(), pr.GetHead().GetRef()),
	}

	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		mapped.MergedAt = &t
	}

	if pr.ClosedAt != nil {
		t := pr.GetClosedAt().Time
		mapped.ClosedAt = &t
	}

	return mapped, nil
}

func (c *Client) collectDiffStat(ctx context.Context, owner, repo string, number int) (additions, deletions int, err error) {
	full, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return 0, 0, wrapUpstreamErr("get pull request", resp, err)
	}

	return full.GetAdditions(), full.GetDeletions(), nil
}

func (c *Client) collectReviews(ctx context.Context, owner, repo string, number int) ([]domain.Review, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var out []domain.Review

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, wrapUpstreamErr("list reviews", resp, err)
		}

		for _, rv := range reviews {
			out = append(out, domain.Review{
				AuthorLogin: rv.GetUser().GetLogin(),
				State:       rv.GetState(),
				SubmittedAt: rv.GetSubmittedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

func (c *Client) collectCommits(ctx context.Context, owner, repo string, number int) ([]domain.Commit, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var out []domain.Commit

	for {
		commits, resp, err := c.gh.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, wrapUpstreamErr("list commits", resp, err)
		}

		for _, commit := range commits {
			out = append(out, domain.Commit{
				SHA:         commit.GetSHA(),
				AuthorLogin: commit.GetAuthor().GetLogin(),
				CommittedAt: commit.GetCommit().GetAuthor().GetDate().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

// CollectReleases fetches every release on repo, regardless of date range:
// the mapper needs to see releases outside the window to resolve a PR
// merged near a boundary.
func (c *Client) CollectReleases(ctx context.Context, repo string) ([]domain.Release, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: perPage}

	var out []domain.Release

	for {
		releases, resp, err := c.gh.Repositories.ListReleases(ctx, owner, name, opts)
		if err != nil {
			return nil, wrapUpstreamErr("list releases", resp, err)
		}

		for _, rel := range releases {
			mapped := domain.Release{
				Repository: owner + "/" + name,
				Name:       rel.GetName(),
				TagName:    rel.GetTagName(),
				Released:   !rel.GetDraft(),
				CreatedAt:  rel.GetCreatedAt().Time,
			}

			if rel.PublishedAt != nil {
				t := rel.GetPublishedAt().Time
				mapped.ReleasedAt = &t
			}

			out = append(out, mapped)
		}

		if resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	return out, nil
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository slug %q: expected owner/name", repo)
	}

	return parts[0], parts[1], nil
}

// issueKeyPattern matches Jira-style issue keys: one or more uppercase
// letters, a hyphen, then digits (e.g. "PAY-1234").
var issueKeyPattern = regexp.MustCompile(`\b[A-Z]+-\d+\b`)

func extractIssueKeys(sources ...string) map[string]struct{} {
	keys := make(map[string]struct{})

	for _, s := range sources {
		for _, m := range issueKeyPattern.FindAllString(s, -1) {
			keys[m] = struct{}{}
		}
	}

	return keys
}
