// Package tracker collects issues from a Jira-compatible issue tracker.
// No issue-tracker SDK exists in the dependency corpus this repository was
// built from, so this client is hand-written REST on top of the same
// retrying HTTP transport used by the source-control collector.
package tracker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/teammetrics/pulse/internal/domain"
)

const (
	maxRetries   = 4
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 15 * time.Second
)

// personQueryMaxAttempts bounds the application-level retries PersonIssues
// makes against the original window before it degrades to a 30-day one.
// This sits above go-retryablehttp's own per-request retries: a single
// PersonIssues attempt can itself be a fully-retried HTTP round trip, and
// still time out often enough across an unreliable instance to warrant a
// second layer that eventually narrows the query instead of failing it.
const personQueryMaxAttempts = 3

const personFallbackWindow = 30 * 24 * time.Hour

// Client collects issues and fix-version metadata from a Jira Cloud or
// Server instance via its REST API.
type Client struct {
	baseURL              string
	auth                 string
	http                 *retryablehttp.Client
	hugeDatasetThreshold int
}

// ClientOption customizes a Client built by NewClient.
type ClientOption func(*Client)

// WithHugeDatasetThreshold overrides the result count at or above which
// SearchIssues drops issue history from every page after the first (the
// first page is requested before the total is known). Pass 0 to disable
// history universally, first page included, even for small searches.
func WithHugeDatasetThreshold(n int) ClientOption {
	return func(c *Client) { c.hugeDatasetThreshold = n }
}

// NewClient builds a Client authenticated with basic auth (email + API
// token, the standard Jira Cloud scheme).
func NewClient(baseURL, email, token string, opts ...ClientOption) *Client {
	retrying := retryablehttp.NewClient()
	retrying.Logger = nil
	retrying.RetryMax = maxRetries
	retrying.RetryWaitMin = retryWaitMin
	retrying.RetryWaitMax = retryWaitMax

	creds := base64.StdEncoding.EncodeToString([]byte(email + ":" + token))

	c := &Client{
		baseURL:              strings.TrimRight(baseURL, "/"),
		auth:                 "Basic " + creds,
		http:                 retrying,
		hugeDatasetThreshold: defaultHugeDatasetThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// searchResponse is the subset of Jira's /rest/api/2/search response body
// this collector needs.
type searchResponse struct {
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
	Issues     []issueJSON `json:"issues"`
}

type issueJSON struct {
	Key    string `json:"key"`
	Fields struct {
		Project struct {
			Key string `json:"key"`
		} `json:"project"`
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Status struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Name string `json:"name"`
			} `json:"statusCategory"`
		} `json:"status"`
		Assignee *struct {
			AccountID string `json:"accountId"`
		} `json:"assignee"`
		Created        string   `json:"created"`
		Resolutiondate *string  `json:"resolutiondate"`
		Labels         []string `json:"labels"`
		FixVersions []struct {
			Name        string `json:"name"`
			ReleaseDate *string `json:"releaseDate"`
			Released    bool    `json:"released"`
		} `json:"fixVersions"`
	} `json:"fields"`
}

// SearchIssues runs jql and returns every matching issue, adapting its page
// size to the server-reported total: small result sets are fetched in one
// round trip, large ones in capped batches, rather than guessing a single
// page size up front.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]domain.Issue, error) {
	var (
		out     []domain.Issue
		startAt int
		total   = -1
	)

	page := PageSize{BatchSize: initialBatchSize, IncludeHistory: c.hugeDatasetThreshold > 0}

	for total < 0 || startAt < total {
		resp, err := c.search(ctx, jql, startAt, page.BatchSize, page.IncludeHistory)
		if err != nil {
			return nil, err
		}

		total = resp.Total
		page = planPage(total, c.hugeDatasetThreshold)

		for _, raw := range resp.Issues {
			issue, err := mapIssue(raw)
			if err != nil {
				return nil, err
			}

			out = append(out, issue)
		}

		if len(resp.Issues) == 0 {
			break
		}

		startAt += len(resp.Issues)
	}

	return out, nil
}

func (c *Client) search(ctx context.Context, jql string, startAt, maxResults int, includeHistory bool) (*searchResponse, error) {
	fields := "project,issuetype,status,assignee,created,resolutiondate,fixVersions,labels"

	q := url.Values{}
	q.Set("jql", jql)
	q.Set("startAt", fmt.Sprintf("%d", startAt))
	q.Set("maxResults", fmt.Sprintf("%d", maxResults))
	q.Set("fields", fields)

	if includeHistory {
		q.Set("expand", "changelog")
	}

	endpoint := c.baseURL + "/rest/api/2/search?" + q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build jira search request: %w", err)
	}

	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.TransientUpstreamError{Source: "jira", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest {
		return nil, &domain.PermanentUpstreamError{Source: "jira", StatusCode: resp.StatusCode, Cause: fmt.Errorf("jira search returned %d", resp.StatusCode)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransientUpstreamError{Source: "jira", StatusCode: resp.StatusCode, Cause: fmt.Errorf("jira search returned %d", resp.StatusCode)}
	}

	var parsed searchResponse

	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &domain.PermanentUpstreamError{Source: "jira", StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode jira search response: %w", err)}
	}

	return &parsed, nil
}

func mapIssue(raw issueJSON) (domain.Issue, error) {
	created, err := parseJiraTime(raw.Fields.Created)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("issue %s: parse created: %w", raw.Key, err)
	}

	issue := domain.Issue{
		Key:            raw.Key,
		ProjectKey:     raw.Fields.Project.Key,
		Type:           raw.Fields.IssueType.Name,
		Status:         raw.Fields.Status.Name,
		StatusCategory: raw.Fields.Status.StatusCategory.Name,
		CreatedAt:      created,
		IsIncident:     strings.EqualFold(raw.Fields.IssueType.Name, "incident") || strings.EqualFold(raw.Fields.IssueType.Name, "bug"),
		// IncidentRefs assumes the team's saved-search convention of labeling
		// an incident with the release/tag name it was caused by.
		IncidentRefs: raw.Fields.Labels,
	}

	if raw.Fields.Assignee != nil {
		issue.AssigneeKey = raw.Fields.Assignee.AccountID
	}

	if raw.Fields.Resolutiondate != nil {
		resolved, err := parseJiraTime(*raw.Fields.Resolutiondate)
		if err != nil {
			return domain.Issue{}, fmt.Errorf("issue %s: parse resolutiondate: %w", raw.Key, err)
		}

		issue.ResolvedAt = &resolved
	}

	for _, fv := range raw.Fields.FixVersions {
		mapped := domain.FixVersion{Name: fv.Name, Released: fv.Released}

		if fv.ReleaseDate != nil {
			t, err := time.Parse("2006-01-02", *fv.ReleaseDate)
			if err == nil {
				mapped.ReleasedAt = &t
			}
		}

		issue.FixVersions = append(issue.FixVersions, mapped)
	}

	return issue, nil
}

func parseJiraTime(raw string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000-0700", raw)
}

// PersonIssues returns one assignee's issues within window, using the
// anti-noise clause so bulk edits to long-closed items don't inflate a
// person's per-period activity. A repeated gateway-timeout class failure
// degrades the query to a trailing 30-day window rather than failing the
// whole collection; the bool return reports whether that fallback fired.
func (c *Client) PersonIssues(ctx context.Context, login string, window domain.DateRange) ([]domain.Issue, bool, error) {
	issues, err := c.searchWithRetry(ctx, personJQL(login, window))
	if err == nil {
		return issues, false, nil
	}

	if !isGatewayTimeoutClass(err) {
		return nil, false, err
	}

	fallback := domain.DateRange{Start: window.End.Add(-personFallbackWindow), End: window.End}

	issues, err = c.searchWithRetry(ctx, personJQL(login, fallback))
	if err != nil {
		return nil, false, err
	}

	return issues, true, nil
}

func (c *Client) searchWithRetry(ctx context.Context, jql string) ([]domain.Issue, error) {
	var issues []domain.Issue

	operation := func() error {
		issues = issues[:0]

		for startAt := 0; ; {
			resp, err := c.search(ctx, jql, startAt, initialBatchSize, false)
			if err != nil {
				if !isGatewayTimeoutClass(err) {
					return backoff.Permanent(err)
				}

				return err
			}

			for _, raw := range resp.Issues {
				issue, mapErr := mapIssue(raw)
				if mapErr != nil {
					return backoff.Permanent(mapErr)
				}

				issues = append(issues, issue)
			}

			startAt += len(resp.Issues)
			if len(resp.Issues) == 0 || startAt >= resp.Total {
				return nil
			}
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), personQueryMaxAttempts), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return issues, nil
}

func isGatewayTimeoutClass(err error) bool {
	var transient *domain.TransientUpstreamError
	if !errors.As(err, &transient) {
		return false
	}

	switch transient.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// personJQL builds the anti-noise query for one assignee: an issue counts
// toward their activity if it was created, resolved, or (for anything
// still open) updated within window, which keeps routine edits to
// long-closed tickets from polluting the result.
func personJQL(login string, window domain.DateRange) string {
	start := window.Start.Format("2006-01-02")
	end := window.End.Format("2006-01-02")

	return fmt.Sprintf(
		`assignee = %q AND created < %q AND (created >= %q OR resolved >= %q OR (statusCategory != Done AND updated >= %q))`,
		login, end, start, start, start,
	)
}
