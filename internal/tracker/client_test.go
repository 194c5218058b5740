package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammetrics/pulse/internal/domain"
)

func TestMapIssue(t *testing.T) {
	raw := issueJSON{Key: "PAY-1"}
	raw.Fields.Project.Key = "PAY"
	raw.Fields.IssueType.Name = "Bug"
	raw.Fields.Status.Name = "Done"
	raw.Fields.Status.StatusCategory.Name = "Done"
	raw.Fields.Labels = []string{"v1.2.0"}
	raw.Fields.Created = "2026-01-10T08:00:00.000-0000"
	resolved := "2026-01-12T08:00:00.000-0000"
	raw.Fields.Resolutiondate = &resolved

	releaseDate := "2026-01-15"
	raw.Fields.FixVersions = append(raw.Fields.FixVersions, struct {
		Name        string  `json:"name"`
		ReleaseDate *string `json:"releaseDate"`
		Released    bool    `json:"released"`
	}{Name: "v1.2.0", ReleaseDate: &releaseDate, Released: true})

	issue, err := mapIssue(raw)
	require.NoError(t, err)

	assert.Equal(t, "PAY-1", issue.Key)
	assert.Equal(t, "PAY", issue.ProjectKey)
	assert.True(t, issue.IsIncident, "bug type should count as incident-eligible")
	assert.Equal(t, "Done", issue.StatusCategory)
	assert.Equal(t, []string{"v1.2.0"}, issue.IncidentRefs)
	require.NotNil(t, issue.ResolvedAt)
	require.Len(t, issue.FixVersions, 1)
	assert.True(t, issue.FixVersions[0].Released)
	require.NotNil(t, issue.FixVersions[0].ReleasedAt)
}

func TestClient_PersonIssues_fallsBackOnGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, _ := url.ParseQuery(r.URL.RawQuery)

		if strings.Contains(q.Get("jql"), "2025-09-27") {
			// the 30-day fallback window's query succeeds
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"startAt":0,"maxResults":100,"total":0,"issues":[]}`))

			return
		}

		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	c.http.RetryMax = 0 // isolate PersonIssues' own retry/fallback behavior

	window := domain.DateRange{
		Start: mustParseDate(t, "2025-10-01"),
		End:   mustParseDate(t, "2025-10-27"),
	}

	issues, degraded, err := c.PersonIssues(context.Background(), "u1", window)
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Empty(t, issues)
}

func TestClient_PersonIssues_noFallbackOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"startAt":0,"maxResults":100,"total":0,"issues":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bot@example.com", "token")
	c.http.RetryMax = 0

	window := domain.DateRange{
		Start: mustParseDate(t, "2025-10-01"),
		End:   mustParseDate(t, "2025-10-27"),
	}

	issues, degraded, err := c.PersonIssues(context.Background(), "u1", window)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Empty(t, issues)
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()

	parsed, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)

	return parsed
}

func TestMapIssue_noAssigneeNoResolution(t *testing.T) {
	raw := issueJSON{Key: "PAY-2"}
	raw.Fields.Created = "2026-01-10T08:00:00.000-0000"

	issue, err := mapIssue(raw)
	require.NoError(t, err)
	assert.Empty(t, issue.AssigneeKey)
	assert.Nil(t, issue.ResolvedAt)
}
