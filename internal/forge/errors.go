package forge

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v57/github"

	"github.com/teammetrics/pulse/internal/domain"
)

// wrapUpstreamErr classifies a go-github error into the domain error
// taxonomy so the scheduler and engine can react uniformly regardless of
// which collector produced it. By the time this runs, go-github's own
// transport (see transport.go) has already exhausted its retry budget, so
// a TransientUpstreamError reaching here reflects a request that would
// need a fresh attempt at a higher layer, not an immediate retry.
func wrapUpstreamErr(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &domain.TransientUpstreamError{Source: "github", StatusCode: http.StatusForbidden, Cause: err}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &domain.TransientUpstreamError{Source: "github", StatusCode: http.StatusForbidden, Cause: err}
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return &domain.PermanentUpstreamError{Source: "github", StatusCode: status, Cause: err}
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests, status == 0:
		return &domain.TransientUpstreamError{Source: "github", StatusCode: status, Cause: err}
	default:
		return &domain.PermanentUpstreamError{Source: "github", StatusCode: status, Cause: err}
	}
}
