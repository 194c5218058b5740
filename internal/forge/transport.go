package forge

import (
	"net/http"
	"time"

	githubratelimit "github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// newHTTPClient builds the transport stack shared by every GitHub request:
// OAuth2 bearer token injection, wrapped in a retrying client (5xx, 429, and
// transport-level errors), wrapped in turn in a secondary-rate-limit waiter,
// so a 403 "secondary rate limit" response sleeps and retries transparently
// instead of surfacing as an error.
func newHTTPClient(token string) (*http.Client, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	retrying := retryablehttp.NewClient()
	retrying.Logger = nil
	retrying.RetryMax = maxRetries
	retrying.RetryWaitMin = retryWaitMin
	retrying.RetryWaitMax = retryWaitMax
	retrying.HTTPClient.Transport = &oauth2.Transport{
		Source: tokenSource,
		Base:   retrying.HTTPClient.Transport,
	}

	base := retrying.StandardClient()

	limited, err := githubratelimit.NewRateLimitWaiterClient(base.Transport)
	if err != nil {
		return nil, err
	}

	base.Transport = limited

	return base, nil
}

const (
	maxRetries   = 4
	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 15 * time.Second
)
