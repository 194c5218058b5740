package domain

import (
	"errors"
	"fmt"
)

// ConfigError wraps a problem found while loading or validating configuration.
// It is always fatal: the run never starts.
type ConfigError struct {
	Field string
	Cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Cause)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// NewConfigError builds a ConfigError for the named field.
func NewConfigError(field string, cause error) *ConfigError {
	return &ConfigError{Field: field, Cause: cause}
}

// TransientUpstreamError marks a collector failure that is worth retrying:
// rate limits, timeouts, and 5xx responses from either upstream API.
type TransientUpstreamError struct {
	Source     string // "github", "jira"
	StatusCode int
	Attempt    int
	Cause      error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("%s: transient error (status %d, attempt %d): %v", e.Source, e.StatusCode, e.Attempt, e.Cause)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Cause }

// PermanentUpstreamError marks a collector failure that retrying will not
// fix: auth failures, 404s, malformed responses.
type PermanentUpstreamError struct {
	Source     string
	StatusCode int
	Cause      error
}

func (e *PermanentUpstreamError) Error() string {
	return fmt.Sprintf("%s: permanent error (status %d): %v", e.Source, e.StatusCode, e.Cause)
}

func (e *PermanentUpstreamError) Unwrap() error { return e.Cause }

// ValidationError marks malformed or inconsistent input data discovered
// after a successful fetch (e.g. an issue referencing a fix version that
// never existed).
type ValidationError struct {
	Entity string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Entity, e.Reason)
}

// CancelledError wraps context cancellation surfaced from a collection run,
// distinct from upstream failures so the CLI can map it to exit code 130.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error { return e.Cause }

// DegradedResult is the error the collect command returns after a run that
// completed, and wrote its Snapshot, with one or more team failures
// tolerated under partial-result policy, so the CLI can map it to its own
// exit code. See Snapshot.Diagnostics and TeamSnapshot.PartialResult.
type DegradedResult struct {
	FailedTeams []string
}

func (d *DegradedResult) Error() string {
	return fmt.Sprintf("degraded result: %d team(s) failed: %v", len(d.FailedTeams), d.FailedTeams)
}

// Sentinel errors used for errors.Is comparisons across packages.
var (
	ErrNoTeamsConfigured   = errors.New("no teams configured")
	ErrInvalidRange        = errors.New("date range does not match a recognized form")
	ErrUnknownEnvironment  = errors.New("unknown environment")
	ErrRepositoryListEmpty = errors.New("repository list is empty after filtering")
)

// IsRetryable reports whether err (or a wrapped cause) should be retried by
// a collector's transport layer.
func IsRetryable(err error) bool {
	var transient *TransientUpstreamError

	return errors.As(err, &transient)
}
