package commands

import (
	"context"
	"errors"

	"github.com/teammetrics/pulse/internal/domain"
)

// Exit codes per the collector's error taxonomy: success, config/permanent
// failure, degraded/partial result, and user-initiated cancellation.
const (
	ExitSuccess  = 0
	ExitFailure  = 1
	ExitDegraded = 2
	ExitCanceled = 130
)

// ExitCodeFor maps a command error to the process exit code the CLI
// contract promises.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}

	var cancelled *domain.CancelledError
	if errors.As(err, &cancelled) {
		return ExitCanceled
	}

	var degraded *domain.DegradedResult
	if errors.As(err, &degraded) {
		return ExitDegraded
	}

	return ExitFailure
}
