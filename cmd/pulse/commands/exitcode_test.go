package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teammetrics/pulse/internal/domain"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeFor(nil))
	assert.Equal(t, ExitFailure, ExitCodeFor(errors.New("boom")))
	assert.Equal(t, ExitCanceled, ExitCodeFor(context.Canceled))
	assert.Equal(t, ExitCanceled, ExitCodeFor(&domain.CancelledError{Cause: context.Canceled}))
	assert.Equal(t, ExitDegraded, ExitCodeFor(&domain.DegradedResult{FailedTeams: []string{"team-a"}}))
	assert.Equal(t, ExitCanceled, ExitCodeFor(fmtWrap(context.Canceled)))
}

func fmtWrap(err error) error {
	return errors.Join(err)
}
