package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teammetrics/pulse/internal/collect"
	"github.com/teammetrics/pulse/internal/domain"
	"github.com/teammetrics/pulse/internal/observability"
)

func TestDefaultEnv(t *testing.T) {
	t.Setenv("TEAM_METRICS_ENV", "")
	assert.Equal(t, "prod", defaultEnv())

	t.Setenv("TEAM_METRICS_ENV", "uat")
	assert.Equal(t, "uat", defaultEnv())
}

func TestVerbosity(t *testing.T) {
	assert.Equal(t, observability.VerbosityVerbose, verbosity(&CollectOptions{verbose: true}))
	assert.Equal(t, observability.VerbosityQuiet, verbosity(&CollectOptions{quiet: true}))
	assert.Equal(t, observability.VerbosityNormal, verbosity(&CollectOptions{}))
}

func TestDegradedTeamNames(t *testing.T) {
	report := collect.Report{
		Teams: []domain.TeamSnapshot{
			{Team: "team-a", PartialResult: true},
			{Team: "team-b"},
			{Team: "team-c", PartialResult: true},
		},
	}

	assert.Equal(t, []string{"team-a", "team-c"}, degradedTeamNames(report))
}
