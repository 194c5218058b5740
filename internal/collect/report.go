package collect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teammetrics/pulse/internal/domain"
)

// Report is the human-facing summary of one collection run, rendered by
// the CLI after Run returns.
type Report struct {
	RunID       string
	Range       domain.DateRange
	Teams       []domain.TeamSnapshot
	Diagnostics []domain.Diagnostic
}

// BuildReport converts a persisted Snapshot into the same Report shape Run
// returns, so a previously saved snapshot can be rendered identically by a
// "show" command.
func BuildReport(snap domain.Snapshot) Report {
	return buildReport(snap)
}

func buildReport(snap domain.Snapshot) Report {
	teams := append([]domain.TeamSnapshot(nil), snap.Teams...)
	sort.Slice(teams, func(i, j int) bool { return teams[i].Team < teams[j].Team })

	return Report{
		RunID:       snap.RunID,
		Range:       snap.Range,
		Teams:       teams,
		Diagnostics: snap.Diagnostics,
	}
}

// Degraded reports whether any team in the run produced a partial result,
// used by the CLI to pick exit code 2 over 0.
func (r Report) Degraded() bool {
	for _, t := range r.Teams {
		if t.PartialResult {
			return true
		}
	}

	return len(r.Diagnostics) > 0
}

// String renders the report as the plain-text summary printed to stdout at
// the end of a run: one line per team, then any diagnostics.
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "run %s (%s .. %s)\n", r.RunID, r.Range.Start.Format("2006-01-02"), r.Range.End.Format("2006-01-02"))

	for _, t := range r.Teams {
		fmt.Fprintf(&b, "  %-20s score=%.2f  level=%s  deploy/wk=%.2f  lead=%.1fh  cfr=%.0f%%  mttr=%.1fh",
			t.Team, t.PerformanceScore, t.DORA.OverallLevel, t.DORA.DeploymentFrequency.PerWeek,
			t.DORA.LeadTime.MedianHours, t.DORA.ChangeFailureRate.Rate*100, t.DORA.MTTR.MedianHours)

		if t.PartialResult {
			b.WriteString("  (partial)")
		}

		b.WriteString("\n")
	}

	if len(r.Diagnostics) > 0 {
		b.WriteString("diagnostics:\n")

		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "  [%s] %s/%s: %s\n", d.Severity, d.Team, d.Source, d.Message)
		}
	}

	return b.String()
}
