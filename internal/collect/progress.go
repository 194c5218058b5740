package collect

import (
	"os"

	"github.com/teammetrics/pulse/internal/eventbus"
)

// ProgressSink renders collection-lifecycle events as they happen, for an
// interactive terminal session. A non-interactive run (piped output, CI)
// typically skips attaching one and relies on the final Report instead.
type ProgressSink interface {
	TeamStarted(team string)
	TeamCompleted(team string)
	SnapshotWritten(runID string)
}

// AttachProgress subscribes sink to the relevant topics on bus.
func AttachProgress(bus *eventbus.Bus, sink ProgressSink) {
	bus.Subscribe(eventbus.TopicTeamStarted, func(e eventbus.Event) {
		if team, ok := e.Payload.(string); ok {
			sink.TeamStarted(team)
		}
	})

	bus.Subscribe(eventbus.TopicTeamCompleted, func(e eventbus.Event) {
		if team, ok := e.Payload.(string); ok {
			sink.TeamCompleted(team)
		}
	})

	bus.Subscribe(eventbus.TopicSnapshotWritten, func(e eventbus.Event) {
		if runID, ok := e.Payload.(string); ok {
			sink.SnapshotWritten(runID)
		}
	})
}

// IsInteractive reports whether stderr looks like a terminal, the signal
// the CLI uses to decide whether to attach a live ProgressSink at all.
func IsInteractive() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}
