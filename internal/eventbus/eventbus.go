// Package eventbus is an in-process publish/subscribe bus over a fixed
// vocabulary of collection-lifecycle events, used to decouple the
// scheduler and collectors from anything observing run progress (logging,
// metrics, a future presentation layer).
package eventbus

import "sync"

// Topic is one of the fixed event kinds this bus carries.
type Topic string

const (
	// TopicTeamStarted fires when a team's collection begins.
	TopicTeamStarted Topic = "team.started"
	// TopicTeamCompleted fires when a team's collection finishes, success or not.
	TopicTeamCompleted Topic = "team.completed"
	// TopicRepoCollected names a repository's data being fetched. The
	// collection run does not publish it.
	TopicRepoCollected Topic = "repo.collected"
	// TopicUpstreamRetry names a collector retrying a request. The
	// collection run does not publish it.
	TopicUpstreamRetry Topic = "upstream.retry"
	// TopicDiagnostic names a non-fatal problem being recorded. The
	// collection run does not publish it.
	TopicDiagnostic Topic = "diagnostic"
	// TopicSnapshotWritten fires once the run's snapshot has been persisted.
	TopicSnapshotWritten Topic = "snapshot.written"
)

// Event is one message published on the bus.
type Event struct {
	Topic   Topic
	Payload any
}

// Handler receives events for topics it has subscribed to.
type Handler func(Event)

// Bus is a synchronous, in-process pub/sub dispatcher. Publish blocks until
// every subscriber for the topic has returned, so subscribers must not do
// slow work inline (they should queue it) if that would stall collection.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers handler to be called for every event published on topic.
func (b *Bus) Subscribe(topic Topic, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers event to every handler subscribed to its topic.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
