package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishDeliversToSubscribers(t *testing.T) {
	b := New()

	var got []Event

	b.Subscribe(TopicTeamStarted, func(e Event) { got = append(got, e) })
	b.Subscribe(TopicTeamCompleted, func(e Event) { got = append(got, e) })

	b.Publish(Event{Topic: TopicTeamStarted, Payload: "payments"})

	assert.Len(t, got, 1)
	assert.Equal(t, TopicTeamStarted, got[0].Topic)
}

func TestBus_NoSubscribersIsNoop(t *testing.T) {
	b := New()
	assert.NotPanics(t, func() {
		b.Publish(Event{Topic: TopicDiagnostic})
	})
}

func TestBus_MultipleSubscribersSameTopic(t *testing.T) {
	b := New()

	calls := 0
	b.Subscribe(TopicRepoCollected, func(Event) { calls++ })
	b.Subscribe(TopicRepoCollected, func(Event) { calls++ })

	b.Publish(Event{Topic: TopicRepoCollected})

	assert.Equal(t, 2, calls)
}
