package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesOnlyTaskSubscribers(t *testing.T) {
	hub := NewHub()
	a, cancelA := hub.Subscribe("a")
	defer cancelA()
	b, cancelB := hub.Subscribe("b")
	defer cancelB()

	hub.Publish(Event{TaskId: "a", Stage: "translating", Message: "正在翻译字幕..."})

	select {
	case ev := <-a:
		assert.Equal(t, "正在翻译字幕...", ev.Message)
		assert.False(t, ev.Time.IsZero())
	default:
		t.Fatal("subscriber a got nothing")
	}
	assert.Empty(t, b)
}

func TestSubscribeReplaysLatestEvent(t *testing.T) {
	hub := NewHub()
	hub.Publish(Event{TaskId: "a", Message: "one"})
	hub.Publish(Event{TaskId: "a", Message: "two"})

	ch, cancel := hub.Subscribe("a")
	defer cancel()
	require.Len(t, ch, 1)
	assert.Equal(t, "two", (<-ch).Message)

	hub.Publish(Event{TaskId: "a", Message: "done", Final: true})
	<-ch
	late, cancelLate := hub.Subscribe("a")
	defer cancelLate()
	assert.Empty(t, late)
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("a")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish(Event{TaskId: "a", Message: "tick"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("a")
	assert.Equal(t, 1, hub.Subscribers("a"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, hub.Subscribers("a"))
}
