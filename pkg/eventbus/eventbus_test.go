package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/meridianhub/hub/pkg/message"
)

func TestSubscribeFiltersByType(t *testing.T) {
	bus := New()
	merges := bus.Subscribe(EventMergeMessage)
	all := bus.Subscribe()

	msg := &message.Message{Fid: []byte{1}}
	bus.Publish(Event{Type: EventMergeMessage, Message: msg})
	bus.Publish(Event{Type: EventPruneMessage, Message: msg})

	select {
	case ev := <-merges:
		assert.Equal(t, EventMergeMessage, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a mergeMessage delivery")
	}

	select {
	case ev := <-merges:
		t.Fatalf("unexpected second delivery on filtered subscriber: %+v", ev)
	default:
	}

	received := 0
	for received < 2 {
		select {
		case <-all:
			received++
		case <-time.After(time.Second):
			t.Fatalf("expected 2 deliveries on unfiltered subscriber, got %d", received)
		}
	}
}

func TestPublishDropsSlowSubscriberWithoutBlocking(t *testing.T) {
	bus := New()
	slow := bus.Subscribe(EventMergeMessage)

	// Fill the subscriber's buffer, then publish one more: Publish must
	// return promptly (within dispatchTimeout) rather than block forever.
	for i := 0; i < 64; i++ {
		bus.Publish(Event{Type: EventMergeMessage})
	}

	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: EventMergeMessage})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked past dispatchTimeout on a full subscriber channel")
	}

	// Drain to avoid leaking a goroutine dependency in later tests.
	for {
		select {
		case <-slow:
		default:
			return
		}
	}
}

func TestSyncCompleteCarriesSuccessAndDuration(t *testing.T) {
	bus := New()
	ch := bus.Subscribe(EventSyncComplete)
	bus.Publish(Event{Type: EventSyncComplete, Success: true, Duration: 5 * time.Second})

	select {
	case ev := <-ch:
		assert.True(t, ev.Success)
		assert.Equal(t, 5*time.Second, ev.Duration)
	case <-time.After(time.Second):
		t.Fatal("expected a syncComplete delivery")
	}
}
