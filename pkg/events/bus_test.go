package events

import (
	"testing"
	"time"

	"github.com/friendsincode/audioengine/pkg/boundary"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Publish(boundary.Event{Kind: "playback_started", EntryID: "e1"})

	select {
	case e := <-sub:
		if e.EntryID != "e1" {
			t.Errorf("EntryID = %q, want e1", e.EntryID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestPublishDropsForFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	for i := 0; i < 100; i++ {
		bus.Publish(boundary.Event{Kind: "tick"})
	}
	// Must not deadlock or panic; channel capacity bounds delivery.
	drained := 0
	for {
		select {
		case <-sub:
			drained++
		default:
			if drained == 0 {
				t.Fatal("expected at least some events delivered")
			}
			return
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	_, ok := <-sub
	if ok {
		t.Fatal("expected channel to be closed after Unsubscribe")
	}
}
