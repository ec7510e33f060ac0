// Package events implements the default in-process EventSink adapter,
// grounded on friendsincode-grimnir_radio/internal/events/bus.go:
// channel-per-subscriber pub/sub with non-blocking publish-and-drop, kept
// in-process since the real SSE fan-out service is an external
// collaborator explicitly out of scope (spec.md §1).
package events

import (
	"sync"

	"github.com/friendsincode/audioengine/pkg/boundary"
)

// Subscriber receives published events on a bounded channel. A slow
// subscriber misses events rather than stalling the publisher.
type Subscriber chan boundary.Event

// Bus is a boundary.EventSink backed by per-subscriber fan-out channels.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes sub.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.subs {
		if candidate == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

// Publish implements boundary.EventSink: it fans event out to every
// subscriber, dropping it for any subscriber whose channel is full.
func (b *Bus) Publish(event boundary.Event) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
		}
	}
}
