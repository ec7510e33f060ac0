package playout

import (
	"testing"
	"time"

	"github.com/friendsincode/audioengine/pkg/pcmring"
)

func TestManagerAllocateAndGet(t *testing.T) {
	m := NewManager(4410, 44100)
	b := m.Allocate("e1", testPassage(), 64, 8)
	got, ok := m.Get("e1")
	if !ok || got != b {
		t.Fatal("Get should return the allocated buffer")
	}
}

func TestManagerReadyForStartFires(t *testing.T) {
	m := NewManager(4410, 44100)
	b := m.Allocate("e1", testPassage(), 64, 4)
	b.PushFrames(make([]pcmring.Frame, 4))

	select {
	case id := <-m.ReadyForStart():
		if id != "e1" {
			t.Errorf("readiness notification for %q, want e1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for readiness notification")
	}
}

func TestManagerReleaseRemoves(t *testing.T) {
	m := NewManager(4410, 44100)
	m.Allocate("e1", testPassage(), 64, 8)
	m.Release("e1")
	if _, ok := m.Get("e1"); ok {
		t.Fatal("buffer should be gone after Release")
	}
}

func TestManagerAllSnapshot(t *testing.T) {
	m := NewManager(4410, 44100)
	m.Allocate("e1", testPassage(), 64, 8)
	m.Allocate("e2", testPassage(), 64, 8)
	if got := len(m.All()); got != 2 {
		t.Errorf("All() returned %d buffers, want 2", got)
	}
}
