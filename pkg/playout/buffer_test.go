package playout

import (
	"testing"

	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/passage"
)

func testPassage() passage.Passage {
	return passage.Passage{
		AudioRef: "t.flac",
		Start:    0, FadeIn: 1000, FadeOut: 9000, LeadIn: 2000, LeadOut: 8000, End: 10000,
	}
}

func TestBufferStartsEmpty(t *testing.T) {
	b := New("e1", testPassage(), 64, 8)
	if b.State() != Empty {
		t.Fatalf("new buffer state = %v, want Empty", b.State())
	}
}

func TestBufferFillsBelowThreshold(t *testing.T) {
	b := New("e1", testPassage(), 64, 8)
	n := b.PushFrames(make([]pcmring.Frame, 4))
	if n != 4 {
		t.Fatalf("accepted %d, want 4", n)
	}
	if b.State() != Filling {
		t.Fatalf("state = %v, want Filling", b.State())
	}
	select {
	case <-b.ReadyCh():
		t.Fatal("ReadyCh fired before reaching min start level")
	default:
	}
}

func TestBufferBecomesReadyAtThreshold(t *testing.T) {
	b := New("e1", testPassage(), 64, 8)
	b.PushFrames(make([]pcmring.Frame, 8))
	if b.State() != Ready {
		t.Fatalf("state = %v, want Ready", b.State())
	}
	select {
	case <-b.ReadyCh():
	default:
		t.Fatal("ReadyCh should have fired")
	}
}

func TestBufferTransitionsToPlayingOnFirstRead(t *testing.T) {
	b := New("e1", testPassage(), 64, 8)
	b.PushFrames(make([]pcmring.Frame, 8))
	b.PopFrames(make([]pcmring.Frame, 1))
	if b.State() != Playing {
		t.Fatalf("state = %v, want Playing", b.State())
	}
}

func TestBufferRejectsWritesAfterFinished(t *testing.T) {
	b := New("e1", testPassage(), 64, 8)
	b.MarkFinished()
	n := b.PushFrames(make([]pcmring.Frame, 4))
	if n != 0 {
		t.Fatalf("PushFrames after Finished accepted %d, want 0", n)
	}
}

func TestBufferBackpressureThresholds(t *testing.T) {
	b := New("e1", testPassage(), 16, 1)
	b.PushFrames(make([]pcmring.Frame, 13)) // free space = 3
	if !b.ShouldPause(4) {
		t.Error("expected pause at free<=4 with 3 free")
	}
	if b.ShouldResume(4, 8) {
		t.Error("should not resume yet: free=3 < 4+8")
	}
	b.PopFrames(make([]pcmring.Frame, 10)) // free space now 13
	if !b.ShouldResume(4, 8) {
		t.Error("expected resume once free space reaches headroom+hysteresis")
	}
}
