package chain

import (
	"testing"

	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/playout"
	"github.com/friendsincode/audioengine/pkg/testsupport"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

func onesSecondPassage() passage.Passage {
	sec := func(s float64) int64 { return ticks.FromSeconds(s) }
	return passage.Passage{
		AudioRef: "sine.wav",
		Start:    sec(0),
		FadeIn:   sec(0.1),
		FadeOut:  sec(0.9),
		LeadIn:   sec(0.1),
		LeadOut:  sec(0.9),
		End:      sec(1.0),
	}
}

func TestChainDecodesEntireSource(t *testing.T) {
	const rate = 48000
	dec := testsupport.NewSineDecoder(rate, 2, rate, 440)
	buf := playout.New("e1", onesSecondPassage(), 1<<17, 1)

	c, err := New("e1", onesSecondPassage(), dec, buf, rate, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var drained int64
	out := make([]pcmring.Frame, 4096)
	for i := 0; i < 1000; i++ {
		res, err := c.Step()
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		for {
			n := buf.PopFrames(out)
			drained += int64(n)
			if n == 0 {
				break
			}
		}
		if res == Finished {
			break
		}
	}
	// drain any remainder
	for {
		n := buf.PopFrames(out)
		drained += int64(n)
		if n == 0 {
			break
		}
	}

	if drained != rate {
		t.Errorf("drained %d frames, want %d", drained, rate)
	}
	if buf.State() != playout.Finished {
		t.Errorf("buffer state = %v, want Finished", buf.State())
	}
}

func TestChainReturnsBufferFullWhenBlocked(t *testing.T) {
	const rate = 48000
	dec := testsupport.NewSineDecoder(rate, 2, rate, 440)
	buf := playout.New("e1", onesSecondPassage(), 64, 1) // tiny buffer

	c, err := New("e1", onesSecondPassage(), dec, buf, rate, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res != BufferFull {
		t.Errorf("Step() = %v, want BufferFull once the tiny buffer saturates", res)
	}
}

func TestFaderFadesInSustainsAndFadesOut(t *testing.T) {
	f := NewFader(onesSecondPassage(), 48000)
	if g := f.Gain(0); g != 0 {
		t.Errorf("Gain(0) = %f, want 0 at fade-in start", g)
	}
	if g := f.Gain(48000 / 2); g != 1 {
		t.Errorf("Gain(mid) = %f, want 1 in the sustain region", g)
	}
	if g := f.Gain(48000 - 1); g >= 1 {
		t.Errorf("Gain(near end) = %f, want < 1 while fading out", g)
	}
}
