package resample

import "testing"

func TestBypassPassesThroughUnchanged(t *testing.T) {
	r, err := New(44100, 44100, 2, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Bypass() {
		t.Fatal("expected bypass when rates match")
	}

	in := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	out, err := r.Push(in)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("bypass output length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("bypass mutated byte %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestBypassFrameCounters(t *testing.T) {
	r, _ := New(48000, 48000, 2, 16)
	frame := make([]byte, 2*2*100) // 100 stereo 16-bit frames
	r.Push(frame)
	if r.InputFrames() != 100 {
		t.Errorf("InputFrames = %d, want 100", r.InputFrames())
	}
	if r.OutputFrames() != 100 {
		t.Errorf("OutputFrames = %d, want 100", r.OutputFrames())
	}
}

func TestRejectsUnsupportedBitDepth(t *testing.T) {
	_, err := New(44100, 48000, 2, 12)
	if err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
}
