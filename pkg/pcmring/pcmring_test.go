package pcmring

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	r := New(16)
	in := make([]Frame, 10)
	for i := range in {
		in[i] = Frame{L: float32(i), R: float32(-i)}
	}

	n := r.Push(in)
	if n != 10 {
		t.Fatalf("Push returned %d, want 10", n)
	}

	out := make([]Frame, 10)
	n = r.Pop(out)
	if n != 10 {
		t.Fatalf("Pop returned %d, want 10", n)
	}
	for i := range out {
		if out[i] != in[i] {
			t.Errorf("frame %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestOverrunRejected(t *testing.T) {
	r := New(4) // rounds to 4
	frames := make([]Frame, 10)
	n := r.Push(frames)
	if n != 4 {
		t.Fatalf("Push accepted %d of 10 into a 4-capacity ring, want 4", n)
	}
	if r.FreeSpace() != 0 {
		t.Errorf("FreeSpace = %d, want 0", r.FreeSpace())
	}
}

func TestUnderrunReturnsEmpty(t *testing.T) {
	r := New(8)
	out := make([]Frame, 4)
	n := r.Pop(out)
	if n != 0 {
		t.Errorf("Pop on empty ring returned %d, want 0", n)
	}
	if _, ok := r.PopOne(); ok {
		t.Error("PopOne on empty ring should return ok=false")
	}
}

func TestWrapAround(t *testing.T) {
	r := New(4)
	first := []Frame{{L: 1}, {L: 2}, {L: 3}}
	r.Push(first)
	out := make([]Frame, 2)
	r.Pop(out) // consume 2, read cursor now at 2

	second := []Frame{{L: 4}, {L: 5}, {L: 6}}
	n := r.Push(second) // only 3 free (4 - (3-2)=1 occupied = 3 free)
	if n != 3 {
		t.Fatalf("Push after partial read = %d, want 3", n)
	}

	rest := make([]Frame, 4)
	n = r.Pop(rest)
	if n != 4 {
		t.Fatalf("final Pop = %d, want 4", n)
	}
	want := []float32{3, 4, 5, 6}
	for i, f := range rest {
		if f.L != want[i] {
			t.Errorf("wrap-around order mismatch at %d: got %v want %v", i, f.L, want[i])
		}
	}
}

func TestPowerOfTwoRounding(t *testing.T) {
	r := New(100)
	if r.Capacity() != 128 {
		t.Errorf("Capacity() = %d, want 128", r.Capacity())
	}
}

func TestNeverWrapsPastReadCursor(t *testing.T) {
	// Invariant 1: write cursor >= read cursor at all times.
	r := New(8)
	for i := 0; i < 100; i++ {
		r.Push([]Frame{{L: float32(i)}})
		if _, ok := r.PopOne(); !ok && r.Occupied() > 0 {
			t.Fatal("PopOne failed despite nonzero occupancy")
		}
	}
}
