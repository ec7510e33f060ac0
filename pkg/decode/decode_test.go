package decode

import (
	"errors"
	"testing"
)

func TestOpenUnknownExtension(t *testing.T) {
	_, err := Open("track.xyz")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestOpenAACReturnsUnsupported(t *testing.T) {
	_, err := Open("track.aac")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for aac, got %v", err)
	}
}

func TestOpenM4AReturnsUnsupported(t *testing.T) {
	_, err := Open("track.m4a")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for m4a, got %v", err)
	}
}

func TestWriteLittleEndianRoundTrip(t *testing.T) {
	cases := []struct {
		bps   int
		value int
	}{
		{8, 100}, {16, -12345}, {24, 8000000}, {32, -1000000000},
	}
	for _, c := range cases {
		buf := make([]byte, c.bps/8)
		writeLittleEndian(buf, c.value, c.bps)
		got := 0
		for i := len(buf) - 1; i >= 0; i-- {
			got = got<<8 | int(buf[i])
		}
		bits := uint(c.bps)
		signBit := 1 << (bits - 1)
		if got&signBit != 0 {
			got -= 1 << bits
		}
		if got != c.value {
			t.Errorf("bps=%d: round-trip got %d, want %d", c.bps, got, c.value)
		}
	}
}

func TestBESignedToInt(t *testing.T) {
	// 0x00 0x64 big-endian == 100
	if got := beSignedToInt([]byte{0x00, 0x64}); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
	// 0xFF 0x9C big-endian == -100
	if got := beSignedToInt([]byte{0xFF, 0x9C}); got != -100 {
		t.Errorf("got %d, want -100", got)
	}
}
