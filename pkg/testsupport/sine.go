// Package testsupport provides synthetic audio sources for tests, since no
// real audio fixtures are bundled with this module (spec.md §8: testable
// properties are exercised with generated signals, not recorded audio).
package testsupport

import "math"

// SineDecoder implements decode.Decoder (structurally — it is kept
// dependency-free so pkg/decode need not be imported by every consumer's
// test file) over a generated sine wave of FrameCount total frames, the
// same sample written to each of Channels channels.
// It never errors and never reads past FrameCount.
type SineDecoder struct {
	SampleRate int
	Channels   int
	FrameCount int64
	FreqHz     float64

	pos int64
	bps int
}

// NewSineDecoder creates a ready-to-decode synthetic source. DecodeSamples
// always writes 16-bit little-endian PCM (matching every real decoder
// adapter's output); the bit depth is not configurable.
func NewSineDecoder(sampleRate, channels int, frameCount int64, freqHz float64) *SineDecoder {
	return &SineDecoder{
		SampleRate: sampleRate,
		Channels:   channels,
		FrameCount: frameCount,
		FreqHz:     freqHz,
		bps:        16,
	}
}

func (s *SineDecoder) Open(path string) error { return nil }
func (s *SineDecoder) Close() error            { return nil }

func (s *SineDecoder) Format() (int, int, int) {
	return s.SampleRate, s.Channels, s.bps
}

func (s *SineDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	remaining := s.FrameCount - s.pos
	if int64(samples) > remaining {
		samples = int(remaining)
	}
	if samples <= 0 {
		return 0, nil
	}

	bytesPerSample := s.bps / 8
	for i := 0; i < samples; i++ {
		t := float64(s.pos+int64(i)) / float64(s.SampleRate)
		v := math.Sin(2 * math.Pi * s.FreqHz * t)
		sample := int(v * 32767)
		for ch := 0; ch < s.Channels; ch++ {
			offset := (i*s.Channels + ch) * bytesPerSample
			if offset+bytesPerSample > len(audio) {
				s.pos += int64(i)
				return i, nil
			}
			writeLittleEndian16(audio[offset:offset+bytesPerSample], sample)
		}
	}
	s.pos += int64(samples)
	return samples, nil
}

func writeLittleEndian16(dst []byte, value int) {
	dst[0] = byte(value)
	dst[1] = byte(value >> 8)
}
