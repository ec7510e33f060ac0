// Package decode generalizes the teacher's pkg/types.AudioDecoder interface
// and pkg/decoders/factory.go extension dispatch into the spec's Decoder
// component (spec.md §4.3), with one adapter per supported container/codec.
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Decoder is the common interface every format adapter implements. It
// decodes PCM samples into caller-provided byte buffers; DecodeSamples
// never seeks — positioning within a passage is done by decoding from the
// start and discarding (spec.md §4.3, "no compressed-stream seeking").
type Decoder interface {
	// Open opens the local file path for decoding.
	Open(path string) error
	// Close releases any resources (codec handles, open file descriptors).
	Close() error
	// Format returns sample rate (Hz), channel count, and bits per sample
	// of the decoded PCM stream.
	Format() (sampleRate, channels, bitsPerSample int)
	// DecodeSamples decodes up to samples frames into audio, returning the
	// count actually decoded. A short read with a nil error, or a read
	// returning 0, both signal end of stream.
	DecodeSamples(samples int, audio []byte) (int, error)
}

// ErrUnsupportedFormat is returned by Open when the file extension has no
// registered adapter, or has one that cannot actually decode (AAC/M4A).
var ErrUnsupportedFormat = errors.New("decode: unsupported audio format")

type factoryFunc func() Decoder

var registry = map[string]factoryFunc{
	".mp3":  func() Decoder { return newMP3Decoder() },
	".flac": func() Decoder { return newFLACDecoder() },
	".fla":  func() Decoder { return newFLACDecoder() },
	".wav":  func() Decoder { return newWAVDecoder() },
	".aiff": func() Decoder { return newAIFFDecoder() },
	".aif":  func() Decoder { return newAIFFDecoder() },
	".ogg":  func() Decoder { return newVorbisDecoder() },
	".opus": func() Decoder { return newOpusDecoder() },
	".aac":  func() Decoder { return newAACDecoder() },
	".m4a":  func() Decoder { return newAACDecoder() },
}

// Open creates and opens the appropriate decoder for path's extension.
func Open(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))

	newDecoder, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	d := newDecoder()
	if err := d.Open(path); err != nil {
		return nil, fmt.Errorf("decode: opening %s: %w", path, err)
	}
	return d, nil
}
