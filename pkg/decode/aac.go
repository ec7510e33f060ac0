package decode

import "fmt"

// aacDecoder is a registered placeholder for .aac/.m4a: no versioned,
// importable pure-Go AAC decoder is available, so Open always fails with
// ErrUnsupportedFormat. Registering the extension (rather than leaving it
// unmatched in the registry) means callers get the same structured error
// path as a genuinely unknown format, per spec.md's "unknown format"
// rejection behavior.
type aacDecoder struct{}

func newAACDecoder() *aacDecoder { return &aacDecoder{} }

func (d *aacDecoder) Open(path string) error {
	return fmt.Errorf("%w: aac/m4a decoding is not available", ErrUnsupportedFormat)
}

func (d *aacDecoder) Close() error { return nil }

func (d *aacDecoder) Format() (int, int, int) { return 0, 0, 0 }

func (d *aacDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	return 0, fmt.Errorf("%w: aac/m4a decoding is not available", ErrUnsupportedFormat)
}
