package decode

import (
	"fmt"

	"github.com/drgolem/go-opus/opus"
)

// opusDecoder wraps go-opus, following the same
// NewDecoder/Open/GetFormat/DecodeSamples/Close/Delete shape as this
// author's go-flac and go-mpg123 bindings.
type opusDecoder struct {
	decoder  *opus.Decoder
	rate     int
	channels int
}

func newOpusDecoder() *opusDecoder { return &opusDecoder{} }

func (d *opusDecoder) Open(path string) error {
	decoder, err := opus.NewDecoder()
	if err != nil {
		return fmt.Errorf("creating opus decoder: %w", err)
	}

	if err := decoder.Open(path); err != nil {
		decoder.Delete()
		return fmt.Errorf("opening opus file: %w", err)
	}

	rate, channels, _ := decoder.GetFormat()
	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	return nil
}

func (d *opusDecoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

func (d *opusDecoder) Format() (int, int, int) {
	return d.rate, d.channels, 16
}

func (d *opusDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("opus decoder not open")
	}
	return d.decoder.DecodeSamples(samples, audio)
}
