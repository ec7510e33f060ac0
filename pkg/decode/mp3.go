package decode

import (
	"fmt"

	"github.com/drgolem/go-mpg123/mpg123"
)

// mp3Decoder wraps mpg123.Decoder, generalizing the teacher's
// pkg/decoders/mp3.Decoder.
type mp3Decoder struct {
	decoder  *mpg123.Decoder
	rate     int
	channels int
	encoding int
}

func newMP3Decoder() *mp3Decoder { return &mp3Decoder{} }

func (d *mp3Decoder) Open(path string) error {
	decoder, err := mpg123.NewDecoder("")
	if err != nil {
		return fmt.Errorf("creating mpg123 decoder: %w", err)
	}

	if err := decoder.Open(path); err != nil {
		decoder.Delete()
		return fmt.Errorf("opening mp3 file: %w", err)
	}

	rate, channels, encoding := decoder.GetFormat()
	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	d.encoding = encoding
	return nil
}

func (d *mp3Decoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

func (d *mp3Decoder) Format() (int, int, int) {
	return d.rate, d.channels, 16
}

func (d *mp3Decoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("mp3 decoder not open")
	}
	_ = d.encoding // mpg123 decodes to the 16-bit encoding the chain expects
	return d.decoder.DecodeSamples(samples, audio)
}
