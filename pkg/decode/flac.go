package decode

import (
	"fmt"

	goflac "github.com/drgolem/go-flac/flac"
)

// flacDecoder wraps goflac.FlacDecoder, generalizing the teacher's
// pkg/decoders/flac.Decoder. Output is fixed at 16-bit PCM.
type flacDecoder struct {
	decoder  *goflac.FlacDecoder
	rate     int
	channels int
	bps      int
}

func newFLACDecoder() *flacDecoder { return &flacDecoder{} }

func (d *flacDecoder) Open(path string) error {
	decoder, err := goflac.NewFlacFrameDecoder(16)
	if err != nil {
		return fmt.Errorf("creating flac decoder: %w", err)
	}

	if err := decoder.Open(path); err != nil {
		decoder.Delete()
		return fmt.Errorf("opening flac file: %w", err)
	}

	rate, channels, bps := decoder.GetFormat()
	d.decoder = decoder
	d.rate = rate
	d.channels = channels
	d.bps = bps
	return nil
}

func (d *flacDecoder) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
		d.decoder.Delete()
		d.decoder = nil
	}
	return nil
}

func (d *flacDecoder) Format() (int, int, int) {
	return d.rate, d.channels, d.bps
}

func (d *flacDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.decoder == nil {
		return 0, fmt.Errorf("flac decoder not open")
	}
	return d.decoder.DecodeSamples(samples, audio)
}
