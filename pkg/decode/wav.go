package decode

import (
	"fmt"
	"os"

	"github.com/youpy/go-wav"
)

// wavDecoder wraps go-wav, generalizing the teacher's pkg/decoders/wav.Decoder.
type wavDecoder struct {
	file     *os.File
	reader   *wav.Reader
	rate     int
	channels int
	bps      int
}

func newWAVDecoder() *wavDecoder { return &wavDecoder{} }

func (d *wavDecoder) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening wav file: %w", err)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		file.Close()
		return fmt.Errorf("reading wav format: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		file.Close()
		return fmt.Errorf("unsupported wav encoding %d, only PCM is supported", format.AudioFormat)
	}

	d.file = file
	d.reader = reader
	d.rate = int(format.SampleRate)
	d.channels = int(format.NumChannels)
	d.bps = int(format.BitsPerSample)
	return nil
}

func (d *wavDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *wavDecoder) Format() (int, int, int) {
	return d.rate, d.channels, d.bps
}

func (d *wavDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("wav decoder not open")
	}

	bytesPerSample := d.bps / 8
	decoded := 0

	for decoded < samples {
		frames, err := d.reader.ReadSamples(1)
		if err != nil {
			return decoded, err
		}
		if len(frames) == 0 {
			return decoded, nil
		}

		for ch := 0; ch < d.channels; ch++ {
			if ch >= len(frames[0].Values) {
				break
			}
			offset := (decoded*d.channels + ch) * bytesPerSample
			if offset+bytesPerSample > len(audio) {
				return decoded, nil
			}
			writeLittleEndian(audio[offset:offset+bytesPerSample], frames[0].Values[ch], d.bps)
		}
		decoded++
	}
	return decoded, nil
}

// writeLittleEndian writes a signed PCM sample value into dst at the given
// bit depth, little-endian (the convention every container here but AIFF
// uses).
func writeLittleEndian(dst []byte, value int, bps int) {
	switch bps {
	case 8:
		dst[0] = byte(value)
	case 16:
		dst[0] = byte(value)
		dst[1] = byte(value >> 8)
	case 24:
		dst[0] = byte(value)
		dst[1] = byte(value >> 8)
		dst[2] = byte(value >> 16)
	case 32:
		dst[0] = byte(value)
		dst[1] = byte(value >> 8)
		dst[2] = byte(value >> 16)
		dst[3] = byte(value >> 24)
	}
}
