package decode

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// vorbisDecoder wraps jfreymuth/oggvorbis, which decodes straight to
// float32 PCM. Output is re-quantized to 16-bit so this adapter matches
// every other Decoder's byte-oriented contract.
type vorbisDecoder struct {
	file     *os.File
	reader   *oggvorbis.Reader
	rate     int
	channels int
	scratch  []float32
}

func newVorbisDecoder() *vorbisDecoder { return &vorbisDecoder{} }

func (d *vorbisDecoder) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ogg/vorbis file: %w", err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return fmt.Errorf("creating vorbis reader: %w", err)
	}

	d.file = file
	d.reader = reader
	d.rate = reader.SampleRate()
	d.channels = reader.Channels()
	return nil
}

func (d *vorbisDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *vorbisDecoder) Format() (int, int, int) {
	return d.rate, d.channels, 16
}

func (d *vorbisDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.reader == nil {
		return 0, fmt.Errorf("vorbis decoder not open")
	}

	need := samples * d.channels
	if cap(d.scratch) < need {
		d.scratch = make([]float32, need)
	}
	buf := d.scratch[:need]

	n, err := d.reader.Read(buf)
	frames := n / d.channels
	if frames == 0 {
		return 0, err
	}

	for i := 0; i < frames*d.channels; i++ {
		offset := i * 2
		if offset+2 > len(audio) {
			break
		}
		writeLittleEndian(audio[offset:offset+2], floatToInt16(buf[i]), 16)
	}
	return frames, err
}

// floatToInt16 converts a [-1,1] float sample to a clamped 16-bit PCM value.
func floatToInt16(f float32) int {
	v := f
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
