package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// aiffDecoder parses the AIFF container directly against stdlib
// encoding/binary. AIFF's sample data is uncompressed PCM (no entropy
// coding), so this is chunk parsing, not codec decoding, and needs no
// third-party library — unlike MP3/FLAC/Vorbis/Opus below, which all wrap a
// real codec binding. AIFF samples are stored big-endian, unlike every
// other format handled by this package.
type aiffDecoder struct {
	file       *os.File
	rate       int
	channels   int
	bps        int
	dataOffset int64
	framesLeft int64
}

func newAIFFDecoder() *aiffDecoder { return &aiffDecoder{} }

type aiffChunkHeader struct {
	ID   [4]byte
	Size uint32
}

func (d *aiffDecoder) Open(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening aiff file: %w", err)
	}

	var form aiffChunkHeader
	if err := binary.Read(file, binary.BigEndian, &form); err != nil {
		file.Close()
		return fmt.Errorf("reading FORM header: %w", err)
	}
	if string(form.ID[:]) != "FORM" {
		file.Close()
		return fmt.Errorf("not an AIFF file: missing FORM chunk")
	}
	var formType [4]byte
	if err := binary.Read(file, binary.BigEndian, &formType); err != nil {
		file.Close()
		return fmt.Errorf("reading AIFF form type: %w", err)
	}
	if string(formType[:]) != "AIFF" && string(formType[:]) != "AIFC" {
		file.Close()
		return fmt.Errorf("unsupported AIFF form type %q", formType)
	}

	var (
		haveCOMM  bool
		haveSSND  bool
		numFrames uint32
	)

	for !haveSSND {
		var h aiffChunkHeader
		if err := binary.Read(file, binary.BigEndian, &h); err != nil {
			file.Close()
			return fmt.Errorf("reading chunk header: %w", err)
		}

		switch string(h.ID[:]) {
		case "COMM":
			var channels uint16
			if err := binary.Read(file, binary.BigEndian, &channels); err != nil {
				file.Close()
				return err
			}
			if err := binary.Read(file, binary.BigEndian, &numFrames); err != nil {
				file.Close()
				return err
			}
			var sampleSize uint16
			if err := binary.Read(file, binary.BigEndian, &sampleSize); err != nil {
				file.Close()
				return err
			}
			var extended [10]byte
			if err := binary.Read(file, binary.BigEndian, &extended); err != nil {
				file.Close()
				return err
			}
			d.channels = int(channels)
			d.bps = int(sampleSize)
			d.rate = int(decodeIEEE80ExtendedRate(extended))
			haveCOMM = true

			remaining := int64(h.Size) - 2 - 4 - 2 - 10
			if remaining > 0 {
				if _, err := file.Seek(remaining, io.SeekCurrent); err != nil {
					file.Close()
					return err
				}
			}
		case "SSND":
			var offset, blockSize uint32
			if err := binary.Read(file, binary.BigEndian, &offset); err != nil {
				file.Close()
				return err
			}
			if err := binary.Read(file, binary.BigEndian, &blockSize); err != nil {
				file.Close()
				return err
			}
			if offset > 0 {
				if _, err := file.Seek(int64(offset), io.SeekCurrent); err != nil {
					file.Close()
					return err
				}
			}
			pos, err := file.Seek(0, io.SeekCurrent)
			if err != nil {
				file.Close()
				return err
			}
			d.dataOffset = pos
			haveSSND = true
		default:
			size := int64(h.Size)
			if size%2 == 1 {
				size++ // chunks are word-aligned
			}
			if _, err := file.Seek(size, io.SeekCurrent); err != nil {
				file.Close()
				return err
			}
		}
	}

	if !haveCOMM {
		file.Close()
		return fmt.Errorf("AIFF file missing COMM chunk")
	}

	d.file = file
	d.framesLeft = int64(numFrames)
	return nil
}

func (d *aiffDecoder) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

func (d *aiffDecoder) Format() (int, int, int) {
	return d.rate, d.channels, d.bps
}

// DecodeSamples reads big-endian PCM frames and re-emits them little-endian
// so downstream chain code only ever handles one byte order.
func (d *aiffDecoder) DecodeSamples(samples int, audio []byte) (int, error) {
	if d.file == nil {
		return 0, fmt.Errorf("aiff decoder not open")
	}
	bytesPerSample := d.bps / 8
	frameSize := bytesPerSample * d.channels

	if int64(samples) > d.framesLeft {
		samples = int(d.framesLeft)
	}
	if samples <= 0 {
		return 0, nil
	}

	buf := make([]byte, frameSize)
	decoded := 0
	for decoded < samples {
		if _, err := io.ReadFull(d.file, buf); err != nil {
			return decoded, err
		}
		for ch := 0; ch < d.channels; ch++ {
			src := buf[ch*bytesPerSample : (ch+1)*bytesPerSample]
			value := beSignedToInt(src)
			offset := (decoded*d.channels + ch) * bytesPerSample
			if offset+bytesPerSample > len(audio) {
				d.framesLeft -= int64(decoded)
				return decoded, nil
			}
			writeLittleEndian(audio[offset:offset+bytesPerSample], value, d.bps)
		}
		decoded++
	}
	d.framesLeft -= int64(decoded)
	return decoded, nil
}

func beSignedToInt(src []byte) int {
	var v int64
	for _, b := range src {
		v = v<<8 | int64(b)
	}
	bits := uint(len(src)) * 8
	signBit := int64(1) << (bits - 1)
	if v&signBit != 0 {
		v -= int64(1) << bits
	}
	return int(v)
}

// decodeIEEE80ExtendedRate decodes the 80-bit IEEE 754 extended precision
// sample rate field AIFF's COMM chunk uses, returning it as an integer Hz
// value (AIFF never uses fractional sample rates in practice).
func decodeIEEE80ExtendedRate(b [10]byte) uint64 {
	sign := b[0] & 0x80
	exponent := (uint16(b[0]&0x7f) << 8) | uint16(b[1])
	mantissa := binary.BigEndian.Uint64(b[2:10])

	if exponent == 0 && mantissa == 0 {
		return 0
	}

	exp := int(exponent) - 16383 - 63
	var value float64
	if exp >= 0 {
		value = float64(mantissa) * float64(uint64(1)<<uint(minInt(exp, 62)))
		for i := 62; i < exp; i++ {
			value *= 2
		}
	} else {
		value = float64(mantissa) / float64(uint64(1)<<uint(minInt(-exp, 62)))
		for i := 62; i < -exp; i++ {
			value /= 2
		}
	}
	if sign != 0 {
		value = -value
	}
	return uint64(value + 0.5)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
