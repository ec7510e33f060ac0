// Package resample wraps zaf/resample (a SoXR binding) in a persistent
// streaming form, generalizing the teacher's cmd/transform.go one-shot
// resampleAudio helper: instead of one Write+Close per file, the resampler
// stays alive across repeated Push calls so its internal filter state
// carries across chunk boundaries (spec.md §4.4, "stateful resampling").
package resample

import (
	"bufio"
	"bytes"
	"fmt"

	soxr "github.com/zaf/resample"
)

// Resampler converts PCM at one sample rate to PCM at another, a chunk at a
// time. When the source and target rates match it is a pure passthrough —
// no SoXR instance is created, so there is no filter-state overhead and no
// latency added.
type Resampler struct {
	channels int
	bypass   bool

	sink *bytes.Buffer
	w    *bufio.Writer
	r    *soxr.Resampler

	inputFrames  int64
	outputFrames int64
	bytesPerIn   int
	bytesPerOut  int
}

// New creates a resampler from fromRate to toRate for the given channel
// count and PCM bit depth. bitsPerSample must be 16, 24, or 32.
func New(fromRate, toRate, channels, bitsPerSample int) (*Resampler, error) {
	bytesPer := bitsPerSample / 8
	r := &Resampler{
		channels:    channels,
		bypass:      fromRate == toRate,
		bytesPerIn:  bytesPer,
		bytesPerOut: bytesPer,
	}
	if r.bypass {
		return r, nil
	}

	format, err := soxrFormat(bitsPerSample)
	if err != nil {
		return nil, err
	}

	sink := &bytes.Buffer{}
	w := bufio.NewWriter(sink)
	soxResampler, err := soxr.New(w, float64(fromRate), float64(toRate), channels, format, soxr.HighQ)
	if err != nil {
		return nil, fmt.Errorf("resample: creating soxr resampler: %w", err)
	}

	r.sink = sink
	r.w = w
	r.r = soxResampler
	return r, nil
}

func soxrFormat(bitsPerSample int) (soxr.Format, error) {
	switch bitsPerSample {
	case 16:
		return soxr.I16, nil
	case 24:
		return soxr.I24, nil
	case 32:
		return soxr.I32, nil
	default:
		return 0, fmt.Errorf("resample: unsupported bit depth %d", bitsPerSample)
	}
}

// Push feeds pcm (raw interleaved samples at the input rate) through the
// resampler and returns whatever resampled bytes are newly available.
// SoXR buffers internally, so a Push call may return fewer bytes than a
// naive rate-ratio calculation would predict, or occasionally more.
func (r *Resampler) Push(pcm []byte) ([]byte, error) {
	frameSize := r.channels * r.bytesPerIn
	if frameSize > 0 {
		r.inputFrames += int64(len(pcm) / frameSize)
	}

	if r.bypass {
		r.outputFrames += int64(len(pcm) / frameSize)
		return pcm, nil
	}

	if _, err := r.r.Write(pcm); err != nil {
		return nil, fmt.Errorf("resample: write: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return nil, fmt.Errorf("resample: flush buffer writer: %w", err)
	}

	out := r.drain()
	outFrameSize := r.channels * r.bytesPerOut
	if outFrameSize > 0 {
		r.outputFrames += int64(len(out) / outFrameSize)
	}
	return out, nil
}

// Flush terminates the stream (there is no more input), returning any
// tail samples SoXR was still holding in its filter pipeline. The
// resampler must not be used again after Flush.
func (r *Resampler) Flush() ([]byte, error) {
	if r.bypass {
		return nil, nil
	}
	if err := r.r.Close(); err != nil {
		return nil, fmt.Errorf("resample: close: %w", err)
	}
	if err := r.w.Flush(); err != nil {
		return nil, fmt.Errorf("resample: flush buffer writer: %w", err)
	}
	out := r.drain()
	outFrameSize := r.channels * r.bytesPerOut
	if outFrameSize > 0 {
		r.outputFrames += int64(len(out) / outFrameSize)
	}
	return out, nil
}

func (r *Resampler) drain() []byte {
	if r.sink.Len() == 0 {
		return nil
	}
	out := make([]byte, r.sink.Len())
	copy(out, r.sink.Bytes())
	r.sink.Reset()
	return out
}

// InputFrames and OutputFrames report cumulative frame counts, for chain
// position bookkeeping (spec.md §4.6's absolute chain-output position).
func (r *Resampler) InputFrames() int64  { return r.inputFrames }
func (r *Resampler) OutputFrames() int64 { return r.outputFrames }

// Bypass reports whether this resampler is a passthrough (source and
// target rates equal).
func (r *Resampler) Bypass() bool { return r.bypass }
