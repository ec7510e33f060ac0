// Package chain implements the Decoder Chain: decoder -> resampler ->
// fader -> playout-buffer writer, modeled as an explicit non-blocking step
// state machine per spec.md §4.6 rather than a blocking goroutine loop —
// the teacher's internal/fileplayer.producer() goroutine loop is the
// grounding for the decode/convert/write sequence, restructured so a single
// worker goroutine can drive many chains without blocking on any one of
// them (spec.md §4.7).
package chain

import (
	"errors"
	"fmt"
	"io"

	"github.com/friendsincode/audioengine/pkg/decode"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/playout"
	"github.com/friendsincode/audioengine/pkg/resample"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

// Result is the outcome of one Step call.
type Result int

const (
	// Processed means the chain decoded one chunk (whose frames may all
	// have been discarded as lying before Start) and may be stepped again
	// immediately.
	Processed Result = iota
	// BufferFull means the destination playout buffer has no free space;
	// the caller should yield this chain until space frees up.
	BufferFull
	// Finished means the source is fully decoded, resampled, and flushed,
	// or the passage's End point was reached, and the playout buffer has
	// been marked Finished.
	Finished
)

func (r Result) String() string {
	switch r {
	case Processed:
		return "Processed"
	case BufferFull:
		return "BufferFull"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// fallbackChunkSamples is the source-sample chunk size decoded per Step
// call (spec.md §6: decode_chunk_samples, default ~25,000 source samples),
// used only if New is given a non-positive chunk size.
const fallbackChunkSamples = 25_000

// Chain owns one decoder, its resampler, and its fader, and drives frames
// into exactly one playout buffer.
type Chain struct {
	entryID passage.EntryID
	pass    passage.Passage

	decoder  decode.Decoder
	resamp   *resample.Resampler
	fader    *Fader
	buffer   *playout.Buffer
	outRate  int
	srcRate  int
	srcCh    int
	srcBps   int
	outCh    int

	chunkSamples int

	// startFrame/endFrame bound the passage in the same output-rate frame
	// coordinate the fader uses. Frames before startFrame are decoded and
	// discarded (spec.md §4.3 "decode-from-start-and-discard" positioning);
	// framesSeen reaching endFrame truncates the chain early rather than
	// decoding the rest of the source (Open Question 2: a resampler tail
	// bleeding past end is discarded, not folded into the fade-out).
	startFrame, endFrame int64
	framesSeen           int64

	outputFramesWritten int64
	finished            bool

	pcmScratch []byte
	pending    []pcmring.Frame
	pendingPos int
}

// New builds a decoder chain for entryID/pass, reading from dec and writing
// into buf at outputRate (the engine's fixed output sample rate, 2
// channels). dec must already be open. chunkSamples is the configured
// decode_chunk_samples; a non-positive value falls back to the
// spec-documented default.
func New(entryID passage.EntryID, pass passage.Passage, dec decode.Decoder, buf *playout.Buffer, outputRate int, chunkSamples int) (*Chain, error) {
	srcRate, srcCh, srcBps := dec.Format()
	if srcCh < 1 || srcCh > 2 {
		return nil, fmt.Errorf("chain: unsupported source channel count %d", srcCh)
	}
	if chunkSamples <= 0 {
		chunkSamples = fallbackChunkSamples
	}

	resamp, err := resample.New(srcRate, outputRate, srcCh, srcBps)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	return &Chain{
		entryID:      entryID,
		pass:         pass,
		decoder:      dec,
		resamp:       resamp,
		fader:        NewFader(pass, outputRate),
		buffer:       buf,
		outRate:      outputRate,
		srcRate:      srcRate,
		srcCh:        srcCh,
		srcBps:       srcBps,
		outCh:        2,
		chunkSamples: chunkSamples,
		startFrame:   ticks.ToSamples(pass.Start, outputRate),
		endFrame:     ticks.ToSamples(pass.End, outputRate),
	}, nil
}

// EntryID returns the queue entry this chain feeds.
func (c *Chain) EntryID() passage.EntryID { return c.entryID }

// Step advances the chain by at most one decode chunk. It never blocks.
func (c *Chain) Step() (Result, error) {
	if c.finished {
		return Finished, nil
	}

	if drained := c.drainPending(); drained == BufferFull {
		return BufferFull, nil
	}

	if c.buffer.FreeSpace() == 0 {
		return BufferFull, nil
	}

	frameSize := c.srcCh * (c.srcBps / 8)
	buf := c.scratch(c.chunkSamples * frameSize)

	n, err := c.decoder.DecodeSamples(c.chunkSamples, buf)
	reachedEnd := false
	if n > 0 {
		resampled, rerr := c.resamp.Push(buf[:n*frameSize])
		if rerr != nil {
			return Processed, fmt.Errorf("chain: resample: %w", rerr)
		}
		reachedEnd = c.enqueueFrames(resampled)
		if c.drainPending() == BufferFull {
			return BufferFull, nil
		}
	}

	if reachedEnd {
		c.buffer.MarkFinished()
		c.finished = true
		return Finished, nil
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return Processed, fmt.Errorf("chain: decode: %w", err)
	}

	if n == 0 || errors.Is(err, io.EOF) {
		tail, ferr := c.resamp.Flush()
		if ferr != nil {
			return Processed, fmt.Errorf("chain: flush: %w", ferr)
		}
		c.enqueueFrames(tail)
		if c.drainPending() == BufferFull {
			return BufferFull, nil
		}
		c.buffer.MarkFinished()
		c.finished = true
		return Finished, nil
	}

	return Processed, nil
}

func (c *Chain) scratch(n int) []byte {
	if cap(c.pcmScratch) < n {
		c.pcmScratch = make([]byte, n)
	}
	return c.pcmScratch[:n]
}

// enqueueFrames converts resampled PCM bytes (at the source bit depth,
// source channel count) into gain-applied stereo frames, appending them to
// the pending queue for the next drainPending call. Frames before the
// passage's Start point are decoded and discarded rather than queued;
// reaching the End point reports true so Step can truncate the chain
// without waiting for the underlying decoder to reach EOF.
func (c *Chain) enqueueFrames(pcm []byte) (reachedEnd bool) {
	if len(pcm) == 0 {
		return false
	}
	bytesPerSample := c.srcBps / 8
	frameSize := c.srcCh * bytesPerSample
	count := len(pcm) / frameSize

	for i := 0; i < count; i++ {
		pos := c.framesSeen
		c.framesSeen++

		if pos < c.startFrame {
			continue
		}
		if pos >= c.endFrame {
			return true
		}

		base := i * frameSize
		l := readSigned(pcm[base:base+bytesPerSample], c.srcBps)
		r := l
		if c.srcCh == 2 {
			r = readSigned(pcm[base+bytesPerSample:base+2*bytesPerSample], c.srcBps)
		}

		gain := c.fader.Gain(pos)
		peak := float32(int64(1) << (uint(c.srcBps) - 1))
		frame := pcmring.Frame{
			L: float32(l) / peak * float32(gain),
			R: float32(r) / peak * float32(gain),
		}
		c.pending = append(c.pending, frame)
	}
	return false
}

// drainPending writes as much of the pending queue into the playout buffer
// as there is space for. It returns BufferFull if the queue could not be
// fully drained.
func (c *Chain) drainPending() Result {
	for c.pendingPos < len(c.pending) {
		n := c.buffer.PushFrames(c.pending[c.pendingPos:])
		c.pendingPos += n
		c.outputFramesWritten += int64(n)
		if n == 0 {
			return BufferFull
		}
	}
	c.pending = c.pending[:0]
	c.pendingPos = 0
	return Processed
}

func readSigned(src []byte, bps int) int64 {
	var v int64
	for i := len(src) - 1; i >= 0; i-- {
		v = v<<8 | int64(src[i])
	}
	bits := uint(bps)
	signBit := int64(1) << (bits - 1)
	if v&signBit != 0 {
		v -= int64(1) << bits
	}
	return v
}
