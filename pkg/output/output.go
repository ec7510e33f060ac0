// Package output implements the Output Driver (spec.md §4.10): binds the
// mixer's output ring buffer to a PortAudio callback stream. Grounded on
// the teacher's internal/fileplayer.audioCallback (non-blocking,
// non-allocating callback reading frames and filling silence on underrun)
// and pkg/audioplayer.Player (the simpler blocking-write variant).
package output

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"

	"github.com/friendsincode/audioengine/pkg/pcmring"
)

// underrunGraceEvents is the number of consecutive empty-ring audio
// callbacks tolerated before an underrun event is surfaced — short gaps
// while a chain catches up are normal and not worth alerting on.
const underrunGraceEvents = 8

// Event is emitted on state transitions the engine's event sink cares
// about: underrun entry/clear.
type Event struct {
	Kind string // "underrun_start" | "underrun_clear"
	At   time.Time
}

// Driver owns the PortAudio stream and reads mixed frames from ring in its
// real-time callback. The callback performs no allocation and no locking:
// volume is an atomic float32 bit pattern, and ring is the lock-free SPSC
// pcmring.Ring the mixer goroutine fills concurrently.
type Driver struct {
	ring       *pcmring.Ring
	stream     *portaudio.PaStream
	sampleRate int
	deviceIdx  int

	volumeBits atomic.Uint32

	consecutiveUnderruns atomic.Int64
	underrunActive       atomic.Bool
	events               chan Event

	playedFrames atomic.Uint64
}

// New creates a driver reading from ring. Call Open to start the stream.
func New(ring *pcmring.Ring, sampleRate, deviceIdx int) *Driver {
	d := &Driver{
		ring:       ring,
		sampleRate: sampleRate,
		deviceIdx:  deviceIdx,
		events:     make(chan Event, 8),
	}
	d.SetVolume(1.0)
	return d
}

// Events surfaces underrun start/clear notifications.
func (d *Driver) Events() <-chan Event { return d.events }

// SetVolume sets the output gain atomically; safe to call concurrently
// with the audio callback.
func (d *Driver) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	d.volumeBits.Store(math.Float32bits(v))
}

func (d *Driver) volume() float32 {
	return math.Float32frombits(d.volumeBits.Load())
}

// PlayedFrames returns the cumulative number of frames sent to the
// hardware (including silence filled on underrun).
func (d *Driver) PlayedFrames() uint64 { return d.playedFrames.Load() }

// Open initializes and starts the PortAudio output stream at framesPerBuffer
// granularity, 2-channel float32.
func (d *Driver) Open(framesPerBuffer int) error {
	d.stream = &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  d.deviceIdx,
			ChannelCount: 2,
			SampleFormat: portaudio.SampleFmtFloat32,
		},
		SampleRate: float64(d.sampleRate),
	}

	if err := d.stream.OpenCallback(framesPerBuffer, d.audioCallback); err != nil {
		return err
	}
	return d.stream.StartStream()
}

// Close stops and releases the stream.
func (d *Driver) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.StopStream(); err != nil {
		return err
	}
	if err := d.stream.CloseCallback(); err != nil {
		return err
	}
	d.stream = nil
	return nil
}

// audioCallback runs on PortAudio's real-time thread. It must not allocate
// or block: reading from ring is lock-free, volume is a plain atomic load.
func (d *Driver) audioCallback(
	input, output []byte,
	frameCount uint,
	timeInfo *portaudio.StreamCallbackTimeInfo,
	statusFlags portaudio.StreamCallbackFlags,
) portaudio.StreamCallbackResult {
	vol := d.volume()
	produced := 0

	for produced < int(frameCount) {
		f, ok := d.ring.PopOne()
		if !ok {
			break
		}
		writeFloat32LE(output[produced*8:produced*8+4], f.L*vol)
		writeFloat32LE(output[produced*8+4:produced*8+8], f.R*vol)
		produced++
	}

	if produced < int(frameCount) {
		clear(output[produced*8 : int(frameCount)*8])
		d.noteUnderrun()
	} else {
		d.noteNoUnderrun()
	}

	d.playedFrames.Add(uint64(frameCount))
	return portaudio.Continue
}

func (d *Driver) noteUnderrun() {
	n := d.consecutiveUnderruns.Add(1)
	if n == underrunGraceEvents && d.underrunActive.CompareAndSwap(false, true) {
		d.emit(Event{Kind: "underrun_start", At: time.Now()})
	}
}

func (d *Driver) noteNoUnderrun() {
	d.consecutiveUnderruns.Store(0)
	if d.underrunActive.CompareAndSwap(true, false) {
		d.emit(Event{Kind: "underrun_clear", At: time.Now()})
	}
}

func (d *Driver) emit(e Event) {
	select {
	case d.events <- e:
	default:
	}
}

func writeFloat32LE(dst []byte, v float32) {
	bits := math.Float32bits(v)
	dst[0] = byte(bits)
	dst[1] = byte(bits >> 8)
	dst[2] = byte(bits >> 16)
	dst[3] = byte(bits >> 24)
}
