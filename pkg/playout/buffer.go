// Package playout implements the per-passage PCM playout buffer (spec.md
// §4.2) and the buffer manager that owns all of them and enforces the
// backpressure/hysteresis rule (spec.md §4.8).
package playout

import (
	"sync"
	"sync/atomic"

	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/passage"
)

// State is one of the five playout buffer lifecycle states (spec.md §3).
type State int32

const (
	Empty State = iota
	Filling
	Ready
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Filling:
		return "Filling"
	case Ready:
		return "Ready"
	case Playing:
		return "Playing"
	case Finished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Buffer is a fixed-capacity PCM frame container for one queue entry,
// written by exactly one decoder chain and read by exactly one mixer.
// The backing ring is SPSC lock-free, so no mutex guards the hot path.
type Buffer struct {
	entryID passage.EntryID
	pass    passage.Passage

	ring *pcmring.Ring

	state              atomic.Int32
	acceptedSinceEmpty atomic.Uint64
	minStartLevel      uint64

	readyOnce sync.Once
	readyCh   chan struct{}
}

// New creates a playout buffer for entryID/pass with the given frame
// capacity and the accepted-frame count (since last Empty) required to
// transition Filling -> Ready.
func New(entryID passage.EntryID, pass passage.Passage, capacity, minStartLevel uint64) *Buffer {
	return &Buffer{
		entryID:       entryID,
		pass:          pass,
		ring:          pcmring.New(capacity),
		minStartLevel: minStartLevel,
		readyCh:       make(chan struct{}),
	}
}

// EntryID returns the queue entry this buffer belongs to.
func (b *Buffer) EntryID() passage.EntryID { return b.entryID }

// Passage returns the source passage for this buffer.
func (b *Buffer) Passage() passage.Passage { return b.pass }

// State returns the buffer's current lifecycle state.
func (b *Buffer) State() State { return State(b.state.Load()) }

// ReadyCh fires exactly once, the first time the buffer becomes Ready.
func (b *Buffer) ReadyCh() <-chan struct{} { return b.readyCh }

// PushFrames is the writer-side call (decoder chain only). It returns the
// number of frames actually accepted — fewer than len(frames) if the ring
// lacks space. No writes are accepted once Finished.
func (b *Buffer) PushFrames(frames []pcmring.Frame) int {
	if b.State() == Finished {
		return 0
	}
	accepted := b.ring.Push(frames)
	if accepted == 0 {
		return 0
	}

	b.state.CompareAndSwap(int32(Empty), int32(Filling))

	total := b.acceptedSinceEmpty.Add(uint64(accepted))
	if State(b.state.Load()) == Filling && total >= b.minStartLevel {
		if b.state.CompareAndSwap(int32(Filling), int32(Ready)) {
			b.readyOnce.Do(func() { close(b.readyCh) })
		}
	}
	return accepted
}

// PopFrames is the reader-side call (mixer only). It returns the number of
// frames actually read, fewer than len(out) on underrun (never blocks).
func (b *Buffer) PopFrames(out []pcmring.Frame) int {
	n := b.ring.Pop(out)
	if n > 0 {
		b.state.CompareAndSwap(int32(Ready), int32(Playing))
	}
	return n
}

// MarkFinished marks the buffer terminal: no more writes are accepted. The
// mixer may continue to drain already-buffered frames after this call.
func (b *Buffer) MarkFinished() {
	b.state.Store(int32(Finished))
}

// FreeSpace returns the number of frames that can still be written —
// used by the decoder chain/worker for backpressure decisions.
func (b *Buffer) FreeSpace() uint64 { return b.ring.FreeSpace() }

// Available returns the number of frames ready to be read.
func (b *Buffer) Available() uint64 { return b.ring.Occupied() }

// ShouldPause reports whether a decoder chain writing to this buffer must
// stop, per the backpressure rule in spec.md §4.8: free space at or below
// headroom.
func (b *Buffer) ShouldPause(headroom uint64) bool {
	return b.FreeSpace() <= headroom
}

// ShouldResume reports whether a paused decoder chain may resume writing,
// per the hysteresis rule in spec.md §4.8: free space at or above
// headroom+resumeHysteresis. The gap between ShouldPause's threshold and
// this one prevents oscillation near the boundary.
func (b *Buffer) ShouldResume(headroom, resumeHysteresis uint64) bool {
	return b.FreeSpace() >= headroom+resumeHysteresis
}
