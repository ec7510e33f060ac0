package engine

import "github.com/friendsincode/audioengine/pkg/passage"

// Ack is the structured acknowledgment every command returns (spec.md §6:
// "success, reject-with-code, or accepted-and-pending").
type Ack struct {
	EntryID passage.EntryID
	Err     error
}

type cmdKind int

const (
	cmdEnqueue cmdKind = iota
	cmdDequeue
	cmdReorder
	cmdPlay
	cmdPause
	cmdSkip
	cmdSetVolume
	cmdSeek
)

type command struct {
	kind cmdKind

	entryID   passage.EntryID
	pass      passage.Passage
	overrides *passage.Overrides
	order     map[passage.EntryID]int64
	volume    float32
	seekTick  int64

	reply chan Ack
}

func (e *Engine) submit(cmd command) Ack {
	cmd.reply = make(chan Ack, 1)
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return Ack{Err: errEngineStopped}
	}
	select {
	case ack := <-cmd.reply:
		return ack
	case <-e.done:
		return Ack{Err: errEngineStopped}
	}
}

// Enqueue appends a new queue entry at the tail of play order and returns
// its generated entry ID. Rejects (Phase-1 validation, spec.md §4.11)
// without ever touching the queue if the effective passage is invalid.
func (e *Engine) Enqueue(pass passage.Passage, overrides *passage.Overrides) (passage.EntryID, error) {
	ack := e.submit(command{kind: cmdEnqueue, pass: pass, overrides: overrides})
	return ack.EntryID, ack.Err
}

// Dequeue removes id from the queue, wherever it is in its lifecycle.
func (e *Engine) Dequeue(id passage.EntryID) error {
	return e.submit(command{kind: cmdDequeue, entryID: id}).Err
}

// ReorderQueue applies a new play-order mapping to some or all entries.
func (e *Engine) ReorderQueue(order map[passage.EntryID]int64) error {
	return e.submit(command{kind: cmdReorder, order: order}).Err
}

// Play starts or resumes playback.
func (e *Engine) Play() error {
	return e.submit(command{kind: cmdPlay}).Err
}

// Pause freezes output, decaying toward silence per spec.md §4.9.
func (e *Engine) Pause() error {
	return e.submit(command{kind: cmdPause}).Err
}

// Skip force-completes the currently playing entry and advances the queue.
func (e *Engine) Skip() error {
	return e.submit(command{kind: cmdSkip}).Err
}

// SetVolume sets the master output volume, clamped to [0,1].
func (e *Engine) SetVolume(v float32) error {
	return e.submit(command{kind: cmdSetVolume, volume: v}).Err
}

// Seek repositions id's effective Start point and restarts its decode chain
// from file zero, discarding up to the new tick (spec.md §4.3: compressed
// formats are never seeked directly).
func (e *Engine) Seek(id passage.EntryID, tick int64) error {
	return e.submit(command{kind: cmdSeek, entryID: id, seekTick: tick}).Err
}
