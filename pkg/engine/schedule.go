package engine

import (
	"context"
	"fmt"

	"github.com/friendsincode/audioengine/pkg/boundary"
	"github.com/friendsincode/audioengine/pkg/chain"
	"github.com/friendsincode/audioengine/pkg/decode"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

// scheduleDecodesLocked assigns free chain-pool slots (bounded at
// cfg.MaxDecodeStreams, spec.md §4.11) to queued entries that don't have one
// yet, lowest play-order first. Each assignment starts its chain
// asynchronously since resolving the blob and opening the decoder can block
// on I/O; the caller must already hold e.mu.
func (e *Engine) scheduleDecodesLocked(ctx context.Context) {
	for _, id := range e.order {
		es := e.entries[id]
		if es == nil || es.chain != nil || es.starting {
			continue
		}
		slot, ok := e.allocSlotLocked()
		if !ok {
			return
		}
		es.starting = true
		es.slot = slot
		es.hasSlot = true
		go e.startChain(ctx, id)
	}
}

func (e *Engine) allocSlotLocked() (int, bool) {
	for i, used := range e.slots {
		if !used {
			e.slots[i] = true
			return i, true
		}
	}
	return 0, false
}

func (e *Engine) freeSlotLocked(i int) {
	if i >= 0 && i < len(e.slots) {
		e.slots[i] = false
	}
}

// startChain resolves entryID's blob, opens a decoder for it, allocates its
// playout buffer, and builds its decode chain, then registers it with the
// worker. Run off the engine goroutine since every step here can block.
func (e *Engine) startChain(ctx context.Context, id passage.EntryID) {
	e.mu.Lock()
	es, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	pass := es.entry.Effective()
	// Open Question 1: the very first passage this engine ever plays may
	// start below the normal minimum start level, down to its own full
	// length, so a short first passage is never stuck waiting for more
	// frames than it will ever contain.
	relaxFirst := !e.everStarted && len(e.order) > 0 && e.order[0] == id
	e.mu.Unlock()

	path, err := e.blobs.Resolve(ctx, pass.AudioRef)
	if err != nil {
		e.failChain(ctx, id, fmt.Errorf("resolve blob: %w", err))
		return
	}

	dec, err := decode.Open(path)
	if err != nil {
		e.failChain(ctx, id, fmt.Errorf("open decoder: %w", err))
		return
	}

	minStart := e.cfg.MixerMinStartLevel
	if relaxFirst {
		span := uint64(ticks.ToSamples(pass.End-pass.Start, e.cfg.WorkingSampleRate))
		if span < minStart {
			minStart = span
		}
	}
	buf := e.buffers.Allocate(id, pass, uint64(e.cfg.PlayoutRingFrames), minStart)

	c, err := chain.New(id, pass, dec, buf, e.cfg.WorkingSampleRate, e.cfg.DecodeChunkSamples)
	if err != nil {
		dec.Close()
		e.buffers.Release(id)
		e.failChain(ctx, id, fmt.Errorf("build chain: %w", err))
		return
	}

	e.mu.Lock()
	es, ok = e.entries[id]
	if !ok {
		e.mu.Unlock()
		dec.Close()
		e.buffers.Release(id)
		return
	}
	es.dec, es.buf, es.chain = dec, buf, c
	es.starting = false
	e.mu.Unlock()

	e.wk.Register(id, c, buf)
}

// failChain removes an entry that could not be started at all (unresolvable
// blob, unsupported format, corrupt source) and reports it as completed with
// a reason rather than leaving it stuck occupying a chain-pool slot forever.
func (e *Engine) failChain(ctx context.Context, id passage.EntryID, err error) {
	e.log.Error("chain start failed", "entry_id", id, "error", degradedf("%w", err))

	e.mu.Lock()
	if es, ok := e.entries[id]; ok && es.hasSlot {
		e.freeSlotLocked(es.slot)
	}
	delete(e.entries, id)
	e.removeFromOrderLocked(id)
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	e.publish(boundary.Event{Kind: "PassageCompleted", EntryID: id, Detail: "reason=decode_error"})
	e.persistQueue(ctx)
}

// teardownEntryLocked releases every resource an entry holds and removes it
// from e.entries. The caller must hold e.mu and separately remove id from
// e.order.
func (e *Engine) teardownEntryLocked(id passage.EntryID) {
	es, ok := e.entries[id]
	if !ok {
		return
	}
	if es.chain != nil {
		e.wk.Unregister(id)
	}
	if es.dec != nil {
		_ = es.dec.Close()
	}
	if es.buf != nil {
		e.buffers.Release(id)
	}
	if es.hasSlot {
		e.freeSlotLocked(es.slot)
	}
	delete(e.entries, id)
}

// teardownChainLocked releases an entry's decode/buffer resources but keeps
// the entry itself registered and in queue order, so a subsequent
// scheduleDecodesLocked restarts it from scratch (used by Seek). The caller
// must hold e.mu.
func (e *Engine) teardownChainLocked(id passage.EntryID) {
	es, ok := e.entries[id]
	if !ok {
		return
	}
	if es.chain != nil {
		e.wk.Unregister(id)
	}
	if es.dec != nil {
		_ = es.dec.Close()
	}
	if es.buf != nil {
		e.buffers.Release(id)
	}
	if es.hasSlot {
		e.freeSlotLocked(es.slot)
	}
	es.dec, es.buf, es.chain = nil, nil, nil
	es.hasSlot, es.starting = false, false
}
