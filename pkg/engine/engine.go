// Package engine implements the Playback Engine (spec.md §4.11): the
// top-level coordinator that owns queue membership/ordering, the chain pool,
// decode-request submission, buffer-readiness routing, mixer completion
// handling, and the command/event surface. Grounded on the teacher's
// cmd/player.go / cmd/fileplayer.go orchestration glue (open -> play ->
// monitor -> stop) lifted out of cmd/ into a long-lived service with a
// command channel, generalized to a multi-passage queue coordinator the way
// friendsincode-grimnir_radio's internal/playout/director.go owns queue
// state and persists it on change.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/friendsincode/audioengine/pkg/boundary"
	"github.com/friendsincode/audioengine/pkg/chain"
	"github.com/friendsincode/audioengine/pkg/config"
	"github.com/friendsincode/audioengine/pkg/curve"
	"github.com/friendsincode/audioengine/pkg/decode"
	"github.com/friendsincode/audioengine/pkg/mixer"
	"github.com/friendsincode/audioengine/pkg/output"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/playout"
	"github.com/friendsincode/audioengine/pkg/ticks"
	"github.com/friendsincode/audioengine/pkg/worker"
)

var errEngineStopped = fmt.Errorf("engine: stopped")

// progressInterval is how often PlaybackProgress fires (default ~500ms).
// It fires on this timer only; a state change does not emit one.
const progressInterval = 500 * time.Millisecond

type entryState struct {
	entry passage.QueueEntry

	dec      decode.Decoder
	buf      *playout.Buffer
	chain    *chain.Chain
	slot     int
	hasSlot  bool
	starting bool

	queuedAsNext bool
	removeReason string // non-empty once Dequeue/Skip has been requested
}

// Engine is the top-level playback coordinator.
type Engine struct {
	cfg   config.Engine
	queue boundary.Queue
	blobs boundary.BlobStore
	sink  boundary.EventSink
	out   *output.Driver
	log   *slog.Logger

	buffers *playout.Manager
	wk      *worker.Worker
	mx      *mixer.Mixer

	globalCrossfadeTicks int64
	globalFadeCurves     curve.Pair

	mu           sync.Mutex
	entries      map[passage.EntryID]*entryState
	order        []passage.EntryID
	playOrderSeq int64
	slots        []bool
	playing      bool
	everStarted  bool

	cmds chan command
	done chan struct{}
}

// New builds an Engine around its collaborators. Call AttachOutput once an
// output.Driver has been constructed around OutputRing(), and Run to start
// the coordinator loop.
func New(cfg config.Engine, queue boundary.Queue, blobs boundary.BlobStore, sink boundary.EventSink, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		cfg:     cfg,
		queue:   queue,
		blobs:   blobs,
		sink:    sink,
		log:     log,
		buffers: playout.NewManager(cfg.Headroom, cfg.ResumeHysteresis),
		mx: mixer.New(cfg.WorkingSampleRate, uint64(cfg.OutputRingFrames),
			cfg.PauseDecayFactor, cfg.PauseDecayFloor,
			cfg.ResumeFadeMs, cfg.MixerCheckInterval, cfg.MixerBatchLow, cfg.MixerBatchOptimal),
		entries:              make(map[passage.EntryID]*entryState),
		slots:                make([]bool, cfg.MaxDecodeStreams),
		cmds:                 make(chan command),
		done:                 make(chan struct{}),
		globalCrossfadeTicks: ticks.FromSeconds(cfg.GlobalCrossfadeSec),
		globalFadeCurves:     curve.ParsePair(cfg.GlobalFadeCurves),
	}
	e.wk = worker.New(cfg.Headroom, cfg.ResumeHysteresis, cfg.DecodeWorkPeriodMs, e.priorityFor)
	return e
}

// OutputRing exposes the mixer's output ring so an output.Driver can be
// constructed around it before the engine starts.
func (e *Engine) OutputRing() *pcmring.Ring { return e.mx.OutputRing() }

// AttachOutput wires the real-time output driver for volume control and
// underrun events. Optional: a nil/never-attached driver just means nothing
// drains the output ring, which callers use for headless tests.
func (e *Engine) AttachOutput(out *output.Driver) { e.out = out }

// priorityFor classifies a chain's decode urgency from its play-order
// position (spec.md §4.7): the head of the queue is Immediate, the entry
// right behind it is Next (it may start crossfading in soon), everything
// else is background Prefetch.
func (e *Engine) priorityFor(id passage.EntryID) worker.Priority {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, candidate := range e.order {
		if candidate != id {
			continue
		}
		switch i {
		case 0:
			return worker.Immediate
		case 1:
			return worker.Next
		}
		break
	}
	return worker.Prefetch
}

// Run loads the persisted queue, starts the mixer/worker goroutines, and
// processes commands/events until ctx is canceled. It joins background
// goroutines with a 5s timeout per spec.md §5 before returning.
func (e *Engine) Run(ctx context.Context) error {
	loaded, err := e.queue.Load(ctx)
	if err != nil {
		return fatalf("engine: load queue: %w", err)
	}

	e.mu.Lock()
	for _, qe := range loaded {
		pass := qe.Passage
		if pass.ClampAndCorrect() {
			e.log.Warn("queue entry timing clamped on load", "entry_id", qe.ID)
		}
		qe.Passage = pass
		e.entries[qe.ID] = &entryState{entry: qe}
		e.order = append(e.order, qe.ID)
		if qe.PlayOrder >= e.playOrderSeq {
			e.playOrderSeq = qe.PlayOrder + 1
		}
	}
	e.sortOrderLocked()
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); e.wk.Run(ctx) }()
	go func() { defer wg.Done(); e.mx.Run(ctx) }()

	progress := time.NewTicker(progressInterval)
	defer progress.Stop()
	housekeeping := time.NewTicker(20 * time.Millisecond)
	defer housekeeping.Stop()

	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			joined := make(chan struct{})
			go func() { wg.Wait(); close(joined) }()
			select {
			case <-joined:
			case <-time.After(5 * time.Second):
				e.log.Warn("shutdown timed out waiting for worker/mixer goroutines")
			}
			return ctx.Err()
		case cmd := <-e.cmds:
			e.handleCommand(ctx, cmd)
		case id := <-e.buffers.ReadyForStart():
			e.onBufferReady(id)
		case comp := <-e.mx.Completions():
			e.onCompletion(ctx, comp.EntryID)
		case <-housekeeping.C:
			e.pollClip()
		case <-progress.C:
			e.emitProgress()
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, cmd command) {
	var ack Ack
	switch cmd.kind {
	case cmdEnqueue:
		ack = e.handleEnqueue(ctx, cmd.pass, cmd.overrides)
	case cmdDequeue:
		ack.Err = e.handleDequeue(ctx, cmd.entryID, "removed")
	case cmdReorder:
		ack.Err = e.handleReorder(ctx, cmd.order)
	case cmdPlay:
		e.handlePlay()
	case cmdPause:
		e.mx.Pause()
	case cmdSkip:
		ack.Err = e.handleSkip(ctx)
	case cmdSetVolume:
		e.handleSetVolume(cmd.volume)
	case cmdSeek:
		ack.Err = e.handleSeek(ctx, cmd.entryID, cmd.seekTick)
	}
	select {
	case cmd.reply <- ack:
	default:
	}
}

func (e *Engine) handleEnqueue(ctx context.Context, pass passage.Passage, overrides *passage.Overrides) Ack {
	pass = pass.WithGlobalDefaults(e.globalCrossfadeTicks, e.globalFadeCurves)
	effective := overrides.Apply(pass)
	if err := effective.Validate(); err != nil {
		return Ack{Err: fmt.Errorf("enqueue rejected: %w", err)}
	}

	id := passage.EntryID(uuid.NewString())
	e.mu.Lock()
	order := e.playOrderSeq
	e.playOrderSeq++
	e.entries[id] = &entryState{
		entry: passage.QueueEntry{
			ID:        id,
			Passage:   pass,
			PlayOrder: order,
			Overrides: overrides,
		},
	}
	e.order = append(e.order, id)
	e.sortOrderLocked()
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	e.persistQueue(ctx)
	e.publish(boundary.Event{Kind: "QueueChanged"})
	return Ack{EntryID: id}
}

func (e *Engine) handleDequeue(ctx context.Context, id passage.EntryID, reason string) error {
	e.mu.Lock()
	es, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return ErrEntryNotFound
	}
	isHead := len(e.order) > 0 && e.order[0] == id && e.mx.State() != mixer.None
	if isHead {
		es.removeReason = reason
		e.mu.Unlock()
		if es.buf != nil {
			es.buf.MarkFinished() // drains naturally; onCompletion sees removeReason
		}
		return nil
	}
	e.teardownEntryLocked(id)
	e.removeFromOrderLocked(id)
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	e.persistQueue(ctx)
	e.publish(boundary.Event{Kind: "QueueChanged"})
	e.publish(boundary.Event{Kind: "PassageCompleted", EntryID: id, Detail: "reason=" + reason})
	return nil
}

func (e *Engine) handleReorder(ctx context.Context, order map[passage.EntryID]int64) error {
	e.mu.Lock()
	for id, pos := range order {
		es, ok := e.entries[id]
		if !ok {
			e.mu.Unlock()
			return ErrEntryNotFound
		}
		es.entry.PlayOrder = pos
	}
	e.sortOrderLocked()
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	e.persistQueue(ctx)
	e.publish(boundary.Event{Kind: "QueueChanged"})
	return nil
}

func (e *Engine) handlePlay() {
	e.mu.Lock()
	e.playing = true
	state := e.mx.State()
	var headBuf *playout.Buffer
	var headPass passage.Passage
	if state == mixer.None && len(e.order) > 0 {
		if es := e.entries[e.order[0]]; es != nil && es.buf != nil && es.buf.State() >= playout.Ready {
			headBuf, headPass = es.buf, es.entry.Effective()
		}
	}
	e.mu.Unlock()

	switch state {
	case mixer.PausedDecaying, mixer.PausedSilent:
		e.mx.Resume()
	case mixer.None:
		if headBuf != nil {
			e.startCurrent(headBuf, headPass, e.order0ID())
		}
	}
}

func (e *Engine) order0ID() passage.EntryID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.order) == 0 {
		return ""
	}
	return e.order[0]
}

func (e *Engine) startCurrent(buf *playout.Buffer, pass passage.Passage, id passage.EntryID) {
	e.mx.SetCurrent(buf, pass)
	e.mu.Lock()
	e.everStarted = true
	e.mu.Unlock()
	e.publish(boundary.Event{Kind: "PassageStarted", EntryID: id})
}

func (e *Engine) handleSkip(ctx context.Context) error {
	e.mu.Lock()
	if len(e.order) == 0 {
		e.mu.Unlock()
		return ErrEntryNotFound
	}
	id := e.order[0]
	e.mu.Unlock()
	return e.handleDequeue(ctx, id, "skipped")
}

func (e *Engine) handleSetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if e.out != nil {
		e.out.SetVolume(v)
	}
}

func (e *Engine) handleSeek(ctx context.Context, id passage.EntryID, tick int64) error {
	e.mu.Lock()
	es, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return ErrEntryNotFound
	}
	ov := es.entry.Overrides
	if ov == nil {
		ov = &passage.Overrides{}
	}
	t := tick
	ov.Start = &t
	es.entry.Overrides = ov
	e.teardownChainLocked(id)
	e.scheduleDecodesLocked(ctx)
	e.mu.Unlock()

	e.persistQueue(ctx)
	return nil
}

// onBufferReady routes a newly-Ready playout buffer to the mixer if it is
// the head (starts playback, gated on a prior Play command) or the
// following entry (queues the crossfade-in buffer).
func (e *Engine) onBufferReady(id passage.EntryID) {
	e.mu.Lock()
	es, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	var headID, nextID passage.EntryID
	if len(e.order) > 0 {
		headID = e.order[0]
	}
	if len(e.order) > 1 {
		nextID = e.order[1]
	}
	playing := e.playing
	e.mu.Unlock()

	switch {
	case id == headID && e.mx.State() == mixer.None && playing:
		e.startCurrent(es.buf, es.entry.Effective(), id)
	case id == nextID && e.mx.State() != mixer.None:
		e.mu.Lock()
		alreadyQueued := es.queuedAsNext
		es.queuedAsNext = true
		e.mu.Unlock()
		if !alreadyQueued {
			e.mx.QueueNext(es.buf, es.entry.Effective())
		}
	}
}

// onCompletion handles a mixer completion signal: releases the finished
// entry's resources, advances the queue, and schedules whatever the freed
// chain slot now allows.
func (e *Engine) onCompletion(ctx context.Context, id passage.EntryID) {
	e.mu.Lock()
	es, ok := e.entries[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	reason := "natural"
	if es.removeReason != "" {
		reason = es.removeReason
	}
	e.teardownEntryLocked(id)
	e.removeFromOrderLocked(id)
	e.scheduleDecodesLocked(ctx)

	var promoteID passage.EntryID
	var promoteBuf *playout.Buffer
	var promotePass passage.Passage
	if len(e.order) > 0 {
		headID := e.order[0]
		if hs := e.entries[headID]; hs != nil && hs.buf != nil && e.mx.State() == mixer.None && e.playing {
			promoteID, promoteBuf, promotePass = headID, hs.buf, hs.entry.Effective()
		}
	}
	e.mu.Unlock()

	e.publish(boundary.Event{Kind: "PassageCompleted", EntryID: id, Detail: "reason=" + reason})
	e.persistQueue(ctx)

	if promoteBuf != nil && promoteBuf.State() >= playout.Ready {
		e.startCurrent(promoteBuf, promotePass, promoteID)
	}
}

func (e *Engine) pollClip() {
	if e.mx.ConsumeClipFlag() {
		id, _, _ := e.mx.CurrentProgress()
		e.publish(boundary.Event{Kind: "ClippingDetected", EntryID: id})
	}
}

func (e *Engine) emitProgress() {
	id, frames, ok := e.mx.CurrentProgress()
	if !ok {
		return
	}
	tick := ticks.FromSamples(frames, e.cfg.WorkingSampleRate)
	outputFrames := uint64(0)
	if e.out != nil {
		outputFrames = e.out.PlayedFrames()
	}
	e.publish(boundary.Event{
		Kind:    "PlaybackProgress",
		EntryID: id,
		Detail:  fmt.Sprintf("tick=%d output_frame=%d", tick, outputFrames),
	})
}

func (e *Engine) publish(evt boundary.Event) {
	if e.sink != nil {
		e.sink.Publish(evt)
	}
}

func (e *Engine) persistQueue(ctx context.Context) {
	e.mu.Lock()
	entries := make([]passage.QueueEntry, 0, len(e.order))
	for _, id := range e.order {
		if es := e.entries[id]; es != nil {
			entries = append(entries, es.entry)
		}
	}
	e.mu.Unlock()

	if err := withRetry(ctx, 3, func() error { return e.queue.Save(ctx, entries) }); err != nil {
		e.log.Error("persist queue failed after retries", "error", recoverablef("persist queue: %w", err))
	}
}

func (e *Engine) sortOrderLocked() {
	sort.Slice(e.order, func(i, j int) bool {
		a, b := e.entries[e.order[i]], e.entries[e.order[j]]
		return a.entry.PlayOrder < b.entry.PlayOrder
	})
}

func (e *Engine) removeFromOrderLocked(id passage.EntryID) {
	for i, candidate := range e.order {
		if candidate == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			return
		}
	}
}
