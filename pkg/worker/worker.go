// Package worker implements the Decoder Worker (spec.md §4.7): a single
// goroutine that serially steps every live decoder chain, in priority
// order, pausing any chain whose destination buffer is under backpressure
// and resuming it once the hysteresis gap clears. Grounded on
// friendsincode-grimnir_radio's internal/priority.resolver.go (priority
// classification over active sources), generalized from "rank sources for
// a schedule" to "rank decode work for a single serial scheduler."
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/friendsincode/audioengine/pkg/chain"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/playout"
)

// Priority is the decode urgency class for a chain (spec.md §4.7).
type Priority int

const (
	// Prefetch is background work: get ahead of playback for queued-but-
	// not-yet-playing entries.
	Prefetch Priority = iota
	// Next is the entry that will play once the current one ends.
	Next
	// Immediate is the currently playing (or about to start) entry —
	// always serviced first.
	Immediate
)

// fallbackRecomputePeriodMs throttles priority re-evaluation, per spec.md
// §6 (decode_work_period_ms), used only if New is given a non-positive
// period.
const fallbackRecomputePeriodMs = 5000

type job struct {
	chain    *chain.Chain
	buf      *playout.Buffer
	priority Priority
	yielded  bool
}

// Worker serially steps every registered chain on one goroutine. All
// mutating methods are safe to call from other goroutines; only the run
// loop itself touches chain.Step.
type Worker struct {
	headroom         uint64
	resumeHysteresis uint64
	recomputePeriod  time.Duration

	mu           sync.Mutex
	jobs         map[passage.EntryID]*job
	priorityFunc func(passage.EntryID) Priority
	lastRecompute time.Time

	wake chan struct{}
}

// New creates a worker. headroom/resumeHysteresis mirror the buffer
// manager's backpressure thresholds (spec.md §4.8); priorityFunc is
// consulted at each recompute to classify a chain's current priority —
// the engine supplies this based on queue position and playback state.
// recomputePeriodMs is the configured decode_work_period_ms; a non-positive
// value falls back to the spec-documented default.
func New(headroom, resumeHysteresis uint64, recomputePeriodMs int, priorityFunc func(passage.EntryID) Priority) *Worker {
	if recomputePeriodMs <= 0 {
		recomputePeriodMs = fallbackRecomputePeriodMs
	}
	return &Worker{
		headroom:         headroom,
		resumeHysteresis: resumeHysteresis,
		recomputePeriod:  time.Duration(recomputePeriodMs) * time.Millisecond,
		jobs:             make(map[passage.EntryID]*job),
		priorityFunc:     priorityFunc,
		wake:             make(chan struct{}, 1),
	}
}

// Register adds a chain to the scheduler's work set.
func (w *Worker) Register(entryID passage.EntryID, c *chain.Chain, buf *playout.Buffer) {
	w.mu.Lock()
	w.jobs[entryID] = &job{chain: c, buf: buf}
	w.mu.Unlock()
	w.nudge()
}

// Unregister removes a chain, e.g. once its buffer reports Finished and the
// engine has consumed the completion.
func (w *Worker) Unregister(entryID passage.EntryID) {
	w.mu.Lock()
	delete(w.jobs, entryID)
	w.mu.Unlock()
}

func (w *Worker) nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drives the scheduler loop until ctx is canceled. It should be
// started in its own goroutine exactly once.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		case <-w.wake:
			w.tick()
		}
	}
}

// tick runs one scheduling pass: recompute priorities if due, then step
// every non-yielded job in priority order, highest first.
func (w *Worker) tick() {
	w.mu.Lock()
	if w.priorityFunc != nil && time.Since(w.lastRecompute) >= w.recomputePeriod {
		for id, j := range w.jobs {
			j.priority = w.priorityFunc(id)
		}
		w.lastRecompute = time.Now()
	}

	ordered := make([]*job, 0, len(w.jobs))
	for _, j := range w.jobs {
		ordered = append(ordered, j)
	}
	sort.Slice(ordered, func(i, k int) bool { return ordered[i].priority > ordered[k].priority })
	w.mu.Unlock()

	for _, j := range ordered {
		w.stepJob(j)
	}
}

func (w *Worker) stepJob(j *job) {
	if j.yielded {
		if !j.buf.ShouldResume(w.headroom, w.resumeHysteresis) {
			return
		}
		j.yielded = false
	}
	if j.buf.ShouldPause(w.headroom) {
		j.yielded = true
		return
	}

	res, err := j.chain.Step()
	if err != nil {
		// A decode error is not reported to the engine from here: the
		// chain is only marked yielded, and is stepped again once its
		// buffer passes ShouldResume. The worker itself keeps serving
		// other chains.
		j.yielded = true
		return
	}

	switch res {
	case chain.BufferFull:
		j.yielded = j.buf.ShouldPause(w.headroom)
	case chain.Finished:
		// Caller (engine) is responsible for Unregister once it has
		// consumed the finished buffer.
	}
}
