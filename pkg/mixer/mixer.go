// Package mixer implements the Crossfade Mixer (spec.md §4.9): a single
// goroutine that pulls already fade-enveloped frames from one or two live
// playout buffers, sums them during a crossfade window, and fills the
// output ring buffer the real-time audio callback drains. Grounded on
// friendsincode-grimnir_radio's internal/playout/crossfade.go
// (pcmCrossfadeSession: xfade state with start/duration, per-sample linear
// mix, promote-next-to-current on completion), generalized from
// S16LE/linear-only crossfade to float32/multi-curve/pause-aware mixing,
// and internal/mediaengine/crossfade.go for the richer state-machine shape.
package mixer

import (
	"context"
	"sync"
	"time"

	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/pcmring"
	"github.com/friendsincode/audioengine/pkg/playout"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

// State is one of the five mixer states from spec.md §3.
type State int

const (
	None State = iota
	SinglePassage
	Crossfading
	PausedDecaying
	PausedSilent
)

func (s State) String() string {
	switch s {
	case None:
		return "None"
	case SinglePassage:
		return "SinglePassage"
	case Crossfading:
		return "Crossfading"
	case PausedDecaying:
		return "PausedDecaying"
	case PausedSilent:
		return "PausedSilent"
	default:
		return "Unknown"
	}
}

// Fallback tuning values (spec.md §6 defaults), used only if New is given
// a non-positive value for the corresponding parameter.
const (
	fallbackPauseDecayFactor = 0.96875
	fallbackPauseFloor       = 1.778e-4
	fallbackResumeFadeMs     = 500
	fallbackCheckIntervalMs  = 10
	fallbackBatchLow         = 512
	fallbackBatchOptimal     = 256
)

// Completion reports that a playout buffer has been fully drained by the
// mixer — the engine advances its queue in response.
type Completion struct {
	EntryID passage.EntryID
}

// Mixer owns the current and (optionally) next playing buffer and the
// output ring it feeds.
type Mixer struct {
	outputRate int
	outputRing *pcmring.Ring

	mu    sync.Mutex
	state State

	current     *playout.Buffer
	currentPass passage.Passage
	currentPos  int64 // frames consumed from current since its Start

	next     *playout.Buffer
	nextPass passage.Passage

	crossfadeRemaining int64
	crossfadeTotal     int64

	lastFrame pcmring.Frame
	decayGain float64

	resumeGain float64
	resumeStep float64
	clipped    bool

	pauseDecayFactor float64
	pauseFloor       float64
	resumeFadeTime   time.Duration
	checkInterval    time.Duration
	batchLow         int
	batchOptimal     int

	completions chan Completion
}

// New creates a mixer writing into an output ring of the given frame
// capacity, tuned by the configuration collaborator's pause/resume/fill
// parameters (spec.md §6): pauseDecayFactor/pauseFloor drive
// PausedDecaying's decay-to-silence rate, resumeFadeMs the resume ramp
// duration, checkIntervalMs the Run wake period, and batchLow/batchOptimal
// the two graduated fill sizes of §4.9's filling strategy. Any parameter
// that isn't positive falls back to its spec-documented default rather than
// producing a zero-length ticker or batch.
func New(outputRate int, outputRingCapacity uint64, pauseDecayFactor, pauseFloor float64, resumeFadeMs, checkIntervalMs, batchLow, batchOptimal int) *Mixer {
	if pauseDecayFactor <= 0 {
		pauseDecayFactor = fallbackPauseDecayFactor
	}
	if pauseFloor <= 0 {
		pauseFloor = fallbackPauseFloor
	}
	if resumeFadeMs <= 0 {
		resumeFadeMs = fallbackResumeFadeMs
	}
	if checkIntervalMs <= 0 {
		checkIntervalMs = fallbackCheckIntervalMs
	}
	if batchLow <= 0 {
		batchLow = fallbackBatchLow
	}
	if batchOptimal <= 0 {
		batchOptimal = fallbackBatchOptimal
	}
	return &Mixer{
		outputRate:       outputRate,
		outputRing:       pcmring.New(outputRingCapacity),
		pauseDecayFactor: pauseDecayFactor,
		pauseFloor:       pauseFloor,
		resumeFadeTime:   time.Duration(resumeFadeMs) * time.Millisecond,
		checkInterval:    time.Duration(checkIntervalMs) * time.Millisecond,
		batchLow:         batchLow,
		batchOptimal:     batchOptimal,
		resumeGain:       1,
		completions:      make(chan Completion, 8),
	}
}

// OutputRing exposes the ring the real-time output callback reads from.
func (m *Mixer) OutputRing() *pcmring.Ring { return m.outputRing }

// Completions is fed one entry per buffer the mixer finishes draining.
func (m *Mixer) Completions() <-chan Completion { return m.completions }

// State returns the mixer's current state.
func (m *Mixer) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentProgress reports the entry currently playing and how many frames
// of it have been consumed since its Start point, for PlaybackProgress
// events (spec.md §6). ok is false when nothing is playing.
func (m *Mixer) CurrentProgress() (id passage.EntryID, frames int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", 0, false
	}
	return m.current.EntryID(), m.currentPos, true
}

// ConsumeClipFlag reports and clears whether the mixer has clamped an
// out-of-range sample since this was last called — a one-shot signal
// the engine logs rather than emitting per-sample.
func (m *Mixer) ConsumeClipFlag() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	clipped := m.clipped
	m.clipped = false
	return clipped
}

// SetCurrent installs buf/pass as the sole active passage (state None or
// SinglePassage -> SinglePassage). Any previously queued "next" is
// discarded — callers use QueueNext afterward for the following entry.
func (m *Mixer) SetCurrent(buf *playout.Buffer, pass passage.Passage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = buf
	m.currentPass = pass
	m.currentPos = 0
	m.next = nil
	m.state = SinglePassage
}

// QueueNext registers the entry that should begin crossfading in once the
// current passage reaches its lead-out point.
func (m *Mixer) QueueNext(buf *playout.Buffer, pass passage.Passage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = buf
	m.nextPass = pass
}

// Pause freezes buffer consumption and begins decaying the last emitted
// frame toward silence.
func (m *Mixer) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == SinglePassage || m.state == Crossfading {
		m.decayGain = 1
		m.state = PausedDecaying
	}
}

// Resume restarts buffer consumption with a linear fade-in over
// resumeFadeTime, returning to whichever active state was in effect before
// Pause (SinglePassage if a crossfade had not started, Crossfading
// otherwise — tracked implicitly by whether next/crossfadeRemaining are
// still set).
func (m *Mixer) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != PausedDecaying && m.state != PausedSilent {
		return
	}
	m.resumeGain = 0
	frames := int64(m.resumeFadeTime.Seconds() * float64(m.outputRate))
	if frames < 1 {
		frames = 1
	}
	m.resumeStep = 1 / float64(frames)
	if m.crossfadeRemaining > 0 {
		m.state = Crossfading
	} else {
		m.state = SinglePassage
	}
}

// Run drives the mixer loop until ctx is canceled, keeping the output ring
// topped up per wake according to spec.md §4.9's graduated filling
// strategy.
func (m *Mixer) Run(ctx context.Context) {
	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()
	scratch := m.batchLow
	if m.batchOptimal > scratch {
		scratch = m.batchOptimal
	}
	batch := make([]pcmring.Frame, scratch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.fillOneWake(batch)
		}
	}
}

// fillOneWake fills the output ring once per Run tick, choosing a batch
// size from the ring's current occupancy: <25% full fills aggressively
// (looping until the ring is topped up or the source underruns), 25-50%
// fills batchLow frames, 50-75% fills batchOptimal frames, and >75% sleeps
// until the next wake rather than filling at all.
func (m *Mixer) fillOneWake(scratch []pcmring.Frame) {
	capacity := m.outputRing.Capacity()
	if capacity == 0 {
		return
	}
	occupiedPct := m.outputRing.Occupied() * 100 / capacity

	switch {
	case occupiedPct >= 75:
		return
	case occupiedPct >= 50:
		m.fillBounded(scratch, m.batchOptimal)
	case occupiedPct >= 25:
		m.fillBounded(scratch, m.batchLow)
	default:
		m.fillAggressively(scratch)
	}
}

// fillBounded produces at most wantFrames mixed frames in one pass.
func (m *Mixer) fillBounded(scratch []pcmring.Frame, wantFrames int) {
	free := m.outputRing.FreeSpace()
	want := uint64(wantFrames)
	if free < want {
		want = free
	}
	if want == 0 {
		return
	}
	n := m.fillBatch(scratch[:want])
	if n > 0 {
		m.outputRing.Push(scratch[:n])
	}
}

// fillAggressively tops the ring all the way up, looping scratch-sized
// batches until it's full or the source can't keep up.
func (m *Mixer) fillAggressively(scratch []pcmring.Frame) {
	for {
		free := m.outputRing.FreeSpace()
		if free == 0 {
			return
		}
		want := uint64(len(scratch))
		if free < want {
			want = free
		}
		n := m.fillBatch(scratch[:want])
		if n == 0 {
			return
		}
		m.outputRing.Push(scratch[:n])
		if uint64(n) < want {
			return
		}
	}
}

// fillBatch produces up to len(out) mixed frames, advancing mixer state as
// needed (crossfade triggering, completion promotion, pause decay/resume).
// It is the mixer's only state-mutating hot path and is called exclusively
// from Run's goroutine, so it takes the lock just for the state snapshot.
func (m *Mixer) fillBatch(out []pcmring.Frame) int {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	switch state {
	case None:
		return 0
	case PausedDecaying, PausedSilent:
		return m.fillPaused(out)
	default:
		return m.fillActive(out)
	}
}

func (m *Mixer) fillPaused(out []pcmring.Frame) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range out {
		if m.state == PausedSilent {
			out[i] = pcmring.Frame{}
			continue
		}
		out[i] = pcmring.Frame{
			L: m.lastFrame.L * float32(m.decayGain),
			R: m.lastFrame.R * float32(m.decayGain),
		}
		m.decayGain *= m.pauseDecayFactor
		if m.decayGain < m.pauseFloor {
			m.decayGain = 0
			m.state = PausedSilent
		}
	}
	return len(out)
}

func (m *Mixer) fillActive(out []pcmring.Frame) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return 0
	}

	produced := 0
	for produced < len(out) {
		if m.state == Crossfading {
			n := m.mixCrossfadeFrames(out[produced:])
			produced += n
			if n == 0 {
				break
			}
			continue
		}

		// SinglePassage: check whether we've reached the lead-out point and
		// a next buffer is ready to start crossfading in. currentPos counts
		// frames since currentPass.Start, while LeadOut is an absolute tick
		// position, so it must be rebased onto Start before comparing.
		leadOutPos := ticks.ToSamples(m.currentPass.LeadOut, m.outputRate) - ticks.ToSamples(m.currentPass.Start, m.outputRate)
		if m.next != nil && m.currentPos >= leadOutPos {
			m.beginCrossfade()
			continue
		}

		singleBuf := out[produced : produced+1]
		n := m.current.PopFrames(singleBuf)
		if n == 0 {
			if m.current.State() == playout.Finished {
				m.completeCurrent()
				return produced
			}
			break // underrun: source not ready yet, not finished either
		}
		m.currentPos++
		m.applyResumeGain(&singleBuf[0])
		m.lastFrame = singleBuf[0]
		produced++
	}
	return produced
}

func (m *Mixer) applyResumeGain(f *pcmring.Frame) {
	if m.resumeGain >= 1 {
		return
	}
	f.L *= float32(m.resumeGain)
	f.R *= float32(m.resumeGain)
	m.resumeGain += m.resumeStep
	if m.resumeGain > 1 {
		m.resumeGain = 1
	}
}

func (m *Mixer) beginCrossfade() {
	leadOutFrames := ticks.ToSamples(m.currentPass.LeadOutSpan(), m.outputRate)
	leadInFrames := ticks.ToSamples(m.nextPass.LeadInSpan(), m.outputRate)
	duration := leadOutFrames
	if leadInFrames < duration {
		duration = leadInFrames
	}
	if duration < 1 {
		duration = 1
	}
	m.crossfadeTotal = duration
	m.crossfadeRemaining = duration
	m.state = Crossfading
}

func (m *Mixer) mixCrossfadeFrames(out []pcmring.Frame) int {
	produced := 0
	aBuf := make([]pcmring.Frame, 1)
	bBuf := make([]pcmring.Frame, 1)

	for produced < len(out) && m.crossfadeRemaining > 0 {
		na := m.current.PopFrames(aBuf)
		nb := m.next.PopFrames(bBuf)
		if na == 0 && nb == 0 {
			break
		}
		var mixed pcmring.Frame
		if na > 0 {
			mixed.L += aBuf[0].L
			mixed.R += aBuf[0].R
		}
		if nb > 0 {
			mixed.L += bBuf[0].L
			mixed.R += bBuf[0].R
		}
		clampedL := clampSample(mixed.L)
		clampedR := clampSample(mixed.R)
		if clampedL != mixed.L || clampedR != mixed.R {
			m.clipped = true
		}
		mixed.L, mixed.R = clampedL, clampedR

		m.applyResumeGain(&mixed)
		m.currentPos++
		m.crossfadeRemaining--
		m.lastFrame = mixed
		out[produced] = mixed
		produced++
	}

	if m.crossfadeRemaining <= 0 {
		m.promoteNext()
	}
	return produced
}

func (m *Mixer) promoteNext() {
	finishedID := m.current.EntryID()
	m.current = m.next
	m.currentPass = m.nextPass
	m.currentPos = 0
	m.next = nil
	m.state = SinglePassage
	m.signalCompletion(finishedID)
}

func (m *Mixer) completeCurrent() {
	finishedID := m.current.EntryID()
	m.current = nil
	m.state = None
	m.signalCompletion(finishedID)
}

func (m *Mixer) signalCompletion(id passage.EntryID) {
	select {
	case m.completions <- Completion{EntryID: id}:
	default:
		// Completion channel is bounded (spec.md §4.9): the engine polls
		// buffer state directly if it falls behind, so a dropped
		// notification here is not data loss.
	}
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
