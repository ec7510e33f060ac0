// Package passage defines the passage/queue-entry data model: a time-bounded
// segment of an audio file plus its fade/lead timing points, all expressed
// in the rate-independent tick unit (pkg/ticks).
package passage

import (
	"errors"
	"fmt"

	"github.com/friendsincode/audioengine/pkg/curve"
)

// EntryID uniquely identifies a queue entry.
type EntryID string

// Passage identifies an audio blob and its six timing points, all in ticks.
// Two independent ordering constraints must hold: Start<=FadeIn<=FadeOut<=End
// and Start<=LeadIn<=LeadOut<=End. The fade and lead chains are independent
// of each other; either may precede the other.
type Passage struct {
	AudioRef string // opaque blob store identifier

	Start   int64
	FadeIn  int64
	FadeOut int64
	LeadIn  int64
	LeadOut int64
	End     int64

	FadeInCurve  curve.Name
	FadeOutCurve curve.Name
}

// LeadOutSpan is L_A in spec.md §4.9: the lead-out duration available when
// this passage is playing out (the outgoing side of a crossfade).
func (p Passage) LeadOutSpan() int64 {
	return p.End - p.LeadOut
}

// LeadInSpan is L_B in spec.md §4.9: the lead-in duration available when
// this passage is starting up (the incoming side of a crossfade).
func (p Passage) LeadInSpan() int64 {
	return p.LeadIn - p.Start
}

// FadeInLength is the duration of the fade-in envelope.
func (p Passage) FadeInLength() int64 {
	return p.FadeIn - p.Start
}

// FadeOutLength is the duration of the fade-out envelope.
func (p Passage) FadeOutLength() int64 {
	return p.End - p.FadeOut
}

var (
	// ErrZeroLength is returned when a passage spans no ticks at all.
	ErrZeroLength = errors.New("passage: zero-length passage rejected")
	// ErrInvalidFadeOrder is returned when Start<=FadeIn<=FadeOut<=End fails.
	ErrInvalidFadeOrder = errors.New("passage: fade points out of order")
	// ErrInvalidLeadOrder is returned when Start<=LeadIn<=LeadOut<=End fails.
	ErrInvalidLeadOrder = errors.New("passage: lead points out of order")
)

// Validate checks the Phase-1 acceptance invariants (spec.md §4.11, §8
// invariant 8, boundary case "passage of length zero rejected at Phase 1").
// It returns a structured error suitable for rejecting the Enqueue command;
// it never mutates p.
func (p Passage) Validate() error {
	if p.End <= p.Start {
		return ErrZeroLength
	}
	if !(p.Start <= p.FadeIn && p.FadeIn <= p.FadeOut && p.FadeOut <= p.End) {
		return fmt.Errorf("%w: start=%d fade_in=%d fade_out=%d end=%d",
			ErrInvalidFadeOrder, p.Start, p.FadeIn, p.FadeOut, p.End)
	}
	if !(p.Start <= p.LeadIn && p.LeadIn <= p.LeadOut && p.LeadOut <= p.End) {
		return fmt.Errorf("%w: start=%d lead_in=%d lead_out=%d end=%d",
			ErrInvalidLeadOrder, p.Start, p.LeadIn, p.LeadOut, p.End)
	}
	return nil
}

// ClampAndCorrect implements Phase-2 validation (spec.md §4.11): applied at
// retrieval from storage. Out-of-range points are clamped to the passage
// span; inverted pairs collapse to their midpoint. It mutates p in place and
// returns whether any correction was applied (callers log when true).
func (p *Passage) ClampAndCorrect() (corrected bool) {
	clampTo := func(v, lo, hi int64) (int64, bool) {
		if v < lo {
			return lo, true
		}
		if v > hi {
			return hi, true
		}
		return v, false
	}

	var c bool
	if p.FadeIn, c = clampTo(p.FadeIn, p.Start, p.End); c {
		corrected = true
	}
	if p.FadeOut, c = clampTo(p.FadeOut, p.Start, p.End); c {
		corrected = true
	}
	if p.LeadIn, c = clampTo(p.LeadIn, p.Start, p.End); c {
		corrected = true
	}
	if p.LeadOut, c = clampTo(p.LeadOut, p.Start, p.End); c {
		corrected = true
	}

	if p.FadeIn > p.FadeOut {
		mid := (p.FadeIn + p.FadeOut) / 2
		p.FadeIn, p.FadeOut = mid, mid
		corrected = true
	}
	if p.LeadIn > p.LeadOut {
		mid := (p.LeadIn + p.LeadOut) / 2
		p.LeadIn, p.LeadOut = mid, mid
		corrected = true
	}
	return corrected
}

// WithGlobalDefaults fills in the passage-default/global-default precedence
// tier (spec.md §3: override > passage point > passage default > global
// default), applied before Overrides.Apply. Passage has no optional fields
// of its own, so two sentinels stand in for "not specified": LeadIn==Start
// && LeadOut==End means no crossfade window was set on this passage, and an
// empty FadeInCurve/FadeOutCurve means no curve was set. crossfadeTicks is
// clamped to at most half the passage's own span, matching the mixer's
// existing min(leadOut, leadIn) clamp at crossfade time.
func (p Passage) WithGlobalDefaults(crossfadeTicks int64, curves curve.Pair) Passage {
	if p.LeadIn == p.Start && p.LeadOut == p.End && crossfadeTicks > 0 {
		window := crossfadeTicks
		if half := (p.End - p.Start) / 2; window > half {
			window = half
		}
		p.LeadIn = p.Start + window
		p.LeadOut = p.End - window
	}
	if p.FadeInCurve == "" {
		p.FadeInCurve = curves.In
	}
	if p.FadeOutCurve == "" {
		p.FadeOutCurve = curves.Out
	}
	return p
}

// Overrides holds optional per-entry timing overrides. A nil field means
// "no override for this point" — the passage's own point (or the global
// default) applies. Precedence per spec.md §3: override > passage point >
// passage default > global default.
type Overrides struct {
	Start   *int64
	FadeIn  *int64
	FadeOut *int64
	LeadIn  *int64
	LeadOut *int64
	End     *int64
}

// Apply returns a Passage with each overridden point substituted.
func (o *Overrides) Apply(base Passage) Passage {
	if o == nil {
		return base
	}
	if o.Start != nil {
		base.Start = *o.Start
	}
	if o.FadeIn != nil {
		base.FadeIn = *o.FadeIn
	}
	if o.FadeOut != nil {
		base.FadeOut = *o.FadeOut
	}
	if o.LeadIn != nil {
		base.LeadIn = *o.LeadIn
	}
	if o.LeadOut != nil {
		base.LeadOut = *o.LeadOut
	}
	if o.End != nil {
		base.End = *o.End
	}
	return base
}

// QueueEntry is a passage descriptor plus queue bookkeeping.
type QueueEntry struct {
	ID        EntryID
	Passage   Passage
	PlayOrder int64
	Overrides *Overrides
}

// Effective returns the entry's passage with overrides applied.
func (q QueueEntry) Effective() Passage {
	return q.Overrides.Apply(q.Passage)
}
