package chain

import (
	"github.com/friendsincode/audioengine/pkg/curve"
	"github.com/friendsincode/audioengine/pkg/passage"
	"github.com/friendsincode/audioengine/pkg/ticks"
)

// Fader computes the fade-in/fade-out envelope for one passage as a pure
// function of the chain's absolute output-frame position. It has no
// knowledge of the mixer's crossfade state — the two envelopes compose
// independently, per spec.md §4.9.
type Fader struct {
	fadeInCurve  curve.Func
	fadeOutCurve curve.Func

	fadeInStart, fadeInEnd   int64
	fadeOutStart, fadeOutEnd int64
}

// NewFader derives frame-domain fade boundaries from pass's tick-domain
// timing points at outputRate.
func NewFader(pass passage.Passage, outputRate int) *Fader {
	return &Fader{
		fadeInCurve:  curve.Lookup(pass.FadeInCurve),
		fadeOutCurve: curve.Lookup(pass.FadeOutCurve),
		fadeInStart:  ticks.ToSamples(pass.Start, outputRate),
		fadeInEnd:    ticks.ToSamples(pass.FadeIn, outputRate),
		fadeOutStart: ticks.ToSamples(pass.FadeOut, outputRate),
		fadeOutEnd:   ticks.ToSamples(pass.End, outputRate),
	}
}

// Gain returns the fade envelope value in [0,1] at absoluteFrame, the
// chain's output-rate frame position counted from the first frame of the
// source file (so Start itself is at ToSamples(Start)).
func (f *Fader) Gain(absoluteFrame int64) float64 {
	switch {
	case absoluteFrame < f.fadeInStart:
		return 0
	case absoluteFrame < f.fadeInEnd:
		return f.fadeInCurve(fraction(absoluteFrame, f.fadeInStart, f.fadeInEnd))
	case absoluteFrame < f.fadeOutStart:
		return 1
	case absoluteFrame < f.fadeOutEnd:
		return f.fadeOutCurve(fraction(absoluteFrame, f.fadeOutStart, f.fadeOutEnd))
	default:
		return 0
	}
}

func fraction(pos, start, end int64) float64 {
	span := end - start
	if span <= 0 {
		return 1
	}
	t := float64(pos-start) / float64(span)
	return curve.Clamp(t)
}
