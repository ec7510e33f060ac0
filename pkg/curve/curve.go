// Package curve implements the fade envelope curve family used by the fader:
// linear, squared, cosine-S, and equal-power variants, each evaluated over
// t in [0,1]. "In" variants rise 0->1; "out" variants fall 1->0, matching the
// formulas in spec.md §4.5.
package curve

import "math"

// Func evaluates a curve at position t. Callers clamp t to [0,1] with Clamp
// before evaluating.
type Func func(t float64) float64

// Name identifies one of the supported curve variants.
type Name string

const (
	Linear        Name = "linear"
	SquaredIn     Name = "squared_in"
	SquaredOut    Name = "squared_out"
	CosineSIn     Name = "cosine_s_in"
	CosineSOut    Name = "cosine_s_out"
	EqualPowerIn  Name = "equal_power_in"
	EqualPowerOut Name = "equal_power_out"
)

// Clamp restricts t to the [0,1] domain all curves are defined over.
func Clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func linear(t float64) float64 { return t }

func squaredIn(t float64) float64 { return t * t }

func squaredOut(t float64) float64 {
	d := 1 - t
	return d * d
}

func cosineSIn(t float64) float64 { return 0.5 * (1 - math.Cos(math.Pi*t)) }

func cosineSOut(t float64) float64 { return 0.5 * (1 + math.Cos(math.Pi*t)) }

func equalPowerIn(t float64) float64 { return math.Sin(math.Pi * t / 2) }

func equalPowerOut(t float64) float64 { return math.Cos(math.Pi * t / 2) }

var table = map[Name]Func{
	Linear:        linear,
	SquaredIn:     squaredIn,
	SquaredOut:    squaredOut,
	CosineSIn:     cosineSIn,
	CosineSOut:    cosineSOut,
	EqualPowerIn:  equalPowerIn,
	EqualPowerOut: equalPowerOut,
}

// Lookup returns the evaluator for name, defaulting to Linear if unknown.
func Lookup(name Name) Func {
	if f, ok := table[name]; ok {
		return f
	}
	return linear
}

// Pair names the fade-in/fade-out curve selection for a passage or a global
// default configuration.
type Pair struct {
	In  Name
	Out Name
}

var (
	PairLinear     = Pair{In: Linear, Out: Linear}
	PairExpLog     = Pair{In: SquaredIn, Out: SquaredOut}
	PairCosine     = Pair{In: CosineSIn, Out: CosineSOut}
	PairEqualPower = Pair{In: EqualPowerIn, Out: EqualPowerOut}
)

// ParsePair maps a global_fade_curve_pair configuration value to a Pair.
// Only the three values spec.md §6 documents ("linear/linear",
// "exponential/logarithmic", "cosine/cosine") are recognized; anything else
// falls back to PairCosine, the documented default. PairEqualPower has no
// global-default string of its own — it's only reachable via a passage's
// own FadeInCurve/FadeOutCurve.
func ParsePair(s string) Pair {
	switch s {
	case "linear/linear":
		return PairLinear
	case "exponential/logarithmic":
		return PairExpLog
	case "cosine/cosine":
		return PairCosine
	default:
		return PairCosine
	}
}
