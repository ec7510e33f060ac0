// Package ticks implements the rate-independent tick unit used for all
// stored passage timing points: 28,224,000 ticks per second, the least
// common multiple of the common audio sample rates.
package ticks

// Rate is the number of ticks per second.
const Rate int64 = 28_224_000

// ToSamples converts a tick count to a sample count at the given sample
// rate, truncating. Rate/44100 divides evenly (640), so conversions at the
// working rate are always exact; other rates may truncate.
func ToSamples(t int64, sampleRate int) int64 {
	return (t * int64(sampleRate)) / Rate
}

// FromSamples converts a sample count at the given sample rate back to
// ticks.
func FromSamples(samples int64, sampleRate int) int64 {
	return (samples * Rate) / int64(sampleRate)
}

// DurationFrames returns the number of output frames attributed to a
// tick span at the given sample rate, rounding up per spec invariant 3:
// ceil((end-start) * sampleRate / Rate).
func DurationFrames(start, end int64, sampleRate int) int64 {
	span := end - start
	if span <= 0 {
		return 0
	}
	num := span * int64(sampleRate)
	frames := num / Rate
	if num%Rate != 0 {
		frames++
	}
	return frames
}

// Seconds converts a tick count to seconds.
func Seconds(t int64) float64 {
	return float64(t) / float64(Rate)
}

// FromSeconds converts seconds to the nearest tick count.
func FromSeconds(s float64) int64 {
	return int64(s*float64(Rate) + 0.5)
}
