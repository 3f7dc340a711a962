// Package core holds the small numeric helpers shared by the waveform,
// measurement and sweep packages.
package core

import "math"

// Clamp limits v to the inclusive range spanned by lo and hi. The bounds may
// be given in either order.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	return math.Min(math.Max(v, lo), hi)
}

// ClampIndex saturates i into [0, n-1]. It returns 0 when n <= 0.
func ClampIndex(i, n int) int {
	switch {
	case n <= 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	default:
		return i
	}
}

// RelativeError returns |measured-expected| / |expected|.
// Returns +Inf when expected is zero and measured is not.
func RelativeError(measured, expected float64) float64 {
	diff := math.Abs(measured - expected)
	if expected == 0 {
		if diff == 0 {
			return 0
		}

		return math.Inf(1)
	}

	return diff / math.Abs(expected)
}

// AmplitudeRatio converts a voltage gain in dB to a linear factor.
func AmplitudeRatio(db float64) float64 {
	return math.Pow(10, db/20)
}

// Attenuate returns the amplitude left after an attenuator of db decibels.
// The sign of db is ignored; attenuators are rated as a positive loss.
func Attenuate(amplitude, db float64) float64 {
	return amplitude / AmplitudeRatio(math.Abs(db))
}
