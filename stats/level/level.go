package level

import "errors"

// ErrEmpty is returned when statistics are requested for no samples.
var ErrEmpty = errors.New("level: no samples")

// Levels holds the extreme values of a capture and their midpoint.
type Levels struct {
	Min    float64
	MinPos int
	Max    float64
	MaxPos int
	Mid    float64 // (Min + Max) / 2
}

// PeakToPeak returns Max - Min.
func (l Levels) PeakToPeak() float64 {
	return l.Max - l.Min
}

// MinMidMax computes the minimum, maximum and midlevel in a single pass.
// The first occurrence wins when an extreme value repeats.
func MinMidMax(samples []float64) (Levels, error) {
	if len(samples) == 0 {
		return Levels{}, ErrEmpty
	}

	l := Levels{Min: samples[0], Max: samples[0]}

	for i, x := range samples[1:] {
		if x > l.Max {
			l.Max = x
			l.MaxPos = i + 1
		}

		if x < l.Min {
			l.Min = x
			l.MinPos = i + 1
		}
	}

	l.Mid = 0.5 * (l.Min + l.Max)

	return l, nil
}
