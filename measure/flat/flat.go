// Package flat finds settled regions of a waveform: runs of consecutive
// samples that stay within a tolerance of the run's first sample.
package flat

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-pulse/dsp/core"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// Errors returned for invalid arguments.
var (
	ErrInvalidDirection = errors.New("flat: direction must be +1 or -1")
	ErrInvalidCount     = errors.New("flat: count must be >= 1")
	ErrInvalidTolerance = errors.New("flat: tolerance must be >= 0")
)

// Search directions.
const (
	Forward  = 1
	Backward = -1
)

// Region is a located flat run.
type Region struct {
	Index int     // window midpoint, reported sample
	Start int     // first sample of the window in search order
	Value float64 // sample value at Index
	Time  float64 // time of Index
}

// Search slides a window of count samples from start in direction dir
// (+1 or -1) until every member lies within tol of the window's first
// sample. Start is clamped into range. ok is false when the window leaves
// the capture without matching.
func Search(w *waveform.Waveform, start, dir, count int, tol float64) (Region, bool, error) {
	if dir != Forward && dir != Backward {
		return Region{}, false, ErrInvalidDirection
	}

	if count < 1 {
		return Region{}, false, ErrInvalidCount
	}

	if math.IsNaN(tol) || tol < 0 {
		return Region{}, false, ErrInvalidTolerance
	}

	n := w.Count()
	if n == 0 || count > n {
		return Region{}, false, nil
	}

	span := (count - 1) * dir

	for i := core.ClampIndex(start, n); i >= 0 && i < n; i += dir {
		end := i + span
		if end < 0 || end >= n {
			break
		}

		if !within(w, i, dir, count, tol) {
			continue
		}

		mid := core.ClampIndex(int(math.Floor(float64(i)+float64(dir*count)/2)), n)

		return Region{
			Index: mid,
			Start: i,
			Value: w.At(mid),
			Time:  w.TimeAt(mid),
		}, true, nil
	}

	return Region{}, false, nil
}

func within(w *waveform.Waveform, i, dir, count int, tol float64) bool {
	base := w.At(i)

	for j := 1; j < count; j++ {
		if math.Abs(w.At(i+j*dir)-base) > tol {
			return false
		}
	}

	return true
}

// TolerancePolicy derives a flat tolerance from a capture's peak-to-peak
// swing.
type TolerancePolicy struct {
	Fraction float64 // share of the peak-to-peak swing
	Min      float64 // floor, mV
	Max      float64 // ceiling, mV
}

// DefaultTolerance is 1 % of the swing, kept within [0.1, 1.0] mV.
var DefaultTolerance = TolerancePolicy{Fraction: 0.01, Min: 0.1, Max: 1.0}

// For returns clamp(|p2p| * Fraction, Min, Max).
func (p TolerancePolicy) For(p2p float64) float64 {
	return core.Clamp(math.Abs(p2p)*p.Fraction, p.Min, p.Max)
}
