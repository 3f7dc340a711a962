// Package edge locates threshold crossings in a captured waveform.
//
// A scan visits samples either from the start (First) or from the end
// (Last). The sample visited earlier in scan order is called prev. A
// crossing is found when
//
//	First+Falling, Last+Rising:  prev > threshold >= curr
//	First+Rising,  Last+Falling: prev < threshold <= curr
//
// Both rules describe the same physical transition seen from either end of
// the capture. The crossing time is linearly interpolated between the two
// bracketing samples; equal samples yield their time midpoint.
package edge

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// Errors returned for invalid arguments.
var (
	ErrInvalidPolarity  = errors.New("edge: polarity must be Rising or Falling")
	ErrInvalidDirection = errors.New("edge: direction must be First or Last")
	ErrInvalidLevels    = errors.New("edge: high level must exceed low level")
)

// Polarity selects the transition sense.
type Polarity int

// Transition polarities.
const (
	Rising Polarity = iota + 1
	Falling
)

func (p Polarity) String() string {
	switch p {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// Direction selects the scan order.
type Direction int

// Scan directions.
const (
	First Direction = iota + 1
	Last
)

func (d Direction) String() string {
	switch d {
	case First:
		return "first"
	case Last:
		return "last"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Crossing describes a located threshold crossing.
type Crossing struct {
	Time      float64 // interpolated time, in the waveform's x units
	Index     int     // bracketing sample visited last in scan order
	Prev      int     // bracketing sample visited first in scan order
	Polarity  Polarity
	Direction Direction
}

// Find scans w for the first or last crossing of threshold with the given
// polarity. ok is false when no crossing exists; err is non-nil only for
// invalid arguments.
func Find(w *waveform.Waveform, threshold float64, pol Polarity, dir Direction) (Crossing, bool, error) {
	if pol != Rising && pol != Falling {
		return Crossing{}, false, ErrInvalidPolarity
	}

	if dir != First && dir != Last {
		return Crossing{}, false, ErrInvalidDirection
	}

	n := w.Count()
	if n < 2 {
		return Crossing{}, false, nil
	}

	// descending is true when prev must be above the threshold.
	descending := (pol == Falling) == (dir == First)

	start, step := 1, 1
	if dir == Last {
		start, step = n-2, -1
	}

	for i := start; i >= 0 && i < n; i += step {
		p := i - step
		prev, curr := w.At(p), w.At(i)

		var hit bool
		if descending {
			hit = prev > threshold && threshold >= curr
		} else {
			hit = prev < threshold && threshold <= curr
		}

		if !hit {
			continue
		}

		return Crossing{
			Time:      interpolate(w.TimeAt(p), w.TimeAt(i), prev, curr, threshold),
			Index:     i,
			Prev:      p,
			Polarity:  pol,
			Direction: dir,
		}, true, nil
	}

	return Crossing{}, false, nil
}

func interpolate(xPrev, xCurr, yPrev, yCurr, threshold float64) float64 {
	dy := yCurr - yPrev
	if dy == 0 {
		return (xPrev + xCurr) / 2
	}

	return xPrev + (threshold-yPrev)*(xCurr-xPrev)/dy
}

// TransitionTime measures the 10 % to 90 % duration of the selected edge
// between low and high. Falling edges are measured from 90 % to 10 %.
// ok is false when either reference crossing is missing.
func TransitionTime(w *waveform.Waveform, low, high float64, pol Polarity, dir Direction) (float64, bool, error) {
	if !(high > low) {
		return 0, false, ErrInvalidLevels
	}

	p10 := low + 0.1*(high-low)
	p90 := low + 0.9*(high-low)

	a, okA, err := Find(w, p10, pol, dir)
	if err != nil || !okA {
		return 0, false, err
	}

	b, okB, err := Find(w, p90, pol, dir)
	if err != nil || !okB {
		return 0, false, err
	}

	if pol == Rising {
		return b.Time - a.Time, true, nil
	}

	return a.Time - b.Time, true, nil
}
