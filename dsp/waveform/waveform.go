package waveform

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-pulse/dsp/core"
	"github.com/cwbudde/algo-pulse/stats/level"
)

// Default unit labels.
const (
	UnitNanoseconds = "ns"
	UnitPicoseconds = "ps"
	UnitMillivolts  = "mV"
	defaultName     = "no_name"
)

// Waveform is a uniformly sampled capture. It is not modified after New
// returns; derived waveforms are new values.
type Waveform struct {
	name    string
	xUnits  string
	yUnits  string
	offset  float64
	span    float64
	samples []float64

	levelsOnce sync.Once
	levels     level.Levels
	levelsErr  error
}

// Option configures a Waveform at construction.
type Option func(*Waveform)

// WithName sets the display name.
func WithName(name string) Option {
	return func(w *Waveform) {
		w.name = name
	}
}

// WithUnits sets the x (time) and y (voltage) unit labels.
func WithUnits(x, y string) Option {
	return func(w *Waveform) {
		w.xUnits = x
		w.yUnits = y
	}
}

// New creates a waveform from a copy of samples. A negative span is treated
// as zero.
func New(samples []float64, offset, span float64, opts ...Option) *Waveform {
	w := &Waveform{
		name:    defaultName,
		xUnits:  UnitNanoseconds,
		yUnits:  UnitMillivolts,
		offset:  offset,
		span:    math.Max(span, 0),
		samples: append([]float64(nil), samples...),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Name returns the display name.
func (w *Waveform) Name() string { return w.name }

// XUnits returns the time unit label.
func (w *Waveform) XUnits() string { return w.xUnits }

// YUnits returns the voltage unit label.
func (w *Waveform) YUnits() string { return w.yUnits }

// Offset returns the time of sample 0.
func (w *Waveform) Offset() float64 { return w.offset }

// Span returns the time between the first and the last sample.
func (w *Waveform) Span() float64 { return w.span }

// Count returns the number of samples.
func (w *Waveform) Count() int { return len(w.samples) }

// Samples returns a copy of the sample values.
func (w *Waveform) Samples() []float64 {
	return append([]float64(nil), w.samples...)
}

// Interval returns the time between adjacent samples, or 0 when the
// waveform has fewer than two samples.
func (w *Waveform) Interval() float64 {
	if len(w.samples) < 2 {
		return 0
	}

	return w.span / float64(len(w.samples)-1)
}

// At returns sample i without clamping. It panics when i is out of range,
// like a slice index.
func (w *Waveform) At(i int) float64 {
	return w.samples[i]
}

// Y returns the sample at floor(index), clamped into [0, count-1].
// An empty waveform yields 0.
func (w *Waveform) Y(index float64) float64 {
	if len(w.samples) == 0 {
		return 0
	}

	return w.samples[w.clampFloor(index)]
}

// X returns the time of the sample at floor(index), clamped into
// [0, count-1].
func (w *Waveform) X(index float64) float64 {
	return w.TimeAt(w.clampFloor(index))
}

// TimeAt returns the time of sample i, saturating i into the valid range.
func (w *Waveform) TimeAt(i int) float64 {
	n := len(w.samples)
	if n < 2 {
		return w.offset
	}

	return w.offset + float64(core.ClampIndex(i, n))*w.Interval()
}

// IndexOfTime maps t to the nearest sample index, clamped into range.
// It returns 0 when count < 2 or the span is zero.
func (w *Waveform) IndexOfTime(t float64) int {
	n := len(w.samples)
	if n < 2 || w.span == 0 {
		return 0
	}

	pos := math.Round((t - w.offset) / w.Interval())
	if math.IsNaN(pos) {
		return 0
	}

	if pos <= 0 {
		return 0
	}

	if pos >= float64(n-1) {
		return n - 1
	}

	return int(pos)
}

// Times returns the time of every sample. It returns an empty slice when
// count <= 1 or span <= 0.
func (w *Waveform) Times() []float64 {
	n := len(w.samples)
	if n <= 1 || w.span <= 0 {
		return []float64{}
	}

	dx := w.Interval()
	out := make([]float64, n)

	for i := range out {
		out[i] = w.offset + float64(i)*dx
	}

	return out
}

// Indexes returns 0..count-1 under the same emptiness rule as Times.
func (w *Waveform) Indexes() []int {
	n := len(w.samples)
	if n <= 1 || w.span <= 0 {
		return []int{}
	}

	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

// Levels returns the cached minimum, midlevel and maximum of the samples.
func (w *Waveform) Levels() (level.Levels, error) {
	w.levelsOnce.Do(func() {
		w.levels, w.levelsErr = level.MinMidMax(w.samples)
	})

	return w.levels, w.levelsErr
}

// WithGain returns a copy with every sample multiplied by gain.
func (w *Waveform) WithGain(gain float64) *Waveform {
	out := &Waveform{
		name:    w.name,
		xUnits:  w.xUnits,
		yUnits:  w.yUnits,
		offset:  w.offset,
		span:    w.span,
		samples: make([]float64, len(w.samples)),
	}

	for i, v := range w.samples {
		out.samples[i] = v * gain
	}

	return out
}

// String summarizes the waveform for progress output.
func (w *Waveform) String() string {
	return fmt.Sprintf("%s: %d samples, offset %.3f %s, span %.6f %s, y in %s",
		w.name, len(w.samples), w.offset, w.xUnits, w.span, w.xUnits, w.yUnits)
}

func (w *Waveform) clampFloor(index float64) int {
	n := len(w.samples)
	if n == 0 || math.IsNaN(index) || index <= 0 {
		return 0
	}

	if index >= float64(n-1) {
		return n - 1
	}

	return int(math.Floor(index))
}
