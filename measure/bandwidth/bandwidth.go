// Package bandwidth estimates the -3 dB bandwidth of a step transition.
//
// The impulse response is taken as the first difference of the samples
// around the edge. It is tapered with a Hann window, zero-padded and
// transformed; the bandwidth is the first frequency at which the magnitude
// falls 3 dB below its DC value. With a time axis in ns the result is in GHz.
package bandwidth

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/dsp/window"
)

// Errors returned by Measure.
var (
	ErrTooShort  = errors.New("bandwidth: too few samples around the edge")
	ErrNoEnergy  = errors.New("bandwidth: edge has no energy")
	ErrNoRolloff = errors.New("bandwidth: response stays within 3 dB up to Nyquist")
)

const (
	defaultSpan = 128
	defaultPad  = 8
	minSamples  = 4
	halfPower   = math.Sqrt2 / 2
)

type config struct {
	span int
	pad  int
}

// Option configures Measure.
type Option func(*config)

// WithSpan sets the number of samples taken around the edge.
func WithSpan(n int) Option {
	return func(c *config) {
		c.span = n
	}
}

// WithPadding sets the zero-padding factor applied before the transform.
func WithPadding(factor int) Option {
	return func(c *config) {
		c.pad = factor
	}
}

// Result is a bandwidth estimate.
type Result struct {
	Bandwidth  float64 // -3 dB frequency, 1 / x unit
	Resolution float64 // spacing of the frequency bins
	Samples    int     // samples of the analyzed segment
}

// Measure estimates the bandwidth of the edge centred at sample center.
func Measure(w *waveform.Waveform, center int, opts ...Option) (Result, error) {
	cfg := config{span: defaultSpan, pad: defaultPad}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg.pad = max(cfg.pad, 1)

	dt := w.Interval()
	if dt <= 0 {
		return Result{}, ErrTooShort
	}

	lo := max(center-cfg.span/2, 0)
	hi := min(lo+cfg.span, w.Count())

	if hi-lo < minSamples {
		return Result{}, ErrTooShort
	}

	diff := make([]float64, hi-lo-1)
	for i := range diff {
		diff[i] = w.At(lo+i+1) - w.At(lo+i)
	}

	window.Apply(window.TypeHann, diff)

	n := nextPowerOf2(len(diff) * cfg.pad)

	in := make([]complex128, n)
	for i, v := range diff {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return Result{}, fmt.Errorf("bandwidth: failed to create FFT plan: %w", err)
	}

	out := make([]complex128, n)
	if err := plan.Forward(out, in); err != nil {
		return Result{}, fmt.Errorf("bandwidth: transform failed: %w", err)
	}

	bins := n/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	mag := make([]float64, bins)
	vecmath.Magnitude(mag, re, im)

	if mag[0] == 0 {
		return Result{}, ErrNoEnergy
	}

	df := 1 / (float64(n) * dt)
	ref := mag[0] * halfPower

	for k := 1; k < bins; k++ {
		if mag[k] >= ref {
			continue
		}

		// Interpolate between bins k-1 and k.
		frac := (mag[k-1] - ref) / (mag[k-1] - mag[k])

		return Result{
			Bandwidth:  (float64(k-1) + frac) * df,
			Resolution: df,
			Samples:    hi - lo,
		}, nil
	}

	return Result{Resolution: df, Samples: hi - lo}, ErrNoRolloff
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
