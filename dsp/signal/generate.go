// Package signal generates deterministic synthetic captures: steps, pulses
// and ramps with optional edge slew and seeded noise.
package signal

import (
	"fmt"
	"math"
	"math/rand"
)

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	seed  int64
	noise float64 // peak noise amplitude, mV
	slew  int     // samples per transition
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithNoise adds uniform noise in [-amplitude, amplitude] to every
// generated sample. Negative amplitudes disable noise.
func WithNoise(amplitude float64) Option {
	return func(g *Generator) {
		g.noise = math.Max(amplitude, 0)
	}
}

// WithSlew spreads each transition linearly over n samples. n <= 1 gives
// an ideal step.
func WithSlew(n int) Option {
	return func(g *Generator) {
		g.slew = max(n, 0)
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Seed returns the current deterministic seed.
func (g *Generator) Seed() int64 { return g.seed }

// SetSeed updates the deterministic seed.
func (g *Generator) SetSeed(seed int64) { g.seed = seed }

// Step generates samples that sit at before until index at and at after
// from there on. With slew, the transition ends at index at.
func (g *Generator) Step(samples, at int, before, after float64) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("step samples must be > 0: %d", samples)
	}

	out := make([]float64, samples)
	for i := range out {
		out[i] = before + (after-before)*g.ramp(i, at)
	}

	return g.withNoise(out), nil
}

// Pulse generates a base line with a top plateau between rise and fall.
func (g *Generator) Pulse(samples, rise, fall int, base, top float64) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("pulse samples must be > 0: %d", samples)
	}

	if fall < rise {
		return nil, fmt.Errorf("pulse fall index %d before rise index %d", fall, rise)
	}

	out := make([]float64, samples)
	for i := range out {
		out[i] = base + (top-base)*(g.ramp(i, rise)-g.ramp(i, fall))
	}

	return g.withNoise(out), nil
}

// Ramp generates a linear ramp from first to last inclusive.
func (g *Generator) Ramp(samples int, first, last float64) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("ramp samples must be > 0: %d", samples)
	}

	out := make([]float64, samples)
	if samples == 1 {
		out[0] = first
		return g.withNoise(out), nil
	}

	step := (last - first) / float64(samples-1)
	for i := range out {
		out[i] = first + step*float64(i)
	}

	return g.withNoise(out), nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}

	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}

	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))

	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out, nil
}

// ramp returns the normalized progress of a transition ending at index at.
func (g *Generator) ramp(i, at int) float64 {
	if g.slew <= 1 {
		if i >= at {
			return 1
		}

		return 0
	}

	start := at - g.slew

	switch {
	case i <= start:
		return 0
	case i >= at:
		return 1
	default:
		return float64(i-start) / float64(g.slew)
	}
}

func (g *Generator) withNoise(out []float64) []float64 {
	if g.noise == 0 {
		return out
	}

	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] += (rng.Float64()*2 - 1) * g.noise
	}

	return out
}
