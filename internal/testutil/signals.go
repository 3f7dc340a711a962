package testutil

import (
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// FallingStep returns the 1000-sample capture used across the measurement
// tests: 100 mV for indices 0..399, a linear fall through 400..449 and
// 0 mV from 450 on, over a 100 ns span.
func FallingStep(t *testing.T) *waveform.Waveform {
	t.Helper()
	s := make([]float64, 1000)
	for i := range s {
		switch {
		case i < 400:
			s[i] = 100
		case i < 450:
			s[i] = 100 - 2*float64(i-399)
		}
	}
	return waveform.New(s, 0, 100, waveform.WithName("falling-step"))
}

// Pulse returns a capture with a positive pulse from rise to fall over
// base, spanning one ns per sample.
func Pulse(t *testing.T, samples, rise, fall int, base, top float64, opts ...signal.Option) *waveform.Waveform {
	t.Helper()
	g := signal.NewGenerator(opts...)
	s, err := g.Pulse(samples, rise, fall, base, top)
	if err != nil {
		t.Fatalf("Pulse fixture: %v", err)
	}
	return waveform.New(s, 0, float64(samples-1), waveform.WithName("pulse"))
}

// Constant returns count samples of value over span ns.
func Constant(value float64, count int, span float64) *waveform.Waveform {
	s := make([]float64, count)
	for i := range s {
		s[i] = value
	}
	return waveform.New(s, 0, span, waveform.WithName("constant"))
}

// NoisyPulse returns Pulse with seeded noise of peak amplitude noise.
func NoisyPulse(t *testing.T, samples, rise, fall int, base, top, noise float64, seed int64) *waveform.Waveform {
	t.Helper()
	return Pulse(t, samples, rise, fall, base, top, signal.WithNoise(noise), signal.WithSeed(seed))
}
