package testutil

import (
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

func TestRequireNear(t *testing.T) {
	RequireNear(t, "value", 1.05, 1.0, 0.1)
}

func TestRequireSamples(t *testing.T) {
	RequireSamples(t, []float64{0, 100.4, 200}, []float64{0, 100, 200}, 0.5)
	RequireSamples(t, nil, []float64{}, 0)
}

func TestRequireAxis(t *testing.T) {
	w := waveform.New([]float64{1, 2, 3}, -5, 10)
	RequireAxis(t, w, -5, 10)
}
