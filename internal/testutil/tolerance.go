// Package testutil holds assertion helpers and synthetic capture fixtures
// shared by the measurement tests.
package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// RequireNear fails t if got and want differ by more than eps.
func RequireNear(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > eps {
		t.Fatalf("%s = %v, want %v (eps %v)", name, got, want, eps)
	}
}

// RequireSamples fails t unless got holds len(want) samples, each within
// eps mV of want.
func RequireSamples(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range got {
		if d := math.Abs(got[i] - want[i]); math.IsNaN(got[i]) || d > eps {
			t.Fatalf("sample %d = %v mV, want %v (off by %v, eps %v)", i, got[i], want[i], d, eps)
		}
	}
}

// RequireAxis fails t unless w starts at offset and covers span.
func RequireAxis(t *testing.T, w *waveform.Waveform, offset, span float64) {
	t.Helper()
	const eps = 1e-9
	if math.Abs(w.Offset()-offset) > eps || math.Abs(w.Span()-span) > eps {
		t.Fatalf("axis = [%v, +%v] %s, want [%v, +%v]", w.Offset(), w.Span(), w.XUnits(), offset, span)
	}
}
