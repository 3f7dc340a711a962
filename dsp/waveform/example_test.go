package waveform_test

import (
	"fmt"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

func ExampleWaveform_IndexOfTime() {
	w := waveform.New([]float64{0, 0, 100, 100, 100}, 0, 2)

	fmt.Println(w.IndexOfTime(1.0), w.Y(2.9), w.X(10))
	// Output: 2 100 2
}
