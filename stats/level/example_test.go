package level_test

import (
	"fmt"

	"github.com/cwbudde/algo-pulse/stats/level"
)

func ExampleMinMidMax() {
	l, err := level.MinMidMax([]float64{0, 0, 100, 100, 0})
	if err != nil {
		panic(err)
	}

	fmt.Printf("min=%.0f mid=%.0f max=%.0f\n", l.Min, l.Mid, l.Max)

	// Output:
	// min=0 mid=50 max=100
}

func ExampleHistogramLevels() {
	samples := []float64{1, 1, 1, 1, 49, 99, 99, 99}

	low, high, err := level.HistogramLevels(samples, 50, 1)
	if err != nil {
		panic(err)
	}

	fmt.Printf("low=%.0f high=%.0f\n", low, high)

	// Output:
	// low=1 high=99
}
