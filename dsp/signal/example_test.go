package signal_test

import (
	"fmt"

	"github.com/cwbudde/algo-pulse/dsp/signal"
)

func ExampleGenerator_Pulse() {
	g := signal.NewGenerator(signal.WithSlew(2))
	x, err := g.Pulse(8, 3, 6, 0, 100)
	if err != nil {
		panic(err)
	}

	fmt.Println(x)

	// Output:
	// [0 0 50 100 100 50 0 0]
}
