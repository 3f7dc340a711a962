package sweep_test

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// bench renders an ideal pulse of the last applied amplitude.
type bench struct {
	amplitude int
}

func (b *bench) Configure(context.Context, sweep.Group) error { return nil }

func (b *bench) Apply(_ context.Context, p sweep.Point) error {
	b.amplitude = p.Amplitude
	return nil
}

func (b *bench) Acquire(context.Context) (*waveform.Waveform, error) {
	s, err := signal.NewGenerator(signal.WithSlew(3)).Pulse(240, 80, 160, 0, float64(b.amplitude))
	if err != nil {
		return nil, err
	}

	return waveform.New(s, 0, 239), nil
}

type printer struct{}

func (printer) Record(_ context.Context, h sweep.Header, rows []sweep.Row) error {
	fmt.Printf("%s %s %s\n", h.Serial, h.DateTime, h.Group.Mode)

	for _, r := range rows {
		line := fmt.Sprintf("W%d %d mV: %.3f pass=%t", r.Point.Width, r.Point.Amplitude, r.Measured, r.Pass)
		if r.Tag != "" {
			line += " " + r.Tag
		}

		fmt.Println(line)
	}

	return nil
}

func ExampleController_Run() {
	plan := sweep.Plan{
		Modes:      []sweep.Mode{sweep.ModeLocal},
		ACComp:     []bool{false},
		DSP:        []sweep.DSPMode{sweep.DSPOff},
		Widths:     sweep.Values{List: []int{4}},
		Amplitudes: sweep.Values{List: []int{350, 0}},
	}

	b := &bench{}
	c := sweep.NewController(b, b, printer{},
		sweep.WithSettleDelay(0),
		sweep.WithSerial("SS-0001"),
		sweep.WithClock(func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)

	report, err := c.Run(context.Background(), plan)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%d-of-%d okay\n", report.Good, report.Planned)
	// Output:
	// SS-0001 250102_030405 Local
	// W4 350 mV: 350.000 pass=true
	// W4 0 mV: 0.000 pass=false [No_Falling_Edge_Found]
	// 1-of-2 okay
}
