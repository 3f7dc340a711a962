// Package sweep drives a pulser through a grid of settings and measures
// the pulse amplitude at every point.
//
// A Plan is the cartesian product of pulser modes, AC compensation flags,
// DSP modes, pulse widths and amplitude settings. The outer three
// dimensions form a Group: the device is configured once per group and the
// group's rows are recorded together. Widths and amplitudes can be given as
// the keyword "sweep", which selects the accessory or the regular default
// lists depending on the group's mode.
//
// For every point a Controller
//
//   - applies the setting and waits for the settle delay,
//   - optionally aligns the acquisition window and checks the measured
//     span against the width (expected span = width * 12.8 * 1.2); a
//     relative error of 20 % or more applies the setting again, at most
//     once by default,
//   - acquires one waveform and hands it to a pulse.Extractor.
//
// Measurement failures are recorded as rows with a zero amplitude and the
// failure tag; they never stop the sweep. Collaborator errors and context
// cancellation stop the pass after the rows collected so far have been
// handed to the Recorder.
//
// # Usage
//
//	plan := sweep.Plan{
//		Modes:      []sweep.Mode{sweep.ModeLocal},
//		ACComp:     []bool{false},
//		DSP:        []sweep.DSPMode{sweep.DSPOff},
//		Widths:     sweep.Values{Sweep: true},
//		Amplitudes: sweep.Values{List: []int{350}},
//	}
//	c := sweep.NewController(device, scope, recorder,
//		sweep.WithAligner(device), sweep.WithSpanMeter(device))
//	report, err := c.Run(ctx, plan)
package sweep
