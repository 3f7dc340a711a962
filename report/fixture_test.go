package report

import (
	"time"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

var started = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testHeader(atten float64) sweep.Header {
	return sweep.Header{
		Serial:   "SS-0042",
		DateTime: started.Format(sweep.DateTimeLayout),
		Started:  started,
		Group: sweep.Group{
			Mode:       sweep.ModeLocal,
			ACComp:     true,
			DSP:        sweep.DSPDifferential,
			Widths:     []int{1, 2},
			Amplitudes: []int{350},
		},
		Attenuator: atten,
	}
}

func testRows(h sweep.Header) []sweep.Row {
	point := func(w int) sweep.Point {
		return sweep.Point{Mode: h.Group.Mode, ACComp: h.Group.ACComp, DSP: h.Group.DSP, Width: w, Amplitude: 350}
	}

	return []sweep.Row{
		{
			Serial: h.Serial, DateTime: h.DateTime, Point: point(1),
			Measured: 349.8766, Attenuator: h.Attenuator, Unattenuated: 175.4155,
			Pass: true, Span: 15.2, Attempts: 1,
		},
		{
			Serial: h.Serial, DateTime: h.DateTime, Point: point(2),
			Attenuator: h.Attenuator, Unattenuated: 175.4155,
			Tag: "[No_Falling_Edge_Found]", Span: 30.9, Attempts: 1,
		},
	}
}
