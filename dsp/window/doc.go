// Package window generates tapering windows and applies them to sample
// blocks.
//
// Only the windows the measurement code uses are provided. Coefficients are
// symmetric by default, so a window of odd length peaks at exactly 1 in its
// centre; WithPeriodic selects the FFT framing form instead.
//
//	diff := ...          // first difference around an edge
//	window.Apply(window.TypeHann, diff)
package window
