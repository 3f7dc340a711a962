// Package level computes the voltage level statistics used to characterize
// pulses: the minimum, maximum and midlevel of a capture, and a histogram of
// sample values that serves as a fallback estimate of the settled low and
// high levels when no flat region can be located.
//
// # Bin ordering
//
// [Histogram] returns bins ordered by population, most populated first. With
// that ordering "the first bin below the midlevel" is the most common value in
// the lower half of the capture, which is where a pulse spends its time once it
// has settled. The bin width is calibration sensitive: a width near one
// digitizer LSB resolves the plateau, while a much wider bin merges the
// plateau with the edge and biases the estimate toward the midlevel.
package level
