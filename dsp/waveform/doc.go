// Package waveform provides the immutable sample container produced by the
// decoders and consumed by the measurement packages.
//
// A Waveform holds voltage samples (mV by convention) on a uniform time axis
// described by an offset and a span (ns or ps, depending on the instrument).
// Sample i sits at
//
//	t(i) = offset + i * span / (count - 1)
//
// All index-based accessors saturate instead of failing: measurement code
// routinely passes interpolated indices that land a fraction outside the
// valid range, and those are clamped to the nearest end sample.
package waveform
