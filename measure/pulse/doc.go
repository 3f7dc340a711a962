// Package pulse measures the amplitude of a captured pulse.
//
// An Extractor composes the edge, flat and level packages into one staged
// operation:
//
//	StageStart          levels computed, edges not yet located
//	StageEdgesLocated   last falling and last rising midlevel crossings found
//	StageLevelsLocated  settled high and low levels found
//	StageDone           amplitude = high - low
//
// The settled levels are searched backward from each edge: the high level
// before the last falling edge and the low level before the last rising
// edge. This works for positive and negative pulses alike. When a flat
// search fails on a capture with a peak-to-peak swing above the histogram
// threshold (or when the histogram is forced), both levels are taken from
// the histogram of sample values instead.
//
// Every failure is returned as an error wrapping one of the package
// sentinels, and Tag maps it to the bracketed label recorded in sweep
// results. None of them is meant to abort a sweep.
//
// # Usage
//
//	x := pulse.NewExtractor(pulse.WithFlatCount(12))
//	res, err := x.Measure(w)
//	if err != nil {
//		log.Printf("%s: %v", pulse.Tag(err), err)
//	}
package pulse
