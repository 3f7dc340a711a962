package level

import (
	"errors"
	"math"
	"sort"
)

// Errors returned by the histogram functions.
var (
	ErrInvalidBinWidth      = errors.New("level: bin width must be positive and finite")
	ErrLevelDetectionFailed = errors.New("level: histogram found no level on one side of the midlevel")
)

// DefaultBins is the number of bins spanning the peak-to-peak range when no
// explicit bin width is configured. It matches the code range of an 8-bit
// digitizer.
const DefaultBins = 256

// Bin is one histogram bucket.
type Bin struct {
	Value float64 // mean of the samples that fell into the bin
	Count int
}

// DefaultBinWidth returns peakToPeak/DefaultBins, raised to floor. A flat
// capture (peakToPeak == 0) yields floor, or 1 if floor is not positive.
func DefaultBinWidth(peakToPeak, floor float64) float64 {
	w := math.Abs(peakToPeak) / DefaultBins
	if w < floor {
		w = floor
	}

	if w <= 0 {
		w = 1
	}

	return w
}

// Histogram buckets samples into bins of binWidth anchored at the minimum
// sample. Only populated bins are returned, ordered by descending count and
// then by ascending value.
func Histogram(samples []float64, binWidth float64) ([]Bin, error) {
	if len(samples) == 0 {
		return nil, ErrEmpty
	}

	if !(binWidth > 0) || math.IsInf(binWidth, 0) {
		return nil, ErrInvalidBinWidth
	}

	lo := samples[0]
	for _, x := range samples[1:] {
		if x < lo {
			lo = x
		}
	}

	type acc struct {
		sum   float64
		count int
	}

	buckets := make(map[int]*acc)
	for _, x := range samples {
		k := int(math.Floor((x - lo) / binWidth))

		a, ok := buckets[k]
		if !ok {
			a = &acc{}
			buckets[k] = a
		}

		a.sum += x
		a.count++
	}

	bins := make([]Bin, 0, len(buckets))
	for _, a := range buckets {
		bins = append(bins, Bin{
			Value: a.sum / float64(a.count),
			Count: a.count,
		})
	}

	sort.Slice(bins, func(i, j int) bool {
		if bins[i].Count != bins[j].Count {
			return bins[i].Count > bins[j].Count
		}

		return bins[i].Value < bins[j].Value
	})

	return bins, nil
}

// Sides holds the per-side result of a histogram level search.
type Sides struct {
	Low, High       float64
	HasLow, HasHigh bool
}

// HistogramSides searches the histogram for both settled levels and reports
// which sides were found. Low is the first bin, in bin order, whose value
// lies strictly below mid; high the first strictly above it.
func HistogramSides(samples []float64, mid, binWidth float64) (Sides, error) {
	bins, err := Histogram(samples, binWidth)
	if err != nil {
		return Sides{}, err
	}

	var s Sides

	for _, b := range bins {
		if !s.HasLow && b.Value < mid {
			s.Low, s.HasLow = b.Value, true
		}

		if !s.HasHigh && b.Value > mid {
			s.High, s.HasHigh = b.Value, true
		}

		if s.HasLow && s.HasHigh {
			break
		}
	}

	return s, nil
}

// HistogramLevels estimates the settled low and high levels with
// HistogramSides. It fails with ErrLevelDetectionFailed unless both sides
// are found.
func HistogramLevels(samples []float64, mid, binWidth float64) (low, high float64, err error) {
	s, err := HistogramSides(samples, mid, binWidth)
	if err != nil {
		return 0, 0, err
	}

	if !s.HasLow || !s.HasHigh {
		return 0, 0, ErrLevelDetectionFailed
	}

	return s.Low, s.High, nil
}
