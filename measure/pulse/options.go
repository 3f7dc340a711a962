package pulse

import (
	"log"

	"github.com/cwbudde/algo-pulse/measure/flat"
)

// Defaults used by NewExtractor.
const (
	DefaultFlatCount     = 12
	DefaultHistogramSpan = 20.0 // mV
)

// Config holds the extractor parameters.
type Config struct {
	FlatCount      int                  // consecutive samples of a settled region
	Tolerance      flat.TolerancePolicy // flat tolerance derived from peak-to-peak
	HistogramSpan  float64              // peak-to-peak above which the histogram fallback runs, mV
	ForceHistogram bool                 // run the fallback regardless of HistogramSpan
	BinWidth       float64              // histogram bin width, mV; 0 derives it from the capture
	Logger         *log.Logger          // progress output; nil discards
}

// DefaultConfig returns the parameters used by NewExtractor.
func DefaultConfig() Config {
	return Config{
		FlatCount:     DefaultFlatCount,
		Tolerance:     flat.DefaultTolerance,
		HistogramSpan: DefaultHistogramSpan,
	}
}

// Option mutates an extractor configuration.
type Option func(*Config)

// WithConfig replaces the whole configuration. Zero fields fall back to
// their defaults.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithFlatCount sets the number of consecutive samples of a flat region.
func WithFlatCount(n int) Option {
	return func(c *Config) {
		c.FlatCount = n
	}
}

// WithTolerance sets the flat tolerance policy.
func WithTolerance(p flat.TolerancePolicy) Option {
	return func(c *Config) {
		c.Tolerance = p
	}
}

// WithHistogramSpan sets the peak-to-peak threshold of the histogram
// fallback.
func WithHistogramSpan(mV float64) Option {
	return func(c *Config) {
		c.HistogramSpan = mV
	}
}

// WithForceHistogram runs the histogram fallback whenever a flat search
// fails.
func WithForceHistogram(force bool) Option {
	return func(c *Config) {
		c.ForceHistogram = force
	}
}

// WithBinWidth sets an explicit histogram bin width in mV.
func WithBinWidth(mV float64) Option {
	return func(c *Config) {
		c.BinWidth = mV
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()

	if c.FlatCount < 1 {
		c.FlatCount = def.FlatCount
	}

	if c.Tolerance == (flat.TolerancePolicy{}) {
		c.Tolerance = def.Tolerance
	}

	if c.HistogramSpan <= 0 {
		c.HistogramSpan = def.HistogramSpan
	}

	if c.BinWidth < 0 {
		c.BinWidth = 0
	}
}
