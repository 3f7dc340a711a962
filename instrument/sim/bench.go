package sim

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-pulse/dsp/core"
	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// Defaults.
const (
	DefaultSamples = 600
	DefaultNoise   = 0.2 // mV peak
	DefaultSlew    = 6
	DefaultSerial  = "SIM-0001"
)

// Bench is a simulated pulser and digitizer.
type Bench struct {
	gen        *signal.Generator
	seed       int64
	samples    int
	serial     string
	attenuator float64
	baseline   float64

	group   sweep.Group
	point   sweep.Point
	applied bool
	skew    int

	acquisitions int
}

// Option configures a Bench.
type Option func(*benchConfig)

type benchConfig struct {
	seed       int64
	noise      float64
	slew       int
	samples    int
	serial     string
	attenuator float64
	misaligned int
	baseline   float64
}

// WithSeed sets the noise seed.
func WithSeed(seed int64) Option {
	return func(c *benchConfig) { c.seed = seed }
}

// WithNoise sets the peak noise in mV.
func WithNoise(mv float64) Option {
	return func(c *benchConfig) { c.noise = mv }
}

// WithSlew sets the samples per edge.
func WithSlew(n int) Option {
	return func(c *benchConfig) { c.slew = n }
}

// WithSamples sets the record length.
func WithSamples(n int) Option {
	return func(c *benchConfig) { c.samples = n }
}

// WithSerial sets the reported serial number.
func WithSerial(sn string) Option {
	return func(c *benchConfig) { c.serial = sn }
}

// WithAttenuator attenuates the rendered pulse by db.
func WithAttenuator(db float64) Option {
	return func(c *benchConfig) { c.attenuator = db }
}

// WithBaseline offsets the rendered pulse, in mV.
func WithBaseline(mv float64) Option {
	return func(c *benchConfig) { c.baseline = mv }
}

// WithMisalignment makes the first n span readings report half the
// expected span.
func WithMisalignment(n int) Option {
	return func(c *benchConfig) { c.misaligned = n }
}

// NewBench creates a bench.
func NewBench(opts ...Option) *Bench {
	c := benchConfig{
		seed:    1,
		noise:   DefaultNoise,
		slew:    DefaultSlew,
		samples: DefaultSamples,
		serial:  DefaultSerial,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}

	return &Bench{
		gen:        signal.NewGenerator(signal.WithSeed(c.seed), signal.WithNoise(c.noise), signal.WithSlew(c.slew)),
		seed:       c.seed,
		samples:    max(c.samples, 24),
		serial:     c.serial,
		attenuator: c.attenuator,
		baseline:   c.baseline,
		skew:       c.misaligned,
	}
}

// Serial returns the simulated serial number.
func (b *Bench) Serial() string { return b.serial }

// Acquisitions returns the number of rendered waveforms.
func (b *Bench) Acquisitions() int { return b.acquisitions }

// Group returns the last configured group.
func (b *Bench) Group() sweep.Group { return b.group }

// Point returns the last applied setting.
func (b *Bench) Point() sweep.Point { return b.point }

// Configure implements sweep.Device.
func (b *Bench) Configure(ctx context.Context, g sweep.Group) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.group = g

	return nil
}

// Apply implements sweep.Device.
func (b *Bench) Apply(ctx context.Context, p sweep.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.Width <= 0 || p.Amplitude < 0 {
		return fmt.Errorf("sim: invalid setting %s", p)
	}

	if p.Mode.Accessory() {
		switch p.Width {
		case 1, 2, 4, 8, 16:
		default:
			return fmt.Errorf("sim: accessory width W%d not available", p.Width)
		}
	}

	b.point = p
	b.applied = true

	return nil
}

// Align implements sweep.Aligner.
func (b *Bench) Align(ctx context.Context) error {
	return ctx.Err()
}

// MeasureSpan implements sweep.SpanMeter.
func (b *Bench) MeasureSpan(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	span := b.span()
	if b.skew > 0 {
		b.skew--
		return span / 2, nil
	}

	return span, nil
}

// Acquire implements sweep.Acquirer.
func (b *Bench) Acquire(ctx context.Context) (*waveform.Waveform, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := b.render()
	if err != nil {
		return nil, err
	}

	return waveform.New(s, 0, b.span(), waveform.WithName("Simulated Pulse")), nil
}

func (b *Bench) span() float64 {
	w := max(b.point.Width, 1)
	return float64(w) * sweep.DefaultSpanPerWidth * sweep.DefaultSpanMargin
}

// render returns the samples of the current setting in mV.
func (b *Bench) render() ([]float64, error) {
	if !b.applied {
		return nil, fmt.Errorf("sim: no setting applied")
	}

	b.acquisitions++
	b.gen.SetSeed(b.seed + int64(b.acquisitions))

	top := core.Attenuate(float64(b.point.Amplitude), b.attenuator)
	n := b.samples

	return b.gen.Pulse(n, n/12, n-n/12, b.baseline, b.baseline+top)
}

var (
	_ sweep.Device    = (*Bench)(nil)
	_ sweep.Aligner   = (*Bench)(nil)
	_ sweep.SpanMeter = (*Bench)(nil)
	_ sweep.Acquirer  = (*Bench)(nil)
)
