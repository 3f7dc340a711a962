package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/core"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/pulse"
)

// Controller defaults.
const (
	DefaultSettleDelay   = 500 * time.Millisecond
	DefaultMaxAttempts   = 2
	DefaultSpanPerWidth  = NanosecondsPerWidth // span units per width unit
	DefaultSpanMargin    = 1.2
	DefaultSpanTolerance = 0.2
)

// ErrNoRecorder is returned by Run when the controller has no Recorder.
var ErrNoRecorder = errors.New("sweep: recorder is required")

// Device applies pulser settings.
type Device interface {
	Configure(ctx context.Context, g Group) error
	Apply(ctx context.Context, p Point) error
}

// Aligner centres the acquisition window on the pulse.
type Aligner interface {
	Align(ctx context.Context) error
}

// SpanMeter reports the span of the acquisition window.
type SpanMeter interface {
	MeasureSpan(ctx context.Context) (float64, error)
}

// Acquirer captures one waveform.
type Acquirer interface {
	Acquire(ctx context.Context) (*waveform.Waveform, error)
}

// Recorder persists the rows of one group.
type Recorder interface {
	Record(ctx context.Context, h Header, rows []Row) error
}

// Observer receives progress notifications.
type Observer interface {
	ObserveRetry(p Point)
	ObservePoint(r Row, acquisition time.Duration)
}

// Controller runs sweep plans against its collaborators.
type Controller struct {
	device    Device
	acquirer  Acquirer
	recorder  Recorder
	aligner   Aligner
	spans     SpanMeter
	observer  Observer
	extractor *pulse.Extractor
	logger    *log.Logger

	settle        time.Duration
	maxAttempts   int
	spanPerWidth  float64
	spanMargin    float64
	spanTolerance float64
	gain          float64
	attenuator    float64
	serial        string
	now           func() time.Time
	sleep         func(context.Context, time.Duration) error
}

// Option configures a Controller.
type Option func(*Controller)

// WithAligner enables alignment after every setting change.
func WithAligner(a Aligner) Option {
	return func(c *Controller) { c.aligner = a }
}

// WithSpanMeter enables the span consistency check.
func WithSpanMeter(m SpanMeter) Option {
	return func(c *Controller) { c.spans = m }
}

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithExtractor sets the amplitude extractor.
func WithExtractor(x *pulse.Extractor) Option {
	return func(c *Controller) { c.extractor = x }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSettleDelay sets the wait after every setting change.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

// WithMaxAttempts bounds the applications of one setting.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) { c.maxAttempts = n }
}

// WithSpanCheck sets the expected span per width unit, its margin and the
// relative error that triggers a retry.
func WithSpanCheck(perWidth, margin, tolerance float64) Option {
	return func(c *Controller) {
		c.spanPerWidth = perWidth
		c.spanMargin = margin
		c.spanTolerance = tolerance
	}
}

// WithGain multiplies every acquired waveform by g before extraction.
func WithGain(g float64) Option {
	return func(c *Controller) { c.gain = g }
}

// WithAttenuator records the attenuator between pulser and digitizer, in dB.
func WithAttenuator(db float64) Option {
	return func(c *Controller) { c.attenuator = math.Abs(db) }
}

// WithSerial sets the device serial number recorded in every row.
func WithSerial(sn string) Option {
	return func(c *Controller) { c.serial = sn }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller for the given collaborators.
func NewController(dev Device, acq Acquirer, rec Recorder, opts ...Option) *Controller {
	c := &Controller{
		device:        dev,
		acquirer:      acq,
		recorder:      rec,
		settle:        DefaultSettleDelay,
		maxAttempts:   DefaultMaxAttempts,
		spanPerWidth:  DefaultSpanPerWidth,
		spanMargin:    DefaultSpanMargin,
		spanTolerance: DefaultSpanTolerance,
		gain:          1,
		now:           time.Now,
		sleep:         sleepContext,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.extractor == nil {
		c.extractor = pulse.NewExtractor(pulse.WithLogger(c.logger))
	}

	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}

	c.maxAttempts = max(c.maxAttempts, 1)

	return c
}

// ExpectedSpan returns the acquisition span expected for a pulse width.
func (c *Controller) ExpectedSpan(width int) float64 {
	return float64(width) * c.spanPerWidth * c.spanMargin
}

// Run executes plan. On a collaborator error or cancellation it records the
// rows of the current group and returns the report so far together with
// the error.
func (c *Controller) Run(ctx context.Context, plan Plan) (Report, error) {
	if c.recorder == nil {
		return Report{}, ErrNoRecorder
	}

	if err := plan.Validate(); err != nil {
		return Report{}, err
	}

	started := c.now()
	report := Report{Planned: plan.Count()}
	progress := 0

	for _, g := range plan.Groups() {
		header := Header{
			Serial:     c.serial,
			DateTime:   started.Format(DateTimeLayout),
			Started:    started,
			Group:      g,
			Attenuator: c.attenuator,
		}

		if err := c.device.Configure(ctx, g); err != nil {
			return report, fmt.Errorf("sweep: configure %s/%t/%s: %w", g.Mode, g.ACComp, g.DSP, err)
		}

		var rows []Row

		for _, p := range g.Points() {
			if err := ctx.Err(); err != nil {
				return report, c.flush(ctx, header, rows, err)
			}

			progress++
			c.logger.Printf("Working on %d-of-%d: %s", progress, report.Planned, p)

			row, retries, err := c.runPoint(ctx, header, p)
			report.Retries += retries

			if err != nil {
				return report, c.flush(ctx, header, rows, fmt.Errorf("sweep: %s: %w", p, err))
			}

			if row.Pass {
				report.Good++
			}

			rows = append(rows, row)
			report.Rows = append(report.Rows, row)
		}

		if err := c.recorder.Record(ctx, header, rows); err != nil {
			return report, fmt.Errorf("sweep: record: %w", err)
		}
	}

	c.logger.Printf("Completed. %d-of-%d Okay", report.Good, report.Planned)

	return report, nil
}

// flush records partial rows and returns cause, joined with a recording
// error if one occurs. Recording is not cancelled with ctx.
func (c *Controller) flush(ctx context.Context, h Header, rows []Row, cause error) error {
	if len(rows) == 0 {
		return cause
	}

	if err := c.recorder.Record(context.WithoutCancel(ctx), h, rows); err != nil {
		return errors.Join(cause, fmt.Errorf("sweep: record partial results: %w", err))
	}

	return cause
}

func (c *Controller) runPoint(ctx context.Context, h Header, p Point) (Row, int, error) {
	row := newRow(h, p)
	retries := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		row.Attempts = attempt

		if err := c.device.Apply(ctx, p); err != nil {
			return row, retries, fmt.Errorf("apply: %w", err)
		}

		if err := c.sleep(ctx, c.settle); err != nil {
			return row, retries, err
		}

		if c.aligner != nil {
			if err := c.aligner.Align(ctx); err != nil {
				return row, retries, fmt.Errorf("align: %w", err)
			}
		}

		if c.spans == nil {
			break
		}

		span, err := c.spans.MeasureSpan(ctx)
		if err != nil {
			return row, retries, fmt.Errorf("measure span: %w", err)
		}

		row.Span = span
		expected := c.ExpectedSpan(p.Width)

		if core.RelativeError(span, expected) < c.spanTolerance || attempt == c.maxAttempts {
			break
		}

		retries++
		c.logger.Printf("Span expected %.3f, measured %.3f; retry acquisition", expected, span)

		if c.observer != nil {
			c.observer.ObserveRetry(p)
		}
	}

	start := time.Now()

	w, err := c.acquirer.Acquire(ctx)
	if err != nil {
		return row, retries, fmt.Errorf("acquire: %w", err)
	}

	elapsed := time.Since(start)

	if c.gain != 1 {
		w = w.WithGain(c.gain)
	}

	res, err := c.extractor.Measure(w)
	if pulse.Passed(res, err) {
		row.Measured = res.Amplitude
		row.Pass = true
		c.logger.Printf("Final amplitude is %.3f", res.Amplitude)
	} else {
		row.Tag = pulse.Tag(err)
		c.logger.Printf("Measurement failed: %s %v", row.Tag, err)
	}

	if c.observer != nil {
		c.observer.ObservePoint(row, elapsed)
	}

	return row, retries, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
