package sweep

import (
	"context"
	"errors"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// fakeBench plays device, aligner, span meter and acquirer.
type fakeBench struct {
	groups   []Group
	applied  []Point
	aligns   int
	acquired []int // number of Apply calls seen at each Acquire

	spans     []float64 // returned in order; the last value repeats
	spanCalls int

	failApply  int // fail the n-th Apply (1-based); 0 never
	flat       bool
	onAcquire  func()
	errConfig  error
	errAcquire error
}

var errBench = errors.New("bench failure")

func (b *fakeBench) Configure(_ context.Context, g Group) error {
	b.groups = append(b.groups, g)
	return b.errConfig
}

func (b *fakeBench) Apply(_ context.Context, p Point) error {
	b.applied = append(b.applied, p)
	if b.failApply > 0 && len(b.applied) == b.failApply {
		return errBench
	}
	return nil
}

func (b *fakeBench) Align(context.Context) error {
	b.aligns++
	return nil
}

func (b *fakeBench) MeasureSpan(context.Context) (float64, error) {
	i := min(b.spanCalls, len(b.spans)-1)
	b.spanCalls++
	return b.spans[i], nil
}

func (b *fakeBench) Acquire(context.Context) (*waveform.Waveform, error) {
	b.acquired = append(b.acquired, len(b.applied))
	if b.onAcquire != nil {
		b.onAcquire()
	}
	if b.errAcquire != nil {
		return nil, b.errAcquire
	}

	p := b.applied[len(b.applied)-1]
	if b.flat {
		return waveform.New(make([]float64, 300), 0, 299), nil
	}

	s, err := signal.NewGenerator(signal.WithSlew(4)).Pulse(300, 100, 200, 0, float64(p.Amplitude))
	if err != nil {
		return nil, err
	}
	return waveform.New(s, 0, 299), nil
}

type memRecorder struct {
	headers []Header
	rows    [][]Row
	err     error
}

func (r *memRecorder) Record(_ context.Context, h Header, rows []Row) error {
	r.headers = append(r.headers, h)
	r.rows = append(r.rows, append([]Row(nil), rows...))
	return r.err
}

type countObserver struct {
	retries int
	points  int
}

func (o *countObserver) ObserveRetry(Point) { o.retries++ }

func (o *countObserver) ObservePoint(Row, time.Duration) { o.points++ }

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}
