package report

import (
	"context"
	"errors"
	"testing"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

type countRecorder struct {
	calls int
	err   error
}

func (c *countRecorder) Record(context.Context, sweep.Header, []sweep.Row) error {
	c.calls++
	return c.err
}

func TestMulti(t *testing.T) {
	errA := errors.New("a failed")
	a := &countRecorder{err: errA}
	b := &countRecorder{}

	rec := Multi(a, nil, b)
	h := testHeader(0)

	err := rec.Record(context.Background(), h, testRows(h))
	if !errors.Is(err, errA) {
		t.Fatalf("Record() error = %v, want %v", err, errA)
	}

	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("calls a=%d b=%d, want 1/1", a.calls, b.calls)
	}

	if err := Multi().Record(context.Background(), h, nil); err != nil {
		t.Fatalf("empty Multi error = %v", err)
	}
}
