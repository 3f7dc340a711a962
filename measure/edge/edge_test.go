package edge

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/internal/testutil"
)

func TestFindInvalidArguments(t *testing.T) {
	w := waveform.New([]float64{0, 1}, 0, 1)
	if _, _, err := Find(w, 0.5, Polarity(0), First); !errors.Is(err, ErrInvalidPolarity) {
		t.Fatalf("err = %v, want ErrInvalidPolarity", err)
	}
	if _, _, err := Find(w, 0.5, Rising, Direction(7)); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("err = %v, want ErrInvalidDirection", err)
	}
}

func TestFindRampWithinOneSample(t *testing.T) {
	s, _ := signal.NewGenerator().Ramp(101, 0, 100)
	w := waveform.New(s, 0, 100)

	for _, thr := range []float64{0.5, 12.25, 37.5, 50, 99.9} {
		c, ok, err := Find(w, thr, Rising, First)
		if err != nil || !ok {
			t.Fatalf("Find(%v) ok=%v err=%v", thr, ok, err)
		}
		testutil.RequireNear(t, "crossing time", c.Time, thr, 1)
		if c.Polarity != Rising || c.Direction != First {
			t.Fatalf("crossing = %+v", c)
		}
	}
}

func TestFindFallingStep(t *testing.T) {
	w := testutil.FallingStep(t)
	l, err := w.Levels()
	if err != nil {
		t.Fatalf("Levels() error = %v", err)
	}
	if l.Mid != 50 {
		t.Fatalf("Mid = %v, want 50", l.Mid)
	}

	tests := []struct {
		name  string
		dir   Direction
		index int
		prev  int
	}{
		{"last", Last, 424, 425},
		{"first", First, 424, 423},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok, err := Find(w, l.Mid, Falling, tt.dir)
			if err != nil || !ok {
				t.Fatalf("Find() ok=%v err=%v", ok, err)
			}
			if c.Index != tt.index || c.Prev != tt.prev {
				t.Fatalf("Index/Prev = %d/%d, want %d/%d", c.Index, c.Prev, tt.index, tt.prev)
			}
			testutil.RequireNear(t, "time", c.Time, w.TimeAt(424), 1e-9)
			if got := w.IndexOfTime(c.Time); got != 424 {
				t.Fatalf("IndexOfTime = %d, want 424", got)
			}
		})
	}

	if _, ok, _ := Find(w, l.Mid, Rising, Last); ok {
		t.Fatal("falling step must not report a rising edge")
	}
}

func TestFindPulseEdges(t *testing.T) {
	w := testutil.Pulse(t, 200, 50, 120, 0, 300)

	rise, ok, _ := Find(w, 150, Rising, Last)
	if !ok {
		t.Fatal("rising edge not found")
	}
	testutil.RequireNear(t, "rise time", rise.Time, 49.5, 1e-9)

	fall, ok, _ := Find(w, 150, Falling, Last)
	if !ok {
		t.Fatal("falling edge not found")
	}
	testutil.RequireNear(t, "fall time", fall.Time, 119.5, 1e-9)
}

func TestFindThresholdOnSample(t *testing.T) {
	w := waveform.New([]float64{0, 5, 10, 10, 0}, 0, 4)

	c, ok, _ := Find(w, 10, Rising, First)
	if !ok || c.Index != 2 || c.Time != 2 {
		t.Fatalf("rising first = %+v ok=%v", c, ok)
	}

	// Scanning back, prev=0 < 10 <= curr=10 marks the falling edge at sample 3.
	c, ok, _ = Find(w, 10, Falling, Last)
	if !ok || c.Index != 3 || c.Time != 3 {
		t.Fatalf("falling last = %+v ok=%v", c, ok)
	}
}

func TestFindDegenerate(t *testing.T) {
	for _, w := range []*waveform.Waveform{
		waveform.New(nil, 0, 0),
		waveform.New([]float64{1}, 0, 0),
		testutil.Constant(0, 100, 100),
	} {
		for _, pol := range []Polarity{Rising, Falling} {
			if _, ok, err := Find(w, 0, pol, Last); ok || err != nil {
				t.Fatalf("%v %v: ok=%v err=%v", w, pol, ok, err)
			}
		}
	}
}

func TestTransitionTime(t *testing.T) {
	g := signal.NewGenerator(signal.WithSlew(10))
	s, _ := g.Pulse(200, 60, 140, 0, 100)
	w := waveform.New(s, 0, 199)

	rise, ok, err := TransitionTime(w, 0, 100, Rising, Last)
	if err != nil || !ok {
		t.Fatalf("rise ok=%v err=%v", ok, err)
	}
	testutil.RequireNear(t, "rise", rise, 8, 1e-9)

	fall, ok, err := TransitionTime(w, 0, 100, Falling, Last)
	if err != nil || !ok {
		t.Fatalf("fall ok=%v err=%v", ok, err)
	}
	testutil.RequireNear(t, "fall", fall, 8, 1e-9)

	if _, _, err := TransitionTime(w, 100, 0, Rising, Last); !errors.Is(err, ErrInvalidLevels) {
		t.Fatalf("err = %v, want ErrInvalidLevels", err)
	}

	flat := testutil.Constant(5, 10, 10)
	if _, ok, err := TransitionTime(flat, 0, 100, Rising, Last); ok || err != nil {
		t.Fatalf("constant capture: ok=%v err=%v", ok, err)
	}
}
