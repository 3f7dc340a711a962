package pulse

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/edge"
	"github.com/cwbudde/algo-pulse/measure/flat"
	"github.com/cwbudde/algo-pulse/stats/level"
)

// Measurement failures.
var (
	ErrEmptyWaveform     = errors.New("pulse: waveform has no samples")
	ErrNoFallingEdge     = errors.New("pulse: no falling edge found")
	ErrNoRisingEdge      = errors.New("pulse: no rising edge found")
	ErrHighLevelNotFound = errors.New("pulse: high level not found")
	ErrLowLevelNotFound  = errors.New("pulse: low level not found")
	ErrHistogramFailed   = errors.New("pulse: histogram level detection failed")
)

// Stage is the furthest step a measurement reached.
type Stage int

// Measurement stages.
const (
	StageStart Stage = iota
	StageEdgesLocated
	StageLevelsLocated
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageEdgesLocated:
		return "edges-located"
	case StageLevelsLocated:
		return "levels-located"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// Source tells where a settled level estimate came from.
type Source int

// Level sources.
const (
	SourceNone Source = iota
	SourceFlat
	SourceHistogram
)

func (s Source) String() string {
	switch s {
	case SourceFlat:
		return "flat"
	case SourceHistogram:
		return "histogram"
	default:
		return "none"
	}
}

// Level is one settled level estimate.
type Level struct {
	Value  float64
	Source Source
	Index  int     // flat region midpoint, -1 for histogram estimates
	Time   float64 // time of Index; 0 for histogram estimates
}

// Result holds everything a measurement located. Fields beyond the reached
// Stage are zero.
type Result struct {
	Stage     Stage
	Levels    level.Levels
	Tolerance float64
	Falling   edge.Crossing
	Rising    edge.Crossing
	High      Level
	Low       Level
	Amplitude float64

	RiseTime, FallTime       float64
	HasRiseTime, HasFallTime bool
}

// Extractor measures pulse amplitudes. It holds no per-capture state and can
// be reused.
type Extractor struct {
	cfg    Config
	logger *log.Logger
}

// NewExtractor creates an extractor from DefaultConfig and opts.
func NewExtractor(opts ...Option) *Extractor {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cfg.normalize()

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return &Extractor{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (x *Extractor) Config() Config {
	return x.cfg
}

// Measure runs the staged extraction on w.
func (x *Extractor) Measure(w *waveform.Waveform) (Result, error) {
	var res Result

	levels, err := w.Levels()
	if err != nil {
		return res, ErrEmptyWaveform
	}

	res.Levels = levels
	p2p := levels.PeakToPeak()
	res.Tolerance = x.cfg.Tolerance.For(p2p)
	x.logger.Printf("levels: min %.3f, mid %.3f, max %.3f, tolerance %.2f", levels.Min, levels.Mid, levels.Max, res.Tolerance)

	falling, ok, err := edge.Find(w, levels.Mid, edge.Falling, edge.Last)
	if err != nil {
		return res, err
	}

	if !ok {
		return res, ErrNoFallingEdge
	}

	res.Falling = falling

	rising, ok, err := edge.Find(w, levels.Mid, edge.Rising, edge.Last)
	if err != nil {
		return res, err
	}

	if !ok {
		return res, ErrNoRisingEdge
	}

	res.Rising = rising
	res.Stage = StageEdgesLocated
	x.logger.Printf("edges: falling %.6f %s, rising %.6f %s", falling.Time, w.XUnits(), rising.Time, w.XUnits())

	high, highOK, err := x.flatLevel(w, falling.Time, res.Tolerance)
	if err != nil {
		return res, err
	}

	low, lowOK, err := x.flatLevel(w, rising.Time, res.Tolerance)
	if err != nil {
		return res, err
	}

	if (!highOK || !lowOK) && (p2p > x.cfg.HistogramSpan || x.cfg.ForceHistogram) {
		x.logger.Printf("flat search failed (high %t, low %t), using histogram", highOK, lowOK)

		return x.fromHistogram(w, res)
	}

	if !highOK {
		return res, ErrHighLevelNotFound
	}

	if !lowOK {
		return res, ErrLowLevelNotFound
	}

	res.High, res.Low = high, low
	res.Stage = StageLevelsLocated

	return x.finish(w, res), nil
}

func (x *Extractor) flatLevel(w *waveform.Waveform, edgeTime, tol float64) (Level, bool, error) {
	r, ok, err := flat.Search(w, w.IndexOfTime(edgeTime), flat.Backward, x.cfg.FlatCount, tol)
	if err != nil || !ok {
		return Level{}, false, err
	}

	return Level{Value: r.Value, Source: SourceFlat, Index: r.Index, Time: r.Time}, true, nil
}

func (x *Extractor) fromHistogram(w *waveform.Waveform, res Result) (Result, error) {
	width := x.cfg.BinWidth
	if width == 0 {
		width = level.DefaultBinWidth(res.Levels.PeakToPeak(), x.cfg.Tolerance.Min)
	}

	sides, err := level.HistogramSides(w.Samples(), res.Levels.Mid, width)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrHistogramFailed, err)
	}

	if !sides.HasHigh {
		return res, fmt.Errorf("%w: %w", ErrHighLevelNotFound, level.ErrLevelDetectionFailed)
	}

	if !sides.HasLow {
		return res, fmt.Errorf("%w: %w", ErrLowLevelNotFound, level.ErrLevelDetectionFailed)
	}

	res.High = Level{Value: sides.High, Source: SourceHistogram, Index: -1}
	res.Low = Level{Value: sides.Low, Source: SourceHistogram, Index: -1}
	res.Stage = StageLevelsLocated

	return x.finish(w, res), nil
}

func (x *Extractor) finish(w *waveform.Waveform, res Result) Result {
	res.Amplitude = res.High.Value - res.Low.Value

	if res.High.Value > res.Low.Value {
		res.RiseTime, res.HasRiseTime, _ = edge.TransitionTime(w, res.Low.Value, res.High.Value, edge.Rising, edge.Last)
		res.FallTime, res.HasFallTime, _ = edge.TransitionTime(w, res.Low.Value, res.High.Value, edge.Falling, edge.Last)
	}

	res.Stage = StageDone
	x.logger.Printf("amplitude %.3f %s (high %.3f %s, low %.3f %s)",
		res.Amplitude, w.YUnits(), res.High.Value, res.High.Source, res.Low.Value, res.Low.Source)

	return res
}

// Tag returns the bracketed result label for a measurement error, or ""
// for nil.
func Tag(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyWaveform):
		return "[Empty_Waveform]"
	case errors.Is(err, ErrNoFallingEdge):
		return "[No_Falling_Edge_Found]"
	case errors.Is(err, ErrNoRisingEdge):
		return "[No_Rising_Edge_Found]"
	case errors.Is(err, ErrHistogramFailed):
		return "[Histogram_Levels_Failed]"
	case errors.Is(err, level.ErrLevelDetectionFailed):
		return "[Unable_To_Locate_Levels]"
	case errors.Is(err, ErrHighLevelNotFound):
		return "[High_Flat_Spot_Not_Found]"
	case errors.Is(err, ErrLowLevelNotFound):
		return "[Low_Flat_Spot_Not_Found]"
	default:
		return "[Measurement_Failed]"
	}
}

// Passed reports whether res is a complete, finite measurement.
func Passed(res Result, err error) bool {
	return err == nil && res.Stage == StageDone && !math.IsNaN(res.Amplitude) && !math.IsInf(res.Amplitude, 0)
}
