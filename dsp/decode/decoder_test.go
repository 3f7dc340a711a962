package decode

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/internal/testutil"
)

var tdsCal = Calibration{
	XIncrement: 1e-9,
	XZero:      -2.5e-7,
	YMult:      0.004,
	YZero:      0,
	YOffset:    -10,
}

func TestInt8Formula(t *testing.T) {
	raw := []int8{-128, -10, 0, 15, 127}
	payload := make([]byte, len(raw))
	for i, v := range raw {
		payload[i] = byte(v)
	}

	w, err := Decoder{}.Int8(Block{Declared: len(payload), Data: payload}, tdsCal, waveform.WithName("CH1"))
	if err != nil {
		t.Fatalf("Int8() error = %v", err)
	}

	if w.Count() != len(raw) {
		t.Fatalf("Count() = %d, want %d", w.Count(), len(raw))
	}
	for i, v := range raw {
		want := ((float64(v)-tdsCal.YOffset)*tdsCal.YMult + tdsCal.YZero) * 1000
		if got := w.At(i); got != want {
			t.Fatalf("sample %d = %v, want %v", i, got, want)
		}
	}

	testutil.RequireNear(t, "offset", w.Offset(), -250, 1e-9)
	testutil.RequireNear(t, "span", w.Span(), 4, 1e-9)
	if w.XUnits() != "ns" || w.YUnits() != "mV" || w.Name() != "CH1" {
		t.Fatalf("metadata = %q %q %q", w.Name(), w.XUnits(), w.YUnits())
	}
}

func TestInt8ShortReadWarns(t *testing.T) {
	var buf bytes.Buffer
	d := Decoder{Logger: log.New(&buf, "", 0)}

	blk, err := ParseBlock([]byte("#15\x01\x02"))
	if err != nil {
		t.Fatalf("ParseBlock() error = %v", err)
	}

	w, err := d.Int8(blk, tdsCal)
	if err != nil {
		t.Fatalf("Int8() error = %v", err)
	}
	if w.Count() != 2 {
		t.Fatalf("Count() = %d, want 2 received samples", w.Count())
	}
	if !strings.Contains(buf.String(), "expected 5 bytes, got 2") {
		t.Fatalf("log = %q, want short read warning", buf.String())
	}
}

func TestInt8InvalidCalibration(t *testing.T) {
	cal := tdsCal
	cal.YMult = math.NaN()
	if _, err := (Decoder{}).Int8(Block{Data: []byte{1}}, cal); !errors.Is(err, ErrInvalidCalibration) {
		t.Fatalf("Int8() error = %v, want ErrInvalidCalibration", err)
	}
}

func TestInt8RoundTrip(t *testing.T) {
	samples := []float64{0, 40, 100, 250, -40, 300}
	block, err := EncodeInt8(samples, tdsCal)
	if err != nil {
		t.Fatalf("EncodeInt8() error = %v", err)
	}

	blk, err := ReadBlock(bytes.NewReader(block))
	if err != nil {
		t.Fatalf("ReadBlock() error = %v", err)
	}

	w, err := Decoder{}.Int8(blk, tdsCal)
	if err != nil {
		t.Fatalf("Int8() error = %v", err)
	}

	// One count is 4 mV; values inside the range reproduce within half a count.
	testutil.RequireSamples(t, w.Samples(), samples, 2.0+1e-9)
}

func TestEncodeInt8Saturates(t *testing.T) {
	block, err := EncodeInt8([]float64{1e6, -1e6}, tdsCal)
	if err != nil {
		t.Fatalf("EncodeInt8() error = %v", err)
	}
	blk, _ := ParseBlock(block)
	if int8(blk.Data[0]) != math.MaxInt8 || int8(blk.Data[1]) != math.MinInt8 {
		t.Fatalf("saturated counts = %v", blk.Data)
	}

	if _, err := EncodeInt8([]float64{1}, Calibration{}); !errors.Is(err, ErrInvalidCalibration) {
		t.Fatalf("EncodeInt8 with zero YMult error = %v", err)
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	samples := []float64{0.5, -12.25, 300}
	blk, err := ParseBlock(EncodeFloat32(samples))
	if err != nil {
		t.Fatalf("ParseBlock() error = %v", err)
	}

	w, err := Decoder{}.Float32(blk, 1000, 2000)
	if err != nil {
		t.Fatalf("Float32() error = %v", err)
	}
	testutil.RequireSamples(t, w.Samples(), samples, 0)
	if w.XUnits() != "ps" || w.Offset() != 1000 || w.Span() != 2000 {
		t.Fatalf("metadata = %v", w)
	}
}

func TestFloat32TrailingBytes(t *testing.T) {
	var buf bytes.Buffer
	d := Decoder{Logger: log.New(&buf, "", 0)}

	w, err := d.Float32(Block{Declared: 6, Data: []byte{0, 0, 128, 63, 1, 2}}, 0, 0)
	if err != nil {
		t.Fatalf("Float32() error = %v", err)
	}
	if w.Count() != 1 || w.At(0) != 1 {
		t.Fatalf("Float32() samples = %v", w.Samples())
	}
	if !strings.Contains(buf.String(), "dropping 2 trailing bytes") {
		t.Fatalf("log = %q", buf.String())
	}
}
