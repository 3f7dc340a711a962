package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// ErrInvalidCalibration is returned when calibration values cannot produce
// finite samples.
var ErrInvalidCalibration = errors.New("decode: invalid calibration")

// DefaultTimeScale converts the seconds reported by WFMPRE:X* to ns.
const DefaultTimeScale = 1e9

// Calibration holds the preamble values of one waveform transfer.
type Calibration struct {
	XIncrement float64 // seconds per sample
	XZero      float64 // time of the first sample, seconds
	YMult      float64 // volts per count
	YZero      float64 // volts
	YOffset    float64 // counts
	TimeScale  float64 // multiplier applied to XZero and XIncrement; 0 means DefaultTimeScale
}

func (c Calibration) timeScale() float64 {
	if c.TimeScale == 0 {
		return DefaultTimeScale
	}

	return c.TimeScale
}

func (c Calibration) validate() error {
	for _, v := range []float64{c.XIncrement, c.XZero, c.YMult, c.YZero, c.YOffset, c.TimeScale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value", ErrInvalidCalibration)
		}
	}

	return nil
}

// MilliVolts converts one raw count to mV.
func (c Calibration) MilliVolts(v int8) float64 {
	return ((float64(v)-c.YOffset)*c.YMult + c.YZero) * 1000
}

// Count converts mV back to the nearest raw count, saturating at the int8
// range.
func (c Calibration) Count(mV float64) (int8, error) {
	if c.YMult == 0 {
		return 0, fmt.Errorf("%w: zero YMult", ErrInvalidCalibration)
	}

	raw := math.Round((mV/1000-c.YZero)/c.YMult + c.YOffset)

	switch {
	case math.IsNaN(raw):
		return 0, fmt.Errorf("%w: sample is NaN", ErrInvalidCalibration)
	case raw > math.MaxInt8:
		return math.MaxInt8, nil
	case raw < math.MinInt8:
		return math.MinInt8, nil
	}

	return int8(raw), nil
}

// Decoder turns blocks into waveforms. The zero value is ready to use and
// discards its log output.
type Decoder struct {
	Logger *log.Logger
}

func (d Decoder) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard, "", 0)
	}

	return d.Logger
}

func (d Decoder) warnShort(b Block) {
	if b.Short() {
		d.logger().Printf("decode: short read: expected %d bytes, got %d", b.Declared, b.Received())
	}
}

// Int8 decodes a signed 8-bit block using cal. The time axis is reported
// in ns unless cal.TimeScale says otherwise.
func (d Decoder) Int8(b Block, cal Calibration, opts ...waveform.Option) (*waveform.Waveform, error) {
	if err := cal.validate(); err != nil {
		return nil, err
	}

	d.warnShort(b)

	samples := make([]float64, len(b.Data))
	for i, raw := range b.Data {
		samples[i] = cal.MilliVolts(int8(raw))
	}

	scale := cal.timeScale()
	span := 0.0

	if n := len(samples); n > 1 {
		span = cal.XIncrement * float64(n-1) * scale
	}

	opts = append([]waveform.Option{waveform.WithUnits(waveform.UnitNanoseconds, waveform.UnitMillivolts)}, opts...)

	return waveform.New(samples, cal.XZero*scale, span, opts...), nil
}

// Float32 decodes a block of little-endian float32 samples already in mV.
// Trailing bytes that do not form a whole sample are dropped.
func (d Decoder) Float32(b Block, offset, span float64, opts ...waveform.Option) (*waveform.Waveform, error) {
	d.warnShort(b)

	n := len(b.Data) / 4
	if rem := len(b.Data) % 4; rem != 0 {
		d.logger().Printf("decode: dropping %d trailing bytes", rem)
	}

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b.Data[4*i:])))
	}

	opts = append([]waveform.Option{waveform.WithUnits(waveform.UnitPicoseconds, waveform.UnitMillivolts)}, opts...)

	return waveform.New(samples, offset, span, opts...), nil
}

// EncodeInt8 builds the definite-length block that Int8 would decode back
// into samplesMV, within one count of quantization.
func EncodeInt8(samplesMV []float64, cal Calibration) ([]byte, error) {
	if err := cal.validate(); err != nil {
		return nil, err
	}

	payload := make([]byte, len(samplesMV))

	for i, mV := range samplesMV {
		v, err := cal.Count(mV)
		if err != nil {
			return nil, fmt.Errorf("decode: sample %d: %w", i, err)
		}

		payload[i] = byte(v)
	}

	return AppendBlock(nil, payload), nil
}

// EncodeFloat32 builds a definite-length block of little-endian float32
// samples.
func EncodeFloat32(samplesMV []float64) []byte {
	payload := make([]byte, 4*len(samplesMV))
	for i, v := range samplesMV {
		binary.LittleEndian.PutUint32(payload[4*i:], math.Float32bits(float32(v)))
	}

	return AppendBlock(nil, payload)
}
