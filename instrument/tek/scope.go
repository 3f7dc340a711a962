package tek

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-pulse/dsp/decode"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// Channel names.
const (
	ChannelMath    = "MATH"
	DefaultChannel = "CH1"
)

// Defaults used by Align.
const (
	DefaultPulseMultiplier = 5.0
	DefaultVerticalGain    = 2.0
	MinVerticalScale       = 2e-3 // volts per division
	MaxAveraging           = 512
)

// DefaultWaveformName names waveforms returned by Acquire.
const DefaultWaveformName = "Scope Pulse"

// Errors.
var (
	ErrInvalidChannel   = errors.New("tek: invalid channel")
	ErrInvalidAveraging = errors.New("tek: averaging count must be <= 1 or 2..512")
	ErrInvalidArgument  = errors.New("tek: invalid argument")
)

// Conn is the command channel to the instrument.
type Conn interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	QueryBlock(ctx context.Context, cmd string) (decode.Block, error)
}

// Scope is a TDS2000 oscilloscope.
type Scope struct {
	conn    Conn
	channel string
	trigger string
	logger  *log.Logger
	decoder decode.Decoder
}

// Option configures a Scope.
type Option func(*Scope)

// WithChannel selects the waveform source, "CH1".."CH4" or "MATH".
func WithChannel(ch string) Option {
	return func(s *Scope) { s.channel = strings.ToUpper(strings.TrimSpace(ch)) }
}

// WithTrigger selects the edge trigger source for single channels.
func WithTrigger(ch string) Option {
	return func(s *Scope) { s.trigger = strings.ToUpper(strings.TrimSpace(ch)) }
}

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scope) { s.logger = l }
}

// New creates a scope on conn.
func New(conn Conn, opts ...Option) (*Scope, error) {
	s := &Scope{conn: conn, channel: DefaultChannel, trigger: DefaultChannel}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}

	s.decoder = decode.Decoder{Logger: s.logger}

	for _, ch := range []string{s.channel, s.trigger} {
		if !validChannel(ch) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidChannel, ch)
		}
	}

	if s.trigger == ChannelMath {
		return nil, fmt.Errorf("%w: cannot trigger on %s", ErrInvalidChannel, ChannelMath)
	}

	return s, nil
}

func validChannel(ch string) bool {
	switch ch {
	case "CH1", "CH2", "CH3", "CH4", ChannelMath:
		return true
	}

	return false
}

// Channel returns the waveform source.
func (s *Scope) Channel() string { return s.channel }

// Connect resets the instrument and disables response headers.
func (s *Scope) Connect(ctx context.Context) error {
	s.logger.Printf("Connecting to scope")

	if err := s.write(ctx, "*RST", "HEAD OFF"); err != nil {
		return err
	}

	return s.wait(ctx)
}

// ID returns the identification string.
func (s *Scope) ID(ctx context.Context) (string, error) {
	return s.conn.Query(ctx, "*IDN?")
}

// Autoset runs AUTOSET and waits for it to finish.
func (s *Scope) Autoset(ctx context.Context) error {
	s.logger.Printf("Running AutoSet")

	if err := s.write(ctx, "AUTOSET EXECUTE"); err != nil {
		return err
	}

	return s.wait(ctx)
}

// SetAveraging selects sample mode for count <= 1 and averaging otherwise.
func (s *Scope) SetAveraging(ctx context.Context, count int) error {
	switch {
	case count <= 1:
		return s.write(ctx, "ACQUIRE:MODE SAMPLE")
	case count <= MaxAveraging:
		return s.write(ctx, "ACQUIRE:MODE AVERAGE", fmt.Sprintf("ACQUIRE:NUMAVG %d", count))
	default:
		return fmt.Errorf("%w: %d", ErrInvalidAveraging, count)
	}
}

// SetupChannel configures DC coupling, unity probes and the edge trigger.
// MATH shows CH1 - CH2 and triggers on CH1.
func (s *Scope) SetupChannel(ctx context.Context) error {
	s.logger.Printf("Setting up oscilloscope channel %s", s.channel)

	if s.channel == ChannelMath {
		return s.write(ctx,
			"CH1:PROBE 1",
			"CH2:PROBE 1",
			"CH1:COUP DC",
			"CH2:COUP DC",
			"SELECT:CH1 ON",
			"SELECT:CH2 ON",
			`MATH:DEFINE "CH1 - CH2"`,
			"SELECT:MATH ON",
			"TRIGGER:MAIN:EDGE:SOURCE CH1",
			"TRIGGER:MAIN:EDGE:COUPLING DC",
		)
	}

	return s.write(ctx,
		s.channel+":COUP DC",
		"PROBE:"+s.channel+" 1",
		"SELECT:"+s.channel+" ON",
		"TRIGGER:MAIN:EDGE:SOURCE "+s.trigger,
		"TRIGGER:MAIN:EDGE:COUPLING DC",
	)
}

// ShowSinglePulse runs Autoset, divides the horizontal scale by multiplier
// and moves the window 2.5 divisions left. It returns the new scale.
func (s *Scope) ShowSinglePulse(ctx context.Context, multiplier float64) (float64, error) {
	if multiplier <= 0 {
		return 0, fmt.Errorf("%w: multiplier %v", ErrInvalidArgument, multiplier)
	}

	if err := s.Autoset(ctx); err != nil {
		return 0, err
	}

	scale, err := s.queryFloat(ctx, "HORIZONTAL:SCALE?")
	if err != nil {
		return 0, err
	}

	scale /= multiplier
	if err := s.write(ctx, fmt.Sprintf("HORIZONTAL:SCALE %.6e", scale)); err != nil {
		return 0, err
	}

	pos, err := s.queryFloat(ctx, "HORIZONTAL:POSITION?")
	if err != nil {
		return 0, err
	}

	if err := s.write(ctx, fmt.Sprintf("HORIZONTAL:POSITION %.6e", pos-2.5*scale)); err != nil {
		return 0, err
	}

	return scale, nil
}

// ScaleVertical divides the vertical scale of the channel by gain, bounded
// below by MinVerticalScale, and centres the trigger level on screen.
func (s *Scope) ScaleVertical(ctx context.Context, gain float64) (scale, position float64, err error) {
	if gain <= 0 {
		return 0, 0, fmt.Errorf("%w: gain %v", ErrInvalidArgument, gain)
	}

	s.logger.Printf("Scaling %s by gain factor: %g", s.channel, gain)

	cur, err := s.queryFloat(ctx, s.channel+":SCALE?")
	if err != nil {
		return 0, 0, err
	}

	trig, err := s.queryFloat(ctx, "TRIGGER:MAIN:LEVEL?")
	if err != nil {
		return 0, 0, err
	}

	scale = max(cur/gain, MinVerticalScale)
	position = -trig / scale

	err = s.write(ctx,
		fmt.Sprintf("%s:SCALE %.6e", s.channel, scale),
		fmt.Sprintf("%s:POSITION %.6f", s.channel, position),
	)

	return scale, position, err
}

// Align shows one pulse across the screen and rescales the channel.
func (s *Scope) Align(ctx context.Context) error {
	if _, err := s.ShowSinglePulse(ctx, DefaultPulseMultiplier); err != nil {
		return err
	}

	_, _, err := s.ScaleVertical(ctx, DefaultVerticalGain)

	return err
}

// SetTimeCursors places the vertical bar cursors at fractions of the
// visible time window.
func (s *Scope) SetTimeCursors(ctx context.Context, first, second float64) error {
	if err := s.write(ctx,
		"CURSOR:FUNCTION VBARS",
		"CURSOR:SELECT:SOURCE "+s.channel,
		"CURSOR:TYPE TIME",
		"CURSOR:SELECT BOTH",
	); err != nil {
		return err
	}

	center, err := s.queryFloat(ctx, "HORIZONTAL:POSITION?")
	if err != nil {
		return err
	}

	scale, err := s.queryFloat(ctx, "HORIZONTAL:SCALE?")
	if err != nil {
		return err
	}

	width := 10 * scale
	left := center - width/2

	return s.write(ctx,
		fmt.Sprintf("CURSOR:VBARS:POSITION1 %.6e", left+first*width),
		fmt.Sprintf("CURSOR:VBARS:POSITION2 %.6e", left+second*width),
	)
}

// CursorVoltages reads the waveform level at both cursors, in volts.
func (s *Scope) CursorVoltages(ctx context.Context) (float64, float64, error) {
	if err := s.write(ctx, "CURSOR:TYPE TIME", "CURSOR:SELECT BOTH"); err != nil {
		return 0, 0, err
	}

	v1, err := s.queryFloat(ctx, "CURSOR:VBARS:HPOS1?")
	if err != nil {
		return 0, 0, err
	}

	v2, err := s.queryFloat(ctx, "CURSOR:VBARS:HPOS2?")
	if err != nil {
		return 0, 0, err
	}

	return v1, v2, nil
}

// Calibration reads the WFMPRE preamble of the current source.
func (s *Scope) Calibration(ctx context.Context) (decode.Calibration, error) {
	var cal decode.Calibration

	fields := []struct {
		query string
		dst   *float64
	}{
		{"WFMPRE:XINCR?", &cal.XIncrement},
		{"WFMPRE:XZERO?", &cal.XZero},
		{"WFMPRE:YMULT?", &cal.YMult},
		{"WFMPRE:YZERO?", &cal.YZero},
		{"WFMPRE:YOFF?", &cal.YOffset},
	}

	for _, f := range fields {
		v, err := s.queryFloat(ctx, f.query)
		if err != nil {
			return cal, err
		}

		*f.dst = v
	}

	return cal, nil
}

// Waveform transfers the current curve of the channel.
func (s *Scope) Waveform(ctx context.Context, name string) (*waveform.Waveform, error) {
	s.logger.Printf("Acquiring waveform from %s", s.channel)

	if err := s.write(ctx,
		"DATA:SOURCE "+s.channel,
		"DATA:ENCDG RIBINARY",
		"DATA:WIDTH 1",
		"WFMPRE:BYTE_NR 1",
	); err != nil {
		return nil, err
	}

	cal, err := s.Calibration(ctx)
	if err != nil {
		return nil, err
	}

	block, err := s.conn.QueryBlock(ctx, "CURVE?")
	if err != nil {
		return nil, fmt.Errorf("tek: CURVE?: %w", err)
	}

	w, err := s.decoder.Int8(block, cal, waveform.WithName(name))
	if err != nil {
		return nil, fmt.Errorf("tek: %w", err)
	}

	s.logger.Printf("Retrieved %d samples over %.3f %s", w.Count(), w.Span(), w.XUnits())

	return w, nil
}

// Acquire implements the sweep Acquirer.
func (s *Scope) Acquire(ctx context.Context) (*waveform.Waveform, error) {
	return s.Waveform(ctx, DefaultWaveformName)
}

func (s *Scope) write(ctx context.Context, cmds ...string) error {
	for _, cmd := range cmds {
		if err := s.conn.Write(ctx, cmd); err != nil {
			return fmt.Errorf("tek: %s: %w", cmd, err)
		}
	}

	return nil
}

func (s *Scope) wait(ctx context.Context) error {
	resp, err := s.conn.Query(ctx, "*OPC?")
	if err != nil {
		return fmt.Errorf("tek: *OPC?: %w", err)
	}

	if strings.TrimSpace(resp) != "1" {
		return fmt.Errorf("tek: *OPC? answered %q", resp)
	}

	return nil
}

func (s *Scope) queryFloat(ctx context.Context, q string) (float64, error) {
	resp, err := s.conn.Query(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("tek: %s: %w", q, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("tek: %s: %w", q, err)
	}

	return v, nil
}

var (
	_ sweep.Acquirer = (*Scope)(nil)
	_ sweep.Aligner  = (*Scope)(nil)
)
