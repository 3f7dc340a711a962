package stepscope

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/decode"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// StatusNone is the status answer of a successful command.
const StatusNone = "[none]"

// Defaults.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultRunTimeout   = 30 * time.Second
	DefaultRecordLength = 1250
	DefaultAveraging    = 3
)

// DefaultWaveformName names waveforms returned by Acquire.
const DefaultWaveformName = "Step Response Pulse"

// Errors.
var (
	ErrStatus          = errors.New("stepscope: command failed")
	ErrTimeout         = errors.New("stepscope: timeout")
	ErrAccessoryWidth  = errors.New("stepscope: accessory width must be 1, 2, 4, 8 or 16")
	ErrInvalidResponse = errors.New("stepscope: invalid response")
)

// Conn is the command channel to the instrument.
type Conn interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	QueryBlock(ctx context.Context, cmd string) (decode.Block, error)
}

// Device is a STEPScope.
type Device struct {
	conn    Conn
	logger  *log.Logger
	decoder decode.Decoder
	poll    time.Duration
	timeout time.Duration
	reclen  int
	sleep   func(context.Context, time.Duration) error
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the progress logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// WithPollInterval sets the interval between run state polls.
func WithPollInterval(p time.Duration) Option {
	return func(d *Device) { d.poll = p }
}

// WithRunTimeout bounds waits for run state changes.
func WithRunTimeout(t time.Duration) Option {
	return func(d *Device) { d.timeout = t }
}

// WithRecordLength sets the step response record length used by SetupStep.
func WithRecordLength(n int) Option {
	return func(d *Device) { d.reclen = n }
}

// New creates a device on conn.
func New(conn Conn, opts ...Option) *Device {
	d := &Device{
		conn:    conn,
		poll:    DefaultPollInterval,
		timeout: DefaultRunTimeout,
		reclen:  DefaultRecordLength,
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}

	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}

	d.decoder = decode.Decoder{Logger: d.logger}

	return d
}

// Send issues a status-checked command.
func (d *Device) Send(ctx context.Context, cmd string) error {
	if err := d.conn.Write(ctx, "stc;"+cmd); err != nil {
		return fmt.Errorf("stepscope: %s: %w", cmd, err)
	}

	return d.status(ctx, cmd)
}

// Ask issues a status-checked query.
func (d *Device) Ask(ctx context.Context, cmd string) (string, error) {
	resp, err := d.conn.Query(ctx, "stc;"+cmd)
	if err != nil {
		return "", fmt.Errorf("stepscope: %s: %w", cmd, err)
	}

	if err := d.status(ctx, cmd); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp), nil
}

func (d *Device) askFloat(ctx context.Context, cmd string) (float64, error) {
	s, err := d.Ask(ctx, cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s answered %q", ErrInvalidResponse, cmd, s)
	}

	return v, nil
}

func (d *Device) askBlock(ctx context.Context, cmd string) (decode.Block, error) {
	b, err := d.conn.QueryBlock(ctx, "stc;"+cmd)
	if err != nil {
		return b, fmt.Errorf("stepscope: %s: %w", cmd, err)
	}

	return b, d.status(ctx, cmd)
}

func (d *Device) status(ctx context.Context, cmd string) error {
	st, err := d.conn.Query(ctx, "st?")
	if err != nil {
		return fmt.Errorf("stepscope: status after %s: %w", cmd, err)
	}

	if st = strings.TrimSpace(st); st != StatusNone {
		return fmt.Errorf("%w: %s: [%s]", ErrStatus, cmd, st)
	}

	return nil
}

// SerialNumber returns the instrument serial number.
func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return d.Ask(ctx, "Const:SN?")
}

// Architecture returns the instrument architecture string.
func (d *Device) Architecture(ctx context.Context) (string, error) {
	return d.Ask(ctx, "Sys:Architecture?")
}

// IP returns the instrument's network address.
func (d *Device) IP(ctx context.Context) (string, error) {
	return d.Ask(ctx, "Sys:IP?")
}

// Describe returns "serial, architecture, ip".
func (d *Device) Describe(ctx context.Context) (string, error) {
	parts := make([]string, 0, 3)
	for _, q := range []func(context.Context) (string, error){d.SerialNumber, d.Architecture, d.IP} {
		s, err := q(ctx)
		if err != nil {
			return "", err
		}

		parts = append(parts, s)
	}

	return strings.Join(parts, ", "), nil
}

func flag(on bool) string {
	if on {
		return "T"
	}

	return "F"
}

// SetPulserMode selects the pulser mode.
func (d *Device) SetPulserMode(ctx context.Context, m sweep.Mode) error {
	return d.Send(ctx, "Pulse:Mode "+m.String())
}

// PulserMode reads the pulser mode.
func (d *Device) PulserMode(ctx context.Context) (sweep.Mode, error) {
	s, err := d.Ask(ctx, "Pulse:Mode?")
	if err != nil {
		return 0, err
	}

	return sweep.ParseMode(s)
}

// SetACComp enables or disables AC compensation.
func (d *Device) SetACComp(ctx context.Context, on bool) error {
	return d.Send(ctx, "Calib:ACEnabled "+flag(on))
}

// SetDSPMode selects the step response DSP mode.
func (d *Device) SetDSPMode(ctx context.Context, m sweep.DSPMode) error {
	return d.Send(ctx, "Step:Cfg:DSPMode "+m.String())
}

// SetAccessoryPulses enables or disables both accessory pulse outputs.
func (d *Device) SetAccessoryPulses(ctx context.Context, on bool) error {
	if err := d.Send(ctx, "Acc:PUL:NegEnabled "+flag(on)); err != nil {
		return err
	}

	return d.Send(ctx, "Acc:PUL:PosEnabled "+flag(on))
}

// SetAmplitude sets the pulser amplitude in mV.
func (d *Device) SetAmplitude(ctx context.Context, mv int) error {
	return d.Send(ctx, fmt.Sprintf("Pulse:AmplMV %d", mv))
}

// SetLength sets the pulse length in W units.
func (d *Device) SetLength(ctx context.Context, w int) error {
	return d.Send(ctx, fmt.Sprintf("Pulse:Length %d", w))
}

// SetAccAmplitude sets the accessory amplitude in mV.
func (d *Device) SetAccAmplitude(ctx context.Context, mv int) error {
	return d.Send(ctx, fmt.Sprintf("Pulse:AccAmplMV %d", mv))
}

// SetAccWidth sets the accessory pulse width.
func (d *Device) SetAccWidth(ctx context.Context, w int) error {
	name, err := AccessoryWidth(w)
	if err != nil {
		return err
	}

	return d.Send(ctx, "Pulse:AccWidth "+name)
}

// AccessoryWidth maps a width in W units to the accessory width setting.
func AccessoryWidth(w int) (string, error) {
	switch w {
	case 1, 2, 4, 8, 16:
		return "W" + strconv.Itoa(w), nil
	}

	return "", fmt.Errorf("%w: got %d", ErrAccessoryWidth, w)
}

// Configure applies the settings shared by all points of g.
func (d *Device) Configure(ctx context.Context, g sweep.Group) error {
	d.logger.Printf("Configure pulser %s, ACComp %t, DSP %s", g.Mode, g.ACComp, g.DSP)

	if err := d.SetPulserMode(ctx, g.Mode); err != nil {
		return err
	}

	if err := d.SetACComp(ctx, g.ACComp); err != nil {
		return err
	}

	if err := d.SetDSPMode(ctx, g.DSP); err != nil {
		return err
	}

	return d.SetAccessoryPulses(ctx, g.Mode.Accessory())
}

// Apply sets the width and amplitude of p.
func (d *Device) Apply(ctx context.Context, p sweep.Point) error {
	if p.Mode.Accessory() {
		if err := d.SetAccAmplitude(ctx, p.Amplitude); err != nil {
			return err
		}

		return d.SetAccWidth(ctx, p.Width)
	}

	if err := d.SetAmplitude(ctx, p.Amplitude); err != nil {
		return err
	}

	return d.SetLength(ctx, p.Width)
}

var (
	_ sweep.Device    = (*Device)(nil)
	_ sweep.Aligner   = (*Device)(nil)
	_ sweep.SpanMeter = (*Device)(nil)
	_ sweep.Acquirer  = (*Device)(nil)
)
