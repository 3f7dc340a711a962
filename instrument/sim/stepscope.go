package sim

import (
	"context"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-pulse/dsp/decode"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// STEPScope status strings.
const (
	StatusNone           = "[none]"
	StatusUnknownCommand = "Unknown_Command"
	StatusBadArgument    = "Invalid_Argument"
	StatusUnknownConfig  = "Unknown_Configuration"
)

// StepConn emulates the BitWise command set of a STEPScope driving b.
type StepConn struct {
	bench    *Bench
	status   string
	group    sweep.Group
	point    sweep.Point
	running  int
	values   map[string]string
	configs  map[string]bool
	history  []string
	failures map[string]string
}

// NewStepConn creates an emulated STEPScope on b.
func NewStepConn(b *Bench) *StepConn {
	return &StepConn{
		bench:    b,
		status:   StatusNone,
		point:    sweep.Point{Width: 1},
		values:   map[string]string{},
		configs:  map[string]bool{},
		failures: map[string]string{},
	}
}

// History returns the commands received, without the "stc;" prefix and
// status polls.
func (c *StepConn) History() []string {
	return append([]string(nil), c.history...)
}

// Fail makes every later command with the given prefix report status.
func (c *StepConn) Fail(prefix, status string) {
	c.failures[prefix] = status
}

// Value returns the last value set for a plain setting such as
// "Calib:ACEnabled".
func (c *StepConn) Value(key string) string { return c.values[key] }

// Write implements the instrument command channel.
func (c *StepConn) Write(ctx context.Context, cmd string) error {
	_, _, err := c.handle(ctx, cmd)
	return err
}

// Query implements the instrument command channel.
func (c *StepConn) Query(ctx context.Context, cmd string) (string, error) {
	resp, _, err := c.handle(ctx, cmd)
	return resp, err
}

// QueryBlock implements the instrument command channel.
func (c *StepConn) QueryBlock(ctx context.Context, cmd string) (decode.Block, error) {
	_, block, err := c.handle(ctx, cmd)
	if err != nil {
		return decode.Block{}, err
	}

	if block == nil {
		return decode.Block{}, nil
	}

	return decode.ParseBlock(block)
}

func (c *StepConn) handle(ctx context.Context, raw string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "st?" {
		st := c.status
		c.status = StatusNone

		return st, nil, nil
	}

	cmd := strings.TrimPrefix(raw, "stc;")
	c.history = append(c.history, cmd)
	c.status = StatusNone

	for prefix, st := range c.failures {
		if strings.HasPrefix(cmd, prefix) {
			c.status = st
			return "", nil, nil
		}
	}

	resp, block, st := c.execute(ctx, cmd)
	c.status = st

	return resp, block, nil
}

func (c *StepConn) execute(ctx context.Context, cmd string) (string, []byte, string) {
	key, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)

	switch key {
	case "Const:SN?":
		return c.bench.Serial(), nil, StatusNone
	case "Sys:Architecture?":
		return "sim", nil, StatusNone
	case "Sys:IP?":
		return "127.0.0.1", nil, StatusNone
	case "App:Stop":
		c.running = 0
		return "", nil, StatusNone
	case "App:Run":
		c.running = 1
		return "", nil, StatusNone
	case "App:RunState?":
		if c.running > 0 {
			c.running--
			return "{Run,Stop}", nil, StatusNone
		}

		return "{Stop,Stop}", nil, StatusNone
	case "Pulse:Mode":
		m, err := sweep.ParseMode(arg)
		if err != nil {
			return "", nil, StatusBadArgument
		}

		c.group.Mode = m
		c.point.Mode = m

		return "", nil, c.configure(ctx)
	case "Pulse:Mode?":
		return c.group.Mode.String(), nil, StatusNone
	case "Calib:ACEnabled":
		c.values[key] = arg
		c.group.ACComp = arg == "T"
		c.point.ACComp = c.group.ACComp

		return "", nil, c.configure(ctx)
	case "Step:Cfg:DSPMode":
		d, err := sweep.ParseDSPMode(arg)
		if err != nil {
			return "", nil, StatusBadArgument
		}

		c.values[key] = arg
		c.group.DSP = d
		c.point.DSP = d

		return "", nil, c.configure(ctx)
	case "Pulse:AmplMV", "Pulse:AccAmplMV":
		v, err := strconv.Atoi(arg)
		if err != nil {
			return "", nil, StatusBadArgument
		}

		// The width follows and may not suit the new mode yet.
		c.point.Amplitude = v
		_ = c.bench.Apply(ctx, c.point)

		return "", nil, StatusNone
	case "Pulse:Length":
		v, err := strconv.Atoi(arg)
		if err != nil {
			return "", nil, StatusBadArgument
		}

		c.point.Width = v

		return "", nil, c.apply(ctx)
	case "Pulse:AccWidth":
		v, err := strconv.Atoi(strings.TrimPrefix(arg, "W"))
		if err != nil {
			return "", nil, StatusBadArgument
		}

		c.point.Width = v

		return "", nil, c.apply(ctx)
	case "Step:Cfg:Reclen":
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			return "", nil, StatusBadArgument
		}

		c.bench.samples = max(v, 24)

		return "", nil, StatusNone
	case "Step:Cfg:Reclen?":
		return strconv.Itoa(c.bench.samples), nil, StatusNone
	case "Step:Cfg:SpanPS?":
		span, err := c.bench.MeasureSpan(ctx)
		if err != nil {
			return "", nil, err.Error()
		}

		return strconv.FormatFloat(span, 'f', -1, 64), nil, StatusNone
	case "Step:Cfg:OffsetPS?":
		return "0", nil, StatusNone
	case "Step:Align", "Step:Fit":
		if err := c.bench.Align(ctx); err != nil {
			return "", nil, err.Error()
		}

		return "", nil, StatusNone
	case "Step:Binary?":
		s, err := c.bench.render()
		if err != nil {
			return "", nil, err.Error()
		}

		return "", decode.EncodeFloat32(s), StatusNone
	case "save":
		c.configs[strings.Trim(arg, `"`)] = true
		return "", nil, StatusNone
	case "restore":
		name := strings.Trim(arg, `"`)
		if !c.configs[name] && !strings.HasPrefix(name, "[") {
			return "", nil, StatusUnknownConfig
		}

		return "", nil, StatusNone
	case "inprogress":
		return "F", nil, StatusNone
	}

	if strings.HasSuffix(key, "?") {
		if v, ok := c.values[strings.TrimSuffix(key, "?")]; ok {
			return v, nil, StatusNone
		}

		return "", nil, StatusUnknownCommand
	}

	if !strings.Contains(key, ":") {
		return "", nil, StatusUnknownCommand
	}

	c.values[key] = arg

	return "", nil, StatusNone
}

func (c *StepConn) configure(ctx context.Context) string {
	if err := c.bench.Configure(ctx, c.group); err != nil {
		return err.Error()
	}

	return StatusNone
}

func (c *StepConn) apply(ctx context.Context) string {
	if err := c.bench.Apply(ctx, c.point); err != nil {
		return StatusBadArgument
	}

	return StatusNone
}
