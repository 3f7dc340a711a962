package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-pulse/dsp/decode"
)

// TekIdentity is the *IDN? answer of the emulated oscilloscope.
const TekIdentity = "TEKTRONIX,TDS 2024B,SIM0001,CF:91.1CT FV:v22.11"

// Screen geometry of the emulated oscilloscope.
const (
	tekDivisions      = 10
	tekCountsPerFull  = 100
	tekVerticalDivs   = 4
	tekDefaultHScale  = 1e-6
	tekDefaultVScale  = 1.0
	tekDefaultTrigger = 0.0
)

// ErrUnknownQuery is returned for queries the emulated oscilloscope does not
// answer.
var ErrUnknownQuery = errors.New("sim: unknown query")

// TekConn emulates the TDS2000 command subset used by the oscilloscope
// driver, digitizing the pulse of b.
type TekConn struct {
	bench    *Bench
	settings map[string]string
	history  []string
	autosets int
}

// NewTekConn creates an emulated oscilloscope on b.
func NewTekConn(b *Bench) *TekConn {
	c := &TekConn{bench: b}
	c.reset()

	return c
}

// History returns the commands and queries received.
func (c *TekConn) History() []string {
	return append([]string(nil), c.history...)
}

// Autosets returns the number of AUTOSET EXECUTE commands received.
func (c *TekConn) Autosets() int { return c.autosets }

// Setting returns the value last written for a header like "CH1:SCALE".
func (c *TekConn) Setting(header string) string { return c.settings[header] }

func (c *TekConn) reset() {
	c.settings = map[string]string{
		"HORIZONTAL:SCALE":    format(tekDefaultHScale),
		"HORIZONTAL:POSITION": "0",
		"CH1:SCALE":           format(tekDefaultVScale),
		"CH2:SCALE":           format(tekDefaultVScale),
		"MATH:SCALE":          format(tekDefaultVScale),
		"TRIGGER:MAIN:LEVEL":  format(tekDefaultTrigger),
		"DATA:SOURCE":         "CH1",
	}
}

// Write implements the instrument command channel.
func (c *TekConn) Write(ctx context.Context, cmd string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd = strings.TrimSpace(cmd)
	c.history = append(c.history, cmd)

	switch cmd {
	case "*RST":
		c.reset()
		return nil
	case "AUTOSET EXECUTE":
		c.autoset()
		return nil
	}

	header, arg, ok := strings.Cut(cmd, " ")
	if !ok {
		return nil
	}

	c.settings[strings.ToUpper(header)] = strings.TrimSpace(arg)

	return nil
}

// Query implements the instrument command channel.
func (c *TekConn) Query(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cmd = strings.TrimSpace(cmd)
	c.history = append(c.history, cmd)

	switch cmd {
	case "*OPC?":
		return "1", nil
	case "*IDN?":
		return TekIdentity, nil
	case "WFMPRE:XINCR?":
		return format(c.bench.span() / float64(max(c.bench.samples-1, 1)) / decode.DefaultTimeScale), nil
	case "WFMPRE:XZERO?", "WFMPRE:YZERO?", "WFMPRE:YOFF?":
		return "0", nil
	case "WFMPRE:YMULT?":
		return format(c.ymult()), nil
	case "CURSOR:VBARS:HPOS1?":
		return c.cursorLevel("CURSOR:VBARS:POSITION1")
	case "CURSOR:VBARS:HPOS2?":
		return c.cursorLevel("CURSOR:VBARS:POSITION2")
	}

	header := strings.ToUpper(strings.TrimSuffix(cmd, "?"))
	if v, ok := c.settings[header]; ok && strings.HasSuffix(cmd, "?") {
		return v, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownQuery, cmd)
}

// QueryBlock implements the instrument command channel.
func (c *TekConn) QueryBlock(ctx context.Context, cmd string) (decode.Block, error) {
	if err := ctx.Err(); err != nil {
		return decode.Block{}, err
	}

	cmd = strings.TrimSpace(cmd)
	c.history = append(c.history, cmd)

	if cmd != "CURVE?" {
		return decode.Block{}, fmt.Errorf("%w: %s", ErrUnknownQuery, cmd)
	}

	s, err := c.bench.render()
	if err != nil {
		return decode.Block{}, err
	}

	raw, err := decode.EncodeInt8(s, decode.Calibration{YMult: c.ymult()})
	if err != nil {
		return decode.Block{}, err
	}

	return decode.ParseBlock(raw)
}

// autoset fits ten divisions to the pulse window and four to its amplitude.
func (c *TekConn) autoset() {
	c.autosets++

	amplitude := max(float64(c.bench.point.Amplitude), 1) / 1000
	c.settings["HORIZONTAL:SCALE"] = format(c.bench.span() / tekDivisions / decode.DefaultTimeScale)
	c.settings["HORIZONTAL:POSITION"] = "0"
	c.settings["TRIGGER:MAIN:LEVEL"] = format(amplitude / 2)

	for _, ch := range []string{"CH1", "CH2", "MATH"} {
		c.settings[ch+":SCALE"] = format(amplitude / tekVerticalDivs)
		c.settings[ch+":POSITION"] = "0"
	}
}

// ymult returns the volts per count that map the set amplitude to
// tekCountsPerFull counts.
func (c *TekConn) ymult() float64 {
	return max(float64(c.bench.point.Amplitude), 1) / 1000 / tekCountsPerFull
}

// cursorLevel returns the rendered level in volts at the time held by the
// cursor setting. Times are relative to the centre of the screen.
func (c *TekConn) cursorLevel(setting string) (string, error) {
	t, err := strconv.ParseFloat(c.settings[setting], 64)
	if err != nil {
		return "", fmt.Errorf("sim: cursor %s not placed", setting)
	}

	scale, _ := strconv.ParseFloat(c.settings["HORIZONTAL:SCALE"], 64)
	center, _ := strconv.ParseFloat(c.settings["HORIZONTAL:POSITION"], 64)
	width := tekDivisions * scale

	s, err := c.bench.render()
	if err != nil {
		return "", err
	}

	frac := 0.0
	if width > 0 {
		frac = (t - (center - width/2)) / width
	}

	i := int(math.Round(frac * float64(len(s)-1)))
	i = min(max(i, 0), len(s)-1)

	return format(s[i] / 1000), nil
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'E', 6, 64)
}
