package sweep

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidValue is returned when a plan list cannot be parsed.
var ErrInvalidValue = errors.New("sweep: invalid value")

// Keyword selecting the default list of a dimension.
const Keyword = "sweep"

// Default lists used for the "sweep" keyword.
var (
	AccessoryWidths     = []int{1, 2, 4, 8, 16}
	AccessoryAmplitudes = []int{700, 600, 500, 400, 300, 200}
	OtherWidths         = []int{1, 2, 4, 8, 16, 32}
	OtherAmplitudes     = []int{350, 300, 250, 200}
	SweepModes          = []Mode{ModeLocal, ModeAccessory}
	SweepDSPModes       = []DSPMode{DSPOff, DSPDifferential}
	SweepACComp         = []bool{true, false}
)

// Mode is the pulser mode.
type Mode int

// Pulser modes.
const (
	ModeLocal Mode = iota
	ModeAccessory
	ModeRemote
	ModeTriggered
)

var modeNames = [...]string{"Local", "Accessory", "Remote", "Triggered"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}

	return fmt.Sprintf("Mode(%d)", int(m))
}

// Accessory reports whether the mode drives the pulser accessory.
func (m Mode) Accessory() bool { return m == ModeAccessory }

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}

	return 0, fmt.Errorf("%w: pulser mode %q", ErrInvalidValue, s)
}

// DSPMode is the step-response DSP mode.
type DSPMode int

// DSP modes.
const (
	DSPOff DSPMode = iota
	DSPDifferential
	DSPSEPositive
	DSPSENegative
)

var dspNames = [...]string{"Off", "Differential", "SEPositive", "SENegative"}

func (d DSPMode) String() string {
	if d >= 0 && int(d) < len(dspNames) {
		return dspNames[d]
	}

	return fmt.Sprintf("DSPMode(%d)", int(d))
}

// Short returns the four-letter abbreviation used in file names.
func (d DSPMode) Short() string {
	s := d.String()
	if len(s) > 4 {
		return s[:4]
	}

	return s
}

// ParseDSPMode parses a DSP mode name, ignoring case.
func ParseDSPMode(s string) (DSPMode, error) {
	for i, name := range dspNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return DSPMode(i), nil
		}
	}

	return 0, fmt.Errorf("%w: DSP mode %q", ErrInvalidValue, s)
}

// fields splits a comma or space separated list.
func fields(s string) []string {
	return strings.Fields(strings.ReplaceAll(s, ",", " "))
}

func isKeyword(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), Keyword)
}

// ParseModes parses a mode list or the sweep keyword.
func ParseModes(s string) ([]Mode, error) {
	if isKeyword(s) {
		return append([]Mode(nil), SweepModes...), nil
	}

	var out []Mode

	for _, tok := range fields(s) {
		m, err := ParseMode(tok)
		if err != nil {
			return nil, err
		}

		out = append(out, m)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty mode list", ErrInvalidValue)
	}

	return out, nil
}

// ParseDSPModes parses a DSP mode list or the sweep keyword.
func ParseDSPModes(s string) ([]DSPMode, error) {
	if isKeyword(s) {
		return append([]DSPMode(nil), SweepDSPModes...), nil
	}

	var out []DSPMode

	for _, tok := range fields(s) {
		d, err := ParseDSPMode(tok)
		if err != nil {
			return nil, err
		}

		out = append(out, d)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty DSP mode list", ErrInvalidValue)
	}

	return out, nil
}

// ParseBools parses an AC compensation list or the sweep keyword. The
// tokens true, 1, yes, y and t are true; anything else is false.
func ParseBools(s string) ([]bool, error) {
	if isKeyword(s) {
		return append([]bool(nil), SweepACComp...), nil
	}

	var out []bool

	for _, tok := range fields(s) {
		switch strings.ToLower(tok) {
		case "true", "1", "yes", "y", "t":
			out = append(out, true)
		default:
			out = append(out, false)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty AC compensation list", ErrInvalidValue)
	}

	return out, nil
}

// ParseInts parses a numeric list. Each value is made positive and
// truncated to an integer.
func ParseInts(s string) ([]int, error) {
	var out []int

	for _, tok := range fields(s) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: number %q", ErrInvalidValue, tok)
		}

		out = append(out, int(math.Abs(v)))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty numeric list", ErrInvalidValue)
	}

	return out, nil
}

// Values is a width or amplitude dimension: an explicit list or the
// default list of the group's mode.
type Values struct {
	Sweep bool
	List  []int
}

// ParseValues parses the sweep keyword or a numeric list.
func ParseValues(s string) (Values, error) {
	if isKeyword(s) {
		return Values{Sweep: true}, nil
	}

	list, err := ParseInts(s)
	if err != nil {
		return Values{}, err
	}

	return Values{List: list}, nil
}

func (v Values) resolve(accessory bool, acc, other []int) []int {
	switch {
	case !v.Sweep:
		return v.List
	case accessory:
		return acc
	default:
		return other
	}
}

func (v Values) String() string {
	if v.Sweep {
		return Keyword
	}

	parts := make([]string, len(v.List))
	for i, x := range v.List {
		parts[i] = strconv.Itoa(x)
	}

	return strings.Join(parts, " ")
}

// Plan describes a full sweep.
type Plan struct {
	Modes      []Mode
	ACComp     []bool
	DSP        []DSPMode
	Widths     Values
	Amplitudes Values
}

// Group is one device configuration of a plan.
type Group struct {
	Mode       Mode
	ACComp     bool
	DSP        DSPMode
	Widths     []int
	Amplitudes []int
}

// NanosecondsPerWidth is the pulse length of one W unit.
const NanosecondsPerWidth = 12.8

// Point is one setting of a group.
type Point struct {
	Mode      Mode
	ACComp    bool
	DSP       DSPMode
	Width     int // pulse width in W units
	Amplitude int // amplitude setting, mV
}

// LengthNS returns the pulse length in ns.
func (p Point) LengthNS() float64 {
	return float64(p.Width) * NanosecondsPerWidth
}

func (p Point) String() string {
	return fmt.Sprintf("Pulser %s, ACComp %t, DSP %s, W%d, %d mV", p.Mode, p.ACComp, p.DSP, p.Width, p.Amplitude)
}

// Groups expands p in sweep order: mode, then AC compensation, then DSP
// mode.
func (p Plan) Groups() []Group {
	var out []Group

	for _, m := range p.Modes {
		widths := p.Widths.resolve(m.Accessory(), AccessoryWidths, OtherWidths)
		amps := p.Amplitudes.resolve(m.Accessory(), AccessoryAmplitudes, OtherAmplitudes)

		for _, ac := range p.ACComp {
			for _, d := range p.DSP {
				out = append(out, Group{
					Mode:       m,
					ACComp:     ac,
					DSP:        d,
					Widths:     append([]int(nil), widths...),
					Amplitudes: append([]int(nil), amps...),
				})
			}
		}
	}

	return out
}

// Points expands g in sweep order: width, then amplitude.
func (g Group) Points() []Point {
	out := make([]Point, 0, len(g.Widths)*len(g.Amplitudes))

	for _, w := range g.Widths {
		for _, a := range g.Amplitudes {
			out = append(out, Point{Mode: g.Mode, ACComp: g.ACComp, DSP: g.DSP, Width: w, Amplitude: a})
		}
	}

	return out
}

// Count returns the total number of points of p.
func (p Plan) Count() int {
	n := 0
	for _, g := range p.Groups() {
		n += len(g.Widths) * len(g.Amplitudes)
	}

	return n
}

// Validate reports an error when a dimension is empty.
func (p Plan) Validate() error {
	switch {
	case len(p.Modes) == 0:
		return fmt.Errorf("%w: no pulser modes", ErrInvalidValue)
	case len(p.ACComp) == 0:
		return fmt.Errorf("%w: no AC compensation values", ErrInvalidValue)
	case len(p.DSP) == 0:
		return fmt.Errorf("%w: no DSP modes", ErrInvalidValue)
	case !p.Widths.Sweep && len(p.Widths.List) == 0:
		return fmt.Errorf("%w: no pulse widths", ErrInvalidValue)
	case !p.Amplitudes.Sweep && len(p.Amplitudes.List) == 0:
		return fmt.Errorf("%w: no amplitudes", ErrInvalidValue)
	}

	return nil
}
