package report

import (
	"fmt"
	"strconv"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// StatusOK marks a passing row in the Status column.
const StatusOK = "OK"

// Columns used by every recorder.
const (
	ColSerial       = "SN"
	ColDateTime     = "DateTime"
	ColMode         = "Mode"
	ColDSP          = "DSP"
	ColACComp       = "ACComp"
	ColWidth        = "LenW"
	ColLength       = "LenNS"
	ColAmplitude    = "AmplSet"
	ColMeasured     = "Meas"
	ColAttenuator   = "Atten"
	ColUnattenuated = "MeasNoAtten"
	ColStatus       = "Status"
)

// Columns returns the header for the rows of h.
func Columns(h sweep.Header) []string {
	cols := []string{
		ColSerial, ColDateTime, ColMode, ColDSP, ColACComp,
		ColWidth, ColLength, ColAmplitude, ColMeasured, ColAttenuator,
	}

	if h.Unattenuated() {
		cols = append(cols, ColUnattenuated)
	}

	return append(cols, ColStatus)
}

// Fields formats r in the order of Columns(h).
func Fields(h sweep.Header, r sweep.Row) []string {
	out := []string{
		r.Serial,
		r.DateTime,
		r.Point.Mode.String(),
		r.Point.DSP.String(),
		strconv.FormatBool(r.Point.ACComp),
		strconv.Itoa(r.Point.Width),
		strconv.FormatFloat(r.Point.LengthNS(), 'f', 3, 64),
		strconv.Itoa(r.Point.Amplitude),
		strconv.FormatFloat(r.Measured, 'f', 3, 64),
		strconv.FormatFloat(r.Attenuator, 'f', 0, 64),
	}

	if h.Unattenuated() {
		out = append(out, strconv.FormatFloat(r.Unattenuated, 'f', 2, 64))
	}

	return append(out, Status(r))
}

// Status returns StatusOK for a passing row and the failure tag otherwise.
func Status(r sweep.Row) string {
	if r.Pass {
		return StatusOK
	}

	if r.Tag == "" {
		return "FAIL"
	}

	return r.Tag
}

// Metadata returns the key/value description of h.
func Metadata(h sweep.Header) [][2]string {
	g := h.Group

	return [][2]string{
		{ColSerial, h.Serial},
		{ColDateTime, h.DateTime},
		{ColMode, g.Mode.String()},
		{ColDSP, g.DSP.String()},
		{ColACComp, strconv.FormatBool(g.ACComp)},
		{ColAttenuator, strconv.FormatFloat(h.Attenuator, 'f', 0, 64)},
		{"Widths", sweep.Values{List: g.Widths}.String()},
		{"Amplitudes", sweep.Values{List: g.Amplitudes}.String()},
	}
}

// FilePrefix returns the base name shared by the files of one group, e.g.
// "SS-0042_Local_6dB_Diff_AC1".
func FilePrefix(h sweep.Header) string {
	ac := 0
	if h.Group.ACComp {
		ac = 1
	}

	return fmt.Sprintf("%s_%s_%.0fdB_%s_AC%d", h.Serial, h.Group.Mode, h.Attenuator, h.Group.DSP.Short(), ac)
}
