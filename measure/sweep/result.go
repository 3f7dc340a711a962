package sweep

import (
	"time"

	"github.com/cwbudde/algo-pulse/dsp/core"
)

// DateTimeLayout formats the run timestamp recorded in every row.
const DateTimeLayout = "060102_150405"

// Header describes the rows of one group.
type Header struct {
	Serial     string
	DateTime   string
	Started    time.Time
	Group      Group
	Attenuator float64 // dB
}

// Unattenuated reports whether rows carry the amplitude expected after the
// attenuator.
func (h Header) Unattenuated() bool { return h.Attenuator != 0 }

// Row is one sweep point result.
type Row struct {
	Serial       string
	DateTime     string
	Point        Point
	Measured     float64 // mV; 0 when the measurement failed
	Attenuator   float64 // dB
	Unattenuated float64 // setting expected after the attenuator, mV
	Pass         bool
	Tag          string // failure tag, empty on success
	Span         float64
	Attempts     int
}

// Report summarizes a sweep pass.
type Report struct {
	Rows    []Row
	Planned int
	Good    int
	Retries int
}

func newRow(h Header, p Point) Row {
	return Row{
		Serial:       h.Serial,
		DateTime:     h.DateTime,
		Point:        p,
		Attenuator:   h.Attenuator,
		Unattenuated: core.Attenuate(float64(p.Amplitude), h.Attenuator),
	}
}
