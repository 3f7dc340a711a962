package stepscope

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/decode"
	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// scripted answers status-checked commands from tables and records them
// without the "stc;" prefix.
type scripted struct {
	answers   map[string]string
	statuses  map[string]string // status reported after a command
	runStates []string          // App:RunState? answers in order; the last repeats
	block     []byte
	log       []string
	status    string
	failOn    string
}

var errLink = errors.New("link down")

func newScripted() *scripted {
	return &scripted{
		answers: map[string]string{
			"Const:SN?":          "SS-0042",
			"Sys:Architecture?":  "x86_64",
			"Sys:IP?":            "10.0.0.7",
			"Pulse:Mode?":        "Remote",
			"Step:Cfg:SpanPS?":   "153.6",
			"Step:Cfg:OffsetPS?": "-2.5",
			"Step:Cfg:Reclen?":   "1250",
			"inprogress":         "F",
		},
		statuses:  map[string]string{},
		runStates: []string{"{Stop,Stop}"},
	}
}

func (s *scripted) record(cmd string) (string, error) {
	if cmd == "st?" {
		st := s.status
		if st == "" {
			st = StatusNone
		}
		s.status = ""
		return st, nil
	}

	cmd = strings.TrimPrefix(cmd, "stc;")
	s.log = append(s.log, cmd)
	if cmd == s.failOn {
		return "", errLink
	}
	s.status = s.statuses[cmd]

	if cmd == "App:RunState?" {
		st := s.runStates[0]
		if len(s.runStates) > 1 {
			s.runStates = s.runStates[1:]
		}
		return st, nil
	}

	return s.answers[cmd], nil
}

func (s *scripted) Write(_ context.Context, cmd string) error {
	_, err := s.record(cmd)
	return err
}

func (s *scripted) Query(_ context.Context, cmd string) (string, error) {
	return s.record(cmd)
}

func (s *scripted) QueryBlock(_ context.Context, cmd string) (decode.Block, error) {
	if _, err := s.record(cmd); err != nil {
		return decode.Block{}, err
	}
	return decode.ParseBlock(s.block)
}

func newDevice(conn Conn, opts ...Option) *Device {
	d := New(conn, append([]Option{WithPollInterval(0)}, opts...)...)
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	return d
}

func TestSendChecksStatus(t *testing.T) {
	ctx := context.Background()
	conn := newScripted()
	conn.statuses["Pulse:AmplMV 9999"] = "Value_Out_Of_Range"
	d := newDevice(conn)

	err := d.SetAmplitude(ctx, 9999)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("SetAmplitude error = %v, want ErrStatus", err)
	}

	if want := "Pulse:AmplMV 9999: [Value_Out_Of_Range]"; !strings.Contains(err.Error(), want) {
		t.Fatalf("error %q lacks %q", err, want)
	}

	if err := d.SetAmplitude(ctx, 100); err != nil {
		t.Fatalf("SetAmplitude(100) error = %v", err)
	}
}

func TestTransportErrorsAreWrapped(t *testing.T) {
	conn := newScripted()
	conn.failOn = "App:Stop"

	err := newDevice(conn).Stop(context.Background())
	if !errors.Is(err, errLink) {
		t.Fatalf("Stop error = %v, want link error", err)
	}
}

func TestDescribe(t *testing.T) {
	got, err := newDevice(newScripted()).Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe error = %v", err)
	}

	if got != "SS-0042, x86_64, 10.0.0.7" {
		t.Fatalf("Describe = %q", got)
	}
}

func TestPulserMode(t *testing.T) {
	m, err := newDevice(newScripted()).PulserMode(context.Background())
	if err != nil {
		t.Fatalf("PulserMode error = %v", err)
	}

	if m != sweep.ModeRemote {
		t.Fatalf("PulserMode = %s, want Remote", m)
	}
}

func TestConfigureAndApply(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		group sweep.Group
		point sweep.Point
		want  []string
	}{
		{
			name:  "local",
			group: sweep.Group{Mode: sweep.ModeLocal, ACComp: true, DSP: sweep.DSPDifferential},
			point: sweep.Point{Mode: sweep.ModeLocal, Width: 7, Amplitude: 250},
			want: []string{
				"Pulse:Mode Local",
				"Calib:ACEnabled T",
				"Step:Cfg:DSPMode Differential",
				"Acc:PUL:NegEnabled F",
				"Acc:PUL:PosEnabled F",
				"Pulse:AmplMV 250",
				"Pulse:Length 7",
			},
		},
		{
			name:  "accessory",
			group: sweep.Group{Mode: sweep.ModeAccessory, DSP: sweep.DSPOff},
			point: sweep.Point{Mode: sweep.ModeAccessory, Width: 8, Amplitude: 500},
			want: []string{
				"Pulse:Mode Accessory",
				"Calib:ACEnabled F",
				"Step:Cfg:DSPMode Off",
				"Acc:PUL:NegEnabled T",
				"Acc:PUL:PosEnabled T",
				"Pulse:AccAmplMV 500",
				"Pulse:AccWidth W8",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newScripted()
			d := newDevice(conn)

			if err := d.Configure(ctx, tt.group); err != nil {
				t.Fatalf("Configure error = %v", err)
			}

			if err := d.Apply(ctx, tt.point); err != nil {
				t.Fatalf("Apply error = %v", err)
			}

			if !slices.Equal(conn.log, tt.want) {
				t.Fatalf("commands = %q, want %q", conn.log, tt.want)
			}
		})
	}
}

func TestAccessoryWidth(t *testing.T) {
	for _, w := range []int{1, 2, 4, 8, 16} {
		if _, err := AccessoryWidth(w); err != nil {
			t.Errorf("AccessoryWidth(%d) error = %v", w, err)
		}
	}

	for _, w := range []int{0, 3, 32} {
		if _, err := AccessoryWidth(w); !errors.Is(err, ErrAccessoryWidth) {
			t.Errorf("AccessoryWidth(%d) error = %v, want ErrAccessoryWidth", w, err)
		}
	}

	conn := newScripted()
	if err := newDevice(conn).Apply(context.Background(), sweep.Point{Mode: sweep.ModeAccessory, Width: 3}); !errors.Is(err, ErrAccessoryWidth) {
		t.Fatalf("Apply error = %v, want ErrAccessoryWidth", err)
	}
}

func TestRunning(t *testing.T) {
	tests := []struct {
		state string
		want  bool
		err   bool
	}{
		{"{Stop,Stop}", false, false},
		{"{Stop,Run}", true, false},
		{"{Single}", true, false},
		{"x", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			conn := newScripted()
			conn.runStates = []string{tt.state}

			got, err := newDevice(conn).Running(context.Background())
			if (err != nil) != tt.err {
				t.Fatalf("Running error = %v, want error %t", err, tt.err)
			}

			if err == nil && got != tt.want {
				t.Fatalf("Running = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestRunOnce(t *testing.T) {
	conn := newScripted()
	conn.runStates = []string{"{Stop,Stop}", "{Run,Stop}", "{Run,Stop}", "{Stop,Stop}"}

	if err := newDevice(conn).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error = %v", err)
	}

	want := []string{
		"App:Run T",
		"App:RunState?", "App:RunState?",
		"App:RunState?", "App:RunState?",
		"App:Stop",
	}
	if !slices.Equal(conn.log, want) {
		t.Fatalf("commands = %q, want %q", conn.log, want)
	}
}

func TestWaitRunningTimeout(t *testing.T) {
	conn := newScripted()
	conn.runStates = []string{"{Stop,Stop}"}

	err := newDevice(conn, WithRunTimeout(0)).WaitRunning(context.Background(), true)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("WaitRunning error = %v, want ErrTimeout", err)
	}
}

func TestWaitRunningCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := newScripted()
	conn.runStates = []string{"{Stop,Stop}"}

	err := newDevice(conn).WaitRunning(ctx, true)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("WaitRunning error = %v, want context.Canceled", err)
	}
}

func TestSetupStepAndAlign(t *testing.T) {
	ctx := context.Background()
	conn := newScripted()
	conn.runStates = []string{"{Stop,Stop}", "{Run,Stop}", "{Stop,Stop}"}
	d := newDevice(conn, WithRecordLength(2000))

	if err := d.SetupStep(ctx); err != nil {
		t.Fatalf("SetupStep error = %v", err)
	}

	if err := d.Align(ctx); err != nil {
		t.Fatalf("Align error = %v", err)
	}

	want := []string{
		"App:Stop",
		"App:Tab STEP",
		"Step:Cfg:BaseAxis Nanoseconds",
		"Step:Cfg:Reclen 2000",
		"Step:Cfg:Avg 3",
		"App:RunState?",
		"App:Stop",
		"Step:Align align0101",
		"App:Run T",
		"App:RunState?",
		"App:RunState?",
		"App:Stop",
		"Step:Fit",
	}
	if !slices.Equal(conn.log, want) {
		t.Fatalf("commands = %q, want %q", conn.log, want)
	}
}

func TestWaveform(t *testing.T) {
	conn := newScripted()
	conn.block = decode.EncodeFloat32([]float64{0, 1.5, 300, 300, 0})

	w, err := newDevice(conn).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire error = %v", err)
	}

	if w.Count() != 5 || w.At(2) != 300 || w.At(1) != 1.5 {
		t.Fatalf("samples = %v", w.Samples())
	}

	if math.Abs(w.Offset()+2.5) > 1e-12 || math.Abs(w.Span()-153.6) > 1e-12 {
		t.Fatalf("offset %v span %v", w.Offset(), w.Span())
	}

	if w.Name() != DefaultWaveformName {
		t.Fatalf("Name = %q", w.Name())
	}
}

func TestMeasureSpanRejectsGarbage(t *testing.T) {
	conn := newScripted()
	conn.answers["Step:Cfg:SpanPS?"] = "n/a"

	if _, err := newDevice(conn).MeasureSpan(context.Background()); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("MeasureSpan error = %v, want ErrInvalidResponse", err)
	}
}

func TestConfigurations(t *testing.T) {
	ctx := context.Background()
	conn := newScripted()
	d := newDevice(conn)

	if err := d.SaveConfiguration(ctx, "bench"); err != nil {
		t.Fatalf("SaveConfiguration error = %v", err)
	}

	if err := d.RestoreConfiguration(ctx, "[factory]"); err != nil {
		t.Fatalf("RestoreConfiguration error = %v", err)
	}

	want := []string{`save "bench"`, "App:Stop", `restore "[factory]"`, "inprogress"}
	if !slices.Equal(conn.log, want) {
		t.Fatalf("commands = %q, want %q", conn.log, want)
	}

	conn.answers["inprogress"] = "T"
	if err := newDevice(conn, WithRunTimeout(0)).RestoreConfiguration(ctx, "bench"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("RestoreConfiguration error = %v, want ErrTimeout", err)
	}
}

func TestRecordLength(t *testing.T) {
	n, err := newDevice(newScripted()).RecordLength(context.Background())
	if err != nil || n != 1250 {
		t.Fatalf("RecordLength = %d, %v", n, err)
	}
}
