package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-pulse/dsp/signal"
	"github.com/cwbudde/algo-pulse/internal/config"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	// Reset globals to prevent accumulation between tests
	configPath = ""
	verbose = false
	debug = false
	analyzeGain = 1
	analyzeHistogram = false
	analyzeBandwidth = false
	analyzeBinWidth = 0
	clearOutput = false

	err := rootCmd.Execute()

	return out.String(), err
}

// sweepArgs pins every flag the sweep tests vary, so each run is
// independent of the ones before it.
func sweepArgs(dir, scope string, attenuator int) []string {
	return []string{
		"sweep",
		"--device", "sim",
		"--scope", scope,
		"--modes", "Local",
		"--accomp", "true",
		"--dsp", "Off",
		"--widths", "1,2",
		"--amplitudes", "300",
		"--attenuator", fmt.Sprint(attenuator),
		"--out", dir,
		"--format", "csv",
	}
}

func TestPlanE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "explicit lists",
			args: []string{"plan", "--modes", "Local", "--accomp", "true", "--dsp", "Off,Differential", "--widths", "1,2", "--amplitudes", "300,200"},
			wantContain: []string{
				"Group", "Local", "Differential", "1,2", "300,200",
				"Total points: 8",
			},
		},
		{
			name: "accessory defaults",
			args: []string{"plan", "--modes", "Accessory", "--accomp", "false", "--dsp", "Off", "--widths", "sweep", "--amplitudes", "sweep"},
			wantContain: []string{
				"Accessory", "1,2,4,8,16", "700,600,500,400,300,200",
				"Total points: 30",
			},
		},
		{
			name:    "bad mode",
			args:    []string{"plan", "--modes", "Burst", "--accomp", "true", "--dsp", "Off", "--widths", "1", "--amplitudes", "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestSweepE2E(t *testing.T) {
	tests := []struct {
		name       string
		scope      string
		attenuator int
		wantHeader string
	}{
		{"device acquisition", "none", 0, "SN,DateTime,Mode,DSP,ACComp,LenW,LenNS,AmplSet,Meas,Atten,Status"},
		{"simulated oscilloscope", "sim", 6, "SN,DateTime,Mode,DSP,ACComp,LenW,LenNS,AmplSet,Meas,Atten,MeasNoAtten,Status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()

			output, err := execute(t, sweepArgs(dir, tt.scope, tt.attenuator)...)
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}

			if !strings.Contains(output, "Completed. 2-of-2 Okay, 0 retries") {
				t.Fatalf("Output missing summary:\n%s", output)
			}

			files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
			if err != nil || len(files) != 1 {
				t.Fatalf("expected one result file, got %v (%v)", files, err)
			}

			raw, err := os.ReadFile(files[0])
			if err != nil {
				t.Fatalf("read results: %v", err)
			}

			if !strings.Contains(string(raw), tt.wantHeader) {
				t.Fatalf("result file lacks header %q:\n%s", tt.wantHeader, raw)
			}

			output, err = execute(t, "summary", files[0])
			if err != nil {
				t.Fatalf("summary error: %v", err)
			}

			lines := strings.Split(strings.TrimSpace(output), "\n")
			fields := strings.Fields(lines[len(lines)-1])
			if len(fields) != 7 || fields[1] != "SIM-0001" || fields[5] != "2" || fields[6] != "2" {
				t.Fatalf("unexpected summary:\n%s", output)
			}
		})
	}
}

func TestSweepClearsResultDirectory(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.csv")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, sweepArgs(dir, "none", 0)...); err != nil {
		t.Fatalf("sweep without --clear: %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("stale file removed without --clear: %v", err)
	}

	if _, err := execute(t, append(sweepArgs(dir, "none", 0), "--clear")...); err != nil {
		t.Fatalf("sweep --clear: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale file survived --clear: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
	if len(files) != 1 {
		t.Fatalf("result files after --clear = %v", files)
	}
}

func TestSweepRejectsSimScopeOnHardware(t *testing.T) {
	args := sweepArgs(t.TempDir(), "sim", 0)
	args[2] = "stepscope"
	args = append(args, "--addr", "127.0.0.1:1")

	_, err := execute(t, args...)
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected config.ErrInvalid, got %v", err)
	}

	args[2] = "sim"
	if _, err := execute(t, args...); err != nil {
		t.Fatalf("restore simulated device: %v", err)
	}
}

func TestAnalyzeE2E(t *testing.T) {
	samples, err := signal.NewGenerator(signal.WithSlew(4)).Pulse(400, 100, 250, 0, 300)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var b strings.Builder
	b.WriteString("time_ns,value_mv\n")
	for i, v := range samples {
		fmt.Fprintf(&b, "%d,%g\n", i, v)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "capture.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	output, err := execute(t, "analyze", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	for _, want := range []string{"Samples: 400 over 399.000 ns", "Amplitude: 300.000 mV", "Status: OK"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
		}
	}

	flat := filepath.Join(dir, "flat.csv")
	if err := os.WriteFile(flat, []byte("0,0\n1,0\n2,0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	output, err = execute(t, "analyze", flat)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !strings.Contains(output, "Status: [No_Falling_Edge_Found]") {
		t.Fatalf("Output missing failure tag:\n%s", output)
	}
}
