package cmd

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-pulse/dsp/decode"
	"github.com/cwbudde/algo-pulse/dsp/waveform"
	"github.com/cwbudde/algo-pulse/measure/bandwidth"
	"github.com/cwbudde/algo-pulse/measure/pulse"
	"github.com/cwbudde/algo-pulse/report"
	"github.com/spf13/cobra"
)

var (
	analyzeGain      float64
	analyzeHistogram bool
	analyzeBandwidth bool
	analyzeBinWidth  float64
	blockOffset      float64
	blockSpan        float64
)

var errWaveformFormat = errors.New("waveform file needs two numeric columns: time, value")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <waveform>",
	Short: "Measure the pulse amplitude of a saved waveform",
	Long: `Measure a waveform saved as CSV with time (ns) and value (mV) columns,
or as a raw definite-length block of little-endian float32 samples (.blk,
.bin) together with --offset and --span.

Examples:
  pulsesweep analyze capture.csv
  pulsesweep analyze --bandwidth --gain 2 capture.csv
  pulsesweep analyze --offset -5 --span 150 step.blk`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Float64Var(&analyzeGain, "gain", 1, "gain applied before measuring")
	analyzeCmd.Flags().BoolVar(&analyzeHistogram, "histogram", false, "always use histogram levels when the flat search fails")
	analyzeCmd.Flags().BoolVar(&analyzeBandwidth, "bandwidth", false, "estimate the -3 dB bandwidth at the falling edge")
	analyzeCmd.Flags().Float64Var(&analyzeBinWidth, "bin-width", 0, "histogram bin width in mV; 0 derives it from the capture")
	analyzeCmd.Flags().Float64Var(&blockOffset, "offset", 0, "time of the first sample of a block file, ns")
	analyzeCmd.Flags().Float64Var(&blockSpan, "span", 0, "time span of a block file, ns")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	w, err := readWaveform(args[0])
	if err != nil {
		return err
	}

	if analyzeGain != 1 {
		w = w.WithGain(analyzeGain)
	}

	x := pulse.NewExtractor(
		pulse.WithForceHistogram(analyzeHistogram),
		pulse.WithBinWidth(analyzeBinWidth),
		pulse.WithLogger(debugLogger(cmd)),
	)
	res, err := x.Measure(w)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Samples: %d over %.3f %s\n", w.Count(), w.Span(), w.XUnits())
	fmt.Fprintf(out, "Levels: min %.3f, mid %.3f, max %.3f %s\n", res.Levels.Min, res.Levels.Mid, res.Levels.Max, w.YUnits())

	if res.Stage >= pulse.StageEdgesLocated {
		fmt.Fprintf(out, "Falling edge: %.3f %s\n", res.Falling.Time, w.XUnits())
		fmt.Fprintf(out, "Rising edge: %.3f %s\n", res.Rising.Time, w.XUnits())
	}

	if !pulse.Passed(res, err) {
		fmt.Fprintf(out, "Status: %s\n", pulse.Tag(err))
		return nil
	}

	fmt.Fprintf(out, "High: %.3f %s (%s)\n", res.High.Value, w.YUnits(), res.High.Source)
	fmt.Fprintf(out, "Low: %.3f %s (%s)\n", res.Low.Value, w.YUnits(), res.Low.Source)
	fmt.Fprintf(out, "Amplitude: %.3f %s\n", res.Amplitude, w.YUnits())

	if res.HasRiseTime {
		fmt.Fprintf(out, "Rise time: %.3f %s\n", res.RiseTime, w.XUnits())
	}
	if res.HasFallTime {
		fmt.Fprintf(out, "Fall time: %.3f %s\n", res.FallTime, w.XUnits())
	}

	if analyzeBandwidth {
		bw, err := bandwidth.Measure(w, res.Falling.Index)
		if err != nil {
			fmt.Fprintf(out, "Bandwidth: %v\n", err)
		} else {
			fmt.Fprintf(out, "Bandwidth: %.4f 1/%s (resolution %.4f)\n", bw.Bandwidth, w.XUnits(), bw.Resolution)
		}
	}

	fmt.Fprintf(out, "Status: %s\n", report.StatusOK)

	return nil
}

func readWaveform(path string) (*waveform.Waveform, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".blk", ".bin":
		if blockSpan <= 0 {
			return nil, fmt.Errorf("%s: --span is required for block files", path)
		}

		b, err := decode.ParseBlock(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		return decode.Decoder{}.Float32(b, blockOffset, blockSpan,
			waveform.WithName(name),
			waveform.WithUnits(waveform.UnitNanoseconds, waveform.UnitMillivolts),
		)
	}

	return parseWaveformCSV(bytes.NewReader(raw), name)
}

// parseWaveformCSV reads time, value rows. A non-numeric first row is a
// header. Times must be evenly spaced; only the first and last are used.
func parseWaveformCSV(r io.Reader, name string) (*waveform.Waveform, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var times, values []float64

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: %w", line, errWaveformFormat)
		}

		t, errT := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		v, errV := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if errT != nil || errV != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, errWaveformFormat)
		}

		times = append(times, t)
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, errWaveformFormat
	}

	offset := times[0]
	span := times[len(times)-1] - offset

	return waveform.New(values, offset, span,
		waveform.WithName(name),
		waveform.WithUnits(waveform.UnitNanoseconds, waveform.UnitMillivolts),
	), nil
}
