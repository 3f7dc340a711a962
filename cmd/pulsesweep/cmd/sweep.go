package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/cwbudde/algo-pulse/internal/config"
	"github.com/cwbudde/algo-pulse/internal/metrics"
	"github.com/cwbudde/algo-pulse/measure/pulse"
	"github.com/cwbudde/algo-pulse/measure/sweep"
	"github.com/cwbudde/algo-pulse/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	sweepPlan       planFlags
	deviceKind      string
	deviceAddr      string
	scopeKind       string
	scopeTransport  string
	scopeAddr       string
	serialNumber    string
	outputDir       string
	outputFormats   []string
	postgresDSN     string
	metricsAddr     string
	attenuatorDB    float64
	sweepGain       float64
	misalignedSpans int
	clearOutput     bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a sweep and record the measured amplitudes",
	Long: `Apply every point of the plan to the pulser, align and acquire the
pulse, measure its amplitude and record one row per point. Results of a
group are written when the group completes, and partial results are written
when the sweep is interrupted.

Flags override the run file given with --config.

Examples:
  # Dry run against the simulated STEPScope
  pulsesweep sweep --device sim --widths 1,2 --amplitudes 300 -v

  # Simulated oscilloscope acquisition with a 6 dB attenuator
  pulsesweep sweep --device sim --scope sim --attenuator 6

  # Real bench, results to CSV and XLSX and PostgreSQL
  pulsesweep sweep --device stepscope --addr 192.168.1.20 \
      --format csv --format xlsx --postgres postgres://user@db/pulses`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepPlan.register(sweepCmd)
	sweepCmd.Flags().StringVar(&deviceKind, "device", "", "pulser: sim or stepscope")
	sweepCmd.Flags().StringVar(&deviceAddr, "addr", "", "STEPScope address, host[:port]")
	sweepCmd.Flags().StringVar(&scopeKind, "scope", "", "external digitizer: none, sim or tek")
	sweepCmd.Flags().StringVar(&scopeTransport, "scope-transport", "", "oscilloscope transport: usb or tcp")
	sweepCmd.Flags().StringVar(&scopeAddr, "scope-addr", "", "oscilloscope address for tcp")
	sweepCmd.Flags().StringVar(&serialNumber, "serial", "", "serial number recorded in the results (default: read from the device)")
	sweepCmd.Flags().StringVarP(&outputDir, "out", "o", "", "result directory")
	sweepCmd.Flags().BoolVar(&clearOutput, "clear", false, "empty the result directory before the run")
	sweepCmd.Flags().StringSliceVar(&outputFormats, "format", nil, "result formats: csv, xlsx (repeatable)")
	sweepCmd.Flags().StringVar(&postgresDSN, "postgres", "", "PostgreSQL DSN for the database recorder")
	sweepCmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	sweepCmd.Flags().Float64Var(&attenuatorDB, "attenuator", 0, "attenuator between pulser and digitizer, dB")
	sweepCmd.Flags().Float64Var(&sweepGain, "gain", 1, "gain applied to every waveform before measuring")
	sweepCmd.Flags().IntVar(&misalignedSpans, "sim-misalign", 0, "simulated span readings reported misaligned")
}

func applySweepFlags(cmd *cobra.Command, cfg *config.Config) {
	sweepPlan.apply(cmd, cfg)

	flags := cmd.Flags()
	str := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}

	str("device", &cfg.Device.Kind, deviceKind)
	str("addr", &cfg.Device.Addr, deviceAddr)
	str("serial", &cfg.Device.Serial, serialNumber)
	str("scope", &cfg.Scope.Kind, scopeKind)
	str("scope-transport", &cfg.Scope.Transport, scopeTransport)
	str("scope-addr", &cfg.Scope.Addr, scopeAddr)
	str("out", &cfg.Output.Dir, outputDir)
	str("postgres", &cfg.Postgres.DSN, postgresDSN)
	str("metrics", &cfg.Metrics.Addr, metricsAddr)

	if flags.Changed("format") {
		cfg.Output.Formats = append([]string(nil), outputFormats...)
	}
	if flags.Changed("clear") {
		cfg.Output.Clear = clearOutput
	}
	if flags.Changed("attenuator") {
		cfg.Sweep.Attenuator = attenuatorDB
	}
	if flags.Changed("gain") {
		cfg.Sweep.Gain = sweepGain
	}
	if flags.Changed("sim-misalign") {
		cfg.Device.Misalignment = misalignedSpans
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applySweepFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger, dbg := progressLogger(cmd), debugLogger(cmd)

	r, err := openRig(ctx, cfg, logger, dbg)
	if err != nil {
		return fmt.Errorf("open bench: %w", err)
	}
	defer r.Close()

	if cfg.Output.Clear {
		logger.Printf("Clearing result directory %s", cfg.Output.Dir)

		if err := report.ClearDir(cfg.Output.Dir); err != nil {
			return err
		}
	}

	rec, db, err := openRecorder(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open recorder: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	settle := cfg.Sweep.SettleDelay
	if r.instant {
		settle = 0
	}

	opts := []sweep.Option{
		sweep.WithLogger(logger),
		sweep.WithExtractor(pulse.NewExtractor(pulse.WithLogger(dbg))),
		sweep.WithSettleDelay(settle),
		sweep.WithMaxAttempts(cfg.Sweep.MaxAttempts),
		sweep.WithGain(cfg.Sweep.Gain),
		sweep.WithAttenuator(cfg.Sweep.Attenuator),
		sweep.WithSerial(r.serial),
		sweep.WithAligner(r.aligner),
	}

	if r.spans != nil {
		opts = append(opts, sweep.WithSpanMeter(r.spans))
	}

	if cfg.Metrics.Addr != "" {
		obs, err := serveMetrics(ctx, cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}

		opts = append(opts, sweep.WithObserver(obs))
	}

	c := sweep.NewController(r.device, r.acquirer, rec, opts...)

	res, err := c.Run(ctx, plan)
	fmt.Fprintf(cmd.OutOrStdout(), "Completed. %d-of-%d Okay, %d retries\n", res.Good, res.Planned, res.Retries)

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("sweep interrupted after %d points: %w", len(res.Rows), err)
	}

	return err
}

func serveMetrics(ctx context.Context, addr string, logger *log.Logger) (*metrics.Observer, error) {
	reg := prometheus.NewRegistry()

	obs, err := metrics.NewObserver(reg)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := metrics.Serve(ctx, addr, reg, logger); err != nil {
			logger.Printf("metrics listener: %v", err)
		}
	}()

	return obs, nil
}
