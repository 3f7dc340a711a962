// Package cmd implements the pulsesweep command tree.
package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/algo-pulse/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "pulsesweep",
	Short: "Pulse amplitude characterization",
	Long: `Sweep a pulser over its modes, widths and amplitudes, measure every
captured pulse and record the results.

Examples:
  pulsesweep sweep --device sim -v                  # Dry run against the simulator
  pulsesweep sweep -c bench.yaml                    # Run the bench described by a run file
  pulsesweep plan --modes Local --widths 1,2        # Show the points of a plan
  pulsesweep analyze capture.csv                    # Measure a saved waveform`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML run file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log instrument traffic and measurement stages")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}

	return config.Load(configPath)
}

// progressLogger logs sweep progress with --verbose or --debug.
func progressLogger(cmd *cobra.Command) *log.Logger {
	if !verbose && !debug {
		return log.New(io.Discard, "", 0)
	}

	return log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
}

// debugLogger logs instrument and extractor detail with --debug.
func debugLogger(cmd *cobra.Command) *log.Logger {
	if !debug {
		return log.New(io.Discard, "", 0)
	}

	return log.New(cmd.ErrOrStderr(), "debug: ", log.LstdFlags|log.Lmicroseconds)
}
