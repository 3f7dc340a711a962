package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-pulse/report"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <results.csv>...",
	Short: "Summarize recorded result files",
	Long: `Read CSV result files written by the sweep command and print the
number of passing rows per file.

Examples:
  pulsesweep summary SS-0001_Local_0dB_Off_AC1_*.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tSN\tMode\tDSP\tACComp\tRows\tOK")

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return err
		}

		t, err := report.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		status := t.Column(report.ColStatus)
		ok := 0
		for _, row := range t.Rows {
			if status >= 0 && status < len(row) && row[status] == report.StatusOK {
				ok++
			}
		}

		sn, _ := t.Meta("SN")
		mode, _ := t.Meta("Mode")
		dsp, _ := t.Meta("DSP")
		ac, _ := t.Meta("ACComp")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n", path, sn, mode, dsp, ac, len(t.Rows), ok)
	}

	return tw.Flush()
}
