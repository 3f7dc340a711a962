package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var planListFlags planFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the groups and point counts of a sweep plan",
	Long: `Expand the sweep lists of the run file and flags into device groups
without touching any instrument.

Examples:
  pulsesweep plan
  pulsesweep plan --modes Accessory --amplitudes 500,300`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planListFlags.register(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	planListFlags.apply(cmd, cfg)

	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Group\tMode\tACComp\tDSP\tWidths\tAmplitudes\tPoints")

	for i, g := range plan.Groups() {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\t%s\t%d\n",
			i+1, g.Mode, g.ACComp, g.DSP, joinInts(g.Widths), joinInts(g.Amplitudes), len(g.Widths)*len(g.Amplitudes))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Total points: %d\n", plan.Count())

	return err
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = strconv.Itoa(x)
	}

	return strings.Join(parts, ",")
}
