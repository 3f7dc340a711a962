package cmd

import (
	"github.com/cwbudde/algo-pulse/internal/config"
	"github.com/spf13/cobra"
)

// planFlags override the sweep lists of the run file.
type planFlags struct {
	modes      string
	acComp     string
	dsp        string
	widths     string
	amplitudes string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.modes, "modes", "sweep", `pulser modes, "sweep" or a list like Local,Accessory`)
	cmd.Flags().StringVar(&f.acComp, "accomp", "sweep", `AC compensation, "sweep" or a list like true,false`)
	cmd.Flags().StringVar(&f.dsp, "dsp", "sweep", `DSP modes, "sweep" or a list like Off,Differential`)
	cmd.Flags().StringVar(&f.widths, "widths", "sweep", `pulse widths in W units, "sweep" or a list`)
	cmd.Flags().StringVar(&f.amplitudes, "amplitudes", "sweep", `amplitudes in mV, "sweep" or a list`)
}

func (f *planFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}

	set("modes", &cfg.Sweep.Modes, f.modes)
	set("accomp", &cfg.Sweep.ACComp, f.acComp)
	set("dsp", &cfg.Sweep.DSP, f.dsp)
	set("widths", &cfg.Sweep.Widths, f.widths)
	set("amplitudes", &cfg.Sweep.Amplitudes, f.amplitudes)
}
