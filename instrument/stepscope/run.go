package stepscope

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwbudde/algo-pulse/dsp/waveform"
)

// Stop halts acquisition.
func (d *Device) Stop(ctx context.Context) error {
	return d.Send(ctx, "App:Stop")
}

// Run starts acquisition, once or continuously.
func (d *Device) Run(ctx context.Context, once bool) error {
	return d.Send(ctx, "App:Run "+flag(once))
}

// Running reports whether any acquisition engine is active. The run state
// is answered as "{Stop,Run,...}".
func (d *Device) Running(ctx context.Context) (bool, error) {
	s, err := d.Ask(ctx, "App:RunState?")
	if err != nil {
		return false, err
	}

	if len(s) < 2 {
		return false, fmt.Errorf("%w: run state %q", ErrInvalidResponse, s)
	}

	for _, tok := range strings.Split(s[1:len(s)-1], ",") {
		if strings.TrimSpace(tok) != "Stop" {
			return true, nil
		}
	}

	return false, nil
}

// WaitRunning polls until the running state equals want.
func (d *Device) WaitRunning(ctx context.Context, want bool) error {
	deadline := time.Now().Add(d.timeout)

	for {
		running, err := d.Running(ctx)
		if err != nil {
			return err
		}

		if running == want {
			return nil
		}

		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: waiting for running=%t", ErrTimeout, want)
		}

		if err := d.sleep(ctx, d.poll); err != nil {
			return err
		}
	}
}

// RunOnce starts a single acquisition, waits for it to complete and stops.
func (d *Device) RunOnce(ctx context.Context) error {
	if err := d.Run(ctx, true); err != nil {
		return err
	}

	if err := d.WaitRunning(ctx, true); err != nil {
		return err
	}

	if err := d.WaitRunning(ctx, false); err != nil {
		return err
	}

	return d.Stop(ctx)
}

// SetupStep selects the step response view on a ns axis.
func (d *Device) SetupStep(ctx context.Context) error {
	d.logger.Printf("Setup STEPScope step response view")

	for _, cmd := range []string{
		"App:Stop",
		"App:Tab STEP",
		"Step:Cfg:BaseAxis Nanoseconds",
		fmt.Sprintf("Step:Cfg:Reclen %d", d.reclen),
		fmt.Sprintf("Step:Cfg:Avg %d", DefaultAveraging),
	} {
		if err := d.Send(ctx, cmd); err != nil {
			return err
		}
	}

	return d.WaitRunning(ctx, false)
}

// Align aligns the step response on a single pulse and fits the view.
func (d *Device) Align(ctx context.Context) error {
	d.logger.Printf("Align and center single pulse")

	if err := d.Stop(ctx); err != nil {
		return err
	}

	if err := d.Send(ctx, "Step:Align align0101"); err != nil {
		return err
	}

	if err := d.RunOnce(ctx); err != nil {
		return err
	}

	return d.Send(ctx, "Step:Fit")
}

// MeasureSpan returns the span of the step response view.
func (d *Device) MeasureSpan(ctx context.Context) (float64, error) {
	return d.askFloat(ctx, "Step:Cfg:SpanPS?")
}

// Offset returns the start of the step response view.
func (d *Device) Offset(ctx context.Context) (float64, error) {
	return d.askFloat(ctx, "Step:Cfg:OffsetPS?")
}

// RecordLength returns the number of samples of the step response.
func (d *Device) RecordLength(ctx context.Context) (int, error) {
	v, err := d.askFloat(ctx, "Step:Cfg:Reclen?")
	return int(v), err
}

// Waveform reads the step response. With the Nanoseconds base axis the
// offset and span are in ns.
func (d *Device) Waveform(ctx context.Context, name string) (*waveform.Waveform, error) {
	d.logger.Printf("Acquiring waveform data")

	offset, err := d.Offset(ctx)
	if err != nil {
		return nil, err
	}

	span, err := d.MeasureSpan(ctx)
	if err != nil {
		return nil, err
	}

	block, err := d.askBlock(ctx, "Step:Binary?")
	if err != nil {
		return nil, err
	}

	w, err := d.decoder.Float32(block, offset, span,
		waveform.WithName(name),
		waveform.WithUnits(waveform.UnitNanoseconds, waveform.UnitMillivolts),
	)
	if err != nil {
		return nil, fmt.Errorf("stepscope: %w", err)
	}

	d.logger.Printf("Retrieved %d samples over %.3f %s", w.Count(), w.Span(), w.XUnits())

	return w, nil
}

// Acquire implements the sweep Acquirer.
func (d *Device) Acquire(ctx context.Context) (*waveform.Waveform, error) {
	return d.Waveform(ctx, DefaultWaveformName)
}

// SaveConfiguration stores the current settings under name.
func (d *Device) SaveConfiguration(ctx context.Context, name string) error {
	return d.Send(ctx, fmt.Sprintf("save %q", name))
}

// RestoreConfiguration loads settings and waits until the device reports
// the restore done. Names in brackets, like "[factory]", are built in.
func (d *Device) RestoreConfiguration(ctx context.Context, name string) error {
	if err := d.Stop(ctx); err != nil {
		return err
	}

	if err := d.Send(ctx, fmt.Sprintf("restore %q", name)); err != nil {
		return err
	}

	deadline := time.Now().Add(d.timeout)

	for {
		if err := d.sleep(ctx, d.poll); err != nil {
			return err
		}

		s, err := d.Ask(ctx, "inprogress")
		if err != nil {
			return err
		}

		if s == "F" || s == "0" {
			return nil
		}

		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: restoring configuration %q", ErrTimeout, name)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
