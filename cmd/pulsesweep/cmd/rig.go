package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/cwbudde/algo-pulse/instrument/scpi"
	"github.com/cwbudde/algo-pulse/instrument/sim"
	"github.com/cwbudde/algo-pulse/instrument/stepscope"
	"github.com/cwbudde/algo-pulse/instrument/tek"
	"github.com/cwbudde/algo-pulse/instrument/usbtmc"
	"github.com/cwbudde/algo-pulse/internal/config"
	"github.com/cwbudde/algo-pulse/measure/sweep"
	"github.com/cwbudde/algo-pulse/report"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// rig holds the collaborators of one sweep.
type rig struct {
	device   sweep.Device
	acquirer sweep.Acquirer
	aligner  sweep.Aligner
	spans    sweep.SpanMeter
	serial   string
	instant  bool // simulated devices settle immediately
	closers  []io.Closer
}

func (r *rig) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}

	return errors.Join(errs...)
}

// openRig connects the pulser and the optional external digitizer.
func openRig(ctx context.Context, cfg *config.Config, logger, dbg *log.Logger) (*rig, error) {
	r := &rig{}

	var (
		conn  stepscope.Conn
		bench *sim.Bench
	)

	switch cfg.Device.Kind {
	case config.KindSim:
		serial := cfg.Device.Serial
		if serial == "" {
			serial = sim.DefaultSerial
		}

		bench = sim.NewBench(
			sim.WithSeed(cfg.Device.Seed),
			sim.WithSerial(serial),
			sim.WithMisalignment(cfg.Device.Misalignment),
			sim.WithAttenuator(cfg.Sweep.Attenuator),
		)
		conn = sim.NewStepConn(bench)
		r.instant = true
	case config.KindStepScope:
		client, err := scpi.Dial(ctx, cfg.Device.Addr, scpi.WithLogger(dbg), scpi.WithTimeout(cfg.Device.Timeout))
		if err != nil {
			return nil, err
		}

		r.closers = append(r.closers, client)
		conn = client
	default:
		return nil, fmt.Errorf("unknown device kind %q", cfg.Device.Kind)
	}

	poll := cfg.Device.PollInterval
	if r.instant {
		poll = 0
	}

	dev := stepscope.New(conn,
		stepscope.WithLogger(logger),
		stepscope.WithPollInterval(poll),
		stepscope.WithRunTimeout(cfg.Device.RunTimeout),
		stepscope.WithRecordLength(cfg.Device.RecordLength),
	)

	if err := setupDevice(ctx, cfg, dev, r); err != nil {
		_ = r.Close()
		return nil, err
	}

	if err := openScope(ctx, cfg, bench, logger, dbg, r); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

func setupDevice(ctx context.Context, cfg *config.Config, dev *stepscope.Device, r *rig) error {
	if cfg.Device.RestoreConfig != "" {
		if err := dev.RestoreConfiguration(ctx, cfg.Device.RestoreConfig); err != nil {
			return err
		}
	}

	if err := dev.SetupStep(ctx); err != nil {
		return err
	}

	r.serial = cfg.Device.Serial
	if r.serial == "" {
		sn, err := dev.SerialNumber(ctx)
		if err != nil {
			return err
		}

		r.serial = sn
	}

	r.device, r.acquirer, r.aligner, r.spans = dev, dev, dev, dev

	return nil
}

// openScope replaces the acquirer and aligner with an oscilloscope. The
// span check only applies to the device's own step response view.
func openScope(ctx context.Context, cfg *config.Config, bench *sim.Bench, logger, dbg *log.Logger, r *rig) error {
	var conn tek.Conn

	switch cfg.Scope.Kind {
	case config.KindNone:
		return nil
	case config.KindSim:
		if bench == nil {
			return fmt.Errorf("scope kind %q requires device kind %q", config.KindSim, config.KindSim)
		}

		conn = sim.NewTekConn(bench)
	case config.KindTek:
		client, err := dialScope(ctx, cfg, dbg)
		if err != nil {
			return err
		}

		r.closers = append(r.closers, client)
		conn = client
	default:
		return fmt.Errorf("unknown scope kind %q", cfg.Scope.Kind)
	}

	scope, err := tek.New(conn,
		tek.WithChannel(cfg.Scope.Channel),
		tek.WithTrigger(cfg.Scope.Trigger),
		tek.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if err := scope.Connect(ctx); err != nil {
		return err
	}

	if err := scope.SetupChannel(ctx); err != nil {
		return err
	}

	if err := scope.SetAveraging(ctx, cfg.Scope.Averaging); err != nil {
		return err
	}

	r.acquirer, r.aligner, r.spans = scope, scope, nil

	return nil
}

func dialScope(ctx context.Context, cfg *config.Config, dbg *log.Logger) (*scpi.Client, error) {
	if cfg.Scope.Transport == config.TransportTCP {
		return scpi.Dial(ctx, cfg.Scope.Addr, scpi.WithLogger(dbg), scpi.WithTimeout(cfg.Scope.Timeout))
	}

	conn, err := usbtmc.Open(cfg.Scope.VendorID, cfg.Scope.ProductID)
	if err != nil {
		return nil, err
	}

	return scpi.NewClient(conn, scpi.WithLogger(dbg), scpi.WithTimeout(cfg.Scope.Timeout)), nil
}

// openRecorder combines the configured result sinks. The closer is nil
// without a database.
func openRecorder(ctx context.Context, cfg *config.Config, logger *log.Logger) (sweep.Recorder, io.Closer, error) {
	var recs []sweep.Recorder

	if cfg.HasFormat(config.FormatCSV) {
		recs = append(recs, report.NewCSV(cfg.Output.Dir, report.WithLogger(logger)))
	}

	if cfg.HasFormat(config.FormatXLSX) {
		recs = append(recs, report.NewXLSX(cfg.Output.Dir, report.WithLogger(logger)))
	}

	if cfg.Postgres.DSN == "" {
		return report.Multi(recs...), nil, nil
	}

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}

	pg, err := report.NewPostgres(db, cfg.Postgres.Table)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	if err := pg.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	logger.Printf("Recording results to postgres table %s", cfg.Postgres.Table)

	return report.Multi(append(recs, pg)...), db, nil
}
