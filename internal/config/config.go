// Package config loads the YAML run file of the pulse sweep tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-pulse/measure/sweep"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds every instrument query when none is configured.
const DefaultTimeout = 5 * time.Second

// Device and scope kinds.
const (
	KindSim       = "sim"
	KindStepScope = "stepscope"
	KindTek       = "tek"
	KindNone      = "none"
)

// Scope transports.
const (
	TransportUSB = "usb"
	TransportTCP = "tcp"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrInvalid is returned for configurations that fail validation.
var ErrInvalid = errors.New("config: invalid")

// Config is the run file.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Scope    ScopeConfig    `yaml:"scope"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DeviceConfig selects the pulser under test.
type DeviceConfig struct {
	Kind          string        `yaml:"kind"`
	Addr          string        `yaml:"addr"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	RunTimeout    time.Duration `yaml:"run_timeout"`
	Timeout       time.Duration `yaml:"timeout"` // per query read timeout
	RecordLength  int           `yaml:"record_length"`
	RestoreConfig string        `yaml:"restore_config"`
	Serial        string        `yaml:"serial"`
	Seed          int64         `yaml:"seed"`
	Misalignment  int           `yaml:"misalignment"`
}

// ScopeConfig selects an optional external digitizer. Without one the
// device acquires its own step response.
type ScopeConfig struct {
	Kind      string        `yaml:"kind"`
	Transport string        `yaml:"transport"`
	Addr      string        `yaml:"addr"`
	VendorID  uint16        `yaml:"vendor_id"`
	ProductID uint16        `yaml:"product_id"`
	Channel   string        `yaml:"channel"`
	Trigger   string        `yaml:"trigger"`
	Averaging int           `yaml:"averaging"`
	Timeout   time.Duration `yaml:"timeout"` // per query read timeout
}

// SweepConfig holds the plan lists in command-line syntax, each either
// "sweep" or a comma separated list.
type SweepConfig struct {
	Modes       string        `yaml:"modes"`
	ACComp      string        `yaml:"ac_comp"`
	DSP         string        `yaml:"dsp"`
	Widths      string        `yaml:"widths"`
	Amplitudes  string        `yaml:"amplitudes"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
	Gain        float64       `yaml:"gain"`
	Attenuator  float64       `yaml:"attenuator"`
}

// OutputConfig selects the result files.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
	Clear   bool     `yaml:"clear"` // empty Dir before the run
}

// PostgresConfig enables the database recorder when DSN is set.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// MetricsConfig enables the metrics listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads, defaults and validates the run file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(raw)
}

// Parse decodes, defaults and validates a run file.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration of an empty run file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()

	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Device.Kind == "" {
		c.Device.Kind = KindSim
	}
	if c.Device.PollInterval == 0 {
		c.Device.PollInterval = 500 * time.Millisecond
	}
	if c.Device.RunTimeout == 0 {
		c.Device.RunTimeout = 30 * time.Second
	}
	if c.Device.Timeout == 0 {
		c.Device.Timeout = DefaultTimeout
	}
	if c.Device.RecordLength == 0 {
		c.Device.RecordLength = 1250
	}
	if c.Device.Seed == 0 {
		c.Device.Seed = 1
	}
	if c.Scope.Kind == "" {
		c.Scope.Kind = KindNone
	}
	if c.Scope.Transport == "" {
		c.Scope.Transport = TransportUSB
	}
	if c.Scope.VendorID == 0 {
		c.Scope.VendorID = 0x0699
	}
	if c.Scope.ProductID == 0 {
		c.Scope.ProductID = 0x0368
	}
	if c.Scope.Timeout == 0 {
		c.Scope.Timeout = DefaultTimeout
	}
	if c.Scope.Channel == "" {
		c.Scope.Channel = "CH1"
	}
	if c.Scope.Trigger == "" {
		c.Scope.Trigger = c.Scope.Channel
	}
	if c.Sweep.Modes == "" {
		c.Sweep.Modes = sweep.Keyword
	}
	if c.Sweep.ACComp == "" {
		c.Sweep.ACComp = sweep.Keyword
	}
	if c.Sweep.DSP == "" {
		c.Sweep.DSP = sweep.Keyword
	}
	if c.Sweep.Widths == "" {
		c.Sweep.Widths = sweep.Keyword
	}
	if c.Sweep.Amplitudes == "" {
		c.Sweep.Amplitudes = sweep.Keyword
	}
	if c.Sweep.SettleDelay == 0 {
		c.Sweep.SettleDelay = sweep.DefaultSettleDelay
	}
	if c.Sweep.MaxAttempts == 0 {
		c.Sweep.MaxAttempts = sweep.DefaultMaxAttempts
	}
	if c.Sweep.Gain == 0 {
		c.Sweep.Gain = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{FormatCSV}
	}
	if c.Postgres.Table == "" {
		c.Postgres.Table = "pulse_amplitudes"
	}
}

// Validate checks a defaulted configuration and normalizes format names.
func (c *Config) Validate() error {
	switch c.Device.Kind {
	case KindSim:
	case KindStepScope:
		if c.Device.Addr == "" {
			return fmt.Errorf("%w: device.addr is required for %s", ErrInvalid, KindStepScope)
		}
	default:
		return fmt.Errorf("%w: device.kind %q", ErrInvalid, c.Device.Kind)
	}

	switch c.Scope.Kind {
	case KindNone:
	case KindSim:
		if c.Device.Kind != KindSim {
			return fmt.Errorf("%w: scope.kind %s requires device.kind %s", ErrInvalid, KindSim, KindSim)
		}
	case KindTek:
		switch c.Scope.Transport {
		case TransportUSB:
		case TransportTCP:
			if c.Scope.Addr == "" {
				return fmt.Errorf("%w: scope.addr is required for tcp", ErrInvalid)
			}
		default:
			return fmt.Errorf("%w: scope.transport %q", ErrInvalid, c.Scope.Transport)
		}
	default:
		return fmt.Errorf("%w: scope.kind %q", ErrInvalid, c.Scope.Kind)
	}

	if c.Device.Timeout < 0 || c.Scope.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalid)
	}
	if c.Scope.Averaging < 0 {
		return fmt.Errorf("%w: scope.averaging must be >= 0", ErrInvalid)
	}
	if c.Device.RecordLength < 0 {
		return fmt.Errorf("%w: device.record_length must be > 0", ErrInvalid)
	}
	if c.Sweep.MaxAttempts < 0 {
		return fmt.Errorf("%w: sweep.max_attempts must be > 0", ErrInvalid)
	}
	if c.Sweep.Gain <= 0 {
		return fmt.Errorf("%w: sweep.gain must be > 0", ErrInvalid)
	}

	for i, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != FormatCSV && f != FormatXLSX {
			return fmt.Errorf("%w: output.formats %q", ErrInvalid, f)
		}
		c.Output.Formats[i] = f
	}

	if _, err := c.Plan(); err != nil {
		return fmt.Errorf("%w: sweep: %w", ErrInvalid, err)
	}

	return nil
}

// Plan builds the sweep plan from the sweep lists.
func (c *Config) Plan() (sweep.Plan, error) {
	var (
		p   sweep.Plan
		err error
	)

	if p.Modes, err = sweep.ParseModes(c.Sweep.Modes); err != nil {
		return p, err
	}
	if p.ACComp, err = sweep.ParseBools(c.Sweep.ACComp); err != nil {
		return p, err
	}
	if p.DSP, err = sweep.ParseDSPModes(c.Sweep.DSP); err != nil {
		return p, err
	}
	if p.Widths, err = sweep.ParseValues(c.Sweep.Widths); err != nil {
		return p, err
	}
	if p.Amplitudes, err = sweep.ParseValues(c.Sweep.Amplitudes); err != nil {
		return p, err
	}

	return p, p.Validate()
}

// HasFormat reports whether results are written in format f.
func (c *Config) HasFormat(f string) bool {
	for _, have := range c.Output.Formats {
		if have == f {
			return true
		}
	}

	return false
}
