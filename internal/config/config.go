package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/sim"
)

const (
	DefaultInterval   = 200 * time.Millisecond
	DefaultRetryDelay = time.Second
	DefaultDataDir    = "runs"
	DefaultLogLevel   = "info"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Seed for the noise generator. Zero seeds from the clock.
	Seed           int64         `yaml:"seed"`
	Interval       time.Duration `yaml:"interval"`
	MaxTicks       int           `yaml:"max_ticks"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	StopOnTerminal bool          `yaml:"stop_on_terminal"`

	// Preset names a gain preset. When set it wins over Gains.
	Preset string        `yaml:"preset,omitempty"`
	Gains  control.Gains `yaml:"gains"`

	Scenario    string `yaml:"scenario,omitempty"`
	DataDir     string `yaml:"data_dir"`
	Persist     bool   `yaml:"persist"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Interval:       DefaultInterval,
		RetryDelay:     DefaultRetryDelay,
		StopOnTerminal: true,
		Gains:          lander.DefaultGains(),
		DataDir:        DefaultDataDir,
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Interval < 0:
		return fmt.Errorf("%w: interval %v is negative", ErrInvalid, c.Interval)
	case c.RetryDelay < 0:
		return fmt.Errorf("%w: retry_delay %v is negative", ErrInvalid, c.RetryDelay)
	case c.MaxTicks < 0:
		return fmt.Errorf("%w: max_ticks %d is negative", ErrInvalid, c.MaxTicks)
	}
	if c.Preset != "" {
		if _, ok := GetPreset(c.Preset); !ok {
			return fmt.Errorf("%w: unknown preset %q", ErrInvalid, c.Preset)
		}
	}
	if err := lander.ValidateGains(c.Gains); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ResolvedGains returns the preset gains if a preset is named, else Gains.
func (c *Config) ResolvedGains() control.Gains {
	if g, ok := GetPreset(c.Preset); ok {
		return g
	}
	return c.Gains
}

func (c *Config) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Interval = c.Interval
	cfg.MaxTicks = c.MaxTicks
	cfg.RetryDelay = c.RetryDelay
	cfg.StopOnTerminal = c.StopOnTerminal
	return cfg
}
