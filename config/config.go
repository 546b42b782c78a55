// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads and validates the YAML configuration of the digitemp
// command.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/GermanBionicSystems/digitemp/ds18x20"
	"github.com/GermanBionicSystems/digitemp/ds9097"
	"github.com/GermanBionicSystems/digitemp/logging"
	"github.com/GermanBionicSystems/digitemp/rom"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "digitemp.yaml"

// Config is the digitemp configuration.
type Config struct {
	Device      string        `yaml:"device"`       // serial device of the adapter
	Backend     string        `yaml:"backend"`      // "serial", "tarm" or "goburrow"
	ReadTimeout time.Duration `yaml:"read_timeout"` // serial read timeout
	Attempts    int           `yaml:"attempts"`     // scratchpad reads on CRC errors
	Precise     bool          `yaml:"precise"`      // DS18S20 extended resolution
	Interval    time.Duration `yaml:"interval"`     // watch period
	LogLevel    string        `yaml:"log_level"`
	LogFile     string        `yaml:"log_file,omitempty"`
	Colors      Colors        `yaml:"colors"`
	Sensors     []Sensor      `yaml:"sensors,omitempty"`
}

// Colors are the CSS colour names at both ends of the heat strip.
type Colors struct {
	Cold string `yaml:"cold"`
	Hot  string `yaml:"hot"`
}

// Sensor names a device by its ROM code.
type Sensor struct {
	ROM  string `yaml:"rom"`
	Name string `yaml:"name,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Device:      "/dev/ttyUSB0",
		Backend:     ds9097.BackendSerial,
		ReadTimeout: ds9097.DefaultOpts.ReadTimeout,
		Attempts:    ds18x20.DefaultOpts.Attempts,
		Precise:     ds18x20.DefaultOpts.Precise,
		Interval:    10 * time.Second,
		LogLevel:    logging.LevelInfo.String(),
		Colors:      Colors{Cold: "blue", Hot: "red"},
	}
}

// Load reads the configuration file path. Keys missing from the file keep
// their default value.
//
// If the file does not exist and autoCreate is set, a default configuration
// is written to path and returned.
func Load(path string, autoCreate bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if !autoCreate {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	switch c.Backend {
	case ds9097.BackendSerial, ds9097.BackendTarm, ds9097.BackendGoburrow:
	default:
		return fmt.Errorf("backend must be %q, %q or %q, got %q",
			ds9097.BackendSerial, ds9097.BackendTarm, ds9097.BackendGoburrow, c.Backend)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, _, err := c.Colors.RGBA(); err != nil {
		return err
	}
	seen := map[rom.Code]bool{}
	for i, s := range c.Sensors {
		code, err := rom.Parse(s.ROM)
		if err != nil {
			return fmt.Errorf("sensors[%d]: %w", i, err)
		}
		if err := code.Check(); err != nil {
			return fmt.Errorf("sensors[%d]: %s: %w", i, s.ROM, err)
		}
		if seen[code] {
			return fmt.Errorf("sensors[%d]: duplicate ROM code %s", i, code)
		}
		seen[code] = true
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	l, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return l
}

// Codes returns the ROM codes of the configured sensors. Invalid entries are
// skipped, Validate reports them.
func (c *Config) Codes() []rom.Code {
	out := make([]rom.Code, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		if code, err := rom.Parse(s.ROM); err == nil {
			out = append(out, code)
		}
	}
	return out
}

// Name returns the configured name of the sensor with ROM code c, or the code
// itself.
func (c *Config) Name(code rom.Code) string {
	for _, s := range c.Sensors {
		if strings.EqualFold(s.ROM, code.String()) && s.Name != "" {
			return s.Name
		}
	}
	return code.String()
}

// BusOpts returns the options to open the adapter with.
func (c *Config) BusOpts() ds9097.Opts {
	return ds9097.Opts{
		Backend:  c.Backend,
		PortOpts: ds9097.PortOpts{ReadTimeout: c.ReadTimeout},
	}
}

// DeviceOpts returns the options to create thermometer handles with.
func (c *Config) DeviceOpts(r ds18x20.Reporter) ds18x20.Opts {
	return ds18x20.Opts{
		Precise:  c.Precise,
		Attempts: c.Attempts,
		Reporter: r,
	}
}

// RGBA resolves the colour names.
func (c Colors) RGBA() (cold, hot color.RGBA, err error) {
	if cold, err = lookup(c.Cold); err != nil {
		return
	}
	hot, err = lookup(c.Hot)
	return
}

func lookup(name string) (color.RGBA, error) {
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return color.RGBA{}, fmt.Errorf("unknown colour name %q", name)
	}
	return c, nil
}
