// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config holds the appliance configuration stored as YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// SPI selects the bus shared by the display and the storage card.
type SPI struct {
	// Port is passed to spireg.Open. Empty selects the first port.
	Port string `yaml:"port"`
	// Frequency is a physic.Frequency string such as "40MHz".
	Frequency string `yaml:"frequency"`
}

// Pins names GPIOs as known to gpioreg.
type Pins struct {
	DC        string `yaml:"dc"`
	Reset     string `yaml:"reset"`
	Busy      string `yaml:"busy"`
	DisplayCS string `yaml:"display_cs"`
	StorageCS string `yaml:"storage_cs"`
}

// Display tunes the controller driver.
type Display struct {
	// ScreenOn is the power state assumed before the first refresh.
	ScreenOn bool `yaml:"screen_on"`
	// InitTimeout bounds busy waits during controller initialization.
	InitTimeout time.Duration `yaml:"init_timeout"`
	// RefreshTimeout bounds busy waits during refresh and power down.
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	// Mode is the refresh mode used for scheduled updates: fast, full or half.
	Mode string `yaml:"mode"`
}

// Keys describes the ADC wired to the battery divider and button ladders.
type Keys struct {
	Enabled bool `yaml:"enabled"`
	// I2C is passed to i2creg.Open. Empty selects the first bus.
	I2C     string `yaml:"i2c"`
	Address uint16 `yaml:"address"`
	// Channels are single ended ADC inputs, 0 to 3.
	Battery int `yaml:"battery"`
	Ladder1 int `yaml:"ladder1"`
	Ladder2 int `yaml:"ladder2"`
}

// Config is the top-level configuration.
type Config struct {
	SPI     SPI     `yaml:"spi"`
	Pins    Pins    `yaml:"pins"`
	Display Display `yaml:"display"`
	Keys    Keys    `yaml:"keys"`

	// Schedule is a standard 5 field cron expression for periodic redraws.
	Schedule string `yaml:"schedule"`
	// LogLevel is one of debug, info or error.
	LogLevel string `yaml:"log_level"`
}

// Refresh modes accepted in Display.Mode.
const (
	ModeFast = "fast"
	ModeFull = "full"
	ModeHalf = "half"
)

// DefaultConfig returns the configuration for a Waveshare style HAT on a
// Raspberry Pi.
func DefaultConfig() *Config {
	return &Config{
		SPI: SPI{Frequency: "40MHz"},
		Pins: Pins{
			DC:        "GPIO25",
			Reset:     "GPIO17",
			Busy:      "GPIO24",
			DisplayCS: "GPIO8",
			StorageCS: "GPIO7",
		},
		Display: Display{
			InitTimeout:    10 * time.Second,
			RefreshTimeout: 10 * time.Second,
			Mode:           ModeHalf,
		},
		Keys: Keys{
			Address: 0x48,
			Battery: 0,
			Ladder1: 1,
			Ladder2: 2,
		},
		Schedule: "*/30 * * * *",
		LogLevel: "info",
	}
}

// Normalize replaces missing or invalid values with defaults.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.SPI.Frequency == "" {
		c.SPI.Frequency = d.SPI.Frequency
	} else if _, err := c.SPIFrequency(); err != nil {
		c.SPI.Frequency = d.SPI.Frequency
	}
	if c.Pins.DC == "" {
		c.Pins.DC = d.Pins.DC
	}
	if c.Pins.Reset == "" {
		c.Pins.Reset = d.Pins.Reset
	}
	if c.Pins.Busy == "" {
		c.Pins.Busy = d.Pins.Busy
	}
	if c.Pins.DisplayCS == "" {
		c.Pins.DisplayCS = d.Pins.DisplayCS
	}
	if c.Pins.StorageCS == "" {
		c.Pins.StorageCS = d.Pins.StorageCS
	}
	if c.Display.InitTimeout <= 0 {
		c.Display.InitTimeout = d.Display.InitTimeout
	}
	if c.Display.RefreshTimeout <= 0 {
		c.Display.RefreshTimeout = d.Display.RefreshTimeout
	}
	c.Display.Mode = strings.ToLower(strings.TrimSpace(c.Display.Mode))
	switch c.Display.Mode {
	case ModeFast, ModeFull, ModeHalf:
	default:
		c.Display.Mode = d.Display.Mode
	}
	if c.Keys.Address == 0 {
		c.Keys.Address = d.Keys.Address
	}
	for _, ch := range []struct {
		v   *int
		def int
	}{
		{&c.Keys.Battery, d.Keys.Battery},
		{&c.Keys.Ladder1, d.Keys.Ladder1},
		{&c.Keys.Ladder2, d.Keys.Ladder2},
	} {
		if *ch.v < 0 || *ch.v > 3 {
			*ch.v = ch.def
		}
	}
	c.Schedule = strings.TrimSpace(c.Schedule)
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		c.Schedule = d.Schedule
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// SPIFrequency parses SPI.Frequency.
func (c *Config) SPIFrequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(c.SPI.Frequency); err != nil {
		return 0, fmt.Errorf("config: invalid spi frequency %q: %w", c.SPI.Frequency, err)
	}
	return f, nil
}

// Load reads path. A missing file is created with the default configuration,
// which is then returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg := DefaultConfig()
		return cfg, Save(path, cfg)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path atomically with mode 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".xteink-config-*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, 0o600); err != nil {
		return err
	}
	return os.Rename(name, path)
}
