// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(cfg, DefaultConfig()); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}

	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Load() did not write %s: %v", path, err)
	}
	if got := st.Mode().Perm(); got != 0o600 {
		t.Errorf("config file mode = %v, want 0600", got)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load() failed: %v", err)
	}
	if diff := cmp.Diff(again, cfg); diff != "" {
		t.Errorf("round trip difference (-got +want):\n%s", diff)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
spi:
  frequency: 20MHz
pins:
  busy: GPIO5
display:
  screen_on: true
  refresh_timeout: 100s
  mode: FULL
keys:
  ladder2: 9
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := DefaultConfig()
	want.SPI.Frequency = "20MHz"
	want.Pins.Busy = "GPIO5"
	want.Display.ScreenOn = true
	want.Display.RefreshTimeout = 100 * time.Second
	want.Display.Mode = ModeFull
	if diff := cmp.Diff(cfg, want); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}

	f, err := cfg.SPIFrequency()
	if err != nil {
		t.Fatalf("SPIFrequency() failed: %v", err)
	}
	if f != 20*physic.MegaHertz {
		t.Errorf("SPIFrequency() = %s, want 20MHz", f)
	}
}

func TestNormalize(t *testing.T) {
	cfg := &Config{
		SPI:      SPI{Frequency: "fast"},
		Display:  Display{Mode: "sparkle", InitTimeout: -time.Second},
		Keys:     Keys{Battery: 4, Ladder1: 7, Ladder2: -1},
		Schedule: "every now and then",
	}
	cfg.Normalize()

	d := DefaultConfig()
	if cfg.SPI.Frequency != d.SPI.Frequency {
		t.Errorf("SPI.Frequency = %q, want %q", cfg.SPI.Frequency, d.SPI.Frequency)
	}
	if cfg.Display.Mode != d.Display.Mode {
		t.Errorf("Display.Mode = %q, want %q", cfg.Display.Mode, d.Display.Mode)
	}
	if cfg.Schedule != d.Schedule {
		t.Errorf("Schedule = %q, want %q", cfg.Schedule, d.Schedule)
	}
	if cfg.Display.InitTimeout != d.Display.InitTimeout {
		t.Errorf("Display.InitTimeout = %v, want %v", cfg.Display.InitTimeout, d.Display.InitTimeout)
	}
	// Each channel falls back to its own default, never to the battery input.
	got := [3]int{cfg.Keys.Battery, cfg.Keys.Ladder1, cfg.Keys.Ladder2}
	want := [3]int{d.Keys.Battery, d.Keys.Ladder1, d.Keys.Ladder2}
	if got != want {
		t.Errorf("key channels = %v, want %v", got, want)
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("spi: [1, 2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load(malformed) succeeded")
	}
}
