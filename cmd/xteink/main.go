// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// xteink draws a status page on an SSD1677 e-paper panel and puts the
// controller to sleep between updates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/xteink/analogkeys"
	"github.com/GermanBionicSystems/xteink/internal/config"
	"github.com/GermanBionicSystems/xteink/internal/log"
	"github.com/GermanBionicSystems/xteink/internal/statuspage"
	"github.com/GermanBionicSystems/xteink/screen2d"
	"github.com/GermanBionicSystems/xteink/sharedspi"
	"github.com/GermanBionicSystems/xteink/ssd1677"
)

type flagConfig struct {
	configPath string
	once       bool
	preview    bool
	logLevel   string
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		log.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	if l, ok := log.ParseLevel(level); ok {
		log.SetLevel(l)
	} else {
		log.Error("ignoring log level", fmt.Errorf("unknown level %q", level))
	}

	log.Info("xteink starting",
		"spi_port", cfg.SPI.Port,
		"spi_frequency", cfg.SPI.Frequency,
		"mode", cfg.Display.Mode,
		"schedule", cfg.Schedule,
		"keys", cfg.Keys.Enabled,
		"once", flags.once,
		"preview", flags.preview,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, cfg, flags); err != nil {
		log.Error("xteink failed", err)
		os.Exit(1)
	}
	log.Info("xteink exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/xteink/config.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Draw the status page once and exit")
	flag.BoolVar(&cfg.preview, "preview", false, "Render to the terminal; do not touch hardware")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level (overrides config if set)")

	flag.Parse()

	return cfg
}

// app is what one update cycle needs.
type app struct {
	mode     ssd1677.RefreshMode
	drawer   display.Drawer
	dev      *ssd1677.Dev
	keys     *analogkeys.Reader
	renderer *statuspage.Renderer
	now      func() time.Time
}

func run(ctx context.Context, cfg *config.Config, flags flagConfig) error {
	a := &app{mode: refreshMode(cfg.Display.Mode), now: time.Now}

	if flags.preview {
		d, err := screen2d.New(&screen2d.Opts{})
		if err != nil {
			return err
		}
		defer d.Halt()
		a.drawer = d
	} else {
		hw, err := openHardware(cfg)
		if err != nil {
			return err
		}
		defer hw.close()
		a.dev = hw.dev
		a.keys = hw.keys
		a.drawer = hw.dev
	}

	r, err := statuspage.New(a.drawer.Bounds())
	if err != nil {
		return err
	}
	a.renderer = r

	if err := a.cycle(); err != nil {
		return err
	}
	if flags.once {
		return nil
	}

	c := cron.New(cron.WithChain(scheduleWrappers()...))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := a.cycle(); err != nil {
			log.Error("update failed", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	log.Info("scheduler started", "schedule", cfg.Schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// scheduleWrappers wraps every scheduled cycle. The panel driver is not safe
// for concurrent use, so a cycle still running when the next one is due makes
// that one skip.
func scheduleWrappers() []cron.JobWrapper {
	return []cron.JobWrapper{cron.SkipIfStillRunning(cronLogger{})}
}

// cronLogger sends scheduler events to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	log.Info("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	log.Error("cron: "+msg, err, kv...)
}

// cycle wakes the panel, draws a fresh status page and puts the controller
// back to sleep.
func (a *app) cycle() error {
	start := a.now()
	st := &statuspage.Status{Time: start, Footer: a.mode.String()}
	if a.keys != nil {
		rd, err := a.keys.Poll()
		if err != nil {
			log.Error("reading keys", err)
		} else {
			st.Battery = rd.Battery
			st.Percent = rd.Percent
			st.Pressed = rd.Pressed
			log.Info("keys", "reading", rd.String())
		}
	}

	if a.dev != nil && a.dev.Asleep() {
		if err := a.dev.Init(); err != nil {
			return err
		}
	}

	img := a.renderer.Render(st)
	if err := a.drawer.Draw(a.drawer.Bounds(), img, image.Point{}); err != nil {
		return err
	}

	if a.dev != nil {
		if err := a.dev.EnterDeepSleep(); err != nil {
			return err
		}
	}
	log.Info("status page drawn", "took", a.now().Sub(start))
	return nil
}

type hardware struct {
	port    spi.PortCloser
	dev     *ssd1677.Dev
	storage *sharedspi.Device
	keys    *analogkeys.Reader
	closers []func() error
}

func openHardware(cfg *config.Config) (_ *hardware, err error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	hw := &hardware{}
	defer func() {
		if err != nil {
			hw.close()
		}
	}()

	f, err := cfg.SPIFrequency()
	if err != nil {
		return nil, err
	}
	hw.port, err = spireg.Open(cfg.SPI.Port)
	if err != nil {
		return nil, err
	}
	bus, err := sharedspi.Open(hw.port, f, spi.Mode0)
	if err != nil {
		return nil, err
	}

	pins := map[string]gpio.PinIO{}
	for _, name := range []string{cfg.Pins.DC, cfg.Pins.Reset, cfg.Pins.Busy, cfg.Pins.DisplayCS, cfg.Pins.StorageCS} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown pin %q", name)
		}
		pins[name] = p
	}

	c, err := bus.Device(pins[cfg.Pins.DisplayCS])
	if err != nil {
		return nil, err
	}
	// The card is not used yet, but its chip select must stay deasserted.
	hw.storage, err = bus.Device(pins[cfg.Pins.StorageCS])
	if err != nil {
		return nil, err
	}
	log.Debug("storage card deselected", "device", hw.storage.String())

	opts := ssd1677.GDEQ0426T82
	opts.ScreenOn = cfg.Display.ScreenOn
	opts.InitTimeout = cfg.Display.InitTimeout
	opts.RefreshTimeout = cfg.Display.RefreshTimeout
	opts.Mode = refreshMode(cfg.Display.Mode)
	hw.dev, err = ssd1677.Initialize(c, pins[cfg.Pins.DC], pins[cfg.Pins.Reset], pins[cfg.Pins.Busy], &opts)
	if err != nil {
		return nil, err
	}
	hw.closers = append(hw.closers, hw.dev.Halt)
	log.Info("display ready", "device", hw.dev.String())

	if cfg.Keys.Enabled {
		if hw.keys, err = openKeys(hw, &cfg.Keys); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

var adcChannels = []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

func openKeys(hw *hardware, k *config.Keys) (*analogkeys.Reader, error) {
	b, err := i2creg.Open(k.I2C)
	if err != nil {
		return nil, err
	}
	hw.closers = append(hw.closers, b.Close)

	adc, err := ads1x15.NewADS1115(b, &ads1x15.Opts{I2cAddress: k.Address})
	if err != nil {
		return nil, err
	}
	var inputs []analog.PinADC
	for _, ch := range []int{k.Battery, k.Ladder1, k.Ladder2} {
		p, err := adc.PinForChannel(adcChannels[ch], 4096*physic.MilliVolt, 128*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, p)
	}
	r, err := analogkeys.New(inputs[0], inputs[1], inputs[2], &analogkeys.DefaultOpts)
	if err != nil {
		return nil, err
	}
	hw.closers = append(hw.closers, r.Halt)
	return r, nil
}

// close releases resources in reverse order of acquisition.
func (hw *hardware) close() {
	var errs []error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		errs = append(errs, hw.closers[i]())
	}
	if hw.port != nil {
		errs = append(errs, hw.port.Close())
	}
	if err := errors.Join(errs...); err != nil {
		log.Error("closing hardware", err)
	}
}

func refreshMode(s string) ssd1677.RefreshMode {
	switch s {
	case config.ModeFast:
		return ssd1677.Fast
	case config.ModeFull:
		return ssd1677.Full
	default:
		return ssd1677.HalfRefresh
	}
}
