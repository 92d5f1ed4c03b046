// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1677

import (
	"fmt"
	"time"
)

type controller interface {
	sendCommand(Command)
	sendData([]byte)
	waitUntilIdle(timeout time.Duration)
	// scope runs fn and passes the first error raised inside it to wrap.
	scope(wrap func(error) error, fn func())
}

// panelState is the power state the driver believes the controller is in.
type panelState struct {
	screenOn  bool
	customLUT bool
}

func lo(v int) byte {
	return byte(v % 256)
}

func hi(v int) byte {
	return byte(v / 256)
}

func checkWindow(opts *Opts, x, y, w, h int) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > opts.Width || y+h > opts.Height {
		return fmt.Errorf("%w: x=%d y=%d w=%d h=%d on %dx%d", ErrWindow, x, y, w, h, opts.Width, opts.Height)
	}
	return nil
}

// setRAMArea programs the RAM window. The gate lines are wired in reverse, so
// Y is flipped and scanned from the end of the window down to its start.
func setRAMArea(ctrl controller, opts *Opts, x, y, w, h int) {
	ctrl.scope(func(err error) error { return &SetRAMAreaError{Err: err} }, func() {
		y = opts.Height - y - h
		xEnd := x + w - 1
		yEnd := y + h - 1

		ctrl.sendCommand(DataEntryMode)
		ctrl.sendData([]byte{dataEntryXIncYDec})

		ctrl.sendCommand(SetRAMXRange)
		ctrl.sendData([]byte{lo(x), hi(x), lo(xEnd), hi(xEnd)})

		ctrl.sendCommand(SetRAMYRange)
		ctrl.sendData([]byte{lo(yEnd), hi(yEnd), lo(y), hi(y)})

		ctrl.sendCommand(SetRAMXCounter)
		ctrl.sendData([]byte{lo(x), hi(x)})

		ctrl.sendCommand(SetRAMYCounter)
		ctrl.sendData([]byte{lo(yEnd), hi(yEnd)})
	})
}

func initController(ctrl controller, opts *Opts) {
	ctrl.scope(func(err error) error { return &InitializeControllerError{Err: err} }, func() {
		ctrl.sendCommand(SoftReset)
		ctrl.waitUntilIdle(opts.InitTimeout)

		ctrl.sendCommand(TempSensorControl)
		ctrl.sendData([]byte{tempSensorInternal})

		ctrl.sendCommand(BoosterSoftStart)
		ctrl.sendData(opts.Booster)

		ctrl.sendCommand(DriverOutputControl)
		ctrl.sendData([]byte{lo(opts.Height - 1), hi(opts.Height - 1), driverScanDirection})

		ctrl.sendCommand(BorderWaveformControl)
		ctrl.sendData([]byte{borderWaveform})

		setRAMArea(ctrl, opts, 0, 0, opts.Width, opts.Height)

		// Clear both planes.
		ctrl.sendCommand(AutoWriteRAMBW)
		ctrl.sendData([]byte{autoWritePattern})
		ctrl.waitUntilIdle(opts.InitTimeout)

		ctrl.sendCommand(AutoWriteRAMRed)
		ctrl.sendData([]byte{autoWritePattern})
		ctrl.waitUntilIdle(opts.InitTimeout)
	})
}

// displayMode returns the DisplayUpdateControl2 byte.
func displayMode(mode RefreshMode, st panelState, turnOff bool) byte {
	var flags byte
	if !st.screenOn {
		flags |= updateClockOn | updateAnalogOn
	}
	if turnOff {
		flags |= updateAnalogOff | updateClockOff
	}
	switch mode {
	case Fast:
		if st.customLUT {
			flags |= updateMode2 | updateDisplay
		} else {
			flags |= updateLoadLUT | updateMode2 | updateDisplay
		}
	case Full:
		flags |= updateLoadTemperature | updateLoadLUT | updateDisplay
	case HalfRefresh:
		flags |= updateClockOn | updateAnalogOn | updateLoadLUT | updateDisplay
	}
	return flags
}

// refresh triggers an update of the panel from RAM and returns the power
// state the controller is left in.
func refresh(ctrl controller, opts *Opts, mode RefreshMode, st panelState, turnOff bool) panelState {
	ctrl.scope(func(err error) error { return &RefreshError{Mode: mode, Err: err} }, func() {
		cm := BypassRed
		if mode == Fast {
			cm = Normal
		}
		ctrl.sendCommand(DisplayUpdateControl1)
		ctrl.sendData([]byte{byte(cm), 0x00})

		if mode == HalfRefresh {
			ctrl.sendCommand(WriteTemperature)
			ctrl.sendData([]byte{fastTemperature})
		}

		ctrl.sendCommand(DisplayUpdateControl2)
		ctrl.sendData([]byte{displayMode(mode, st, turnOff)})
		ctrl.sendCommand(MasterActivation)
		ctrl.waitUntilIdle(opts.RefreshTimeout)
	})
	st.screenOn = !turnOff
	return st
}

// effectiveMode is the mode actually used by displayImage. A powered down
// controller can only leave that state through HalfRefresh.
func effectiveMode(mode RefreshMode, st panelState) RefreshMode {
	if !st.screenOn {
		return HalfRefresh
	}
	return mode
}

// displayImage writes buf to the RAM planes used by mode and refreshes the
// panel. buf holds one full frame.
func displayImage(ctrl controller, opts *Opts, mode RefreshMode, buf []byte, st panelState) panelState {
	mode = effectiveMode(mode, st)
	ctrl.scope(func(err error) error { return &DisplayError{Mode: mode, Err: err} }, func() {
		setRAMArea(ctrl, opts, 0, 0, opts.Width, opts.Height)

		ctrl.sendCommand(WriteRAMBW)
		ctrl.sendData(buf)

		if mode != Fast {
			ctrl.sendCommand(WriteRAMRed)
			ctrl.sendData(buf)
		}

		st = refresh(ctrl, opts, mode, st, false)
	})
	return st
}

func deepSleepError(err error) error {
	return &EnterDeepSleepError{Err: err}
}

// powerDown switches off the analog rails and the oscillator.
func powerDown(ctrl controller, opts *Opts) {
	ctrl.scope(deepSleepError, func() {
		ctrl.sendCommand(DisplayUpdateControl1)
		ctrl.sendData([]byte{byte(BypassRed)})

		ctrl.sendCommand(DisplayUpdateControl2)
		ctrl.sendData([]byte{updateAnalogOff | updateClockOff})
		ctrl.waitUntilIdle(opts.RefreshTimeout)
	})
}

// deepSleep stops the controller. Only a hardware reset wakes it up again.
func deepSleep(ctrl controller) {
	ctrl.scope(deepSleepError, func() {
		ctrl.sendCommand(DeepSleep)
		ctrl.sendData([]byte{deepSleepEnter})
	})
}
