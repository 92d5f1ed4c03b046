// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1677

import "fmt"

// Command is a controller opcode.
type Command byte

// Commands used by this driver.
const (
	DriverOutputControl   Command = 0x01
	BoosterSoftStart      Command = 0x0C
	DeepSleep             Command = 0x10
	DataEntryMode         Command = 0x11
	SoftReset             Command = 0x12
	TempSensorControl     Command = 0x18
	WriteTemperature      Command = 0x1A
	MasterActivation      Command = 0x20
	DisplayUpdateControl1 Command = 0x21
	DisplayUpdateControl2 Command = 0x22
	WriteRAMBW            Command = 0x24
	WriteRAMRed           Command = 0x26
	BorderWaveformControl Command = 0x3C
	SetRAMXRange          Command = 0x44
	SetRAMYRange          Command = 0x45
	AutoWriteRAMBW        Command = 0x46
	AutoWriteRAMRed       Command = 0x47
	SetRAMXCounter        Command = 0x4E
	SetRAMYCounter        Command = 0x4F
)

var commandNames = map[Command]string{
	DriverOutputControl:   "DriverOutputControl",
	BoosterSoftStart:      "BoosterSoftStart",
	DeepSleep:             "DeepSleep",
	DataEntryMode:         "DataEntryMode",
	SoftReset:             "SoftReset",
	TempSensorControl:     "TempSensorControl",
	WriteTemperature:      "WriteTemperature",
	MasterActivation:      "MasterActivation",
	DisplayUpdateControl1: "DisplayUpdateControl1",
	DisplayUpdateControl2: "DisplayUpdateControl2",
	WriteRAMBW:            "WriteRAMBW",
	WriteRAMRed:           "WriteRAMRed",
	BorderWaveformControl: "BorderWaveformControl",
	SetRAMXRange:          "SetRAMXRange",
	SetRAMYRange:          "SetRAMYRange",
	AutoWriteRAMBW:        "AutoWriteRAMBW",
	AutoWriteRAMRed:       "AutoWriteRAMRed",
	SetRAMXCounter:        "SetRAMXCounter",
	SetRAMYCounter:        "SetRAMYCounter",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%#02x)", byte(c))
}

// ControlMode is the RAM comparison byte sent with DisplayUpdateControl1.
type ControlMode byte

const (
	// Normal compares the BW plane against the RED plane.
	Normal ControlMode = 0x00
	// BypassRed treats the RED plane as all zeros.
	BypassRed ControlMode = 0x40
)

// Flags for the DisplayUpdateControl2 command.
const (
	updateClockOff byte = 1 << iota
	updateAnalogOff
	updateDisplay
	updateMode2
	updateLoadLUT
	updateLoadTemperature
	updateAnalogOn
	updateClockOn
)

// Data bytes sent during initialization and refresh.
const (
	// tempSensorInternal selects the on-chip temperature sensor.
	tempSensorInternal byte = 0x80
	// driverScanDirection is the third DriverOutputControl byte.
	driverScanDirection byte = 0x02
	borderWaveform      byte = 0x01
	// dataEntryXIncYDec makes X increment and Y decrement after each byte.
	dataEntryXIncYDec byte = 0x01
	autoWritePattern  byte = 0xF7
	// fastTemperature makes HalfRefresh load the LUT for a hot panel.
	fastTemperature byte = 0x5A
	deepSleepEnter  byte = 0x01
)

// RefreshMode selects how the panel transitions to new content.
type RefreshMode uint8

const (
	// Fast only updates the BW plane with the partial waveform. It needs the
	// screen to be on already.
	Fast RefreshMode = iota
	// Full writes both planes and runs the complete waveform.
	Full
	// HalfRefresh writes both planes and runs the waveform selected for a
	// high temperature, which settles faster.
	HalfRefresh
)

func (m RefreshMode) String() string {
	switch m {
	case Fast:
		return "Fast"
	case Full:
		return "Full"
	case HalfRefresh:
		return "HalfRefresh"
	default:
		return fmt.Sprintf("RefreshMode(%d)", uint8(m))
	}
}
