// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1677

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// errorHandler runs a command sequence against the device and keeps the first
// error. Every step after a failure is skipped.
type errorHandler struct {
	d   *Dev
	err error
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.rst.Out(l)
}

func (eh *errorHandler) sleep(d time.Duration) {
	if eh.err != nil {
		return
	}
	eh.d.clock.Sleep(d)
}

func (eh *errorHandler) sendCommand(cmd Command) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.sendCommand(cmd)
}

func (eh *errorHandler) sendData(data []byte) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.sendData(data)
}

func (eh *errorHandler) waitUntilIdle(timeout time.Duration) {
	if eh.err != nil {
		return
	}
	eh.err = eh.d.waitForIdle(timeout)
}

func (eh *errorHandler) scope(wrap func(error) error, fn func()) {
	if eh.err != nil {
		return
	}
	fn()
	if eh.err != nil {
		eh.err = wrap(eh.err)
	}
}
