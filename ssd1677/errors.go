// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1677

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAsleep is returned by protocol calls made after EnterDeepSleep and
	// before the next hardware reset.
	ErrAsleep = errors.New("ssd1677: controller is in deep sleep")
	// ErrWindow is returned for a RAM window that does not fit the panel.
	ErrWindow = errors.New("ssd1677: RAM window outside the panel")
	// ErrBufferSize is returned when an image buffer does not match the panel.
	ErrBufferSize = errors.New("ssd1677: buffer size does not match the panel")
)

// CreateError is returned when the pins or the bus cannot be configured.
type CreateError struct {
	Err error
}

func (e *CreateError) Error() string {
	return "ssd1677: failed to create device: " + e.Err.Error()
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// SendCommandError is returned when a command byte could not be written.
type SendCommandError struct {
	Cmd Command
	Err error
}

func (e *SendCommandError) Error() string {
	return fmt.Sprintf("ssd1677: failed to send command %s: %v", e.Cmd, e.Err)
}

func (e *SendCommandError) Unwrap() error {
	return e.Err
}

// SendDataError is returned when command parameters or image data could not
// be written.
type SendDataError struct {
	Len int
	Err error
}

func (e *SendDataError) Error() string {
	return fmt.Sprintf("ssd1677: failed to send %d data bytes: %v", e.Len, e.Err)
}

func (e *SendDataError) Unwrap() error {
	return e.Err
}

// WaitForBusyTimeoutError is returned when the busy line stayed high for
// longer than Timeout. The controller may still complete the operation.
type WaitForBusyTimeoutError struct {
	Timeout time.Duration
}

func (e *WaitForBusyTimeoutError) Error() string {
	return fmt.Sprintf("ssd1677: controller still busy after %s", e.Timeout)
}

// SetRAMAreaError is returned when the RAM window could not be programmed.
type SetRAMAreaError struct {
	Err error
}

func (e *SetRAMAreaError) Error() string {
	return "ssd1677: failed to set RAM area: " + e.Err.Error()
}

func (e *SetRAMAreaError) Unwrap() error {
	return e.Err
}

// InitializeControllerError is returned when the power-on command sequence
// failed.
type InitializeControllerError struct {
	Err error
}

func (e *InitializeControllerError) Error() string {
	return "ssd1677: failed to initialize controller: " + e.Err.Error()
}

func (e *InitializeControllerError) Unwrap() error {
	return e.Err
}

// InitializationError is returned by Initialize and Init. Err is either a
// *CreateError, a reset pin error or an *InitializeControllerError.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return "ssd1677: initialization failed: " + e.Err.Error()
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// RefreshError is returned when a refresh could not be triggered or did not
// complete in time.
type RefreshError struct {
	Mode RefreshMode
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("ssd1677: %s refresh failed: %v", e.Mode, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// DisplayError is returned by Display and Draw.
type DisplayError struct {
	Mode RefreshMode
	Err  error
}

func (e *DisplayError) Error() string {
	return fmt.Sprintf("ssd1677: failed to display image (%s): %v", e.Mode, e.Err)
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

// EnterDeepSleepError is returned when the controller could not be powered
// down or put to sleep.
type EnterDeepSleepError struct {
	Err error
}

func (e *EnterDeepSleepError) Error() string {
	return "ssd1677: failed to enter deep sleep: " + e.Err.Error()
}

func (e *EnterDeepSleepError) Unwrap() error {
	return e.Err
}

// isTimeout reports whether err only tells that the final busy wait expired,
// meaning every command of the sequence was delivered.
func isTimeout(err error) bool {
	var t *WaitForBusyTimeoutError
	return errors.As(err, &t)
}
