// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ssd1677

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/xteink/internal/log"
	"github.com/GermanBionicSystems/xteink/ssd1677/frame"
)

// busyPoll bounds a single wait for a busy edge, so a missed edge only delays
// the wait.
const busyPoll = 100 * time.Millisecond

// defaultMaxTxSize is used when the link does not report a limit.
const defaultMaxTxSize = 4096

// Opts describes the panel and the driver timing.
type Opts struct {
	// Width is the number of source lines. It must be a multiple of 8.
	Width int
	// Height is the number of gate lines.
	Height int

	// ScreenOn is the power state assumed before the first refresh. Panels
	// that come out of reset with the rails up can set it to skip the forced
	// HalfRefresh.
	ScreenOn bool

	// InitTimeout bounds each busy wait of the initialization sequence.
	InitTimeout time.Duration
	// RefreshTimeout bounds the busy wait after a refresh or power down.
	RefreshTimeout time.Duration

	// Booster holds the six BoosterSoftStart bytes tuned for the panel.
	Booster []byte

	// Mode is the refresh mode used by Draw.
	Mode RefreshMode

	// Clock drives reset timing and busy timeouts. Nil means the real clock.
	Clock clockwork.Clock
}

// GDEQ0426T82 is the Good Display 4.26" 800x480 panel.
var GDEQ0426T82 = Opts{
	Width:          800,
	Height:         480,
	InitTimeout:    10 * time.Second,
	RefreshTimeout: 10 * time.Second,
	Booster:        []byte{0xAE, 0xC7, 0xC3, 0xC0, 0xC0, 0x40},
	Mode:           HalfRefresh,
}

// Size returns the number of bytes in one frame.
func (o *Opts) Size() int {
	return o.Width / 8 * o.Height
}

// Dev is a handle to an SSD1677 controller.
//
// Dev is not safe for concurrent use.
type Dev struct {
	c conn.Conn

	dc   gpio.PinOut
	rst  gpio.PinOut
	busy gpio.PinIn

	opts  Opts
	clock clockwork.Clock

	state  panelState
	asleep bool

	buffer *frame.Frame
}

// New returns a handle to the controller reachable through c. It configures
// the pins but does not talk to the controller. Call Reset and Init, or use
// Initialize.
//
// c may be a *sharedspi.Device; multi-chunk writes are then issued inside a
// single chip select transaction.
func New(c conn.Conn, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	o := *opts
	if o.Width <= 0 || o.Height <= 0 || o.Width%8 != 0 {
		return nil, &CreateError{Err: fmt.Errorf("invalid panel size %dx%d", o.Width, o.Height)}
	}
	if len(o.Booster) != 6 {
		return nil, &CreateError{Err: fmt.Errorf("booster needs 6 bytes, got %d", len(o.Booster))}
	}
	if o.InitTimeout <= 0 {
		o.InitTimeout = GDEQ0426T82.InitTimeout
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = GDEQ0426T82.RefreshTimeout
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}

	buf, err := frame.New(&frame.Opts{Width: o.Width, Height: o.Height})
	if err != nil {
		return nil, &CreateError{Err: err}
	}

	if err := rst.Out(gpio.Low); err != nil {
		return nil, &CreateError{Err: err}
	}
	if err := dc.Out(gpio.High); err != nil {
		return nil, &CreateError{Err: err}
	}
	// Busy floats while the controller is unpowered.
	if err := busy.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return nil, &CreateError{Err: err}
	}

	return &Dev{
		c:      c,
		dc:     dc,
		rst:    rst,
		busy:   busy,
		opts:   o,
		clock:  o.Clock,
		state:  panelState{screenOn: o.ScreenOn},
		buffer: buf,
	}, nil
}

// NewSPI connects p in mode 0 at 40MHz and returns a handle using it.
func NewSPI(p spi.Port, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(40*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, &CreateError{Err: err}
	}
	return New(c, dc, rst, busy, opts)
}

// Initialize creates the handle, resets the controller and runs the power-on
// sequence.
func Initialize(c conn.Conn, dc, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Dev, error) {
	d, err := New(c, dc, rst, busy, opts)
	if err != nil {
		return nil, &InitializationError{Err: err}
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Init resets the controller and runs the power-on sequence. It is also the
// way to wake the controller after EnterDeepSleep.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return &InitializationError{Err: err}
	}
	eh := errorHandler{d: d}
	initController(&eh, &d.opts)
	if eh.err != nil {
		log.Error("ssd1677: initialization failed", eh.err)
		return &InitializationError{Err: eh.err}
	}
	log.Debug("ssd1677: initialized", "screen_on", d.state.screenOn)
	return nil
}

// Reset pulses the reset line. The timings are mandated by the panel. The
// controller comes back with its power-on defaults, so the tracked power state
// starts over from Opts.ScreenOn.
func (d *Dev) Reset() error {
	eh := errorHandler{d: d}

	eh.rstOut(gpio.High)
	eh.sleep(20 * time.Millisecond)
	eh.rstOut(gpio.Low)
	eh.sleep(2 * time.Millisecond)
	eh.rstOut(gpio.High)
	eh.sleep(20 * time.Millisecond)

	if eh.err == nil {
		d.state = panelState{screenOn: d.opts.ScreenOn}
		d.asleep = false
	}
	return eh.err
}

// SetRAMArea selects the RAM window written by the next image data, in
// controller coordinates.
func (d *Dev) SetRAMArea(x, y, w, h int) error {
	if d.asleep {
		return &SetRAMAreaError{Err: ErrAsleep}
	}
	if err := checkWindow(&d.opts, x, y, w, h); err != nil {
		return &SetRAMAreaError{Err: err}
	}
	eh := errorHandler{d: d}
	setRAMArea(&eh, &d.opts, x, y, w, h)
	return eh.err
}

// Display writes buf, a full frame in controller RAM layout such as
// frame.Frame.Bytes(), and refreshes the panel.
//
// When the screen is off mode is replaced by HalfRefresh.
func (d *Dev) Display(mode RefreshMode, buf []byte) error {
	if d.asleep {
		return &DisplayError{Mode: mode, Err: ErrAsleep}
	}
	if len(buf) != d.opts.Size() {
		return &DisplayError{Mode: mode, Err: fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(buf), d.opts.Size())}
	}
	eh := errorHandler{d: d}
	next := displayImage(&eh, &d.opts, mode, buf, d.state)
	if eh.err == nil || isTimeout(eh.err) {
		d.state = next
	}
	if eh.err != nil {
		log.Error("ssd1677: display failed", eh.err, "mode", mode)
	}
	return eh.err
}

// Refresh updates the panel from the content already in RAM. With turnOff the
// analog rails and the oscillator are switched off once the update is done.
func (d *Dev) Refresh(mode RefreshMode, turnOff bool) error {
	if d.asleep {
		return &RefreshError{Mode: mode, Err: ErrAsleep}
	}
	eh := errorHandler{d: d}
	next := refresh(&eh, &d.opts, mode, d.state, turnOff)
	if eh.err == nil || isTimeout(eh.err) {
		d.state = next
	}
	return eh.err
}

// EnterDeepSleep powers the panel down if needed and puts the controller to
// sleep. Only Init, which pulses the reset line, brings it back.
func (d *Dev) EnterDeepSleep() error {
	if d.asleep {
		return &EnterDeepSleepError{Err: ErrAsleep}
	}
	eh := errorHandler{d: d}
	if d.state.screenOn {
		powerDown(&eh, &d.opts)
		if eh.err != nil && !isTimeout(eh.err) {
			return eh.err
		}
		// The power down commands were delivered.
		d.state.screenOn = false
		if eh.err != nil {
			return eh.err
		}
	}
	deepSleep(&eh)
	if eh.err != nil {
		return eh.err
	}
	d.asleep = true
	log.Debug("ssd1677: entered deep sleep")
	return nil
}

// ScreenOn reports whether the driver believes the analog rails are up.
func (d *Dev) ScreenOn() bool {
	return d.state.screenOn
}

// Asleep reports whether the controller was put into deep sleep.
func (d *Dev) Asleep() bool {
	return d.asleep
}

// SetRefreshMode changes the mode used by Draw.
func (d *Dev) SetRefreshMode(mode RefreshMode) {
	d.opts.Mode = mode
}

// Frame returns the image buffer used by Draw. Pixels set on it are shown by
// the next Draw or by Display(mode, d.Frame().Bytes()).
func (d *Dev) Frame() *frame.Frame {
	return d.buffer
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer. The panel is used in portrait
// orientation.
func (d *Dev) Bounds() image.Rectangle {
	return d.buffer.Bounds()
}

// Draw implements display.Drawer. The area is rendered into the frame buffer
// and the whole frame is displayed using the configured refresh mode.
func (d *Dev) Draw(dstRect image.Rectangle, src image.Image, srcPts image.Point) error {
	draw.Draw(d.buffer, dstRect.Intersect(d.Bounds()), src, srcPts, draw.Src)
	return d.Display(d.opts.Mode, d.buffer.Bytes())
}

// Halt implements conn.Resource. It puts the controller into deep sleep.
func (d *Dev) Halt() error {
	if d.asleep {
		return nil
	}
	return d.EnterDeepSleep()
}

// String implements conn.Resource.
func (d *Dev) String() string {
	return fmt.Sprintf("ssd1677.Dev{%s, %s, Width: %d, Height: %d}", d.c, d.dc, d.Bounds().Dx(), d.Bounds().Dy())
}

func (d *Dev) sendCommand(cmd Command) error {
	log.Debug("ssd1677: command", "cmd", cmd)
	if err := d.dc.Out(gpio.Low); err != nil {
		return &SendCommandError{Cmd: cmd, Err: err}
	}
	if err := d.c.Tx([]byte{byte(cmd)}, nil); err != nil {
		return &SendCommandError{Cmd: cmd, Err: err}
	}
	return nil
}

func (d *Dev) sendData(data []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return &SendDataError{Len: len(data), Err: err}
	}
	if err := d.write(data); err != nil {
		return &SendDataError{Len: len(data), Err: err}
	}
	return nil
}

// transactor is implemented by links that can hold the chip selected across
// several writes, like sharedspi.Device.
type transactor interface {
	Transact(fn func(c conn.Conn) error) error
}

// write sends data in chunks no larger than the link accepts.
func (d *Dev) write(data []byte) error {
	limit := defaultMaxTxSize
	if l, ok := d.c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		limit = l.MaxTxSize()
	}
	if len(data) <= limit {
		return d.c.Tx(data, nil)
	}
	chunks := func(c conn.Conn) error {
		for b := data; len(b) > 0; {
			n := len(b)
			if n > limit {
				n = limit
			}
			if err := c.Tx(b[:n], nil); err != nil {
				return err
			}
			b = b[n:]
		}
		return nil
	}
	if t, ok := d.c.(transactor); ok {
		return t.Transact(chunks)
	}
	return chunks(d.c)
}

// waitForIdle returns once the busy line is low or fails after timeout.
func (d *Dev) waitForIdle(timeout time.Duration) error {
	start := d.clock.Now()
	for d.busy.Read() == gpio.High {
		left := timeout - d.clock.Since(start)
		if left <= 0 {
			return &WaitForBusyTimeoutError{Timeout: timeout}
		}
		if left > busyPoll {
			left = busyPoll
		}
		d.busy.WaitForEdge(left)
	}
	log.Debug("ssd1677: idle", "waited", d.clock.Since(start))
	return nil
}

var _ display.Drawer = &Dev{}
