// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

var (
	// ErrOutOfBounds is returned when a pixel lies outside the logical canvas.
	ErrOutOfBounds = errors.New("frame: pixel out of bounds")
	// ErrSize is returned when a byte slice does not match the frame size.
	ErrSize = errors.New("frame: buffer size mismatch")
	// ErrOrientation is returned for orientations that have no mapping.
	ErrOrientation = errors.New("frame: unsupported orientation")
)

// Orientation selects how logical coordinates map onto the panel.
type Orientation uint8

const (
	// Portrait rotates the panel by 90°: the logical canvas is Height pixels
	// wide and Width pixels tall.
	Portrait Orientation = iota
	// Landscape is reserved. No mapping exists for it yet.
	Landscape
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "Portrait"
	case Landscape:
		return "Landscape"
	default:
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
}

// Opts describes the physical panel in controller RAM coordinates.
type Opts struct {
	// Width is the number of pixels along the source (X) axis. It must be a
	// multiple of 8.
	Width int

	// Height is the number of gate lines.
	Height int

	Orientation Orientation
}

// GDEQ0426T82 is the 4.26" 800x480 panel.
var GDEQ0426T82 = Opts{
	Width:  800,
	Height: 480,
}

// Size returns the number of bytes needed to hold one frame.
func (o *Opts) Size() int {
	return o.Width / 8 * o.Height
}

func (o *Opts) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("frame: invalid size %dx%d", o.Width, o.Height)
	}
	if o.Width%8 != 0 {
		return fmt.Errorf("frame: width %d is not a multiple of 8", o.Width)
	}
	if o.Orientation != Portrait {
		return fmt.Errorf("%w: %s", ErrOrientation, o.Orientation)
	}
	return nil
}

// Color is the ink state of a pixel.
type Color bool

const (
	// Off leaves the pixel blank. The RAM bit is set, which the panel shows
	// as white.
	Off Color = false
	// On inks the pixel. The RAM bit is cleared, which the panel shows as
	// black.
	On Color = true
)

func (c Color) String() string {
	if c {
		return "On"
	}
	return "Off"
}

// Pixel is a single point to plot.
type Pixel struct {
	X, Y int
	C    Color
}

// Frame is a 1 bit per pixel canvas laid out the way the controller RAM
// expects it: rows of Width/8 bytes, most significant bit first.
type Frame struct {
	opts Opts
	buf  []byte
}

// New returns a blank frame: every bit is set.
func New(opts *Opts) (*Frame, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	f := &Frame{opts: *opts, buf: make([]byte, opts.Size())}
	for i := range f.buf {
		f.buf[i] = 0xFF
	}
	return f, nil
}

// FromBytes returns a frame holding a copy of b, which must be exactly
// opts.Size() bytes long.
func FromBytes(opts *Opts, b []byte) (*Frame, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(b) != opts.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrSize, len(b), opts.Size())
	}
	f := &Frame{opts: *opts, buf: make([]byte, len(b))}
	copy(f.buf, b)
	return f, nil
}

// Opts returns the panel description the frame was created with.
func (f *Frame) Opts() Opts {
	return f.opts
}

// Bytes returns the backing storage. The caller must not modify it while the
// frame is in use.
func (f *Frame) Bytes() []byte {
	return f.buf
}

// locate maps a logical portrait point to its byte index and bit mask.
func (f *Frame) locate(x, y int) (int, byte, bool) {
	if x < 0 || y < 0 || x >= f.opts.Height || y >= f.opts.Width {
		return 0, 0, false
	}
	hwX := y
	hwY := f.opts.Height - x - 1
	return hwY*(f.opts.Width/8) + hwX/8, 0x80 >> uint(hwX%8), true
}

// DrawPixel sets the pixel at the logical point (x, y).
//
// The logical canvas is portrait: it is Opts.Height pixels wide and Opts.Width
// pixels tall, so valid points satisfy 0 <= x < Height and 0 <= y < Width. The
// point lands at controller column y and row Height-x-1. Points outside that
// range return ErrOutOfBounds, including ones that would fit a landscape
// Width x Height canvas such as (500, 10).
func (f *Frame) DrawPixel(x, y int, c Color) error {
	i, mask, ok := f.locate(x, y)
	if !ok {
		return fmt.Errorf("%w: (%d, %d) outside %v", ErrOutOfBounds, x, y, f.Bounds())
	}
	if c == Off {
		f.buf[i] |= mask
	} else {
		f.buf[i] &^= mask
	}
	return nil
}

// DrawMany plots pixels in order and stops at the first one that fails.
// Pixels plotted before the failure are kept.
func (f *Frame) DrawMany(pixels []Pixel) error {
	for _, p := range pixels {
		if err := f.DrawPixel(p.X, p.Y, p.C); err != nil {
			return err
		}
	}
	return nil
}

// Fill sets every pixel to c.
func (f *Frame) Fill(c Color) {
	v := byte(0xFF)
	if c == On {
		v = 0x00
	}
	for i := range f.buf {
		f.buf[i] = v
	}
}

// ColorAt returns the pixel at the logical point (x, y). Points outside the
// canvas read as Off.
func (f *Frame) ColorAt(x, y int) Color {
	i, mask, ok := f.locate(x, y)
	if !ok {
		return Off
	}
	return Color(f.buf[i]&mask == 0)
}

// ColorModel implements image.Image. image1bit.On is white, so it maps to
// Off.
func (f *Frame) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements image.Image. It is the logical portrait canvas.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.opts.Height, f.opts.Width)
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return image1bit.Bit(f.ColorAt(x, y) == Off)
}

// Set implements draw.Image. Points outside the canvas are ignored.
func (f *Frame) Set(x, y int, c color.Color) {
	white := image1bit.BitModel.Convert(c).(image1bit.Bit)
	_ = f.DrawPixel(x, y, Color(!white))
}

var _ draw.Image = &Frame{}
