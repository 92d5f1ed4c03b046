// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen2d implements a display.Drawer that previews e-paper frames
// in a terminal.
//
// Useful to iterate on a layout without waiting for the panel refresh.
package screen2d

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/display"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/GermanBionicSystems/xteink/ssd1677/frame"
)

// ColorMode selects how cells are written.
type ColorMode int

const (
	// ColorAuto uses ANSI colors when the output is a terminal.
	ColorAuto ColorMode = iota
	// ColorAlways always uses ANSI colors.
	ColorAlways
	// ColorNever writes '#' for inked cells and '.' for blank ones.
	ColorNever
)

// Opts represents the options available for this display.
type Opts struct {
	// Panel is the emulated panel. Zero means frame.GDEQ0426T82.
	Panel frame.Opts
	// Scale is the number of pixels per terminal column. A cell covers twice
	// as many rows since terminal characters are about twice as tall as wide.
	// Zero means 8.
	Scale int
	// Palette is used with colors. Nil means ansi256.Default.
	Palette *ansi256.Palette
	// Out receives the preview. Nil means stdout.
	Out io.Writer
	// Color selects between ANSI colors and plain ASCII.
	Color ColorMode
}

// Dev is an e-paper panel emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	color   bool
	scale   int
	palette ansi256.Palette

	f   *frame.Frame
	buf bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) (*Dev, error) {
	panel := opts.Panel
	if panel.Width == 0 && panel.Height == 0 {
		panel = frame.GDEQ0426T82
	}
	f, err := frame.New(&panel)
	if err != nil {
		return nil, err
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 8
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d := &Dev{scale: scale, palette: *p, f: f}

	w := opts.Out
	tty := false
	if w == nil {
		tty = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		w = colorable.NewColorableStdout()
	} else if file, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(file.Fd())
		w = colorable.NewColorable(file)
	}
	d.w = w
	switch opts.Color {
	case ColorAlways:
		d.color = true
	case ColorNever:
		d.color = false
	default:
		d.color = tty
	}
	return d, nil
}

func (d *Dev) String() string {
	return "Screen2D"
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	if !d.color {
		return nil
	}
	_, err := io.WriteString(d.w, "\033[0m")
	return err
}

// Write accepts a full frame in controller RAM layout, as passed to
// ssd1677.Dev.Display, and previews it.
func (d *Dev) Write(buf []byte) (int, error) {
	o := d.f.Opts()
	f, err := frame.FromBytes(&o, buf)
	if err != nil {
		return 0, err
	}
	d.f = f
	if err := d.refresh(); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Frame returns the emulated frame buffer.
func (d *Dev) Frame() *frame.Frame {
	return d.f
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return image1bit.BitModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.f.Bounds()
}

// Draw implements display.Drawer.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	if r.Empty() {
		return errors.New("screen2d: nothing to draw")
	}
	draw.Draw(d.f, r, src, sp, draw.Src)
	return d.refresh()
}

var (
	ink   = color.NRGBA{0, 0, 0, 255}
	blank = color.NRGBA{255, 255, 255, 255}
)

func (d *Dev) refresh() error {
	d.buf.Reset()
	b := d.f.Bounds()
	cw, ch := d.scale, 2*d.scale
	for y := b.Min.Y; y < b.Max.Y; y += ch {
		for x := b.Min.X; x < b.Max.X; x += cw {
			inked := d.inked(image.Rect(x, y, x+cw, y+ch).Intersect(b))
			switch {
			case d.color && inked:
				_, _ = d.buf.WriteString(d.palette.Block(ink))
			case d.color:
				_, _ = d.buf.WriteString(d.palette.Block(blank))
			case inked:
				_ = d.buf.WriteByte('#')
			default:
				_ = d.buf.WriteByte('.')
			}
		}
		if d.color {
			_, _ = d.buf.WriteString("\033[0m")
		}
		_ = d.buf.WriteByte('\n')
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// inked reports whether at least half of the pixels in r carry ink.
func (d *Dev) inked(r image.Rectangle) bool {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if d.f.ColorAt(x, y) == frame.On {
				n++
			}
		}
	}
	return 2*n >= r.Dx()*r.Dy()
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
