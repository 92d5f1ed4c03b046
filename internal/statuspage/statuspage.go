// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package statuspage renders the idle screen of the reader: the time, the
// battery gauge and the last buttons pressed.
package statuspage

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/xteink/analogkeys"
)

// Status is the content of the page.
type Status struct {
	Time time.Time
	// Battery is the cell voltage. Zero hides the voltage label.
	Battery physic.ElectricPotential
	// Percent is the charge estimate drawn as a gauge, in 0-100.
	Percent int
	Pressed []analogkeys.Key
	// Footer is an optional free form line, e.g. the refresh mode.
	Footer string
}

const margin = 40

// Layout of the battery gauge.
const (
	gaugeTop    = 200
	gaugeHeight = 48
)

// Renderer draws status pages of a fixed size.
type Renderer struct {
	w, h  int
	large font.Face
	small font.Face
}

// New returns a Renderer for a canvas of the given bounds, usually the
// Bounds() of the target display.Drawer.
func New(bounds image.Rectangle) (*Renderer, error) {
	if bounds.Dx() <= 2*margin || bounds.Dy() <= gaugeTop+gaugeHeight+margin {
		return nil, fmt.Errorf("statuspage: canvas %s too small", bounds)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("statuspage: parsing font: %w", err)
	}
	return &Renderer{
		w:     bounds.Dx(),
		h:     bounds.Dy(),
		large: truetype.NewFace(f, &truetype.Options{Size: 72}),
		small: truetype.NewFace(f, &truetype.Options{Size: 28}),
	}, nil
}

// Render returns the page as black on white.
func (r *Renderer) Render(s *Status) image.Image {
	dc := gg.NewContext(r.w, r.h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)

	dc.SetFontFace(r.large)
	dc.DrawStringAnchored(s.Time.Format("15:04"), float64(r.w)/2, 110, 0.5, 0.5)

	r.gauge(dc, s.Percent)

	dc.SetFontFace(r.small)
	y := float64(gaugeTop + gaugeHeight + 60)
	label := fmt.Sprintf("%d%%", clamp(s.Percent))
	if s.Battery != 0 {
		label += "  " + s.Battery.String()
	}
	dc.DrawStringAnchored(label, float64(r.w)/2, y, 0.5, 0.5)

	y += 60
	keys := "none"
	if len(s.Pressed) != 0 {
		names := make([]string, 0, len(s.Pressed))
		for _, k := range s.Pressed {
			names = append(names, k.String())
		}
		keys = strings.Join(names, ", ")
	}
	dc.DrawString("Keys: "+keys, margin, y)

	y += 50
	dc.DrawString(s.Time.Format("Mon 2 Jan 2006"), margin, y)

	if s.Footer != "" {
		dc.DrawStringAnchored(s.Footer, float64(r.w)/2, float64(r.h-margin), 0.5, 0)
	}
	return dc.Image()
}

func (r *Renderer) gauge(dc *gg.Context, percent int) {
	w := float64(r.w - 2*margin)
	dc.SetLineWidth(4)
	dc.DrawRectangle(margin, gaugeTop, w, gaugeHeight)
	dc.Stroke()
	if p := clamp(percent); p > 0 {
		// Leave a white gap inside the outline.
		dc.DrawRectangle(margin+8, gaugeTop+8, (w-16)*float64(p)/100, gaugeHeight-16)
		dc.Fill()
	}
}

func clamp(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
