// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package analogkeys

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/xteink/internal/log"
)

// Ladder holds the upper voltage bound of each button in millivolts, in
// descending order. The last entry is the lower bound of the last button.
type Ladder []int

// Thresholds measured on the X4 board, halfway between the recorded levels.
var (
	// Ladder1 has four buttons. Recorded levels: 3087, 2629, 2013, 1117, 4.
	Ladder1 = Ladder{2850, 2300, 1550, 550, 0}
	// Ladder2 has two buttons. Recorded levels: 3087, 1670, 4.
	Ladder2 = Ladder{2350, 850, 0}
)

// Buttons returns the number of buttons on the ladder.
func (l Ladder) Buttons() int {
	if len(l) == 0 {
		return 0
	}
	return len(l) - 1
}

// Classify returns the button whose range contains mv. Button i covers
// (l[i+1], l[i]]. A level above the first bound means no button is pressed.
func Classify(mv int, l Ladder) (int, bool) {
	for i := 0; i < l.Buttons(); i++ {
		if l[i+1] < mv && mv <= l[i] {
			return i, true
		}
	}
	return 0, false
}

// Key identifies a pressed button.
type Key struct {
	// Ladder is 1 or 2.
	Ladder int
	// Button is the index on the ladder, starting at 0.
	Button int
}

func (k Key) String() string {
	return fmt.Sprintf("%d.%d", k.Ladder, k.Button)
}

// Reading is the result of one Poll.
type Reading struct {
	// Battery is the cell voltage, with the divider already accounted for.
	Battery physic.ElectricPotential
	// Percent is the charge estimate in 0-100.
	Percent int
	// Pressed lists the buttons held down, ladder 1 first.
	Pressed []Key
}

func (r *Reading) String() string {
	keys := make([]string, 0, len(r.Pressed))
	for _, k := range r.Pressed {
		keys = append(keys, k.String())
	}
	return fmt.Sprintf("battery=%s (%d%%) keys=[%s]", r.Battery, r.Percent, strings.Join(keys, " "))
}

// Opts configures the Reader.
type Opts struct {
	// Divider is the ratio of the resistor divider in front of the battery
	// input. 0 means 2.
	Divider int
	// Empty and Full bound the cell voltage used for the percent estimate.
	// Zero values mean 3.3V and 4.2V.
	Empty, Full physic.ElectricPotential
}

// DefaultOpts matches a single Li-ion cell behind a 1:2 divider.
var DefaultOpts = Opts{
	Divider: 2,
	Empty:   3300 * physic.MilliVolt,
	Full:    4200 * physic.MilliVolt,
}

// Reader samples the battery input and the two button ladders.
type Reader struct {
	battery analog.PinADC
	ladder1 analog.PinADC
	ladder2 analog.PinADC
	opts    Opts
}

// New returns a Reader over the three analog inputs.
func New(battery, ladder1, ladder2 analog.PinADC, opts *Opts) (*Reader, error) {
	if battery == nil || ladder1 == nil || ladder2 == nil {
		return nil, errors.New("analogkeys: all three inputs are required")
	}
	o := *opts
	if o.Divider <= 0 {
		o.Divider = DefaultOpts.Divider
	}
	if o.Empty == 0 {
		o.Empty = DefaultOpts.Empty
	}
	if o.Full == 0 {
		o.Full = DefaultOpts.Full
	}
	if o.Full <= o.Empty {
		return nil, fmt.Errorf("analogkeys: full level %s must be above empty level %s", o.Full, o.Empty)
	}
	return &Reader{battery: battery, ladder1: ladder1, ladder2: ladder2, opts: o}, nil
}

// String implements conn.Resource.
func (r *Reader) String() string {
	return fmt.Sprintf("analogkeys{%s, %s, %s}", r.battery, r.ladder1, r.ladder2)
}

// Halt implements conn.Resource.
func (r *Reader) Halt() error {
	return errors.Join(r.battery.Halt(), r.ladder1.Halt(), r.ladder2.Halt())
}

// Poll reads all three inputs once.
func (r *Reader) Poll() (Reading, error) {
	var out Reading
	bat, err := read(r.battery)
	if err != nil {
		return out, err
	}
	l1, err := read(r.ladder1)
	if err != nil {
		return out, err
	}
	l2, err := read(r.ladder2)
	if err != nil {
		return out, err
	}

	out.Battery = bat * physic.ElectricPotential(r.opts.Divider)
	out.Percent = percent(out.Battery, r.opts.Empty, r.opts.Full)
	if b, ok := Classify(millivolts(l1), Ladder1); ok {
		out.Pressed = append(out.Pressed, Key{Ladder: 1, Button: b})
	}
	if b, ok := Classify(millivolts(l2), Ladder2); ok {
		out.Pressed = append(out.Pressed, Key{Ladder: 2, Button: b})
	}
	log.Debug("analogkeys: poll", "battery", out.Battery, "ladder1", l1, "ladder2", l2, "pressed", len(out.Pressed))
	return out, nil
}

func read(p analog.PinADC) (physic.ElectricPotential, error) {
	s, err := p.Read()
	if err != nil {
		return 0, fmt.Errorf("analogkeys: reading %s: %w", p, err)
	}
	return s.V, nil
}

func millivolts(v physic.ElectricPotential) int {
	return int(v / physic.MilliVolt)
}

func percent(v, empty, full physic.ElectricPotential) int {
	switch {
	case v <= empty:
		return 0
	case v >= full:
		return 100
	}
	return int((v - empty) * 100 / (full - empty))
}

var _ conn.Resource = &Reader{}
