// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharedspi

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// ErrDuplicateCS is returned when a chip select pin is registered twice.
var ErrDuplicateCS = errors.New("sharedspi: chip select already in use")

// Bus serializes access to one physical connection shared by several chips.
//
// It is safe for concurrent use.
type Bus struct {
	mu  sync.Mutex
	c   conn.Conn
	css []gpio.PinOut
}

// New wraps an already connected link. The link must not drive any chip
// select line by itself.
func New(c conn.Conn) *Bus {
	return &Bus{c: c}
}

// Open connects p at frequency f with 8 bits words. Chip select lines are
// driven by the Bus, so the port is connected with spi.NoCS.
func Open(p spi.Port, f physic.Frequency, mode spi.Mode) (*Bus, error) {
	c, err := p.Connect(f, mode|spi.NoCS, 8)
	if err != nil {
		return nil, fmt.Errorf("sharedspi: failed to configure bus: %w", err)
	}
	return New(c), nil
}

func (b *Bus) String() string {
	return fmt.Sprintf("sharedspi.Bus{%s}", b.c)
}

// Device returns a handle for the chip selected by cs. cs is driven high
// (inactive) before Device returns.
func (b *Bus) Device(cs gpio.PinOut) (*Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.css {
		if p == cs {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCS, cs)
		}
	}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("sharedspi: failed to release %s: %w", cs, err)
	}
	b.css = append(b.css, cs)
	return &Device{b: b, cs: cs}, nil
}

// Device is one chip on a shared Bus. It implements conn.Conn; every Tx is a
// complete chip select transaction.
type Device struct {
	b  *Bus
	cs gpio.PinOut
}

func (d *Device) String() string {
	return fmt.Sprintf("%s/%s", d.b.c, d.cs)
}

// Duplex implements conn.Conn.
func (d *Device) Duplex() conn.Duplex {
	return d.b.c.Duplex()
}

// MaxTxSize implements conn.Limits. It returns 0 when the underlying link
// reports no limit.
func (d *Device) MaxTxSize() int {
	if l, ok := d.b.c.(conn.Limits); ok {
		return l.MaxTxSize()
	}
	return 0
}

// Tx implements conn.Conn.
func (d *Device) Tx(w, r []byte) error {
	return d.Transact(func(c conn.Conn) error {
		return c.Tx(w, r)
	})
}

// Transact runs fn while holding the bus with the chip selected. The chip
// select line is released even when fn fails.
func (d *Device) Transact(fn func(c conn.Conn) error) error {
	d.b.mu.Lock()
	defer d.b.mu.Unlock()
	if err := d.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("sharedspi: failed to select %s: %w", d.cs, err)
	}
	err := fn(d.b.c)
	if err2 := d.cs.Out(gpio.High); err2 != nil && err == nil {
		err = fmt.Errorf("sharedspi: failed to release %s: %w", d.cs, err2)
	}
	return err
}

var _ conn.Conn = &Device{}
var _ conn.Limits = &Device{}
