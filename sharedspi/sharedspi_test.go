// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sharedspi

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// probeConn checks on every write that exactly one chip is selected and that
// no other write is in flight.
type probeConn struct {
	conntest.Record

	css      []*gpiotest.Pin
	inFlight int32
	overlaps int32
	badCS    int32
	fail     error
	max      int
}

func (p *probeConn) Tx(w, r []byte) error {
	if atomic.AddInt32(&p.inFlight, 1) != 1 {
		atomic.AddInt32(&p.overlaps, 1)
	}
	defer atomic.AddInt32(&p.inFlight, -1)

	low := 0
	for _, cs := range p.css {
		if cs.Read() == gpio.Low {
			low++
		}
	}
	if low != 1 {
		atomic.AddInt32(&p.badCS, 1)
	}
	runtime.Gosched()
	if p.fail != nil {
		return p.fail
	}
	return p.Record.Tx(w, r)
}

func (p *probeConn) MaxTxSize() int {
	return p.max
}

func newProbe(n int) (*probeConn, []*gpiotest.Pin) {
	css := make([]*gpiotest.Pin, n)
	for i := range css {
		css[i] = &gpiotest.Pin{N: "CS", Num: i, L: gpio.Low}
	}
	return &probeConn{css: css}, css
}

func TestDevice(t *testing.T) {
	p, css := newProbe(2)
	b := New(p)

	for i, cs := range css {
		if _, err := b.Device(cs); err != nil {
			t.Fatalf("Device(%d) failed: %v", i, err)
		}
		if got := cs.Read(); got != gpio.High {
			t.Errorf("Device(%d) left chip select %s, want High", i, got)
		}
	}

	if _, err := b.Device(css[0]); !errors.Is(err, ErrDuplicateCS) {
		t.Errorf("Device(duplicate) = %v, want %v", err, ErrDuplicateCS)
	}
}

func TestTx(t *testing.T) {
	p, css := newProbe(2)
	b := New(p)
	display, err := b.Device(css[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Device(css[1]); err != nil {
		t.Fatal(err)
	}

	if err := display.Tx([]byte{0x12}, nil); err != nil {
		t.Fatalf("Tx() failed: %v", err)
	}
	if diff := cmp.Diff(p.Ops, []conntest.IO{{W: []byte{0x12}}}); diff != "" {
		t.Errorf("Tx() difference (-got +want):\n%s", diff)
	}
	if p.badCS != 0 {
		t.Errorf("Tx() ran with %d wrong chip select states", p.badCS)
	}
	if got := css[0].Read(); got != gpio.High {
		t.Errorf("chip select after Tx() = %s, want High", got)
	}
}

func TestTxErrorReleasesChipSelect(t *testing.T) {
	p, css := newProbe(1)
	p.fail = errors.New("bus fault")
	d, err := New(p).Device(css[0])
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Tx([]byte{1}, nil); !errors.Is(err, p.fail) {
		t.Errorf("Tx() = %v, want %v", err, p.fail)
	}
	if got := css[0].Read(); got != gpio.High {
		t.Errorf("chip select after failed Tx() = %s, want High", got)
	}
}

func TestConcurrentTransactions(t *testing.T) {
	const devices = 4
	const rounds = 50

	p, css := newProbe(devices)
	b := New(p)
	devs := make([]*Device, devices)
	for i, cs := range css {
		d, err := b.Device(cs)
		if err != nil {
			t.Fatal(err)
		}
		devs[i] = d
	}

	var wg sync.WaitGroup
	for i, d := range devs {
		wg.Add(1)
		go func(id byte, d *Device) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				err := d.Transact(func(c conn.Conn) error {
					for k := 0; k < 3; k++ {
						if err := c.Tx([]byte{id}, nil); err != nil {
							return err
						}
					}
					return nil
				})
				if err != nil {
					t.Errorf("Transact() failed: %v", err)
					return
				}
			}
		}(byte(i), d)
	}
	wg.Wait()

	if p.overlaps != 0 {
		t.Errorf("%d writes overlapped", p.overlaps)
	}
	if p.badCS != 0 {
		t.Errorf("%d writes ran without exactly one chip selected", p.badCS)
	}
	if got, want := len(p.Ops), devices*rounds*3; got != want {
		t.Fatalf("got %d writes, want %d", got, want)
	}
	for i := 0; i < len(p.Ops); i += 3 {
		id := p.Ops[i].W[0]
		if p.Ops[i+1].W[0] != id || p.Ops[i+2].W[0] != id {
			t.Fatalf("transaction at write %d was interleaved", i)
		}
	}
	for i, cs := range css {
		if got := cs.Read(); got != gpio.High {
			t.Errorf("chip select %d = %s after all transactions, want High", i, got)
		}
	}
}

func TestMaxTxSize(t *testing.T) {
	p, css := newProbe(1)
	p.max = 4096
	d, err := New(p).Device(css[0])
	if err != nil {
		t.Fatal(err)
	}
	if got := d.MaxTxSize(); got != 4096 {
		t.Errorf("MaxTxSize() = %d, want 4096", got)
	}

	d, err = New(&conntest.Discard{}).Device(&gpiotest.Pin{})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.MaxTxSize(); got != 0 {
		t.Errorf("MaxTxSize() without limits = %d, want 0", got)
	}
}

type fakePort struct {
	mode spi.Mode
	freq physic.Frequency
	err  error
}

func (f *fakePort) String() string { return "fake" }

func (f *fakePort) Connect(freq physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	f.mode = mode
	f.freq = freq
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func TestOpen(t *testing.T) {
	p := &fakePort{}
	if _, err := Open(p, 40*physic.MegaHertz, spi.Mode0); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if p.mode != spi.Mode0|spi.NoCS {
		t.Errorf("Open() connected with mode %s, want %s", p.mode, spi.Mode0|spi.NoCS)
	}
	if p.freq != 40*physic.MegaHertz {
		t.Errorf("Open() connected at %s, want 40MHz", p.freq)
	}

	p = &fakePort{err: errors.New("no such bus")}
	if _, err := Open(p, physic.MegaHertz, spi.Mode0); !errors.Is(err, p.err) {
		t.Errorf("Open() = %v, want %v", err, p.err)
	}
}
