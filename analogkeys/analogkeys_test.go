// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package analogkeys

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

type fakeADC struct {
	gpiotest.Pin
	mv  int
	err error
}

func (f *fakeADC) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{V: 3300 * physic.MilliVolt, Raw: 4095}
}

func (f *fakeADC) Read() (analog.Sample, error) {
	if f.err != nil {
		return analog.Sample{}, f.err
	}
	return analog.Sample{V: physic.ElectricPotential(f.mv) * physic.MilliVolt, Raw: int32(f.mv)}, nil
}

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		name   string
		ladder Ladder
		mv     int
		want   int
		ok     bool
	}{
		{"1/idle", Ladder1, 3087, 0, false},
		{"1/above", Ladder1, 2851, 0, false},
		{"1/0 upper", Ladder1, 2850, 0, true},
		{"1/0 recorded", Ladder1, 2629, 0, true},
		{"1/0 lower", Ladder1, 2300, 0, true},
		{"1/1 upper", Ladder1, 2299, 1, true},
		{"1/1 recorded", Ladder1, 2013, 1, true},
		{"1/2 recorded", Ladder1, 1117, 2, true},
		{"1/2 lower", Ladder1, 550, 2, true},
		{"1/3 upper", Ladder1, 549, 3, true},
		{"1/3 recorded", Ladder1, 4, 3, true},
		{"1/zero", Ladder1, 0, 0, false},
		{"2/idle", Ladder2, 3087, 0, false},
		{"2/0 recorded", Ladder2, 1670, 0, true},
		{"2/0 lower", Ladder2, 850, 0, true},
		{"2/1 upper", Ladder2, 849, 1, true},
		{"2/1 recorded", Ladder2, 4, 1, true},
		{"2/zero", Ladder2, 0, 0, false},
		{"empty ladder", nil, 100, 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.mv, tc.ladder)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Classify(%d) = %d, %t; want %d, %t", tc.mv, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestLadderButtons(t *testing.T) {
	if got := Ladder1.Buttons(); got != 4 {
		t.Errorf("Ladder1.Buttons() = %d, want 4", got)
	}
	if got := Ladder2.Buttons(); got != 2 {
		t.Errorf("Ladder2.Buttons() = %d, want 2", got)
	}
}

func TestPoll(t *testing.T) {
	for _, tc := range []struct {
		name   string
		bat    int
		l1, l2 int
		want   Reading
	}{
		{
			name: "idle full",
			bat:  2100,
			l1:   3087,
			l2:   3087,
			want: Reading{Battery: 4200 * physic.MilliVolt, Percent: 100},
		},
		{
			name: "both ladders",
			bat:  1875,
			l1:   2013,
			l2:   4,
			want: Reading{
				Battery: 3750 * physic.MilliVolt,
				Percent: 50,
				Pressed: []Key{{Ladder: 1, Button: 1}, {Ladder: 2, Button: 1}},
			},
		},
		{
			name: "empty",
			bat:  1500,
			l1:   3087,
			l2:   1670,
			want: Reading{
				Battery: 3000 * physic.MilliVolt,
				Percent: 0,
				Pressed: []Key{{Ladder: 2, Button: 0}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, err := New(&fakeADC{mv: tc.bat}, &fakeADC{mv: tc.l1}, &fakeADC{mv: tc.l2}, &DefaultOpts)
			if err != nil {
				t.Fatal(err)
			}
			got, err := r.Poll()
			if err != nil {
				t.Fatalf("Poll() failed: %v", err)
			}
			if diff := cmp.Diff(got, tc.want, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Poll() difference (-got +want):\n%s", diff)
			}
		})
	}
}

func TestPollError(t *testing.T) {
	errADC := errors.New("adc failed")
	r, err := New(&fakeADC{mv: 2000}, &fakeADC{Pin: gpiotest.Pin{N: "L1"}, err: errADC}, &fakeADC{}, &Opts{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Poll(); !errors.Is(err, errADC) {
		t.Errorf("Poll() = %v, want %v", err, errADC)
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(nil, &fakeADC{}, &fakeADC{}, &DefaultOpts); err == nil {
		t.Error("New() accepted a nil input")
	}
	opts := Opts{Empty: 4 * physic.Volt, Full: 3 * physic.Volt}
	if _, err := New(&fakeADC{}, &fakeADC{}, &fakeADC{}, &opts); err == nil {
		t.Error("New() accepted full below empty")
	}
}

func TestReadingString(t *testing.T) {
	r := Reading{Battery: 3750 * physic.MilliVolt, Percent: 50, Pressed: []Key{{1, 3}, {2, 0}}}
	if got, want := r.String(), "battery=3.750V (50%) keys=[1.3 2.0]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
