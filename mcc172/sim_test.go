// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcc172

import (
	"errors"
	"testing"
	"time"
)

func TestSim(t *testing.T) {
	const addr = 3

	var (
		sim = NewSim(addr)
		beg = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
		now = beg
	)
	sim.now = func() time.Time { return now }

	hats, err := sim.List()
	if err != nil {
		t.Fatalf("could not list boards: %+v", err)
	}
	if len(hats) != 1 || hats[0].ID != HatID || hats[0].Address != addr {
		t.Fatalf("invalid board list: %+v", hats)
	}

	if err := sim.IEPEConfigWrite(addr, 0, true); !errors.Is(err, ResourceUnavail) {
		t.Fatalf("expected an error on closed board, got=%+v", err)
	}
	if err := sim.Open(addr + 1); !errors.Is(err, InvalidDevice) {
		t.Fatalf("expected an invalid-device error, got=%+v", err)
	}

	err = sim.Open(addr)
	if err != nil {
		t.Fatalf("could not open board: %+v", err)
	}

	err = sim.IEPEConfigWrite(addr, 1, true)
	if err != nil {
		t.Fatalf("could not enable IEPE: %+v", err)
	}
	if !sim.IEPE(1) {
		t.Fatalf("IEPE should be enabled")
	}
	if err := sim.SensitivityWrite(addr, 1, 0); !errors.Is(err, BadParameter) {
		t.Fatalf("expected a bad-parameter error, got=%+v", err)
	}
	err = sim.SensitivityWrite(addr, 1, 100)
	if err != nil {
		t.Fatalf("could not write sensitivity: %+v", err)
	}

	err = sim.ClockConfigWrite(addr, SourceLocal, 10000)
	if err != nil {
		t.Fatalf("could not configure clock: %+v", err)
	}
	for i := 0; i < sim.SyncAfter; i++ {
		clk, err := sim.ClockConfigRead(addr)
		if err != nil {
			t.Fatalf("could not read clock: %+v", err)
		}
		if clk.Synchronized {
			t.Fatalf("clock synchronized too early (read=%d)", i)
		}
	}
	clk, err := sim.ClockConfigRead(addr)
	if err != nil {
		t.Fatalf("could not read clock: %+v", err)
	}
	if !clk.Synchronized {
		t.Fatalf("clock should be synchronized")
	}
	if got, want := clk.SampleRate, 10240.0; got != want {
		t.Fatalf("invalid negotiated rate: got=%v, want=%v", got, want)
	}

	const spc = 2048
	err = sim.ScanStart(addr, Chan0|Chan1, spc, OptsDefault)
	if err != nil {
		t.Fatalf("could not start scan: %+v", err)
	}
	if err := sim.ScanStart(addr, Chan0, spc, OptsDefault); !errors.Is(err, Busy) {
		t.Fatalf("expected a busy error, got=%+v", err)
	}

	buf := make([]float64, 2*spc)
	now = beg.Add(100 * time.Millisecond)
	st, n, err := sim.ScanRead(addr, ReadAll, time.Second, buf)
	if err != nil {
		t.Fatalf("could not read scan: %+v", err)
	}
	if got, want := n, uint32(1024); got != want {
		t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
	}
	if !st.Running() {
		t.Fatalf("scan should be running: %v", st)
	}
	if got, want := buf[1], 1.0/100; got != want {
		t.Fatalf("invalid scaled value on channel 1: got=%v, want=%v", got, want)
	}

	now = beg.Add(time.Second)
	st, n, err = sim.ScanRead(addr, ReadAll, time.Second, buf)
	if err != nil {
		t.Fatalf("could not read scan: %+v", err)
	}
	if got, want := n, uint32(spc-1024); got != want {
		t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
	}
	if st.Running() {
		t.Fatalf("scan should be done: %v", st)
	}

	for _, f := range []func(uint8) error{sim.ScanStop, sim.ScanCleanup, sim.Close} {
		if err := f(addr); err != nil {
			t.Fatalf("could not tear down scan: %+v", err)
		}
	}
}

func TestSimStop(t *testing.T) {
	var (
		sim = NewSim(0)
		beg = time.Now()
		now = beg
	)
	sim.now = func() time.Time { return now }

	_ = sim.Open(0)
	err := sim.ScanStart(0, Chan0, 0, OptsContinuous)
	if err != nil {
		t.Fatalf("could not start continuous scan: %+v", err)
	}

	buf := make([]float64, 100)
	now = beg.Add(time.Second)
	st, n, err := sim.ScanRead(0, ReadAll, time.Second, buf)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if n != 100 || !st.Running() {
		t.Fatalf("invalid read: n=%d, status=%v", n, st)
	}

	err = sim.ScanStop(0)
	if err != nil {
		t.Fatalf("could not stop scan: %+v", err)
	}
	now = beg.Add(2 * time.Second)
	st, n, err = sim.ScanRead(0, ReadAll, time.Second, buf)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if n != 0 || st.Running() {
		t.Fatalf("invalid read after stop: n=%d, status=%v", n, st)
	}
}
