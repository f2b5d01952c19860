// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-lpc/vibdaq/mcc172"
)

type fakeRead struct {
	st  mcc172.Status
	n   uint32
	err error
}

// fakeDriver is a scripted board.
type fakeDriver struct {
	hats     []mcc172.HatInfo
	errs     map[string]error // errors returned by each call, by name
	unlocked int              // clock reads reporting an unlocked clock
	reads    []fakeRead

	nch   int
	rate  float64
	nread int
	calls []string
}

func newFakeDriver(reads ...fakeRead) *fakeDriver {
	return &fakeDriver{
		hats: []mcc172.HatInfo{
			{Address: 2, ID: 0x0142, Name: "MCC 118"},
			{Address: 4, ID: mcc172.HatID, Version: 2, Name: "MCC 172"},
		},
		errs:  make(map[string]error),
		reads: reads,
	}
}

func (drv *fakeDriver) call(name string, args ...any) error {
	call := name
	if len(args) > 0 {
		call += fmt.Sprint(args...)
	}
	drv.calls = append(drv.calls, call)
	return drv.errs[name]
}

func (drv *fakeDriver) count(name string) int {
	n := 0
	for _, call := range drv.calls {
		if call == name || strings.HasPrefix(call, name+"[") {
			n++
		}
	}
	return n
}

func (drv *fakeDriver) List() ([]mcc172.HatInfo, error) {
	if err := drv.call("List"); err != nil {
		return nil, err
	}
	return drv.hats, nil
}

func (drv *fakeDriver) Open(addr uint8) error {
	return drv.call("Open")
}

func (drv *fakeDriver) Close(addr uint8) error {
	return drv.call("Close")
}

func (drv *fakeDriver) IEPEConfigWrite(addr, ch uint8, enable bool) error {
	state := "off"
	if enable {
		state = "on"
	}
	return drv.call("IEPE", []string{fmt.Sprintf("ch%d=%s", ch, state)})
}

func (drv *fakeDriver) SensitivityWrite(addr, ch uint8, v float64) error {
	return drv.call("Sensitivity", []string{fmt.Sprintf("ch%d=%g", ch, v)})
}

func (drv *fakeDriver) ClockConfigWrite(addr uint8, src mcc172.ClockSource, rate float64) error {
	drv.rate = rate
	return drv.call("ClockWrite")
}

func (drv *fakeDriver) ClockConfigRead(addr uint8) (mcc172.ClockConfig, error) {
	err := drv.call("ClockRead")
	if err != nil {
		return mcc172.ClockConfig{}, err
	}
	cfg := mcc172.ClockConfig{
		SampleRate:   drv.rate,
		Synchronized: drv.unlocked <= 0,
	}
	drv.unlocked--
	return cfg, nil
}

func (drv *fakeDriver) ScanStart(addr, mask uint8, n uint32, opts mcc172.Options) error {
	drv.nch = 0
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			drv.nch++
		}
	}
	return drv.call("ScanStart")
}

// ScanRead plays the scripted reads. Sample i of channel ch of read r has
// the value r+i/100+ch/10.
func (drv *fakeDriver) ScanRead(addr uint8, n int32, timeout time.Duration, buf []float64) (mcc172.Status, uint32, error) {
	if err := drv.call("ScanRead"); err != nil {
		return 0, 0, err
	}
	if drv.nread >= len(drv.reads) {
		return 0, 0, mcc172.Timeout
	}
	r := drv.reads[drv.nread]
	drv.nread++
	if r.err != nil {
		return 0, 0, r.err
	}
	for i := 0; i < int(r.n); i++ {
		for ch := 0; ch < drv.nch && i*drv.nch+ch < len(buf); ch++ {
			buf[i*drv.nch+ch] = float64(drv.nread-1) + float64(i)/100 + float64(ch)/10
		}
	}
	return r.st, r.n, nil
}

func (drv *fakeDriver) ScanStop(addr uint8) error {
	return drv.call("ScanStop")
}

func (drv *fakeDriver) ScanCleanup(addr uint8) error {
	return drv.call("ScanCleanup")
}

var _ mcc172.Driver = (*fakeDriver)(nil)
