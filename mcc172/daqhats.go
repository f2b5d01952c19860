// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build daqhats && cgo

package mcc172

/*
#cgo LDFLAGS: -ldaqhats
#include <stdlib.h>
#include <daqhats/daqhats.h>
*/
import "C"

import (
	"time"
	"unsafe"
)

// HAT drives the MCC 172 boards attached to the host, through libdaqhats.
type HAT struct{}

// NewHAT returns a driver backed by libdaqhats.
func NewHAT() (Driver, error) {
	return HAT{}, nil
}

func (HAT) List() ([]HatInfo, error) {
	n := C.hat_list(C.uint16_t(HatID), nil)
	if n <= 0 {
		return nil, nil
	}
	list := make([]C.struct_HatInfo, int(n))
	n = C.hat_list(C.uint16_t(HatID), &list[0])

	out := make([]HatInfo, 0, int(n))
	for _, v := range list[:int(n)] {
		out = append(out, HatInfo{
			Address: uint8(v.address),
			ID:      uint16(v.id),
			Version: uint16(v.version),
			Name:    C.GoString(&v.product_name[0]),
		})
	}
	return out, nil
}

func (HAT) Open(addr uint8) error {
	return Check(int(C.mcc172_open(C.uint8_t(addr))))
}

func (HAT) Close(addr uint8) error {
	return Check(int(C.mcc172_close(C.uint8_t(addr))))
}

func (HAT) IEPEConfigWrite(addr, ch uint8, enable bool) error {
	var v C.uint8_t
	if enable {
		v = 1
	}
	return Check(int(C.mcc172_iepe_config_write(C.uint8_t(addr), C.uint8_t(ch), v)))
}

func (HAT) SensitivityWrite(addr, ch uint8, v float64) error {
	return Check(int(C.mcc172_a_in_sensitivity_write(C.uint8_t(addr), C.uint8_t(ch), C.double(v))))
}

func (HAT) ClockConfigWrite(addr uint8, src ClockSource, rate float64) error {
	return Check(int(C.mcc172_a_in_clock_config_write(C.uint8_t(addr), C.uint8_t(src), C.double(rate))))
}

func (HAT) ClockConfigRead(addr uint8) (ClockConfig, error) {
	var (
		src    C.uint8_t
		rate   C.double
		synced C.uint8_t
	)
	err := Check(int(C.mcc172_a_in_clock_config_read(C.uint8_t(addr), &src, &rate, &synced)))
	if err != nil {
		return ClockConfig{}, err
	}
	return ClockConfig{
		Source:       ClockSource(src),
		SampleRate:   float64(rate),
		Synchronized: synced != 0,
	}, nil
}

func (HAT) ScanStart(addr, mask uint8, n uint32, opts Options) error {
	return Check(int(C.mcc172_a_in_scan_start(
		C.uint8_t(addr), C.uint8_t(mask), C.uint32_t(n), C.uint32_t(opts),
	)))
}

func (HAT) ScanRead(addr uint8, n int32, timeout time.Duration, buf []float64) (Status, uint32, error) {
	if len(buf) == 0 {
		return 0, 0, BadParameter
	}
	var (
		status C.uint16_t
		nread  C.uint32_t
	)
	err := Check(int(C.mcc172_a_in_scan_read(
		C.uint8_t(addr), &status, C.int32_t(n), C.double(timeout.Seconds()),
		(*C.double)(unsafe.Pointer(&buf[0])), C.uint32_t(len(buf)),
		&nread,
	)))
	return Status(status), uint32(nread), err
}

func (HAT) ScanStop(addr uint8) error {
	return Check(int(C.mcc172_a_in_scan_stop(C.uint8_t(addr))))
}

func (HAT) ScanCleanup(addr uint8) error {
	return Check(int(C.mcc172_a_in_scan_cleanup(C.uint8_t(addr))))
}

var _ Driver = HAT{}
