// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mcc172 describes the interface to an MCC 172 IEPE measurement
// board, as exposed by the vendor daqhats library.
//
// The package only defines the calls the acquisition needs, the result
// codes and status flags they report, plus a simulated board that can be
// used in place of real hardware.
package mcc172 // import "github.com/go-lpc/vibdaq/mcc172"

import (
	"strconv"
	"strings"
	"time"
)

// HatID is the board identifier reported by an MCC 172.
const HatID = 0x0145

const (
	MaxChannels   = 2
	MaxSampleRate = 51200.0 // Hz
	MinSampleRate = MaxSampleRate / 256

	// ReadAll requests all the samples currently available.
	ReadAll int32 = -1
)

// Channel masks.
const (
	Chan0 uint8 = 1 << 0
	Chan1 uint8 = 1 << 1
)

// Result is the code returned by each call to the board library.
// A non-zero Result is an error.
type Result int

const (
	Success         Result = 0
	BadParameter    Result = -1
	Busy            Result = -2
	Timeout         Result = -3
	LockTimeout     Result = -4
	InvalidDevice   Result = -5
	ResourceUnavail Result = -6
	CommsFailure    Result = -7
	Undefined       Result = -10
)

var resultMsgs = map[Result]string{
	Success:         "Error - result_success",
	BadParameter:    "Error - result_bad_parameter",
	Busy:            "Error - result_busy",
	Timeout:         "Error - result_timeout",
	LockTimeout:     "Error - result_lock_timeout",
	InvalidDevice:   "Error - result_invalid_device",
	ResourceUnavail: "Error - result_resource_unavail",
	CommsFailure:    "Error - result_comms_failure",
}

func (r Result) Error() string {
	msg, ok := resultMsgs[r]
	if !ok {
		return "Error - result_undefined"
	}
	return msg
}

// Check converts a raw library code into an error.
// It returns nil for Success.
func Check(code int) error {
	if code == int(Success) {
		return nil
	}
	return Result(code)
}

// Status holds the scan status flags returned by a read.
type Status uint16

const (
	StatusHardwareOverrun Status = 0x0001
	StatusBufferOverrun   Status = 0x0002
	StatusTriggered       Status = 0x0004
	StatusRunning         Status = 0x0008
)

func (st Status) HardwareOverrun() bool { return st&StatusHardwareOverrun != 0 }
func (st Status) BufferOverrun() bool   { return st&StatusBufferOverrun != 0 }
func (st Status) Triggered() bool       { return st&StatusTriggered != 0 }
func (st Status) Running() bool         { return st&StatusRunning != 0 }

func (st Status) String() string {
	var flags []string
	if st.Running() {
		flags = append(flags, "running")
	}
	if st.Triggered() {
		flags = append(flags, "triggered")
	}
	if st.HardwareOverrun() {
		flags = append(flags, "hw-overrun")
	}
	if st.BufferOverrun() {
		flags = append(flags, "buffer-overrun")
	}
	if len(flags) == 0 {
		return "idle"
	}
	return strings.Join(flags, "|")
}

// Options is the scan options bitmask. It is passed to the board as is.
type Options uint32

const (
	OptsDefault         Options = 0x0000
	OptsNoScaleData     Options = 0x0001
	OptsNoCalibrateData Options = 0x0002
	OptsExtClock        Options = 0x0004
	OptsExtTrigger      Options = 0x0008
	OptsContinuous      Options = 0x0010
)

func (opts Options) String() string {
	if opts == OptsDefault {
		return "OPTS_DEFAULT"
	}
	var (
		names []string
		known = []struct {
			bit  Options
			name string
		}{
			{OptsNoScaleData, "OPTS_NOSCALEDATA"},
			{OptsNoCalibrateData, "OPTS_NOCALIBRATEDATA"},
			{OptsExtClock, "OPTS_EXTCLOCK"},
			{OptsExtTrigger, "OPTS_EXTTRIGGER"},
			{OptsContinuous, "OPTS_CONTINUOUS"},
		}
		rest = opts
	)
	for _, k := range known {
		if opts&k.bit != 0 {
			names = append(names, k.name)
			rest &^= k.bit
		}
	}
	if rest != 0 {
		names = append(names, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(names, ", ")
}

// MaskString renders a channel mask as a comma separated list of
// channel indices, e.g. "0, 1".
func MaskString(mask uint8) string {
	var chans []string
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			chans = append(chans, strconv.Itoa(i))
		}
	}
	return strings.Join(chans, ", ")
}

// ClockSource selects where the sampling clock comes from.
type ClockSource uint8

const (
	SourceLocal  ClockSource = 0
	SourceMaster ClockSource = 1
	SourceSlave  ClockSource = 2
)

// ClockConfig is the clock configuration read back from a board.
type ClockConfig struct {
	Source       ClockSource
	SampleRate   float64 // negotiated rate, per channel
	Synchronized bool
}

// HatInfo describes a board attached to the host.
type HatInfo struct {
	Address uint8
	ID      uint16
	Version uint16
	Name    string
}

// Driver is the set of board calls used by the acquisition.
// All errors returned by a Driver are Result values.
type Driver interface {
	// List returns the boards attached to the host.
	List() ([]HatInfo, error)

	Open(addr uint8) error
	Close(addr uint8) error

	IEPEConfigWrite(addr, ch uint8, enable bool) error
	SensitivityWrite(addr, ch uint8, mvPerUnit float64) error

	// ClockConfigWrite requests a sample rate. The board locks its
	// clock asynchronously, see ClockConfigRead.
	ClockConfigWrite(addr uint8, src ClockSource, rate float64) error
	ClockConfigRead(addr uint8) (ClockConfig, error)

	ScanStart(addr, mask uint8, samplesPerChannel uint32, opts Options) error

	// ScanRead reads up to n samples per channel (ReadAll for all the
	// available ones) into buf, interleaved per channel.
	// It returns the scan status and the number of samples read per channel.
	ScanRead(addr uint8, n int32, timeout time.Duration, buf []float64) (Status, uint32, error)

	ScanStop(addr uint8) error
	ScanCleanup(addr uint8) error
}
