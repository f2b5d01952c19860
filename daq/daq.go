// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package daq drives an acquisition run on an MCC 172 board: device
// session, clock synchronization, scan polling and logging of the samples.
//
// Every error returned by Run is fatal and is recorded in the error log of
// the run. The board is powered down and closed exactly once, whatever the
// outcome of the run.
package daq // import "github.com/go-lpc/vibdaq/daq"

import (
	"errors"
	"fmt"
)

var (
	ErrHardwareOverrun = errors.New("hardware overrun")
	ErrBufferOverrun   = errors.New("scan buffer overrun")
	ErrNoDevice        = errors.New("no MCC 172 board found")
	ErrClockSync       = errors.New("clock not synchronized")
	ErrState           = errors.New("invalid session state")
)

// Kind classifies the fatal errors of a run.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfig
	KindDevice
	KindClockSync
	KindScan
	KindHardwareOverrun
	KindBufferOverrun
	KindIO
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDevice:
		return "device"
	case KindClockSync:
		return "clock-sync"
	case KindScan:
		return "scan"
	case KindHardwareOverrun:
		return "hw-overrun"
	case KindBufferOverrun:
		return "buffer-overrun"
	case KindIO:
		return "io"
	case KindInterrupted:
		return "interrupted"
	}
	return "unknown"
}

// Error is a fatal error of a run.
type Error struct {
	Kind Kind
	Op   string // operation that failed
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("daq: %v", e.Err)
	}
	return fmt.Sprintf("daq: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}
