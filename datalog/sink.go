// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Sink is the data log of a run.
//
// Sink does not keep the file open: each call to Append opens the file in
// append mode, writes and closes it.
type Sink struct {
	fname string
	stamp string
	buf   []byte
	n     int64 // number of records written
}

// Create creates (or truncates) the data log of the run stamp under dir.
func Create(dir string, stamp Stamp) (*Sink, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("datalog: could not create log directory %q: %w", dir, err)
	}

	fname := stamp.DataPath(dir)
	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("datalog: could not create data log %q: %w", fname, err)
	}
	err = f.Close()
	if err != nil {
		return nil, fmt.Errorf("datalog: could not close data log %q: %w", fname, err)
	}

	return &Sink{fname: fname, stamp: stamp.String()}, nil
}

// Name returns the path of the data log.
func (sink *Sink) Name() string { return sink.fname }

// Records returns the number of records appended so far.
func (sink *Sink) Records() int64 { return sink.n }

// Append writes one record at the end of the data log.
func (sink *Sink) Append(rec Record) error {
	sink.buf = rec.AppendFormat(sink.buf[:0], sink.stamp)
	err := appendFile(sink.fname, sink.buf)
	if err != nil {
		return fmt.Errorf("datalog: could not append record: %w", err)
	}
	sink.n++
	return nil
}

// ErrorLog is the append-only log of the faults of a run.
// Each message is written on its own line, prefixed with the UTC time.
type ErrorLog struct {
	fname string
	now   func() time.Time
}

// NewErrorLog returns the error log of the run stamp under dir.
// The file is only created when the first message is appended.
func NewErrorLog(dir string, stamp Stamp) *ErrorLog {
	return &ErrorLog{
		fname: stamp.ErrorPath(dir),
		now:   time.Now,
	}
}

// Name returns the path of the error log.
func (elog *ErrorLog) Name() string { return elog.fname }

// Append writes msg at the end of the error log.
func (elog *ErrorLog) Append(msg string) error {
	err := os.MkdirAll(filepath.Dir(elog.fname), 0755)
	if err != nil {
		return fmt.Errorf("datalog: could not create error log directory: %w", err)
	}

	line := elog.now().UTC().Format(time.RFC3339) + " " + msg
	if n := len(line); n == 0 || line[n-1] != '\n' {
		line += "\n"
	}

	err = appendFile(elog.fname, []byte(line))
	if err != nil {
		return fmt.Errorf("datalog: could not append to error log: %w", err)
	}
	return nil
}

func appendFile(fname string, p []byte) error {
	f, err := os.OpenFile(fname, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer f.Close()

	_, err = f.Write(p)
	if err != nil {
		return fmt.Errorf("could not write to %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", fname, err)
	}
	return nil
}
