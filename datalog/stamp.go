// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package datalog writes the data and error logs of an acquisition run.
//
// Both logs are named after a run stamp, the host name followed by the
// UTC start time of the run, computed once per run.
package datalog // import "github.com/go-lpc/vibdaq/datalog"

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StampLayout is the time layout of a run stamp.
const StampLayout = "20060102_150405"

// Stamp identifies a run: host name and UTC start time.
type Stamp struct {
	Host  string
	Start time.Time
}

// NewStamp returns the stamp of a run started at t on the named host.
func NewStamp(host string, t time.Time) Stamp {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "localhost"
	}
	return Stamp{Host: host, Start: t.UTC()}
}

// Now returns the stamp of a run starting now on the current host.
func Now() (Stamp, error) {
	host, err := os.Hostname()
	if err != nil {
		return Stamp{}, fmt.Errorf("datalog: could not retrieve hostname: %w", err)
	}
	return NewStamp(host, time.Now()), nil
}

func (s Stamp) String() string {
	return s.Host + "_" + s.Start.Format(StampLayout)
}

// DataPath returns the path of the data log under dir.
func (s Stamp) DataPath(dir string) string {
	return filepath.Join(dir, s.String()+".log")
}

// ErrorPath returns the path of the error log under dir.
func (s Stamp) ErrorPath(dir string) string {
	return filepath.Join(dir, s.String()+"_errorlog.log")
}
