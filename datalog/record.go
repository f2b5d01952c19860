// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package datalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock tracks the elapsed time of a scan from the index of the samples,
// independently of the wall clock.
type Clock struct {
	inc float64
	n   uint64
}

// NewClock returns a clock for a scan at the provided sample rate.
func NewClock(rate float64) *Clock {
	return &Clock{inc: 1 / rate}
}

// Tick returns the elapsed time of the next sample and advances the clock.
// The first sample is at time zero.
func (c *Clock) Tick() float64 {
	t := float64(c.n) * c.inc
	c.n++
	return t
}

// Record is one line of the data log: one value per scanned channel.
type Record struct {
	Time   float64 // elapsed time, in seconds
	Values []float64
}

// FormatTime renders an elapsed time with 10 decimals, dropping the zero
// before the decimal point: 0.0019531250 is rendered as .0019531250.
func FormatTime(t float64) string {
	s := strconv.FormatFloat(t, 'f', 10, 64)
	if strings.HasPrefix(s, "0.") {
		s = s[1:]
	}
	return s
}

// AppendFormat appends the data log line of rec to dst, prefixed with the
// run stamp and terminated with a newline.
func (rec Record) AppendFormat(dst []byte, stamp string) []byte {
	dst = append(dst, stamp...)
	dst = append(dst, FormatTime(rec.Time)...)
	for _, v := range rec.Values {
		dst = fmt.Appendf(dst, ", %12.7f", v)
	}
	return append(dst, '\n')
}
