// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package params loads scan parameters from a minimal tag-delimited file.
//
// A parameter file looks like:
//
//	<!-- vibration scan parameters -->
//	<number_of_channels>2</number_of_channels>
//	<sensitivity>100</sensitivity>
//	<samples_per_channel>51200</samples_per_channel>
//	<scan_rate>51200</scan_rate>
//	<iepe_supply>on</iepe_supply>
//	<options>0</options>
//
// Lines starting with "<!" are comments. Tags can not be nested and carry
// no attributes.
package params // import "github.com/go-lpc/vibdaq/params"

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-lpc/vibdaq/mcc172"
)

// Tags of the parameter file.
const (
	TagChannels          = "number_of_channels"
	TagSensitivity       = "sensitivity"
	TagSamplesPerChannel = "samples_per_channel"
	TagScanRate          = "scan_rate"
	TagIEPE              = "iepe_supply"
	TagOptions           = "options"
)

// MaxSamplesPerChannel bounds the size of the read buffer.
const MaxSamplesPerChannel = 1 << 22

var (
	ErrChannels = errors.New("params: invalid number of channels")
	ErrIEPE     = errors.New("params: invalid IEPE power selection")
	ErrRange    = errors.New("params: value out of range")
)

// TagError describes a tag that could not be resolved to a value.
type TagError struct {
	Tag    string
	Result Result // outcome of the tag lookup
	Err    error  // conversion error, if the tag was found
}

func (e *TagError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("params: could not access tag %q: %v", e.Tag, e.Err)
	}
	return fmt.Sprintf("params: could not access tag %q: %v", e.Tag, e.Result)
}

func (e *TagError) Unwrap() error { return e.Err }

// ScanParameters holds the parameters of a scan.
type ScanParameters struct {
	SampleRate        float64        `yaml:"scan_rate"`           // requested rate, in Hz
	Sensitivity       float64        `yaml:"sensitivity"`         // mV per unit
	Channels          int            `yaml:"number_of_channels"`  // 1 or 2
	SamplesPerChannel uint32         `yaml:"samples_per_channel"` // samples to acquire per channel
	Options           mcc172.Options `yaml:"options"`             // passed to the board as is
	IEPE              bool           `yaml:"iepe_supply"`         // IEPE excitation power
}

// Load reads the scan parameters from the named file.
func Load(fname string) (ScanParameters, error) {
	buf, err := ReadFile(fname)
	if err != nil {
		return ScanParameters{}, err
	}
	p, err := Parse(buf)
	if err != nil {
		return p, fmt.Errorf("%w (file=%q)", err, fname)
	}
	return p, nil
}

// Parse extracts and validates the scan parameters from buf.
func Parse(buf Buffer) (ScanParameters, error) {
	var (
		p   ScanParameters
		err error
	)

	opts, err := buf.Uint(TagOptions, 32)
	switch {
	case err == nil:
		p.Options = mcc172.Options(opts)
	case isAbsent(err):
		p.Options = mcc172.OptsDefault
	default:
		return p, err
	}

	nch, err := buf.Float(TagChannels)
	if err != nil {
		return p, err
	}
	if nch != 1 && nch != 2 {
		return p, fmt.Errorf("%w: %v", ErrChannels, nch)
	}
	p.Channels = int(nch)

	p.Sensitivity, err = buf.Float(TagSensitivity)
	if err != nil {
		return p, err
	}
	if !(p.Sensitivity > 0) || math.IsInf(p.Sensitivity, 0) {
		return p, fmt.Errorf("%w: %s=%v (want >0)", ErrRange, TagSensitivity, p.Sensitivity)
	}

	spc, err := buf.Float(TagSamplesPerChannel)
	if err != nil {
		return p, err
	}
	if spc != math.Trunc(spc) || spc < 1 || spc > MaxSamplesPerChannel {
		return p, fmt.Errorf(
			"%w: %s=%v (want integer in [1, %d])",
			ErrRange, TagSamplesPerChannel, spc, MaxSamplesPerChannel,
		)
	}
	p.SamplesPerChannel = uint32(spc)

	p.SampleRate, err = buf.Float(TagScanRate)
	if err != nil {
		return p, err
	}
	if !(p.SampleRate > 0) || p.SampleRate > mcc172.MaxSampleRate {
		return p, fmt.Errorf(
			"%w: %s=%v (want in (0, %v])",
			ErrRange, TagScanRate, p.SampleRate, mcc172.MaxSampleRate,
		)
	}

	iepe, err := buf.String(TagIEPE)
	if err != nil {
		return p, err
	}
	switch iepe {
	case "on":
		p.IEPE = true
	case "off":
		p.IEPE = false
	default:
		return p, fmt.Errorf("%w: %q", ErrIEPE, iepe)
	}

	return p, nil
}

// BufferSize returns the number of samples needed to hold a full scan.
func (p ScanParameters) BufferSize() int {
	return int(p.SamplesPerChannel) * p.Channels
}

// isAbsent reports whether err describes a tag missing from the file,
// possibly because it lies past the truncation point.
func isAbsent(err error) bool {
	var terr *TagError
	if !errors.As(err, &terr) {
		return false
	}
	return terr.Result == NotFound || terr.Result == Truncated
}

// String returns the whitespace-trimmed value of the named tag.
func (buf Buffer) String(name string) (string, error) {
	v, res := buf.Lookup(name)
	if res != Found {
		return "", &TagError{Tag: name, Result: res}
	}
	return strings.TrimSpace(v), nil
}

// Float returns the value of the named tag as a float64.
func (buf Buffer) Float(name string) (float64, error) {
	v, err := buf.String(name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &TagError{Tag: name, Result: Found, Err: err}
	}
	if math.IsNaN(f) {
		return 0, &TagError{Tag: name, Result: Found, Err: fmt.Errorf("invalid value %q", v)}
	}
	return f, nil
}

// Uint returns the value of the named tag as an unsigned integer of the
// provided bit size. Hexadecimal (0x) and octal (0o) prefixes are accepted.
func (buf Buffer) Uint(name string, bits int) (uint64, error) {
	v, err := buf.String(name)
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(v, 0, bits)
	if err != nil {
		return 0, &TagError{Tag: name, Result: Found, Err: err}
	}
	return u, nil
}
