// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// vib-params checks and displays scan parameter files.
//
// Usage: vib-params [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> vib-params ./vib_params
//	=== ./vib_params ===
//	channels:            2 (mask=0x3)
//	sensitivity:         100 mV/unit
//	samples/channel:     10240
//	scan rate:           10000 Hz (board rate: 10240 Hz)
//	IEPE supply:         on
//	options:             OPTS_DEFAULT
//	buffer:              20480 samples
package main // import "github.com/go-lpc/vibdaq/cmd/vib-params"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/vibdaq/mcc172"
	"github.com/go-lpc/vibdaq/params"
	"gopkg.in/yaml.v3"
)

func main() {
	log.SetPrefix("vib-params: ")
	log.SetFlags(0)

	doYAML := flag.Bool("yaml", false, "display parameters as YAML")

	flag.Usage = func() {
		fmt.Printf(`vib-params checks and displays scan parameter files.

Usage: vib-params [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> vib-params ./vib_params
 === ./vib_params ===
 channels:            2 (mask=0x3)
 sensitivity:         100 mV/unit
 samples/channel:     10240
 scan rate:           10000 Hz (board rate: 10240 Hz)
 IEPE supply:         on
 options:             OPTS_DEFAULT
 buffer:              20480 samples

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		log.Fatalf("missing path to parameter file")
	}

	for _, fname := range flag.Args() {
		err := process(os.Stdout, fname, *doYAML)
		if err != nil {
			log.Fatalf("invalid parameter file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, doYAML bool) error {
	buf, err := params.ReadFile(fname)
	if err != nil {
		return err
	}

	p, err := params.Parse(buf)
	if err != nil {
		return err
	}

	if doYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(p)
	}

	iepe := "off"
	if p.IEPE {
		iepe = "on"
	}
	mask := uint8(1<<p.Channels - 1)

	fmt.Fprintf(w, "=== %s ===\n", fname)
	if buf.Truncated() {
		fmt.Fprintf(w, "warning:             file truncated to %d bytes\n", params.MaxFileSize)
	}
	fmt.Fprintf(w, "channels:            %d (mask=0x%x)\n", p.Channels, mask)
	fmt.Fprintf(w, "sensitivity:         %g mV/unit\n", p.Sensitivity)
	fmt.Fprintf(w, "samples/channel:     %d\n", p.SamplesPerChannel)
	fmt.Fprintf(w, "scan rate:           %g Hz (board rate: %g Hz)\n", p.SampleRate, mcc172.NearestRate(p.SampleRate))
	fmt.Fprintf(w, "IEPE supply:         %s\n", iepe)
	fmt.Fprintf(w, "options:             %v\n", p.Options)
	fmt.Fprintf(w, "buffer:              %d samples\n", p.BufferSize())
	return nil
}
