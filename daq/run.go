// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"context"
	"time"

	"github.com/go-lpc/vibdaq/datalog"
	"github.com/go-lpc/vibdaq/mcc172"
	"github.com/go-lpc/vibdaq/params"
)

// Config describes an acquisition run.
type Config struct {
	Params string        // path to the parameter file
	Dir    string        // output directory of the data and error logs
	Addr   int           // board address, negative to select the first MCC 172
	Stamp  datalog.Stamp // run stamp, the current host and time if zero
}

// Summary describes a completed, or failed, acquisition run.
type Summary struct {
	Stamp    datalog.Stamp
	Params   params.ScanParameters
	Addr     uint8
	Rate     float64 // negotiated sample rate
	Reads    int     // reads of the scan buffer
	Samples  uint64  // samples logged per channel
	DataLog  string  // empty if the data log was not created
	ErrorLog string
	Elapsed  time.Duration
}

// Run performs an acquisition run on the board driven by drv.
//
// Run returns once the scan has been fully drained and logged, or on the
// first fatal error. In both cases, the board is powered down and closed
// before Run returns.
func Run(ctx context.Context, drv mcc172.Driver, cfg Config, opts ...Option) (Summary, error) {
	var (
		beg = time.Now()
		sum = Summary{Stamp: cfg.Stamp}
	)

	if sum.Stamp == (datalog.Stamp{}) {
		stamp, err := datalog.Now()
		if err != nil {
			return sum, newError(KindIO, "create run stamp", err)
		}
		sum.Stamp = stamp
	}

	elog := datalog.NewErrorLog(cfg.Dir, sum.Stamp)
	sum.ErrorLog = elog.Name()

	sess := NewSession(drv, elog, opts...)
	defer sess.Shutdown()

	err := run(ctx, sess, cfg, &sum)
	sum.Addr = sess.Addr()
	sum.Elapsed = time.Since(beg)
	if err != nil {
		sess.fault(err)
		return sum, err
	}

	return sum, nil
}

func run(ctx context.Context, sess *Session, cfg Config, sum *Summary) error {
	p, err := params.Load(cfg.Params)
	if err != nil {
		return newError(KindConfig, "load parameters", err)
	}
	sum.Params = p

	chans, err := NewChannelSet(p.Channels)
	if err != nil {
		return newError(KindConfig, "load parameters", err)
	}

	err = sess.SelectDevice(cfg.Addr)
	if err != nil {
		return err
	}

	err = sess.Open()
	if err != nil {
		return err
	}

	err = sess.Configure(chans, p.IEPE, p.Sensitivity)
	if err != nil {
		return err
	}

	sum.Rate, err = sess.SyncClock(ctx, p.SampleRate)
	if err != nil {
		return err
	}

	err = sess.Start(p.SamplesPerChannel, p.Options)
	if err != nil {
		return err
	}

	sink, err := datalog.Create(cfg.Dir, sum.Stamp)
	if err != nil {
		return newError(KindIO, "create data log", err)
	}
	sum.DataLog = sink.Name()

	acq := newAcquisition(sess, sink, p.BufferSize())
	err = acq.run(ctx)
	sum.Reads = acq.reads
	sum.Samples = uint64(sink.Records())
	if err != nil {
		sess.msg.Printf("acquisition %v after %d reads", acq.state, acq.reads)
		return err
	}
	acq.drain()

	sess.msg.Printf("acquisition %v: %d samples/channel in %d reads", acq.state, sum.Samples, acq.reads)
	return nil
}
