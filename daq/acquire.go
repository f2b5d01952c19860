// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"context"
	"fmt"
	"time"

	"github.com/go-lpc/vibdaq/datalog"
)

type loopState uint8

const (
	loopIdle loopState = iota
	loopScanning
	loopDraining
	loopFaulted
	loopStopped
)

func (st loopState) String() string {
	switch st {
	case loopIdle:
		return "idle"
	case loopScanning:
		return "scanning"
	case loopDraining:
		return "draining"
	case loopFaulted:
		return "faulted"
	case loopStopped:
		return "stopped"
	}
	return "unknown"
}

type recordSink interface {
	Append(rec datalog.Record) error
}

// acquisition polls the scan buffer of a session and logs the samples.
type acquisition struct {
	sess  *Session
	sink  recordSink
	clock *datalog.Clock
	buf   []float64 // interleaved samples of the last read
	state loopState
	reads int
}

func newAcquisition(sess *Session, sink recordSink, bufsize int) *acquisition {
	return &acquisition{
		sess:  sess,
		sink:  sink,
		clock: datalog.NewClock(sess.SampleRate()),
		buf:   make([]float64, bufsize),
		state: loopIdle,
	}
}

// run polls the scan buffer until the scan is no longer running.
func (acq *acquisition) run(ctx context.Context) error {
	var (
		nch = acq.sess.Channels().Len()
		rec = datalog.Record{Values: make([]float64, nch)}
		m   = acq.sess.cfg.metrics
	)

	acq.state = loopScanning
	for {
		err := ctx.Err()
		if err != nil {
			return acq.fail(newError(KindInterrupted, "scan", err))
		}

		beg := time.Now()
		st, n, err := acq.sess.Read(acq.buf)
		if err != nil {
			return acq.fail(err)
		}
		acq.reads++
		m.read(n, time.Since(beg).Seconds())

		switch {
		case st.HardwareOverrun():
			return acq.fail(newError(KindHardwareOverrun, "read scan", ErrHardwareOverrun))
		case st.BufferOverrun():
			return acq.fail(newError(KindBufferOverrun, "read scan", ErrBufferOverrun))
		}

		if int(n)*nch > len(acq.buf) {
			return acq.fail(newError(KindScan, "read scan", fmt.Errorf(
				"read %d samples/channel into a buffer of %d samples", n, len(acq.buf),
			)))
		}

		for i := 0; i < int(n); i++ {
			rec.Time = acq.clock.Tick()
			copy(rec.Values, acq.buf[i*nch:(i+1)*nch])
			err = acq.sink.Append(rec)
			if err != nil {
				return acq.fail(newError(KindIO, "log samples", err))
			}
		}
		m.logged(n)

		if !st.Running() {
			acq.state = loopDraining
			return nil
		}

		acq.wait(ctx)
	}
}

// drain releases the scan of a completed acquisition.
func (acq *acquisition) drain() {
	if acq.state != loopDraining {
		return
	}
	acq.sess.Stop()
	acq.state = loopStopped
}

func (acq *acquisition) fail(err error) error {
	acq.state = loopFaulted
	return err
}

func (acq *acquisition) wait(ctx context.Context) {
	d := acq.sess.cfg.poll
	if d <= 0 {
		return
	}
	tck := time.NewTimer(d)
	defer tck.Stop()

	select {
	case <-ctx.Done():
	case <-tck.C:
	}
}
