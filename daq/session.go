// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/go-lpc/vibdaq/internal/lockfile"
	"github.com/go-lpc/vibdaq/mcc172"
)

// maxAddr is the highest address of a board on the stack.
const maxAddr = 7

// State is the state of a device session.
type State uint8

const (
	StateClosed State = iota
	StateOpened
	StateConfigured
	StateScanning
	StateStopped
)

func (st State) String() string {
	switch st {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StateConfigured:
		return "configured"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

// ErrorLog records the faults of a run.
type ErrorLog interface {
	Append(msg string) error
}

// Session is the connection to a board, from open to the final power down.
type Session struct {
	drv  mcc172.Driver
	elog ErrorLog
	cfg  config
	msg  *log.Logger

	addr  uint8
	chans ChannelSet
	rate  float64 // negotiated sample rate
	state State
	lock  *lockfile.Lock

	fini sync.Once
}

// NewSession returns a closed session on the provided driver.
// Faults are recorded in elog.
func NewSession(drv mcc172.Driver, elog ErrorLog, opts ...Option) *Session {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Session{
		drv:  drv,
		elog: elog,
		cfg:  cfg,
		msg:  cfg.msg,
	}
}

// Addr returns the address of the selected board.
func (s *Session) Addr() uint8 { return s.addr }

// State returns the current state of the session.
func (s *Session) State() State { return s.state }

// Channels returns the configured channels.
func (s *Session) Channels() ChannelSet { return s.chans }

// SampleRate returns the sample rate negotiated with the board.
func (s *Session) SampleRate() float64 { return s.rate }

// SelectDevice selects the board to drive.
// A negative address selects the first MCC 172 attached to the host.
func (s *Session) SelectDevice(addr int) error {
	if s.state != StateClosed {
		return newError(KindDevice, "select device", ErrState)
	}

	if addr >= 0 {
		if addr > maxAddr {
			return newError(KindDevice, "select device", fmt.Errorf("invalid address %d", addr))
		}
		s.addr = uint8(addr)
		return nil
	}

	hats, err := s.drv.List()
	if err != nil {
		return newError(KindDevice, "select device", err)
	}
	for _, hat := range hats {
		if hat.ID != mcc172.HatID {
			continue
		}
		s.addr = hat.Address
		s.msg.Printf("selected %s (address=%d, version=%d)", hat.Name, hat.Address, hat.Version)
		return nil
	}
	return newError(KindDevice, "select device", ErrNoDevice)
}

// Open opens the selected board.
func (s *Session) Open() error {
	if s.state != StateClosed {
		return newError(KindDevice, "open device", ErrState)
	}

	if s.cfg.lockDir != "" {
		fname := filepath.Join(s.cfg.lockDir, fmt.Sprintf("mcc172-%d.lock", s.addr))
		lock, err := lockfile.Acquire(fname)
		if err != nil {
			return newError(KindDevice, "lock device", err)
		}
		s.lock = lock
	}

	err := s.drv.Open(s.addr)
	if err != nil {
		s.unlock()
		return newError(KindDevice, "open device", err)
	}
	s.state = StateOpened
	return nil
}

// Configure sets the IEPE power and the sensitivity of every channel.
func (s *Session) Configure(chans ChannelSet, iepe bool, sensitivity float64) error {
	if s.state != StateOpened {
		return newError(KindDevice, "configure device", ErrState)
	}

	// record the channels first, so a partial configuration is powered
	// down as well.
	s.chans = chans
	for _, ch := range chans.List {
		err := s.drv.IEPEConfigWrite(s.addr, ch, iepe)
		if err != nil {
			return newError(KindDevice, fmt.Sprintf("configure IEPE power of channel %d", ch), err)
		}
		err = s.drv.SensitivityWrite(s.addr, ch, sensitivity)
		if err != nil {
			return newError(KindDevice, fmt.Sprintf("configure sensitivity of channel %d", ch), err)
		}
	}
	s.state = StateConfigured
	return nil
}

var errClockUnlocked = errors.New("clock unlocked")

// SyncClock requests a sample rate and waits for the board clock to lock.
// It returns the negotiated sample rate.
func (s *Session) SyncClock(ctx context.Context, rate float64) (float64, error) {
	if s.state != StateConfigured {
		return 0, newError(KindDevice, "configure clock", ErrState)
	}

	err := s.drv.ClockConfigWrite(s.addr, mcc172.SourceLocal, rate)
	if err != nil {
		return 0, newError(KindDevice, "configure clock", err)
	}

	var (
		cfg   mcc172.ClockConfig
		polls int
	)
	op := func() error {
		polls++
		var err error
		cfg, err = s.drv.ClockConfigRead(s.addr)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !cfg.Synchronized {
			return errClockUnlocked
		}
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if s.cfg.sync.retries > 0 {
		policy = backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.cfg.sync.delay),
			s.cfg.sync.retries,
		)
	}

	err = backoff.Retry(op, backoff.WithContext(policy, ctx))
	switch {
	case err == nil:
		// ok.
	case ctx.Err() != nil:
		return 0, newError(KindInterrupted, "synchronize clock", ctx.Err())
	case errors.Is(err, errClockUnlocked):
		return 0, newError(KindClockSync, "synchronize clock",
			fmt.Errorf("%w after %d polls", ErrClockSync, polls),
		)
	default:
		return 0, newError(KindDevice, "read clock configuration", err)
	}

	s.rate = cfg.SampleRate
	s.cfg.metrics.sampleRate(s.rate)
	s.msg.Printf("clock synchronized: rate=%g Hz (requested=%g Hz)", s.rate, rate)
	return s.rate, nil
}

// Start starts a scan of the configured channels.
func (s *Session) Start(samplesPerChannel uint32, opts mcc172.Options) error {
	if s.state != StateConfigured {
		return newError(KindScan, "start scan", ErrState)
	}

	err := s.drv.ScanStart(s.addr, s.chans.Mask, samplesPerChannel, opts)
	if err != nil {
		return newError(KindScan, "start scan", err)
	}
	s.state = StateScanning
	s.msg.Printf("scan started: channels=[%v], samples/channel=%d, options=%v", s.chans, samplesPerChannel, opts)
	return nil
}

// Read reads all the samples available in the scan buffer into buf.
// It returns the scan status and the number of samples read per channel.
func (s *Session) Read(buf []float64) (mcc172.Status, uint32, error) {
	if s.state != StateScanning {
		return 0, 0, newError(KindScan, "read scan", ErrState)
	}
	st, n, err := s.drv.ScanRead(s.addr, mcc172.ReadAll, s.cfg.timeout, buf)
	if err != nil {
		return st, n, newError(KindScan, "read scan", err)
	}
	return st, n, nil
}

// Stop stops the scan and releases its resources.
// Failures are recorded in the error log but are not fatal.
func (s *Session) Stop() {
	if s.state != StateScanning {
		return
	}
	err := s.drv.ScanStop(s.addr)
	if err != nil {
		s.warnf("could not stop scan: %v", err)
	}
	err = s.drv.ScanCleanup(s.addr)
	if err != nil {
		s.warnf("could not clean up scan: %v", err)
	}
	s.state = StateStopped
}

// Shutdown powers down the IEPE supply of the configured channels and
// closes the board. It runs only once: later calls are no-ops.
// Failures are recorded in the error log but are not fatal.
func (s *Session) Shutdown() {
	s.fini.Do(s.shutdown)
}

func (s *Session) shutdown() {
	defer s.unlock()

	if s.state == StateClosed {
		return
	}

	for _, ch := range s.chans.List {
		err := s.drv.IEPEConfigWrite(s.addr, ch, false)
		if err != nil {
			s.warnf("could not power down IEPE supply of channel %d: %v", ch, err)
		}
	}

	err := s.drv.Close(s.addr)
	if err != nil {
		s.warnf("could not close device %d: %v", s.addr, err)
	}
	s.state = StateClosed
}

func (s *Session) unlock() {
	if s.lock == nil {
		return
	}
	err := s.lock.Close()
	if err != nil {
		s.msg.Printf("could not release device lock: %+v", err)
	}
	s.lock = nil
}

// fault records a fatal error.
func (s *Session) fault(err error) {
	s.cfg.metrics.fault(KindOf(err))
	s.record(err.Error())
}

func (s *Session) warnf(format string, args ...any) {
	s.record(fmt.Sprintf(format, args...))
}

func (s *Session) record(msg string) {
	s.msg.Print(msg)
	if s.elog == nil {
		return
	}
	err := s.elog.Append(msg)
	if err != nil {
		s.msg.Printf("could not record fault: %+v", err)
	}
}
