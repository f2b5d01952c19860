// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"log"
	"os"
	"time"
)

type config struct {
	msg *log.Logger

	poll    time.Duration // delay between two reads
	timeout time.Duration // read timeout

	sync struct {
		delay   time.Duration
		retries uint64
	}

	lockDir string
	metrics *Metrics
}

func newConfig() config {
	cfg := config{
		msg:     log.New(os.Stdout, "daq: ", 0),
		poll:    100 * time.Millisecond,
		timeout: 5 * time.Second,
	}
	cfg.sync.delay = 5 * time.Millisecond
	cfg.sync.retries = 2000
	return cfg
}

// Option configures a session.
type Option func(*config)

// WithLogger sets the logger for informational messages.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithPollInterval sets the delay between two reads of the scan buffer.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.poll = d
	}
}

// WithReadTimeout sets the timeout of a read of the scan buffer.
func WithReadTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = d
	}
}

// WithSyncDelay sets the delay between two polls of the clock
// synchronization flag.
func WithSyncDelay(d time.Duration) Option {
	return func(cfg *config) {
		cfg.sync.delay = d
	}
}

// WithSyncRetries sets the maximum number of polls of the clock
// synchronization flag, after the first one.
// With n == 0, the flag is polled only once.
func WithSyncRetries(n uint64) Option {
	return func(cfg *config) {
		cfg.sync.retries = n
	}
}

// WithLockDir locks the board with a lock file under dir while it is open.
func WithLockDir(dir string) Option {
	return func(cfg *config) {
		cfg.lockDir = dir
	}
}

// WithMetrics records the run metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
	}
}
