// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lockfile provides exclusive advisory locks on files, so only one
// process drives a given board.
package lockfile // import "github.com/go-lpc/vibdaq/internal/lockfile"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

var (
	// ErrLocked is returned when the lock is held by another process.
	ErrLocked = errors.New("lockfile: already locked")

	errClosed = errors.New("lockfile: closed")
)

// Lock is an exclusive lock on a file.
type Lock struct {
	f *os.File
}

// Acquire creates the named file if needed and locks it, without blocking.
// The PID of the current process is written to the file.
func Acquire(fname string) (*Lock, error) {
	err := os.MkdirAll(filepath.Dir(fname), 0755)
	if err != nil {
		return nil, fmt.Errorf("lockfile: could not create lock directory: %w", err)
	}

	f, err := os.OpenFile(fname, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: could not open %q: %w", fname, err)
	}

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %q", ErrLocked, fname)
		}
		return nil, fmt.Errorf("lockfile: could not lock %q: %w", fname, err)
	}

	err = f.Truncate(0)
	if err == nil {
		_, err = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	if err != nil {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
		return nil, fmt.Errorf("lockfile: could not write PID to %q: %w", fname, err)
	}

	lock := &Lock{f: f}
	runtime.SetFinalizer(lock, (*Lock).Close)
	return lock, nil
}

// Name returns the path of the lock file.
func (lock *Lock) Name() string {
	if lock == nil || lock.f == nil {
		return ""
	}
	return lock.f.Name()
}

// Close releases the lock. The lock file is left in place.
func (lock *Lock) Close() error {
	if lock == nil {
		return os.ErrInvalid
	}
	if lock.f == nil {
		return errClosed
	}
	f := lock.f
	lock.f = nil
	runtime.SetFinalizer(lock, nil)

	err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("lockfile: could not unlock %q: %w", f.Name(), err)
	}
	return f.Close()
}
