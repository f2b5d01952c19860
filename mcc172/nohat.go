// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !daqhats || !cgo

package mcc172

import "errors"

// ErrNoHAT is returned by NewHAT when the package was built without libdaqhats.
var ErrNoHAT = errors.New("mcc172: built without libdaqhats support (use -tags daqhats)")

// NewHAT returns a driver backed by libdaqhats.
func NewHAT() (Driver, error) {
	return nil, ErrNoHAT
}
