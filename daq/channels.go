// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"fmt"

	"github.com/go-lpc/vibdaq/mcc172"
)

// ChannelSet is the set of scanned channels.
type ChannelSet struct {
	Mask uint8   // hardware channel mask
	List []uint8 // channel indices, in ascending order
}

// NewChannelSet returns the set of the first n channels of a board.
func NewChannelSet(n int) (ChannelSet, error) {
	if n < 1 || n > mcc172.MaxChannels {
		return ChannelSet{}, fmt.Errorf("daq: invalid number of channels: %d", n)
	}
	set := ChannelSet{List: make([]uint8, n)}
	for i := range set.List {
		set.List[i] = uint8(i)
		set.Mask |= 1 << i
	}
	return set, nil
}

// Len returns the number of channels in the set.
func (set ChannelSet) Len() int { return len(set.List) }

func (set ChannelSet) String() string { return mcc172.MaskString(set.Mask) }
