// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mcc172

import (
	"math"
	"sync"
	"time"
)

// Sim is a simulated MCC 172 board.
// It produces a sine wave on each channel, paced by the wall clock.
type Sim struct {
	mu   sync.Mutex
	addr uint8
	now  func() time.Time

	// SyncAfter is the number of clock reads reporting an unlocked clock
	// after each clock configuration.
	SyncAfter int
	// Freq is the frequency of the generated signal, in Hz.
	Freq float64

	open  bool
	iepe  [MaxChannels]bool
	sens  [MaxChannels]float64
	clock struct {
		src   ClockSource
		rate  float64
		reads int
	}
	scan struct {
		active  bool
		stopped bool
		mask    uint8
		nchans  int
		want    uint32 // samples per channel requested, 0 for continuous
		opts    Options
		start   time.Time
		read    uint64 // samples per channel already delivered
	}
}

// NewSim returns a simulated board at the provided address.
func NewSim(addr uint8) *Sim {
	sim := &Sim{
		addr:      addr,
		now:       time.Now,
		SyncAfter: 2,
		Freq:      100,
	}
	sim.clock.rate = MaxSampleRate
	for i := range sim.sens {
		sim.sens[i] = 1
	}
	return sim
}

func (sim *Sim) List() ([]HatInfo, error) {
	return []HatInfo{{
		Address: sim.addr,
		ID:      HatID,
		Version: 1,
		Name:    "MCC 172 (simulated)",
	}}, nil
}

func (sim *Sim) check(addr uint8) error {
	if addr != sim.addr {
		return InvalidDevice
	}
	if !sim.open {
		return ResourceUnavail
	}
	return nil
}

func (sim *Sim) Open(addr uint8) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if addr != sim.addr {
		return InvalidDevice
	}
	sim.open = true
	return nil
}

func (sim *Sim) Close(addr uint8) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	sim.open = false
	sim.scan.active = false
	return nil
}

func (sim *Sim) IEPEConfigWrite(addr, ch uint8, enable bool) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	if int(ch) >= MaxChannels {
		return BadParameter
	}
	sim.iepe[ch] = enable
	return nil
}

// IEPE reports whether the IEPE supply of channel ch is enabled.
func (sim *Sim) IEPE(ch uint8) bool {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	return sim.iepe[ch]
}

func (sim *Sim) SensitivityWrite(addr, ch uint8, v float64) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	if int(ch) >= MaxChannels || v <= 0 {
		return BadParameter
	}
	sim.sens[ch] = v
	return nil
}

func (sim *Sim) ClockConfigWrite(addr uint8, src ClockSource, rate float64) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	if sim.scan.active {
		return Busy
	}
	if rate <= 0 {
		return BadParameter
	}
	sim.clock.src = src
	sim.clock.rate = NearestRate(rate)
	sim.clock.reads = 0
	return nil
}

func (sim *Sim) ClockConfigRead(addr uint8) (ClockConfig, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return ClockConfig{}, err
	}
	sim.clock.reads++
	return ClockConfig{
		Source:       sim.clock.src,
		SampleRate:   sim.clock.rate,
		Synchronized: sim.clock.reads > sim.SyncAfter,
	}, nil
}

func (sim *Sim) ScanStart(addr, mask uint8, n uint32, opts Options) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	if sim.scan.active {
		return Busy
	}
	if mask == 0 || mask&^(Chan0|Chan1) != 0 {
		return BadParameter
	}
	if n == 0 && opts&OptsContinuous == 0 {
		return BadParameter
	}

	sim.scan.active = true
	sim.scan.stopped = false
	sim.scan.mask = mask
	sim.scan.nchans = 0
	for i := 0; i < MaxChannels; i++ {
		if mask&(1<<i) != 0 {
			sim.scan.nchans++
		}
	}
	sim.scan.want = n
	if opts&OptsContinuous != 0 {
		sim.scan.want = 0
	}
	sim.scan.opts = opts
	sim.scan.start = sim.now()
	sim.scan.read = 0
	return nil
}

func (sim *Sim) ScanRead(addr uint8, n int32, timeout time.Duration, buf []float64) (Status, uint32, error) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return 0, 0, err
	}
	if !sim.scan.active {
		return 0, 0, ResourceUnavail
	}

	var (
		nch      = sim.scan.nchans
		elapsed  = sim.now().Sub(sim.scan.start).Seconds()
		produced = uint64(elapsed * sim.clock.rate)
	)
	if sim.scan.want != 0 && produced > uint64(sim.scan.want) {
		produced = uint64(sim.scan.want)
	}
	if sim.scan.stopped {
		produced = sim.scan.read
	}

	avail := produced - sim.scan.read
	if n >= 0 && uint64(n) < avail {
		avail = uint64(n)
	}
	if room := uint64(len(buf) / nch); room < avail {
		avail = room
	}

	var (
		inc = 1 / sim.clock.rate
		w   = 2 * math.Pi * sim.Freq
	)
	for i := uint64(0); i < avail; i++ {
		t := float64(sim.scan.read+i) * inc
		j := 0
		for ch := 0; ch < MaxChannels; ch++ {
			if sim.scan.mask&(1<<ch) == 0 {
				continue
			}
			v := math.Sin(w*t + float64(ch)*math.Pi/2)
			if sim.scan.opts&OptsNoScaleData == 0 {
				v /= sim.sens[ch]
			}
			buf[int(i)*nch+j] = v
			j++
		}
	}
	sim.scan.read += avail

	var st Status
	if !sim.scan.stopped && (sim.scan.want == 0 || sim.scan.read < uint64(sim.scan.want)) {
		st |= StatusRunning
	}
	st |= StatusTriggered
	return st, uint32(avail), nil
}

func (sim *Sim) ScanStop(addr uint8) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	sim.scan.stopped = true
	return nil
}

func (sim *Sim) ScanCleanup(addr uint8) error {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	if err := sim.check(addr); err != nil {
		return err
	}
	sim.scan.active = false
	return nil
}

// NearestRate returns the rate a board negotiates for the requested one:
// the maximum rate divided by an integer between 1 and 256.
func NearestRate(rate float64) float64 {
	div := math.Round(MaxSampleRate / rate)
	switch {
	case div < 1:
		div = 1
	case div > 256:
		div = 256
	}
	return MaxSampleRate / div
}

var _ Driver = (*Sim)(nil)
