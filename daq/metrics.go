// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package daq

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the metrics of acquisition runs.
// A nil *Metrics records nothing.
type Metrics struct {
	samples  prometheus.Counter
	reads    prometheus.Counter
	faults   *prometheus.CounterVec
	backlog  prometheus.Gauge
	rate     prometheus.Gauge
	duration prometheus.Histogram
}

// NewMetrics creates the run metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibdaq_samples_total",
			Help: "Samples per channel written to the data log.",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vibdaq_scan_reads_total",
			Help: "Reads of the scan buffer.",
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vibdaq_faults_total",
			Help: "Fatal errors, by kind.",
		}, []string{"kind"}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vibdaq_scan_backlog_samples",
			Help: "Samples per channel returned by the last read of the scan buffer.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vibdaq_sample_rate_hertz",
			Help: "Sample rate negotiated with the board.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vibdaq_scan_read_seconds",
			Help:    "Duration of a read of the scan buffer.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		}),
	}
	reg.MustRegister(m.samples, m.reads, m.faults, m.backlog, m.rate, m.duration)
	return m
}

func (m *Metrics) read(n uint32, seconds float64) {
	if m == nil {
		return
	}
	m.reads.Inc()
	m.backlog.Set(float64(n))
	m.duration.Observe(seconds)
}

func (m *Metrics) logged(n uint32) {
	if m == nil {
		return
	}
	m.samples.Add(float64(n))
}

func (m *Metrics) fault(kind Kind) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) sampleRate(rate float64) {
	if m == nil {
		return
	}
	m.rate.Set(rate)
}
