// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/vibdaq/daq"
	"github.com/go-lpc/vibdaq/mcc172"
	"github.com/go-lpc/vibdaq/rundb"
)

const params = `<!-- vib-scan test -->
<number_of_channels>1</number_of_channels>
<sensitivity>100</sensitivity>
<samples_per_channel>512</samples_per_channel>
<scan_rate>51200</scan_rate>
<iepe_supply>on</iepe_supply>
`

func TestRun(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "vib_params")
	err := os.WriteFile(fname, []byte(params), 0644)
	if err != nil {
		t.Fatalf("could not write parameter file: %+v", err)
	}

	for _, tc := range []struct {
		name   string
		params string
		status string
		kind   daq.Kind
	}{
		{
			name:   "ok",
			params: fname,
			status: rundb.StatusDone,
		},
		{
			name:   "missing-params",
			params: filepath.Join(dir, "not-there"),
			status: rundb.StatusFailed,
			kind:   daq.KindConfig,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				odir = filepath.Join(dir, tc.name)
				cfg  = config{
					params:   tc.params,
					odir:     odir,
					addr:     -1,
					sim:      true,
					poll:     time.Millisecond,
					lockDir:  filepath.Join(odir, "lock"),
					dbDriver: "sqlite",
					dbDSN:    filepath.Join(odir, "runs.sqlite"),
					metrics:  filepath.Join(odir, "vib-scan.prom"),
					env:      filepath.Join(odir, "missing.env"),
				}
			)
			err := os.MkdirAll(odir, 0755)
			if err != nil {
				t.Fatalf("could not create output dir: %+v", err)
			}

			err = run(context.Background(), cfg)
			switch tc.kind {
			case 0:
				if err != nil {
					t.Fatalf("could not run: %+v", err)
				}
			default:
				if got, want := daq.KindOf(err), tc.kind; got != want {
					t.Fatalf("invalid error kind: got=%v, want=%v (err=%+v)", got, want, err)
				}
			}

			db, err := rundb.Open("sqlite", cfg.dbDSN)
			if err != nil {
				t.Fatalf("could not open run database: %+v", err)
			}
			defer db.Close()

			rec, err := db.Last(context.Background())
			if err != nil {
				t.Fatalf("could not retrieve last run: %+v", err)
			}
			if got, want := rec.Status, tc.status; got != want {
				t.Fatalf("invalid run status: got=%q, want=%q (msg=%q)", got, want, rec.Msg)
			}

			prom, err := os.ReadFile(cfg.metrics)
			if err != nil {
				t.Fatalf("could not read metrics: %+v", err)
			}

			logs, err := filepath.Glob(filepath.Join(odir, "*.log"))
			if err != nil {
				t.Fatalf("could not list logs: %+v", err)
			}

			switch tc.status {
			case rundb.StatusDone:
				if got, want := rec.Samples, uint64(512); got != want {
					t.Fatalf("invalid number of samples: got=%d, want=%d", got, want)
				}
				if !bytes.Contains(prom, []byte("vibdaq_samples_total 512")) {
					t.Fatalf("invalid metrics:\n%s", prom)
				}
				if got, want := len(logs), 1; got != want {
					t.Fatalf("invalid number of logs: got=%d, want=%d (%q)", got, want, logs)
				}
				raw, err := os.ReadFile(logs[0])
				if err != nil {
					t.Fatalf("could not read data log: %+v", err)
				}
				if got, want := bytes.Count(raw, []byte("\n")), 512; got != want {
					t.Fatalf("invalid number of records: got=%d, want=%d", got, want)
				}
			default:
				if !strings.Contains(rec.Msg, "load parameters") {
					t.Fatalf("invalid run message: %q", rec.Msg)
				}
				if !bytes.Contains(prom, []byte(`vibdaq_faults_total{kind="config"} 1`)) {
					t.Fatalf("invalid metrics:\n%s", prom)
				}
				if got, want := len(logs), 1; got != want || !strings.HasSuffix(logs[0], "_errorlog.log") {
					t.Fatalf("invalid logs: %q", logs)
				}
			}
		})
	}
}

func TestNoHAT(t *testing.T) {
	orig := newDriver
	defer func() { newDriver = orig }()

	errHAT := errors.New("no board")
	newDriver = func(cfg config) (mcc172.Driver, error) {
		return nil, errHAT
	}

	odir := t.TempDir()
	err := run(context.Background(), config{odir: odir})
	if !errors.Is(err, errHAT) {
		t.Fatalf("invalid error: %+v", err)
	}

	logs, err := filepath.Glob(filepath.Join(odir, "*_errorlog.log"))
	if err != nil {
		t.Fatalf("could not list logs: %+v", err)
	}
	if got, want := len(logs), 1; got != want {
		t.Fatalf("invalid number of error logs: got=%d, want=%d", got, want)
	}

	raw, err := os.ReadFile(logs[0])
	if err != nil {
		t.Fatalf("could not read error log: %+v", err)
	}
	if got, want := string(raw), "could not create board driver: no board\n"; !strings.HasSuffix(got, want) {
		t.Fatalf("invalid error log:\ngot= %q\nwant=%q", got, want)
	}
	if got, want := bytes.Count(raw, []byte("\n")), 1; got != want {
		t.Fatalf("invalid number of faults: got=%d, want=%d", got, want)
	}
}
