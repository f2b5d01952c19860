// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rundb

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-lpc/vibdaq/internal/fakedb"
	"github.com/google/uuid"
)

var (
	runID    = uuid.MustParse("2a4c1d9e-6f7b-4c3e-9a1d-0b8e7f6a5c4d")
	runStart = time.Date(2026, 10, 17, 10, 34, 56, 0, time.UTC)
	runStop  = runStart.Add(90 * time.Second)
)

func newRun() *Run {
	return &Run{
		ID:                runID,
		Host:              "lpc-daq",
		Stamp:             "lpc-daq_20261017_103456",
		Start:             runStart,
		Addr:              0,
		Channels:          2,
		SampleRate:        51200,
		SamplesPerChannel: 4608000,
	}
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb", "")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	_, err = Open("no-such-driver", "")
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestBeginEnd(t *testing.T) {
	db, err := Open("fakedb", "")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	run := &Run{Host: "lpc-daq", Stamp: "lpc-daq_20261017_103456", Channels: 1}
	execs, err := fakedb.Run(context.Background(), fakedb.Rows{}, fakedb.Result{Affected: 1}, func(ctx context.Context) error {
		err := db.Begin(ctx, run)
		if err != nil {
			return err
		}
		run.Samples = 1024
		return db.End(ctx, run, errors.New("daq: read scan: hardware overrun"))
	})
	if err != nil {
		t.Fatalf("could not record run: %+v", err)
	}

	if run.ID == uuid.Nil {
		t.Fatalf("no run id assigned")
	}
	if run.Start.IsZero() || run.Stop.IsZero() {
		t.Fatalf("run times not assigned: start=%v, stop=%v", run.Start, run.Stop)
	}
	if got, want := run.Status, StatusFailed; got != want {
		t.Fatalf("invalid status: got=%q, want=%q", got, want)
	}

	if got, want := len(execs), 2; got != want {
		t.Fatalf("invalid number of statements: got=%d, want=%d", got, want)
	}
	if !strings.HasPrefix(execs[0].Query, "INSERT INTO runs") {
		t.Fatalf("invalid first statement: %q", execs[0].Query)
	}
	if got, want := execs[0].Args[0], driver.Value(run.ID.String()); got != want {
		t.Fatalf("invalid run id: got=%v, want=%v", got, want)
	}
	if got, want := execs[0].Args[10], driver.Value(StatusRunning); got != want {
		t.Fatalf("invalid initial status: got=%v, want=%v", got, want)
	}
	if !strings.HasPrefix(execs[1].Query, "UPDATE runs") {
		t.Fatalf("invalid second statement: %q", execs[1].Query)
	}
	want := []driver.Value{
		run.Stop.UnixNano(), int64(0), float64(0), int64(1024),
		StatusFailed, "daq: read scan: hardware overrun", run.ID.String(),
	}
	if got := execs[1].Args; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid update arguments:\ngot= %#v\nwant=%#v", got, want)
	}

	_, err = fakedb.Run(context.Background(), fakedb.Rows{}, fakedb.Result{Affected: 0}, func(ctx context.Context) error {
		return db.End(ctx, newRun(), nil)
	})
	if !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected a no-run error, got=%+v", err)
	}
}

func TestLast(t *testing.T) {
	db, err := Open("fakedb", "")
	if err != nil {
		t.Fatalf("could not open rundb: %+v", err)
	}
	defer db.Close()

	_, err = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{
			"id", "host", "stamp", "start", "stop", "addr", "channels",
			"rate", "spc", "samples", "status", "msg",
		},
		Values: [][]driver.Value{
			{
				runID.String(), "lpc-daq", "lpc-daq_20261017_103456",
				runStart.UnixNano(), runStop.UnixNano(), int64(0), int64(2),
				51200.0, int64(4608000), int64(4608000), StatusDone, "",
			},
		},
	}, fakedb.Result{}, func(ctx context.Context) error {
		run, err := db.Last(ctx)
		if err != nil {
			t.Fatalf("could not retrieve last run: %+v", err)
		}

		want := newRun()
		want.Stop = runStop
		want.Samples = 4608000
		want.Status = StatusDone
		if !reflect.DeepEqual(run, *want) {
			t.Fatalf("invalid last run:\ngot= %+v\nwant=%+v", run, *want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("error: %+v", err)
	}

	_, err = fakedb.Run(context.Background(), fakedb.Rows{}, fakedb.Result{}, func(ctx context.Context) error {
		_, err := db.Last(ctx)
		return err
	})
	if !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected a no-run error, got=%+v", err)
	}
}

func TestMock(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %+v", err)
	}
	defer sqldb.Close()

	db := New(sqldb)
	run := newRun()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(
			runID.String(), "lpc-daq", "lpc-daq_20261017_103456",
			runStart.UnixNano(), int64(0), 0, 2, 51200.0,
			int64(4608000), int64(0), StatusRunning, "",
		).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE runs SET")).
		WithArgs(runStop.UnixNano(), 0, 51200.0, int64(42), StatusDone, "", runID.String()).
		WillReturnError(errors.New("connection lost"))

	ctx := context.Background()
	err = db.Migrate(ctx)
	if err != nil {
		t.Fatalf("could not migrate: %+v", err)
	}

	err = db.Begin(ctx, run)
	if err != nil {
		t.Fatalf("could not begin run: %+v", err)
	}

	run.Stop = runStop
	run.Samples = 42
	err = db.End(ctx, run, nil)
	if err == nil || !strings.Contains(err.Error(), "connection lost") {
		t.Fatalf("invalid error: %+v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %+v", err)
	}
}

func TestSQLite(t *testing.T) {
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatalf("could not open sqlite db: %+v", err)
	}
	defer db.Close()

	ctx := context.Background()
	err = db.Migrate(ctx)
	if err != nil {
		t.Fatalf("could not migrate: %+v", err)
	}
	// migrations are idempotent.
	err = db.Migrate(ctx)
	if err != nil {
		t.Fatalf("could not re-migrate: %+v", err)
	}

	_, err = db.Last(ctx)
	if !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected a no-run error, got=%+v", err)
	}

	old := newRun()
	old.ID = uuid.Nil
	old.Start = runStart.Add(-time.Hour)
	err = db.Begin(ctx, old)
	if err != nil {
		t.Fatalf("could not begin old run: %+v", err)
	}

	run := newRun()
	err = db.Begin(ctx, run)
	if err != nil {
		t.Fatalf("could not begin run: %+v", err)
	}

	got, err := db.Last(ctx)
	if err != nil {
		t.Fatalf("could not retrieve last run: %+v", err)
	}
	if !reflect.DeepEqual(got, *run) {
		t.Fatalf("invalid running run:\ngot= %+v\nwant=%+v", got, *run)
	}

	run.Stop = runStop
	run.Samples = uint64(run.SamplesPerChannel)
	err = db.End(ctx, run, nil)
	if err != nil {
		t.Fatalf("could not end run: %+v", err)
	}

	got, err = db.Last(ctx)
	if err != nil {
		t.Fatalf("could not retrieve last run: %+v", err)
	}
	if !reflect.DeepEqual(got, *run) {
		t.Fatalf("invalid done run:\ngot= %+v\nwant=%+v", got, *run)
	}
	if got, want := got.Status, StatusDone; got != want {
		t.Fatalf("invalid status: got=%q, want=%q", got, want)
	}
}
