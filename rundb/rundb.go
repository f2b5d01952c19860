// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rundb records acquisition runs in a database.
//
// Runs can be recorded in a local sqlite file or in a shared MySQL
// database, using the "sqlite" or "mysql" driver names.
package rundb // import "github.com/go-lpc/vibdaq/rundb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const timeout = 5 * time.Second

// Status of a run.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// ErrNoRun is returned when a run could not be found.
var ErrNoRun = errors.New("rundb: no such run")

// Run describes an acquisition run.
type Run struct {
	ID    uuid.UUID
	Host  string
	Stamp string // run stamp, as used to name the logs
	Start time.Time
	Stop  time.Time // zero while running

	Addr              int
	Channels          int
	SampleRate        float64 // negotiated sample rate, requested one until known
	SamplesPerChannel uint32  // requested samples per channel
	Samples           uint64  // samples per channel written to the data log

	Status string
	Msg    string // fatal error message of a failed run
}

// DB is a database of acquisition runs.
type DB struct {
	db *sql.DB
}

// Open opens a connection to the database described by the driver name
// and the driver specific data source name.
func Open(driver, dsn string) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("rundb: could not open %s db: %w", driver, err)
	}

	err = ping(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("rundb: could not ping %s db: %w", driver, err)
	}

	return &DB{db: db}, nil
}

// New returns a run database using the provided connection.
func New(db *sql.DB) *DB {
	return &DB{db: db}
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id       VARCHAR(36) NOT NULL PRIMARY KEY,
	host     VARCHAR(255) NOT NULL,
	stamp    VARCHAR(255) NOT NULL,
	start    BIGINT NOT NULL,
	stop     BIGINT NOT NULL,
	addr     INTEGER NOT NULL,
	channels INTEGER NOT NULL,
	rate     DOUBLE PRECISION NOT NULL,
	spc      BIGINT NOT NULL,
	samples  BIGINT NOT NULL,
	status   VARCHAR(16) NOT NULL,
	msg      TEXT NOT NULL
)`

// Migrate creates the runs table, if needed.
func (db *DB) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := db.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("rundb: could not create runs table: %w", err)
	}
	return nil
}

// Begin records the start of a run.
// A new ID is assigned to the run if it has none.
func (db *DB) Begin(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Start.IsZero() {
		run.Start = time.Now()
	}
	run.Status = StatusRunning

	_, err := db.db.ExecContext(ctx,
		"INSERT INTO runs (id, host, stamp, start, stop, addr, channels, rate, spc, samples, status, msg) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.ID.String(), run.Host, run.Stamp,
		unixNano(run.Start), unixNano(run.Stop),
		run.Addr, run.Channels, run.SampleRate,
		int64(run.SamplesPerChannel), int64(run.Samples),
		run.Status, run.Msg,
	)
	if err != nil {
		return fmt.Errorf("rundb: could not insert run %v: %w", run.ID, err)
	}
	return nil
}

// End records the outcome of a run: failed if cause is not nil, done otherwise.
func (db *DB) End(ctx context.Context, run *Run, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if run.Stop.IsZero() {
		run.Stop = time.Now()
	}
	run.Status = StatusDone
	run.Msg = ""
	if cause != nil {
		run.Status = StatusFailed
		run.Msg = cause.Error()
	}

	res, err := db.db.ExecContext(ctx,
		"UPDATE runs SET stop=?, addr=?, rate=?, samples=?, status=?, msg=? WHERE id=?",
		unixNano(run.Stop), run.Addr, run.SampleRate, int64(run.Samples),
		run.Status, run.Msg, run.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("rundb: could not update run %v: %w", run.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rundb: could not update run %v: %w", run.ID, err)
	}
	if n != 1 {
		return fmt.Errorf("%w (id=%v)", ErrNoRun, run.ID)
	}
	return nil
}

// Last returns the most recently started run.
func (db *DB) Last(ctx context.Context) (Run, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		run Run
		n   = 0
	)
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT id, host, stamp, start, stop, addr, channels, rate, spc, samples, status, msg FROM runs ORDER BY start DESC LIMIT 1",
	)
	if err != nil {
		return run, fmt.Errorf("rundb: could not query last run: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			beg, end    int64
			spc, nsamps int64
		)
		err = rows.Scan(
			&id, &run.Host, &run.Stamp, &beg, &end,
			&run.Addr, &run.Channels, &run.SampleRate, &spc, &nsamps,
			&run.Status, &run.Msg,
		)
		if err != nil {
			return run, fmt.Errorf("rundb: could not get last run: %w", err)
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return run, fmt.Errorf("rundb: could not parse run id %q: %w", id, err)
		}
		run.Start = fromUnixNano(beg)
		run.Stop = fromUnixNano(end)
		run.SamplesPerChannel = uint32(spc)
		run.Samples = uint64(nsamps)
		n++
	}

	if err := rows.Err(); err != nil {
		return run, fmt.Errorf("rundb: could not scan db for last run: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return run, fmt.Errorf("rundb: context error while retrieving last run: %w", err)
	}

	if n == 0 {
		return run, ErrNoRun
	}
	return run, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
