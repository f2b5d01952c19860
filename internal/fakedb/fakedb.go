// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
//
// Every statement executed while f runs under Run sees the same scripted
// rows, or the same scripted result for statements that return no rows.
// Executed statements and their arguments are recorded.
package fakedb // import "github.com/go-lpc/vibdaq/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu    sync.Mutex
	rows  Rows
	res   Result
	execs []Exec
}

// Exec is a recorded statement.
type Exec struct {
	Query string
	Args  []driver.Value
}

// Result is the scripted outcome of statements that return no rows.
type Result struct {
	LastID   int64
	Affected int64
	Err      error
}

func (res Result) LastInsertId() (int64, error) { return res.LastID, res.Err }
func (res Result) RowsAffected() (int64, error) { return res.Affected, res.Err }

// Run runs f with the provided scripted rows and result.
// It returns the statements executed by f.
func Run(ctx context.Context, rows Rows, res Result, f func(ctx context.Context) error) ([]Exec, error) {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.res = res
	query.execs = nil

	err := f(ctx)
	return query.execs, err
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{query: query}, nil
}

func (c *Conn) Close() error {
	return nil
}

// Begin starts and returns a new transaction.
func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

type Stmt struct {
	query string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the number of arguments is not checked.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec records the statement and returns the scripted result.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	query.execs = append(query.execs, Exec{
		Query: stmt.query,
		Args:  append([]driver.Value(nil), args...),
	})
	if query.res.Err != nil {
		return nil, query.res.Err
	}
	return query.res, nil
}

// Query returns the scripted rows.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return &query.rows, nil
}

type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

// Close closes the rows iterator.
func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row, or returns io.EOF.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver = (*Driver)(nil)
	_ driver.Conn   = (*Conn)(nil)
	_ driver.Stmt   = (*Stmt)(nil)
	_ driver.Result = Result{}
	_ driver.Rows   = (*Rows)(nil)
)
