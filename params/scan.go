// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// MaxFileSize is the maximum number of bytes of a parameter file that
	// are considered. Comment lines do count toward that limit.
	MaxFileSize = 2000

	// CommentPrefix starts a comment line.
	CommentPrefix = "<!"
)

// Result describes the outcome of a tag lookup.
type Result uint8

const (
	NotFound  Result = iota // opening or closing tag is absent
	Found                   // value extracted
	Truncated               // tag absent from a file that was truncated
	Malformed               // closing tag located before the end of the opening tag
)

func (r Result) String() string {
	switch r {
	case NotFound:
		return "not-found"
	case Found:
		return "found"
	case Truncated:
		return "truncated"
	case Malformed:
		return "malformed"
	}
	return fmt.Sprintf("Result(%d)", uint8(r))
}

// Buffer holds the comment-stripped content of a parameter file.
type Buffer struct {
	data      []byte
	truncated bool
}

// NewBuffer strips comments from r and keeps at most max bytes of it.
//
// Lines are appended as long as the running total of bytes read,
// comments included, stays below max. Once a line overflows, it and all
// the following ones are dropped and the buffer is marked as truncated.
func NewBuffer(r io.Reader, max int) (Buffer, error) {
	var (
		buf  Buffer
		tot  int
		rbuf = bufio.NewReader(r)
	)
	for {
		line, err := rbuf.ReadBytes('\n')
		if len(line) > 0 {
			tot += len(line)
			switch {
			case tot >= max:
				buf.truncated = true
			case bytes.HasPrefix(line, []byte(CommentPrefix)):
				// comment.
			default:
				buf.data = append(buf.data, line...)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return buf, fmt.Errorf("params: could not read parameters: %w", err)
		}
	}
	return buf, nil
}

// ReadFile reads and strips the named parameter file.
func ReadFile(fname string) (Buffer, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Buffer{}, fmt.Errorf("params: could not open %q: %w", fname, err)
	}
	defer f.Close()

	buf, err := NewBuffer(f, MaxFileSize)
	if err != nil {
		return buf, fmt.Errorf("params: could not read %q: %w", fname, err)
	}
	return buf, nil
}

// Len returns the number of bytes kept in the buffer.
func (buf Buffer) Len() int { return len(buf.data) }

// Truncated reports whether the parameter file was larger than the limit.
func (buf Buffer) Truncated() bool { return buf.truncated }

// Lookup returns the raw value of the named tag.
//
// The value is the byte range strictly between the first occurrence of
// "<name>" and the first occurrence of "</name>". No nesting, attributes
// or escaping are supported.
func (buf Buffer) Lookup(name string) (string, Result) {
	var (
		otag = []byte("<" + name + ">")
		ctag = []byte("</" + name + ">")
	)

	beg := bytes.Index(buf.data, otag)
	end := bytes.Index(buf.data, ctag)
	switch {
	case beg < 0 || end < 0:
		if buf.truncated {
			return "", Truncated
		}
		return "", NotFound
	case end < beg+len(otag):
		return "", Malformed
	}

	return string(buf.data[beg+len(otag) : end]), Found
}
