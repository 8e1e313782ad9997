// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"fmt"
	"log/slog"
	"runtime"

	sqlite3 "modernc.org/sqlite/lib"
)

// StepResult is the outcome of a successful Step.
type StepResult int

const (
	// Done means the statement has no more rows.
	Done StepResult = iota
	// Row means a row is available through the Column methods.
	Row
)

func (r StepResult) String() string {
	switch r {
	case Done:
		return "done"
	case Row:
		return "row"
	}
	return fmt.Sprintf("StepResult(%d)", int(r))
}

// Type is the storage class of a column value.
type Type int

const (
	Integer Type = iota
	Float
	Text
	Blob
	Null
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	case Blob:
		return "blob"
	case Null:
		return "null"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

func typeOf(code int32) Type {
	switch code {
	case sqlite3.SQLITE_INTEGER:
		return Integer
	case sqlite3.SQLITE_FLOAT:
		return Float
	case sqlite3.SQLITE_TEXT:
		return Text
	case sqlite3.SQLITE_BLOB:
		return Blob
	case sqlite3.SQLITE_NULL:
		return Null
	}
	panic(misuse("unknown column type %d", code))
}

// cursor is the position of a statement in its result set.
type cursor int

const (
	unstepped cursor = iota
	hasRow
	done
)

// Stmt is a compiled SQL statement.
//
// A Stmt must be closed before the Conn that prepared it. Parameters are
// numbered from 1 and columns from 0. Every parameter must be bound before
// the first Step; bindings survive Reset and are dropped by ClearBindings.
type Stmt struct {
	h   *Handle
	p   uintptr // *sqlite3.Xsqlite3_stmt
	sql string
	log *slog.Logger

	state  cursor
	failed bool // last Step returned an engine error

	bound []bool                  // bound[i] is parameter i+1
	pins  map[int]*runtime.Pinner // no-copy bindings by parameter index
}

func newStmt(c *Conn, p uintptr, sql string) *Stmt {
	s := &Stmt{h: c.h, p: p, sql: sql, log: c.log}
	s.bound = make([]bool, sqlite3.Xsqlite3_bind_parameter_count(s.h.tls, p))
	return s
}

func (s *Stmt) stmt() uintptr {
	if s.p == 0 {
		panic(misuse("use of a closed statement"))
	}
	return s.p
}

// SQL returns the text the statement was prepared from.
func (s *Stmt) SQL() string {
	return s.sql
}

// ParamCount returns the number of parameters of the statement.
func (s *Stmt) ParamCount() int {
	return len(s.bound)
}

// Step advances the statement to its next row.
//
// Step returns an error matching ErrBusy when another connection holds a lock;
// the statement keeps its position and Step may be called again. Any other
// engine failure finishes the statement: it must be Reset before it can be
// stepped again.
//
// Step panics if the statement is Done, or if a parameter is not bound.
//
// C documentation
//
//	int sqlite3_step(sqlite3_stmt*);
func (s *Stmt) Step() (StepResult, error) {
	p := s.stmt()
	if s.state == done {
		panic(misuse("step on a finished statement without reset: %s", s.sql))
	}
	for i, ok := range s.bound {
		if !ok {
			panic(misuse("step with unbound parameter %d: %s", i+1, s.sql))
		}
	}

	rc := sqlite3.Xsqlite3_step(s.h.tls, p)
	switch rc {
	case sqlite3.SQLITE_ROW:
		s.state, s.failed = hasRow, false
		return Row, nil
	case sqlite3.SQLITE_DONE:
		s.state, s.failed = done, false
		return Done, nil
	case sqlite3.SQLITE_MISUSE:
		panic(misuse("engine rejected step: %s", s.sql))
	}

	err := s.h.error("can't step statement", rc)
	if rc&0xff == sqlite3.SQLITE_BUSY {
		s.log.Debug("step busy", "sql", s.sql)
		return Done, err
	}
	s.state, s.failed = done, true
	s.log.Debug("step failed", "sql", s.sql, "err", err)
	return Done, err
}

// Reset rewinds the statement so it can be stepped from the start.
// Bindings are kept.
//
// C documentation
//
//	int sqlite3_reset(sqlite3_stmt *pStmt);
func (s *Stmt) Reset() {
	// reset repeats the code of the last failed step; Step already reported it
	sqlite3.Xsqlite3_reset(s.h.tls, s.stmt())
	s.state, s.failed = unstepped, false
}

// ClearBindings unbinds every parameter and releases memory pinned by the
// no-copy binders. Parameters must be bound again before the next Step.
//
// C documentation
//
//	int sqlite3_clear_bindings(sqlite3_stmt*);
func (s *Stmt) ClearBindings() {
	sqlite3.Xsqlite3_clear_bindings(s.h.tls, s.stmt())
	s.unpinAll()
	clear(s.bound)
}

// Close finalizes the statement. Closing a closed Stmt is a no-op.
//
// The finalize error is reported only when the last Step succeeded, since it
// repeats the error Step already returned.
func (s *Stmt) Close() error {
	if s == nil || s.p == 0 {
		return nil
	}
	rc := s.h.finalize(s.p)
	s.p = 0
	s.unpinAll()
	if rc != sqlite3.SQLITE_OK && !s.failed {
		return s.h.error("can't finalize statement", rc)
	}
	return nil
}

func (s *Stmt) pin(index int, ptr any) {
	s.unpin(index)
	if s.pins == nil {
		s.pins = make(map[int]*runtime.Pinner)
	}
	pinner := new(runtime.Pinner)
	pinner.Pin(ptr)
	s.pins[index] = pinner
}

func (s *Stmt) unpin(index int) {
	if pinner, ok := s.pins[index]; ok {
		pinner.Unpin()
		delete(s.pins, index)
	}
}

func (s *Stmt) unpinAll() {
	for index := range s.pins {
		s.unpin(index)
	}
}
