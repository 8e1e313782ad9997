// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"fmt"
	"log/slog"
	"time"

	sqlite3 "modernc.org/sqlite/lib"
)

// OpenMode selects how Open treats the database file.
type OpenMode int

const (
	// Create opens the database for reading and writing, creating the file if it does not exist.
	Create OpenMode = iota
	// ReadWrite opens an existing database for reading and writing.
	ReadWrite
	// ReadOnly opens an existing database for reading.
	ReadOnly
)

func (m OpenMode) String() string {
	switch m {
	case Create:
		return "create"
	case ReadWrite:
		return "open R/W"
	case ReadOnly:
		return "open"
	}
	return fmt.Sprintf("OpenMode(%d)", int(m))
}

func (m OpenMode) flags() int32 {
	switch m {
	case Create:
		return sqlite3.SQLITE_OPEN_READWRITE | sqlite3.SQLITE_OPEN_CREATE
	case ReadWrite:
		return sqlite3.SQLITE_OPEN_READWRITE
	case ReadOnly:
		return sqlite3.SQLITE_OPEN_READONLY
	}
	panic(misuse("unknown open mode %d", int(m)))
}

// Config holds connection options.
type Config struct {
	// Path to the database file. Use ":memory:" for a private in-memory database.
	Path string

	// Mode defaults to Create.
	Mode OpenMode

	// Logger for operational logging. Uses slog.Default() if nil.
	Logger *slog.Logger

	// BusyTimeout is how long the engine waits for a lock held by another
	// connection before reporting ErrBusy. Zero reports contention immediately.
	BusyTimeout time.Duration

	// Pragmas are applied in order right after the database is opened.
	Pragmas []Pragma
}

// defaults returns a copy of cfg with default values applied.
func (cfg Config) defaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Open opens the database described by cfg.
func (cfg Config) Open() (*Conn, error) {
	cfg = cfg.defaults()

	h, err := OpenHandle(cfg.Path, cfg.Mode)
	if err != nil {
		cfg.Logger.Debug("open failed", "path", cfg.Path, "mode", cfg.Mode.String(), "err", err)
		return nil, err
	}
	c := &Conn{h: h, log: cfg.Logger}

	if cfg.BusyTimeout > 0 {
		if err := h.busyTimeout(int(cfg.BusyTimeout / time.Millisecond)); err != nil {
			c.Close()
			return nil, err
		}
	}
	for _, p := range cfg.Pragmas {
		stmt, err := p.statement()
		if err != nil {
			c.Close()
			return nil, err
		}
		if err := c.Execute(stmt); err != nil {
			c.Close()
			return nil, fmt.Errorf("pragma %s: %w", p.Name, err)
		}
	}

	c.log.Debug("database opened", "path", cfg.Path, "mode", cfg.Mode.String())
	return c, nil
}

// Adopt takes exclusive ownership of h. Only the Logger of cfg is used.
func (cfg Config) Adopt(h *Handle) *Conn {
	if h == nil || h.db == 0 {
		panic(misuse("adopting a closed handle"))
	}
	cfg = cfg.defaults()
	return &Conn{h: h, log: cfg.Logger}
}

// Open opens the database at path.
// Any failure to open is reported as an error matching ErrNotFound.
func Open(path string, mode OpenMode) (*Conn, error) {
	return Config{Path: path, Mode: mode}.Open()
}

// Memory opens a new private in-memory database.
// Every call returns an independent database.
func Memory() (*Conn, error) {
	return Open(":memory:", Create)
}

// Adopt takes exclusive ownership of a handle opened with OpenHandle.
func Adopt(h *Handle) *Conn {
	return Config{}.Adopt(h)
}

// Conn is a connection to a database. A Conn is not safe for concurrent use.
type Conn struct {
	h   *Handle
	log *slog.Logger
}

func (c *Conn) handle() *Handle {
	if c == nil || c.h == nil {
		panic(misuse("use of a released connection"))
	}
	return c.h
}

// Execute runs one or more SQL statements to completion.
func (c *Conn) Execute(command string) error {
	return c.handle().exec(command)
}

// LastInsertRowID returns the rowid of the most recent successful insert
// on this connection, or zero if there has been none.
func (c *Conn) LastInsertRowID() int64 {
	return c.handle().lastInsertRowID()
}

// HasColumn reports whether table has a column named column.
// A missing table reports false.
func (c *Conn) HasColumn(table, column string) (bool, error) {
	return c.handle().hasColumn(table, column)
}

// Prepare compiles the first statement of sql.
func (c *Conn) Prepare(sql string) (*Stmt, error) {
	p, err := c.handle().prepare(sql)
	if err != nil {
		return nil, err
	}
	return newStmt(c, p, sql), nil
}

// Release gives up ownership of the engine handle. The Conn must not be used
// afterwards; the caller becomes responsible for closing the handle.
func (c *Conn) Release() *Handle {
	h := c.handle()
	c.h = nil
	return h
}

// Close closes the connection. Closing a closed or released Conn is a no-op.
func (c *Conn) Close() error {
	if c == nil || c.h == nil {
		return nil
	}
	if err := c.h.Close(); err != nil {
		return err
	}
	c.h = nil
	return nil
}

// Logger returns the logger the connection was configured with.
func (c *Conn) Logger() *slog.Logger {
	return c.log
}
