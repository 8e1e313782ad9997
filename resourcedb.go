// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package resourcedb

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mdhender/resourcedb/sqlite"
)

// Config holds database configuration options.
type Config struct {
	// Logger for operational logging. Uses slog.Default() if nil.
	Logger *slog.Logger

	// BusyTimeout is how long the engine waits for a lock held by another
	// process before reporting sqlite.ErrBusy. Zero reports contention immediately.
	BusyTimeout time.Duration

	// Pragmas are applied to every connection opened from a path,
	// e.g. sqlite.DurablePragmas. Adopted connections are left alone.
	Pragmas []sqlite.Pragma
}

// defaults returns a copy of cfg with default values applied.
func (cfg Config) defaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// adopting returns cfg with defaults applied, taking the logger of conn
// when cfg has none.
func (cfg Config) adopting(conn *sqlite.Conn) Config {
	if cfg.Logger == nil {
		cfg.Logger = conn.Logger()
	}
	return cfg.defaults()
}

func (cfg Config) open(path string, mode sqlite.OpenMode) (*sqlite.Conn, error) {
	return sqlite.Config{
		Path:        path,
		Mode:        mode,
		Logger:      cfg.Logger,
		BusyTimeout: cfg.BusyTimeout,
		Pragmas:     cfg.Pragmas,
	}.Open()
}

// DB is a database that carries Metadata. It embeds the connection, so it
// can be used as a plain sqlite.Conn.
type DB struct {
	*sqlite.Conn

	md        Metadata
	mdVersion uint32
	log       *slog.Logger
}

// Status describes a database without changing it.
type Status struct {
	// IsResource is false when the database has no readable metadata.
	IsResource bool

	// Metadata and SchemaVersion are only set when IsResource is true.
	Metadata      Metadata
	SchemaVersion uint32

	// Current is true when the metadata layout is the one written by this package.
	Current bool
}

// Open opens the resource database at path, which must exist and carry metadata.
func (cfg Config) Open(path string, readOnly bool) (*DB, error) {
	cfg = cfg.defaults()

	mode := sqlite.ReadWrite
	if readOnly {
		mode = sqlite.ReadOnly
	}
	cfg.Logger.Info("opening resource database", "path", path, "mode", mode.String())

	conn, err := cfg.open(path, mode)
	if err != nil {
		return nil, err
	}
	return cfg.FromConn(conn)
}

// Create creates a resource database at path with metadata md. The parent
// directory must exist. Creating over an existing resource database fails
// with ErrWriteMetadata.
func (cfg Config) Create(path string, md Metadata) (*DB, error) {
	cfg = cfg.defaults()
	cfg.Logger.Info("creating resource database", "path", path)

	conn, err := cfg.open(path, sqlite.Create)
	if err != nil {
		return nil, err
	}
	return cfg.Convert(conn, md)
}

// Memory creates a private in-memory resource database with metadata md.
func (cfg Config) Memory(md Metadata) (*DB, error) {
	cfg = cfg.defaults()

	conn, err := cfg.open(":memory:", sqlite.Create)
	if err != nil {
		return nil, err
	}
	return cfg.Convert(conn, md)
}

// FromConn takes ownership of conn and reads its metadata. If conn has no
// readable metadata it is closed and ErrReadMetadata is returned.
// Without a Logger in cfg the DB logs where conn does.
func (cfg Config) FromConn(conn *sqlite.Conn) (*DB, error) {
	cfg = cfg.adopting(conn)

	version, md, err := readMetadata(conn, cfg.Logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{Conn: conn, md: md, mdVersion: version, log: cfg.Logger}, nil
}

// Convert takes ownership of conn and adds metadata md to it. If conn
// already has metadata it is closed and ErrWriteMetadata is returned.
// Without a Logger in cfg the DB logs where conn does.
func (cfg Config) Convert(conn *sqlite.Conn, md Metadata) (*DB, error) {
	cfg = cfg.adopting(conn)

	if err := createMetadata(conn, md, cfg.Logger); err != nil {
		conn.Close()
		return nil, err
	}
	cfg.Logger.Info("metadata created", "type", md.Type(), "tool", md.ToolName(), "version", MetadataVersion)
	return &DB{Conn: conn, md: md, mdVersion: MetadataVersion, log: cfg.Logger}, nil
}

// Inspect reports the metadata of the database at path without modifying it.
func (cfg Config) Inspect(path string) (*Status, error) {
	cfg = cfg.defaults()

	if isMemory(path) {
		return nil, fmt.Errorf("cannot inspect in-memory database")
	}

	conn, err := cfg.open(path, sqlite.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	version, md, err := readMetadata(conn, cfg.Logger)
	if errors.Is(err, ErrReadMetadata) {
		return &Status{}, nil
	} else if err != nil {
		return nil, err
	}
	return &Status{
		IsResource:    true,
		Metadata:      md,
		SchemaVersion: version,
		Current:       version == MetadataVersion,
	}, nil
}

// Open opens the resource database at path with default options.
func Open(path string, readOnly bool) (*DB, error) {
	return Config{}.Open(path, readOnly)
}

// Create creates a resource database at path with default options.
func Create(path string, md Metadata) (*DB, error) {
	return Config{}.Create(path, md)
}

// Memory creates a private in-memory resource database with default options.
func Memory(md Metadata) (*DB, error) {
	return Config{}.Memory(md)
}

// FromConn takes ownership of conn and reads its metadata.
func FromConn(conn *sqlite.Conn) (*DB, error) {
	return Config{}.FromConn(conn)
}

// Convert takes ownership of conn and adds metadata md to it.
func Convert(conn *sqlite.Conn, md Metadata) (*DB, error) {
	return Config{}.Convert(conn, md)
}

// Inspect reports the metadata of the database at path.
func Inspect(path string) (*Status, error) {
	return Config{}.Inspect(path)
}

// Metadata returns the cached metadata of db.
func (db *DB) Metadata() Metadata {
	return db.md
}

// SchemaVersion returns the layout version the metadata was read with.
func (db *DB) SchemaVersion() uint32 {
	return db.mdVersion
}

// SetMetadata replaces the metadata of db.
//
// Metadata written with an older layout cannot be replaced; SetMetadata
// fails with ErrWriteMetadata and the database is left unchanged.
func (db *DB) SetMetadata(md Metadata) error {
	if db.mdVersion != MetadataVersion {
		return writeError(fmt.Sprintf("cannot set metadata at a different version than current (found %d, want %d)", db.mdVersion, MetadataVersion))
	}
	if err := updateMetadata(db.Conn, md); err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	db.md = md
	db.log.Debug("metadata updated", "type", md.Type(), "tool", md.ToolName())
	return nil
}

// Release gives up the connection without closing it. db must not be used
// afterwards. Pass the connection to FromConn to use it as a resource
// database again.
func (db *DB) Release() *sqlite.Conn {
	conn := db.Conn
	db.Conn = nil
	return conn
}

// Close closes the database. Closing a closed or released DB is a no-op.
func (db *DB) Close() error {
	if db.Conn == nil {
		return nil
	}
	return db.Conn.Close()
}

// Delete removes the resource database at path with its journal and WAL
// files. A missing file is not an error. A file without readable metadata
// is left alone and an error matching ErrReadMetadata is returned; use
// ForceDelete for those.
func (cfg Config) Delete(path string) error {
	return cfg.delete(path, false)
}

// ForceDelete removes the database at path with its journal and WAL files,
// whether or not it is a resource database.
func (cfg Config) ForceDelete(path string) error {
	return cfg.delete(path, true)
}

// Delete removes the resource database at path with default options.
func Delete(path string) error {
	return Config{}.Delete(path)
}

// ForceDelete removes the database at path with default options.
func ForceDelete(path string) error {
	return Config{}.ForceDelete(path)
}

func (cfg Config) delete(path string, force bool) error {
	cfg = cfg.defaults()

	if isMemory(path) {
		return fmt.Errorf("cannot delete in-memory database")
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	} else if !info.Mode().IsRegular() {
		return fmt.Errorf("delete %s: not a regular file", path)
	}

	if !force {
		status, err := cfg.Inspect(path)
		if err != nil {
			return fmt.Errorf("delete %s: %w", path, err)
		} else if !status.IsResource {
			return fmt.Errorf("delete %s: %w", path, readError("not a resource database"))
		}
	}

	// the database goes last so a failure leaves it with its sidecars
	var errs []error
	for _, name := range []string{path + "-journal", path + "-wal", path + "-shm", path} {
		info, err := os.Lstat(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			errs = append(errs, err)
			continue
		} else if !info.Mode().IsRegular() {
			errs = append(errs, fmt.Errorf("%s: not a regular file", name))
			continue
		}
		if name == path && len(errs) != 0 {
			break
		}
		if err := os.Remove(name); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	cfg.Logger.Info("database deleted", "path", path, "force", force)
	return nil
}

// isMemory returns true if path names an in-memory database.
func isMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
