// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"

	sqlite3 "modernc.org/sqlite/lib"
)

// Each binder takes the 1-based parameter index, the value, and a name used
// only in error messages. Integer binders differ in how they reach the
// engine's signed 64-bit storage:
//
//	Cast   reinterprets the bits; large unsigned values become negative
//	Throw  fails with ErrOutOfBounds when the value does not fit the signed slot
//	Slide  maps the unsigned range onto the signed one, preserving order
//	Extend widens into the 64-bit slot, which is always lossless

// empty backs zero-length text and blobs, which the engine must see as non-NULL.
var empty [1]byte

// BindInt64 binds v to parameter index.
func (s *Stmt) BindInt64(index int, v int64, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", v)
	return s.settle(index, sqlite3.Xsqlite3_bind_int64(s.h.tls, s.stmt(), int32(index), v), name, nil)
}

// BindInt32 binds v to parameter index.
func (s *Stmt) BindInt32(index int, v int32, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", v)
	return s.settle(index, sqlite3.Xsqlite3_bind_int(s.h.tls, s.stmt(), int32(index), v), name, nil)
}

// BindUint64Cast binds the bits of v as a signed 64-bit integer.
func (s *Stmt) BindUint64Cast(index int, v uint64, name string) error {
	return s.BindInt64(index, CastEncode(v), name)
}

// BindUint64Throw binds v, failing with ErrOutOfBounds above math.MaxInt64.
func (s *Stmt) BindUint64Throw(index int, v uint64, name string) error {
	enc, err := ThrowEncode(v)
	if err != nil {
		return s.rejected(err, name)
	}
	return s.BindInt64(index, enc, name)
}

// BindUint64Slide binds v shifted into the signed range. Read it back with
// ColumnUint64Slide.
func (s *Stmt) BindUint64Slide(index int, v uint64, name string) error {
	return s.BindInt64(index, SlideEncode(v), name)
}

// BindUint32Extend binds v as a signed 64-bit integer.
func (s *Stmt) BindUint32Extend(index int, v uint32, name string) error {
	return s.BindInt64(index, int64(v), name)
}

// BindUint32Cast binds the bits of v as a signed 32-bit integer.
func (s *Stmt) BindUint32Cast(index int, v uint32, name string) error {
	return s.BindInt32(index, int32(v), name)
}

// BindUint32Throw binds v as a signed 32-bit integer, failing with
// ErrOutOfBounds above math.MaxInt32.
func (s *Stmt) BindUint32Throw(index int, v uint32, name string) error {
	if v > math.MaxInt32 {
		return s.rejected(outOfBounds(uint64(v)), name)
	}
	return s.BindInt32(index, int32(v), name)
}

// BindUint16Extend binds v as a signed 64-bit integer.
func (s *Stmt) BindUint16Extend(index int, v uint16, name string) error {
	return s.BindInt64(index, int64(v), name)
}

// BindUint8Extend binds v as a signed 64-bit integer.
func (s *Stmt) BindUint8Extend(index int, v uint8, name string) error {
	return s.BindInt64(index, int64(v), name)
}

// BindInt16Extend binds v as a signed 64-bit integer.
func (s *Stmt) BindInt16Extend(index int, v int16, name string) error {
	return s.BindInt64(index, int64(v), name)
}

// BindInt8Extend binds v as a signed 64-bit integer.
func (s *Stmt) BindInt8Extend(index int, v int8, name string) error {
	return s.BindInt64(index, int64(v), name)
}

// BindFloat64 binds v to parameter index.
func (s *Stmt) BindFloat64(index int, v float64, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", v)
	return s.settle(index, sqlite3.Xsqlite3_bind_double(s.h.tls, s.stmt(), int32(index), v), name, nil)
}

// BindNull binds NULL to parameter index.
func (s *Stmt) BindNull(index int, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", nil)
	return s.settle(index, sqlite3.Xsqlite3_bind_null(s.h.tls, s.stmt(), int32(index)), name, nil)
}

// BindText binds a copy of v to parameter index.
func (s *Stmt) BindText(index int, v string, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", v)
	return s.bindText(index, v, name, false)
}

// BindTextNoCopy binds v to parameter index without copying it. The memory
// of v stays pinned until the parameter is rebound, the bindings are
// cleared, or the statement is closed.
func (s *Stmt) BindTextNoCopy(index int, v string, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "value", v, "copy", false)
	return s.bindText(index, v, name, true)
}

// BindBlob binds a copy of v to parameter index. A nil v binds NULL.
func (s *Stmt) BindBlob(index int, v []byte, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "bytes", len(v))
	return s.bindBlob(index, v, name, false)
}

// BindBlobNoCopy binds v to parameter index without copying it. A nil v
// binds NULL. v must not be modified while it is bound; its memory stays
// pinned until the parameter is rebound, the bindings are cleared, or the
// statement is closed.
func (s *Stmt) BindBlobNoCopy(index int, v []byte, name string) error {
	s.log.Debug("bind", "index", index, "name", name, "bytes", len(v), "copy", false)
	return s.bindBlob(index, v, name, true)
}

// C documentation
//
//	int sqlite3_bind_text(sqlite3_stmt*, int, const char*, int, void(*)(void*));
func (s *Stmt) bindText(index int, v string, name string, static bool) error {
	p := s.stmt()
	if len(v) > math.MaxInt32 {
		return s.rejected(tooBig(len(v)), name)
	}
	ptr := &empty[0]
	if len(v) > 0 {
		ptr = unsafe.StringData(v)
	}
	rc := sqlite3.Xsqlite3_bind_text(s.h.tls, p, int32(index), uintptr(unsafe.Pointer(ptr)), int32(len(v)), destructor(static))
	var keep *byte
	if static {
		keep = ptr
	}
	err := s.settle(index, rc, name, keep)
	runtime.KeepAlive(v)
	return err
}

// C documentation
//
//	int sqlite3_bind_blob(sqlite3_stmt*, int, const void*, int n, void(*)(void*));
func (s *Stmt) bindBlob(index int, v []byte, name string, static bool) error {
	if v == nil {
		return s.BindNull(index, name)
	}
	p := s.stmt()
	if len(v) > math.MaxInt32 {
		return s.rejected(tooBig(len(v)), name)
	}
	ptr := &empty[0]
	if len(v) > 0 {
		ptr = &v[0]
	}
	rc := sqlite3.Xsqlite3_bind_blob(s.h.tls, p, int32(index), uintptr(unsafe.Pointer(ptr)), int32(len(v)), destructor(static))
	var keep *byte
	if static {
		keep = ptr
	}
	err := s.settle(index, rc, name, keep)
	runtime.KeepAlive(v)
	return err
}

func destructor(static bool) uintptr {
	if static {
		return sqlite3.SQLITE_STATIC
	}
	return sqlite3.SQLITE_TRANSIENT
}

// settle records the outcome of a bind call on parameter index. On success
// the memory of the previous binding is unpinned and keep, if any, is pinned.
func (s *Stmt) settle(index int, rc int32, name string, keep *byte) error {
	switch rc {
	case sqlite3.SQLITE_OK:
	case sqlite3.SQLITE_MISUSE:
		panic(misuse("engine rejected binding %s: %s", name, s.sql))
	default:
		return s.h.error("can't bind "+name, rc)
	}
	s.unpin(index)
	if keep != nil {
		s.pin(index, keep)
	}
	s.bound[index-1] = true
	return nil
}

// rejected reports a value the binder refused before it reached the engine.
func (s *Stmt) rejected(err error, name string) error {
	var e *Error
	if errors.As(err, &e) {
		e.Op = "can't bind " + name
	}
	return err
}

func tooBig(n int) *Error {
	return &Error{Code: sqlite3.SQLITE_TOOBIG, Msg: fmt.Sprintf("%d bytes exceed the engine's length limit", n)}
}
