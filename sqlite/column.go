// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"bytes"
	"unsafe"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"
)

// Column getters read the current row. Columns are numbered from 0. The
// getters do not check the stored type; the engine converts where it can.

// ColumnCount returns the number of columns in the result set.
func (s *Stmt) ColumnCount() int {
	return int(sqlite3.Xsqlite3_column_count(s.h.tls, s.stmt()))
}

// ColumnName returns the name of column i.
func (s *Stmt) ColumnName(i int) string {
	return libc.GoString(sqlite3.Xsqlite3_column_name(s.h.tls, s.stmt(), int32(i)))
}

// ColumnType returns the storage class of column i.
func (s *Stmt) ColumnType(i int) Type {
	return typeOf(sqlite3.Xsqlite3_column_type(s.h.tls, s.stmt(), int32(i)))
}

// ColumnInt64 returns column i as a signed 64-bit integer.
func (s *Stmt) ColumnInt64(i int) int64 {
	return sqlite3.Xsqlite3_column_int64(s.h.tls, s.stmt(), int32(i))
}

// ColumnUint64 returns the bits of column i as an unsigned 64-bit integer.
// It reads values bound with BindUint64Cast or BindUint64Throw.
func (s *Stmt) ColumnUint64(i int) uint64 {
	return uint64(s.ColumnInt64(i))
}

// ColumnUint64Slide returns column i shifted back into the unsigned range.
// It only reads values bound with BindUint64Slide.
func (s *Stmt) ColumnUint64Slide(i int) uint64 {
	return SlideDecode(s.ColumnInt64(i))
}

// ColumnInt32 returns column i as a signed 32-bit integer.
func (s *Stmt) ColumnInt32(i int) int32 {
	return sqlite3.Xsqlite3_column_int(s.h.tls, s.stmt(), int32(i))
}

// ColumnUint32 returns the bits of column i as an unsigned 32-bit integer.
func (s *Stmt) ColumnUint32(i int) uint32 {
	return uint32(s.ColumnInt32(i))
}

// ColumnFloat64 returns column i as a float.
func (s *Stmt) ColumnFloat64(i int) float64 {
	return sqlite3.Xsqlite3_column_double(s.h.tls, s.stmt(), int32(i))
}

// ColumnText returns a copy of column i as text. NULL reads as "".
func (s *Stmt) ColumnText(i int) string {
	p := s.stmt()
	ptr := sqlite3.Xsqlite3_column_text(s.h.tls, p, int32(i))
	if ptr == 0 {
		return ""
	}
	n := sqlite3.Xsqlite3_column_bytes(s.h.tls, p, int32(i))
	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}

// ColumnBlob returns a copy of column i as bytes. NULL reads as nil.
func (s *Stmt) ColumnBlob(i int) []byte {
	view := s.ColumnBlobView(i)
	if view == nil {
		return nil
	}
	return bytes.Clone(view)
}

// ColumnBlobView returns column i as bytes owned by the engine. The slice is
// only valid until the next Step, Reset or Close, and must not be modified.
//
// C documentation
//
//	const void *sqlite3_column_blob(sqlite3_stmt*, int iCol);
//	int sqlite3_column_bytes(sqlite3_stmt*, int iCol);
func (s *Stmt) ColumnBlobView(i int) []byte {
	p := s.stmt()
	ptr := sqlite3.Xsqlite3_column_blob(s.h.tls, p, int32(i))
	n := sqlite3.Xsqlite3_column_bytes(s.h.tls, p, int32(i))
	if ptr == 0 || n == 0 {
		if s.ColumnType(i) == Null {
			return nil
		}
		return empty[:0]
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n)
}
