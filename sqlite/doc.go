// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package sqlite is a thin, typed layer over the SQLite C API as compiled by
// modernc.org/sqlite/lib.
//
// It exposes three things:
//   - Conn, an exclusively owned engine connection (open, execute, last insert id)
//   - Stmt, a prepared statement with explicit bind/step/reset/column calls
//   - Query, a lazy single-pass sequence of rows decoded from a Stmt
//
// # Integers
//
// The only native integer type of the engine is a signed 64-bit integer.
// Unsigned values must be bound with an explicit policy, and read back with the
// matching getter:
//   - Cast reinterprets the bit pattern (values above the signed range wrap)
//   - Throw behaves like Cast but rejects out of range values with ErrOutOfBounds
//   - Slide subtracts 2^63 so that the whole unsigned range keeps its order
//     inside the engine; read such values with ColumnUint64Slide
//   - Extend widens types smaller than the slot and never fails
//
// # Lifetimes
//
// A Stmt must be closed before the Conn it was prepared on. Values bound with
// the NoCopy variants are pinned and referenced in place until the parameter is
// rebound, the bindings are cleared or the statement is closed.
//
// Misuse of the statement state machine (stepping a finished statement without
// Reset, stepping with unbound parameters) is a programming error and panics.
package sqlite
