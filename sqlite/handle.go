// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"fmt"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	sqlite3 "modernc.org/sqlite/lib"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// Handle is a raw engine connection: an sqlite3* together with the libc
// thread state used to drive it.
//
// A Handle must have exactly one owner. Adopt a Handle into a Conn, or Close it.
type Handle struct {
	tls   *libc.TLS
	db    uintptr // *sqlite3.Xsqlite3
	stmts int     // live prepared statements; they keep tls alive after Close
}

// OpenHandle opens a raw engine connection on path. Most callers want Open.
func OpenHandle(path string, mode OpenMode) (*Handle, error) {
	h := &Handle{tls: libc.NewTLS()}
	if err := h.open(path, mode); err != nil {
		h.tls.Close()
		return nil, err
	}
	return h, nil
}

// C documentation
//
//	int sqlite3_open_v2(const char *filename, sqlite3 **ppDb, int flags, const char *zVfs);
func (h *Handle) open(path string, mode OpenMode) error {
	flags := mode.flags()

	cpath, err := libc.CString(path)
	if err != nil {
		return &Error{Op: fmt.Sprintf("can't %s database with filename '%s'", mode, path), Msg: err.Error(), kind: ErrNotFound}
	}
	defer h.free(cpath)

	ppdb, err := h.malloc(ptrSize)
	if err != nil {
		return &Error{Op: fmt.Sprintf("can't %s database with filename '%s'", mode, path), Msg: err.Error(), kind: ErrNotFound}
	}
	defer h.free(ppdb)

	rc := sqlite3.Xsqlite3_open_v2(h.tls, cpath, ppdb, flags, 0)
	db := *(*uintptr)(unsafe.Pointer(ppdb))
	if rc != sqlite3.SQLITE_OK {
		// a failed open can still allocate a connection object
		if db != 0 {
			sqlite3.Xsqlite3_close_v2(h.tls, db)
		}
		return &Error{
			Op:   fmt.Sprintf("can't %s database with filename '%s'", mode, path),
			Code: int(rc),
			Msg:  libc.GoString(sqlite3.Xsqlite3_errstr(h.tls, rc)),
			kind: ErrNotFound,
		}
	}
	h.db = db
	return nil
}

// Close closes the engine connection. Closing a closed Handle is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.db == 0 {
		return nil
	}
	if rc := sqlite3.Xsqlite3_close_v2(h.tls, h.db); rc != sqlite3.SQLITE_OK {
		return h.error("can't close database", rc)
	}
	h.db = 0
	h.releaseTLS()
	return nil
}

func (h *Handle) releaseTLS() {
	if h.db == 0 && h.stmts == 0 && h.tls != nil {
		h.tls.Close()
		h.tls = nil
	}
}

// C documentation
//
//	int sqlite3_exec(sqlite3*, const char *sql, int (*callback)(void*,int,char**,char**), void *, char **errmsg);
func (h *Handle) exec(command string) error {
	ccmd, err := libc.CString(command)
	if err != nil {
		return &Error{Op: "can't execute command", Msg: err.Error()}
	}
	defer h.free(ccmd)

	if rc := sqlite3.Xsqlite3_exec(h.tls, h.db, ccmd, 0, 0, 0); rc != sqlite3.SQLITE_OK {
		return h.error("can't execute command", rc)
	}
	return nil
}

// C documentation
//
//	int sqlite3_prepare_v2(sqlite3 *db, const char *zSql, int nByte, sqlite3_stmt **ppStmt, const char **pzTail);
//
// Only the first statement of sql is compiled.
func (h *Handle) prepare(sql string) (uintptr, error) {
	csql, err := libc.CString(sql)
	if err != nil {
		return 0, &Error{Op: "can't prepare query statement", Msg: err.Error()}
	}
	defer h.free(csql)

	ppstmt, err := h.malloc(ptrSize)
	if err != nil {
		return 0, &Error{Op: "can't prepare query statement", Msg: err.Error()}
	}
	defer h.free(ppstmt)

	if rc := sqlite3.Xsqlite3_prepare_v2(h.tls, h.db, csql, -1, ppstmt, 0); rc != sqlite3.SQLITE_OK {
		return 0, h.error("can't prepare query statement", rc)
	}
	pstmt := *(*uintptr)(unsafe.Pointer(ppstmt))
	if pstmt == 0 {
		return 0, &Error{Op: "can't prepare query statement", Msg: fmt.Sprintf("no statement in %q", sql)}
	}
	h.stmts++
	return pstmt, nil
}

// C documentation
//
//	int sqlite3_finalize(sqlite3_stmt *pStmt);
//
// A connection closed while statements are live is kept as a zombie by the
// engine until the last statement is finalized.
func (h *Handle) finalize(pstmt uintptr) int32 {
	rc := sqlite3.Xsqlite3_finalize(h.tls, pstmt)
	h.stmts--
	if h.stmts == 0 {
		h.releaseTLS()
	}
	return rc
}

// C documentation
//
//	int sqlite3_table_column_metadata(sqlite3 *db, const char *zDbName, const char *zTableName,
//	    const char *zColumnName, char const **pzDataType, char const **pzCollSeq,
//	    int *pNotNull, int *pPrimaryKey, int *pAutoinc);
func (h *Handle) hasColumn(table, column string) (bool, error) {
	ctable, err := libc.CString(table)
	if err != nil {
		return false, &Error{Op: "can't inspect schema", Msg: err.Error()}
	}
	defer h.free(ctable)

	ccolumn, err := libc.CString(column)
	if err != nil {
		return false, &Error{Op: "can't inspect schema", Msg: err.Error()}
	}
	defer h.free(ccolumn)

	rc := sqlite3.Xsqlite3_table_column_metadata(h.tls, h.db, 0, ctable, ccolumn, 0, 0, 0, 0, 0)
	return rc == sqlite3.SQLITE_OK, nil
}

// C documentation
//
//	sqlite3_int64 sqlite3_last_insert_rowid(sqlite3*);
func (h *Handle) lastInsertRowID() int64 {
	return sqlite3.Xsqlite3_last_insert_rowid(h.tls, h.db)
}

// C documentation
//
//	int sqlite3_busy_timeout(sqlite3*, int ms);
func (h *Handle) busyTimeout(ms int) error {
	if rc := sqlite3.Xsqlite3_busy_timeout(h.tls, h.db, int32(ms)); rc != sqlite3.SQLITE_OK {
		return h.error("can't set busy timeout", rc)
	}
	return nil
}

func (h *Handle) malloc(n int) (uintptr, error) {
	if p := libc.Xmalloc(h.tls, types.Size_t(n)); p != 0 || n == 0 {
		return p, nil
	}
	return 0, fmt.Errorf("sqlite: cannot allocate %d bytes of memory", n)
}

func (h *Handle) free(p uintptr) {
	if p != 0 {
		libc.Xfree(h.tls, p)
	}
}

// error builds an *Error from a result code and the connection's last message.
//
// C documentation
//
//	const char *sqlite3_errstr(int);
//	const char *sqlite3_errmsg(sqlite3*);
func (h *Handle) error(op string, rc int32) *Error {
	e := &Error{Op: op, Code: int(rc), Msg: libc.GoString(sqlite3.Xsqlite3_errstr(h.tls, rc))}
	if h.db != 0 {
		if msg := libc.GoString(sqlite3.Xsqlite3_errmsg(h.tls, h.db)); msg != "" && msg != e.Msg && msg != "not an error" {
			e.Msg += ": " + msg
		}
	}
	if rc&0xff == sqlite3.SQLITE_BUSY {
		e.kind = ErrBusy
	}
	return e
}
