// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package resourcedb_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdhender/resourcedb"
	"github.com/mdhender/resourcedb/sqlite"
)

// testWriter builds the metadata used throughout these tests.
type testWriter struct {
	resourcedb.MetadataWriter
}

const (
	testType           uint32 = 42
	testFormatVersion         = "1.0.0-dummy"
	testToolName              = "TestMetaDataWriter"
	testToolVersion           = "1.0.0"
	testToolInfo              = "Tests version 1.0.0"
	testGenerationDate uint64 = 42424242
)

func (w testWriter) dummy() resourcedb.Metadata {
	return w.Write(testType, testFormatVersion, testToolName, testToolVersion, testToolInfo, testGenerationDate)
}

func (w testWriter) dummy2() resourcedb.Metadata {
	return w.Write(testType, testFormatVersion, testToolName, testToolVersion, testToolInfo, testGenerationDate+1)
}

// createTestTable opens a plain in-memory database with a single int8 column table.
func createTestTable(t *testing.T) *sqlite.Conn {
	t.Helper()
	conn, err := sqlite.Memory()
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}
	if err := conn.Execute("create table test (x int8);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn
}

// insertValue stores x into table test.
func insertValue(t *testing.T, conn *sqlite.Conn, x uint64) {
	t.Helper()
	stmt, err := conn.Prepare("insert into test values (?);")
	if err != nil {
		t.Fatalf("prepare insert: %v", err)
	}
	defer stmt.Close()
	if err := stmt.BindUint64Cast(1, x, "x"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := stmt.Step(); err != nil {
		t.Fatalf("step insert: %v", err)
	}
}

// TestMemory tests a database that only contains metadata.
func TestMemory(t *testing.T) {
	md := testWriter{}.dummy()
	db, err := resourcedb.Memory(md)
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}
	defer db.Close()

	got := db.Metadata()
	if got != md {
		t.Errorf("expected metadata %+v, got %+v", md, got)
	}
	if got.Type() != testType {
		t.Errorf("expected type %d, got %d", testType, got.Type())
	}
	if got.FormatVersion() != testFormatVersion {
		t.Errorf("expected format version %q, got %q", testFormatVersion, got.FormatVersion())
	}
	if got.ToolName() != testToolName {
		t.Errorf("expected tool name %q, got %q", testToolName, got.ToolName())
	}
	if got.ToolVersion() != testToolVersion {
		t.Errorf("expected tool version %q, got %q", testToolVersion, got.ToolVersion())
	}
	if got.ToolInfo() != testToolInfo {
		t.Errorf("expected tool info %q, got %q", testToolInfo, got.ToolInfo())
	}
	if got.GenerationDate() != testGenerationDate {
		t.Errorf("expected generation date %d, got %d", testGenerationDate, got.GenerationDate())
	}
	if db.SchemaVersion() != resourcedb.MetadataVersion {
		t.Errorf("expected schema version %d, got %d", resourcedb.MetadataVersion, db.SchemaVersion())
	}
}

// TestFromConn_NoMetadata tests that a plain database is not a resource database.
func TestFromConn_NoMetadata(t *testing.T) {
	conn, err := sqlite.Memory()
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}

	_, err = resourcedb.FromConn(conn)
	if !errors.Is(err, resourcedb.ErrReadMetadata) {
		t.Fatalf("expected ErrReadMetadata, got %v", err)
	}
	if !errors.Is(err, resourcedb.ErrMetadata) {
		t.Errorf("expected ErrMetadata, got %v", err)
	}
	if errors.Is(err, resourcedb.ErrWriteMetadata) {
		t.Errorf("did not expect ErrWriteMetadata, got %v", err)
	}
	if !strings.Contains(err.Error(), "is this a resource database?") {
		t.Errorf("unexpected message: %v", err)
	}
	// FromConn closed the connection it was given
	if err := conn.Close(); err != nil {
		t.Errorf("Close after failed FromConn: %v", err)
	}
}

// TestConvert_WithData tests converting a database that already holds user data.
func TestConvert_WithData(t *testing.T) {
	md := testWriter{}.dummy()
	db, err := resourcedb.Convert(createTestTable(t), md)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	defer db.Close()

	const want uint64 = 42
	insertValue(t, db.Conn, want)

	stmt, err := db.Prepare("select x from test;")
	if err != nil {
		t.Fatalf("prepare fetch: %v", err)
	}
	defer stmt.Close()
	res, err := stmt.Step()
	if err != nil {
		t.Fatalf("step fetch: %v", err)
	}
	if res != sqlite.Row {
		t.Fatalf("expected a row, got %v", res)
	}
	if got := stmt.ColumnUint64(0); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
	if db.Metadata() != md {
		t.Errorf("expected metadata %+v, got %+v", md, db.Metadata())
	}
}

// TestFromConn_Reopen tests that metadata read back equals metadata written.
func TestFromConn_Reopen(t *testing.T) {
	db, err := resourcedb.Memory(testWriter{}.dummy())
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}
	md := db.Metadata()

	db2, err := resourcedb.FromConn(db.Release())
	if err != nil {
		t.Fatalf("FromConn failed: %v", err)
	}
	defer db2.Close()

	if db2.Metadata() != md {
		t.Errorf("expected metadata %+v, got %+v", md, db2.Metadata())
	}
	// the released DB no longer owns the connection
	if err := db.Close(); err != nil {
		t.Errorf("Close after Release: %v", err)
	}
}

func TestSetMetadata(t *testing.T) {
	md := testWriter{}.dummy()
	db, err := resourcedb.Memory(md)
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}

	md2 := testWriter{}.dummy2()
	if err := db.SetMetadata(md2); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if db.Metadata() != md2 {
		t.Errorf("expected cached metadata %+v, got %+v", md2, db.Metadata())
	}

	db2, err := resourcedb.FromConn(db.Release())
	if err != nil {
		t.Fatalf("FromConn failed: %v", err)
	}
	defer db2.Close()
	if db2.Metadata() != md2 {
		t.Errorf("expected stored metadata %+v, got %+v", md2, db2.Metadata())
	}
	if db2.Metadata() == md {
		t.Errorf("metadata was not replaced")
	}
}

// TestConvert_Twice tests that a resource database cannot be converted again.
// TestConvert_ConnLogger tests that an adopted connection keeps logging
// where it was configured to.
func TestConvert_ConnLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	conn, err := sqlite.Config{Path: ":memory:", Logger: logger}.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	db, err := resourcedb.Convert(conn, testWriter{}.dummy())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	defer db.Close()

	if !strings.Contains(buf.String(), "metadata created") {
		t.Errorf("expected conversion to be logged on the connection logger, got %q", buf.String())
	}
}

func TestConvert_Twice(t *testing.T) {
	conn, err := sqlite.Memory()
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}
	db, err := resourcedb.Convert(conn, testWriter{}.dummy())
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}

	_, err = resourcedb.Convert(db.Release(), testWriter{}.dummy())
	if !errors.Is(err, resourcedb.ErrWriteMetadata) {
		t.Fatalf("expected ErrWriteMetadata, got %v", err)
	}
	if !errors.Is(err, resourcedb.ErrMetadata) {
		t.Errorf("expected ErrMetadata, got %v", err)
	}
	if errors.Is(err, resourcedb.ErrReadMetadata) {
		t.Errorf("did not expect ErrReadMetadata, got %v", err)
	}
}

// TestFromConn_Legacy tests reading metadata written before layout versioning.
func TestFromConn_Legacy(t *testing.T) {
	conn, err := sqlite.Memory()
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}
	err = conn.Execute(`
		create table _metadata (type int, format_version text, tool_name text, tool_info text, generation_date int8);
		insert into _metadata values (7, '0.9.0', 'legacy tool', 'legacy tool 0.9', 1234);
	`)
	if err != nil {
		t.Fatalf("create legacy metadata: %v", err)
	}

	db, err := resourcedb.FromConn(conn)
	if err != nil {
		t.Fatalf("FromConn failed: %v", err)
	}
	defer db.Close()

	md := db.Metadata()
	if md.ToolVersion() != resourcedb.LegacyToolVersion {
		t.Errorf("expected tool version %q, got %q", resourcedb.LegacyToolVersion, md.ToolVersion())
	}
	if md.Type() != 7 || md.FormatVersion() != "0.9.0" || md.ToolName() != "legacy tool" ||
		md.ToolInfo() != "legacy tool 0.9" || md.GenerationDate() != 1234 {
		t.Errorf("unexpected legacy metadata %+v", md)
	}
	if db.SchemaVersion() != 0 {
		t.Errorf("expected schema version 0, got %d", db.SchemaVersion())
	}

	// legacy metadata is read-only
	err = db.SetMetadata(testWriter{}.dummy())
	if !errors.Is(err, resourcedb.ErrWriteMetadata) {
		t.Fatalf("expected ErrWriteMetadata, got %v", err)
	}
	if db.Metadata() != md {
		t.Errorf("cached metadata changed after failed SetMetadata")
	}
	db2, err := resourcedb.FromConn(db.Release())
	if err != nil {
		t.Fatalf("FromConn failed: %v", err)
	}
	defer db2.Close()
	if db2.Metadata() != md {
		t.Errorf("stored metadata changed after failed SetMetadata")
	}
}

// TestFromConn_IllFormed tests the metadata tables that must be rejected.
func TestFromConn_IllFormed(t *testing.T) {
	tests := []struct {
		name  string
		setup string
		want  string
	}{
		{
			name:  "future version",
			setup: "update _metadata set metadata_version = 2;",
			want:  "in the future",
		},
		{
			name:  "version beyond 32 bits",
			setup: "update _metadata set metadata_version = 4294967297;",
			want:  "in the future",
		},
		{
			name:  "negative version",
			setup: "update _metadata set metadata_version = -1;",
			want:  "negative metadata version -1",
		},
		{
			name:  "null version",
			setup: "update _metadata set metadata_version = NULL;",
			want:  "not an integer",
		},
		{
			name:  "text version",
			setup: "update _metadata set metadata_version = 'abc';",
			want:  "not an integer",
		},
		{
			name:  "duplicate rows",
			setup: "insert into _metadata select * from _metadata;",
			want:  "multiple metadata entries",
		},
		{
			name:  "no rows",
			setup: "delete from _metadata;",
			want:  "no metadata entry",
		},
		{
			name:  "missing column",
			setup: "alter table _metadata drop column tool_info;",
			want:  "is this a resource database?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := resourcedb.Memory(testWriter{}.dummy())
			if err != nil {
				t.Fatalf("Memory failed: %v", err)
			}
			if err := db.Execute(tt.setup); err != nil {
				t.Fatalf("setup: %v", err)
			}

			_, err = resourcedb.FromConn(db.Release())
			if !errors.Is(err, resourcedb.ErrReadMetadata) {
				t.Fatalf("expected ErrReadMetadata, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected message containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

// TestCreate_Persistent tests creating a file and opening it again read-only.
func TestCreate_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.db")
	md := testWriter{}.dummy()

	db, err := resourcedb.Create(path, md)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := db.Execute("create table test (x int8);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	insertValue(t, db.Conn, 42)
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = resourcedb.Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if db.Metadata() != md {
		t.Errorf("expected metadata %+v, got %+v", md, db.Metadata())
	}

	// writes are rejected, metadata included
	err = db.SetMetadata(testWriter{}.dummy2())
	if !errors.Is(err, sqlite.ErrStorage) {
		t.Errorf("expected ErrStorage from read-only SetMetadata, got %v", err)
	}
	if db.Metadata() != md {
		t.Errorf("cached metadata changed after failed SetMetadata")
	}
}

// TestOpen_ReadWrite tests that metadata set through a read-write connection persists.
func TestOpen_ReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.db")

	db, err := resourcedb.Create(path, testWriter{}.dummy())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Close()

	db, err = resourcedb.Open(path, false)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	md2 := testWriter{}.dummy2()
	if err := db.SetMetadata(md2); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	db.Close()

	db, err = resourcedb.Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if db.Metadata() != md2 {
		t.Errorf("expected metadata %+v, got %+v", md2, db.Metadata())
	}
}

// TestCreate_Existing tests that Create does not overwrite a resource database.
func TestCreate_Existing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.db")

	db, err := resourcedb.Create(path, testWriter{}.dummy())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	db.Close()

	_, err = resourcedb.Create(path, testWriter{}.dummy2())
	if !errors.Is(err, resourcedb.ErrWriteMetadata) {
		t.Fatalf("expected ErrWriteMetadata, got %v", err)
	}

	db, err = resourcedb.Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if db.Metadata() != (testWriter{}.dummy()) {
		t.Errorf("existing metadata was overwritten: %+v", db.Metadata())
	}
}

func TestCreate_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "resource.db")

	_, err := resourcedb.Create(path, testWriter{}.dummy())
	if !errors.Is(err, sqlite.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	for _, readOnly := range []bool{true, false} {
		_, err := resourcedb.Open(path, readOnly)
		if !errors.Is(err, sqlite.ErrNotFound) {
			t.Errorf("readOnly=%v: expected ErrNotFound, got %v", readOnly, err)
		}
		if errors.Is(err, resourcedb.ErrMetadata) {
			t.Errorf("readOnly=%v: did not expect ErrMetadata, got %v", readOnly, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Open created %s", path)
	}
}

// TestOpen_PlainDatabase tests opening a database file that has no metadata.
func TestOpen_PlainDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.db")
	conn, err := sqlite.Open(path, sqlite.Create)
	if err != nil {
		t.Fatalf("sqlite.Open failed: %v", err)
	}
	if err := conn.Execute("create table test (x int8);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	conn.Close()

	_, err = resourcedb.Open(path, true)
	if !errors.Is(err, resourcedb.ErrReadMetadata) {
		t.Fatalf("expected ErrReadMetadata, got %v", err)
	}
}

// TestOpen_NotADatabase tests files that are not SQLite databases.
func TestOpen_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	garbage := []byte(strings.Repeat("this is not a database file. ", 64))
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	_, err := resourcedb.Open(path, true)
	if !errors.Is(err, resourcedb.ErrReadMetadata) {
		t.Errorf("Open: expected ErrReadMetadata, got %v", err)
	}
	_, err = resourcedb.Create(path, testWriter{}.dummy())
	if !errors.Is(err, resourcedb.ErrWriteMetadata) {
		t.Errorf("Create: expected ErrWriteMetadata, got %v", err)
	}
}

// TestEndToEnd tests reading user data eagerly and lazily from a resource
// database, then reading its metadata again from the file.
func TestEndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.db")
	md := testWriter{}.dummy()

	db, err := resourcedb.Create(path, md)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := db.Execute("create table test (x int8);"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	insertValue(t, db.Conn, 42)

	// eager
	stmt, err := db.Prepare("select x from test;")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	res, err := stmt.Step()
	if err != nil || res != sqlite.Row {
		t.Fatalf("step: %v %v", res, err)
	}
	if got := stmt.ColumnUint64(0); got != 42 {
		t.Errorf("eager: expected 42, got %d", got)
	}
	if err := stmt.Close(); err != nil {
		t.Fatalf("close stmt: %v", err)
	}

	// lazy
	stmt, err = db.Prepare("select x from test;")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	q, err := sqlite.NewQuery(stmt, func(s *sqlite.Stmt) uint64 { return s.ColumnUint64(0) })
	if err != nil {
		t.Fatalf("NewQuery failed: %v", err)
	}
	values, err := sqlite.Collect(q)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(values) != 1 || values[0] != 42 {
		t.Errorf("lazy: expected [42], got %v", values)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = resourcedb.Open(path, true)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()
	if db.Metadata() != md {
		t.Errorf("expected metadata %+v, got %+v", md, db.Metadata())
	}
}

// TestMetadata_LargeValues tests integer fields at the top of their unsigned range.
func TestMetadata_LargeValues(t *testing.T) {
	md := testWriter{}.Write(^uint32(0), "", "", "", "", ^uint64(0))
	db, err := resourcedb.Memory(md)
	if err != nil {
		t.Fatalf("Memory failed: %v", err)
	}

	db2, err := resourcedb.FromConn(db.Release())
	if err != nil {
		t.Fatalf("FromConn failed: %v", err)
	}
	defer db2.Close()
	if db2.Metadata() != md {
		t.Errorf("expected metadata %+v, got %+v", md, db2.Metadata())
	}
}

func TestVersion(t *testing.T) {
	v := resourcedb.Version()
	if v.Major != 1 {
		t.Errorf("expected major version 1, got %d", v.Major)
	}
}
