// Copyright (c) 2026 Michael D Henderson. All rights reserved.

// Package resourcedb stores resources in SQLite files that carry a versioned
// metadata record describing what the file holds and which tool wrote it.
//
// The package implements a resource file model where:
//   - Every resource database has exactly one row in the reserved _metadata table
//   - The row records the resource type, its format version, and the producing tool
//   - Older metadata layouts stay readable; newer ones are rejected
//   - Anything else in the file belongs to the caller
//
// # Basic Usage
//
//	type exporter struct {
//	    resourcedb.MetadataWriter
//	}
//
//	func (e exporter) export(path string) error {
//	    md := e.Write(42, "1.0.0", "exporter", "1.2.0", "exporter 1.2.0", uint64(time.Now().Unix()))
//	    db, err := resourcedb.Create(path, md)
//	    if err != nil {
//	        return err
//	    }
//	    defer db.Close()
//	    return db.Execute("create table points (x int8, y int8);")
//	}
//
// A DB embeds a *sqlite.Conn, so statements and queries are prepared on it
// directly. See package sqlite for binding and reading values.
//
// # Metadata Layouts
//
// Layout 0 has no metadata_version and no tool_version column; its tool
// version reads as LegacyToolVersion. Layout 1 (MetadataVersion) adds both.
// The metadata of a layout 0 database can be read but not replaced.
//
// Format and tool versions are free text, but producers are expected to use
// semantic versions. Readers can gate on them with Metadata.FormatSatisfies:
//
//	ok, err := db.Metadata().FormatSatisfies(">= 1.2, < 2")
//
// # Errors
//
// Failures to open a file match sqlite.ErrNotFound. Missing or ill-formed
// metadata matches ErrReadMetadata, and failures to create or update it match
// ErrWriteMetadata. Both also match ErrMetadata.
package resourcedb
