// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package resourcedb

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mdhender/resourcedb/sqlite"
)

const (
	// MetadataVersion is the metadata layout written by this package.
	MetadataVersion uint32 = 1

	// LegacyToolVersion is reported for databases written before the tool
	// version was recorded.
	LegacyToolVersion = "1.0.0-prerelease"

	metadataTable = "_metadata"
)

// layout describes how one version of the metadata table is read.
type layout struct {
	version uint32
	columns string // select list, in the order decode reads them
	decode  func(*sqlite.Stmt) Metadata
}

// layouts is ordered by version. layouts[i].version == i.
var layouts = []layout{
	{
		version: 0,
		columns: "type, format_version, tool_name, tool_info, generation_date",
		decode: func(s *sqlite.Stmt) Metadata {
			return Metadata{
				resourceType:   s.ColumnUint32(0),
				formatVersion:  s.ColumnText(1),
				toolName:       s.ColumnText(2),
				toolVersion:    LegacyToolVersion,
				toolInfo:       s.ColumnText(3),
				generationDate: s.ColumnUint64(4),
			}
		},
	},
	{
		version: 1,
		columns: "type, format_version, tool_name, tool_version, tool_info, generation_date",
		decode: func(s *sqlite.Stmt) Metadata {
			return Metadata{
				resourceType:   s.ColumnUint32(0),
				formatVersion:  s.ColumnText(1),
				toolName:       s.ColumnText(2),
				toolVersion:    s.ColumnText(3),
				toolInfo:       s.ColumnText(4),
				generationDate: s.ColumnUint64(5),
			}
		},
	},
}

// readMetadata reads the single metadata row of conn and the layout version
// it was written with.
//
// Engine failures, including a missing table, are all reported as the same
// ErrReadMetadata; the cause is only logged.
func readMetadata(conn *sqlite.Conn, log *slog.Logger) (uint32, Metadata, error) {
	version, md, err := readLayout(conn)
	if err != nil {
		var merr *MetadataError
		if errors.As(err, &merr) {
			return 0, Metadata{}, merr
		}
		log.Debug("read metadata", "err", err)
		return 0, Metadata{}, readError("missing metadata, is this a resource database?")
	}
	log.Debug("read metadata", "version", version, "type", md.Type(), "tool", md.ToolName())
	return version, md, nil
}

func readLayout(conn *sqlite.Conn) (uint32, Metadata, error) {
	version, err := storedVersion(conn)
	if err != nil {
		return 0, Metadata{}, err
	}
	l := layouts[version]

	stmt, err := conn.Prepare("select " + l.columns + " from " + metadataTable + ";")
	if err != nil {
		return 0, Metadata{}, err
	}
	defer stmt.Close()

	md, err := singleRow(stmt, l.decode)
	if err != nil {
		return 0, Metadata{}, err
	}
	return version, md, nil
}

// storedVersion returns the layout version of the metadata table. Tables
// without a metadata_version column predate versioning and are version 0.
// A stored version must be an integer this package knows how to read.
func storedVersion(conn *sqlite.Conn) (uint32, error) {
	versioned, err := conn.HasColumn(metadataTable, "metadata_version")
	if err != nil {
		return 0, err
	} else if !versioned {
		return 0, nil
	}

	stmt, err := conn.Prepare("select metadata_version from " + metadataTable + ";")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	// nil when the stored value is not an integer
	stored, err := singleRow(stmt, func(s *sqlite.Stmt) *int64 {
		if s.ColumnType(0) != sqlite.Integer {
			return nil
		}
		v := s.ColumnInt64(0)
		return &v
	})
	if err != nil {
		return 0, err
	}
	switch {
	case stored == nil:
		return 0, readError("ill-formed metadata: metadata version is not an integer")
	case *stored < 0:
		return 0, readError(fmt.Sprintf("ill-formed metadata: negative metadata version %d", *stored))
	case *stored > int64(MetadataVersion):
		return 0, readError(fmt.Sprintf("metadata version %d is in the future, this package reads up to %d", *stored, MetadataVersion))
	}
	return uint32(*stored), nil
}

// singleRow decodes the only row of stmt.
func singleRow[T any](stmt *sqlite.Stmt, decode func(*sqlite.Stmt) T) (T, error) {
	var zero T
	res, err := stmt.Step()
	if err != nil {
		return zero, err
	} else if res != sqlite.Row {
		return zero, readError("ill-formed metadata: no metadata entry")
	}
	v := decode(stmt)
	res, err = stmt.Step()
	if err != nil {
		return zero, err
	} else if res != sqlite.Done {
		return zero, readError("ill-formed metadata: multiple metadata entries")
	}
	return v, nil
}

// createMetadata creates the metadata table of conn and writes md to it at
// the current version. On failure conn is left without a metadata table.
func createMetadata(conn *sqlite.Conn, md Metadata, log *slog.Logger) error {
	return withSavepoint(conn, "create_metadata", func() error {
		err := conn.Execute("create table " + metadataTable + " (" +
			"metadata_version int," +
			"type int," +
			"format_version text," +
			"tool_name text," +
			"tool_version text," +
			"tool_info text," +
			"generation_date int8" +
			");")
		if err != nil {
			log.Debug("create metadata", "err", err)
			return writeError("could not create metadata, either this is not a database or the metadata already exists")
		}

		return writeMetadata(conn, "insert into "+metadataTable+
			" (metadata_version, type, format_version, tool_name, tool_version, tool_info, generation_date)"+
			" values (?, ?, ?, ?, ?, ?, ?);", md)
	})
}

// withSavepoint runs fn inside savepoint name, rolling back everything fn
// did if it fails.
func withSavepoint(conn *sqlite.Conn, name string, fn func() error) error {
	if err := conn.Execute("savepoint " + name + ";"); err != nil {
		return err
	}
	if err := fn(); err != nil {
		// rollback to leaves the savepoint open
		if rerr := conn.Execute("rollback to " + name + "; release " + name + ";"); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return conn.Execute("release " + name + ";")
}

// updateMetadata replaces the metadata row of conn.
func updateMetadata(conn *sqlite.Conn, md Metadata) error {
	return writeMetadata(conn, "update "+metadataTable+" set "+
		"metadata_version = ?,"+
		"type = ?,"+
		"format_version = ?,"+
		"tool_name = ?,"+
		"tool_version = ?,"+
		"tool_info = ?,"+
		"generation_date = ?"+
		";", md)
}

// writeMetadata runs sql with md bound to parameters 2 to 7 and the current
// layout version to parameter 1.
func writeMetadata(conn *sqlite.Conn, sql string, md Metadata) error {
	stmt, err := conn.Prepare(sql)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if err := stmt.BindUint32Cast(1, MetadataVersion, "metadata version"); err != nil {
		return err
	}
	if err := stmt.BindUint32Cast(2, md.resourceType, "type"); err != nil {
		return err
	}
	if err := stmt.BindTextNoCopy(3, md.formatVersion, "format version"); err != nil {
		return err
	}
	if err := stmt.BindTextNoCopy(4, md.toolName, "tool name"); err != nil {
		return err
	}
	if err := stmt.BindTextNoCopy(5, md.toolVersion, "tool version"); err != nil {
		return err
	}
	if err := stmt.BindTextNoCopy(6, md.toolInfo, "tool info"); err != nil {
		return err
	}
	if err := stmt.BindUint64Cast(7, md.generationDate, "generation date"); err != nil {
		return err
	}

	if _, err := stmt.Step(); err != nil {
		return err
	}
	return nil
}
