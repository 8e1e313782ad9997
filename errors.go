// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package resourcedb

import "errors"

var (
	// ErrMetadata matches every metadata failure.
	ErrMetadata = errors.New("metadata error")

	// ErrReadMetadata is reported when the metadata of a database is missing,
	// ill-formed, or written by a newer version of this package.
	ErrReadMetadata = errors.New("can't read metadata")

	// ErrWriteMetadata is reported when metadata cannot be created or updated.
	ErrWriteMetadata = errors.New("can't write metadata")
)

// MetadataError is a failure to read or write the metadata of a database.
// It matches ErrMetadata and one of ErrReadMetadata or ErrWriteMetadata.
type MetadataError struct {
	Msg   string
	write bool
}

func readError(msg string) *MetadataError {
	return &MetadataError{Msg: msg}
}

func writeError(msg string) *MetadataError {
	return &MetadataError{Msg: msg, write: true}
}

func (e *MetadataError) Error() string {
	return e.Msg
}

func (e *MetadataError) Is(target error) bool {
	switch target {
	case ErrMetadata:
		return true
	case ErrReadMetadata:
		return !e.write
	case ErrWriteMetadata:
		return e.write
	}
	return false
}
