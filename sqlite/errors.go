// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage matches every error reported by the engine, including
	// ErrNotFound, ErrBusy and ErrOutOfBounds.
	ErrStorage = errors.New("sqlite: storage error")

	// ErrNotFound is reported when a database cannot be opened.
	ErrNotFound = errors.New("sqlite: database not found")

	// ErrBusy is reported when the engine cannot get a lock because another
	// connection holds it. The operation may be retried.
	ErrBusy = errors.New("sqlite: database busy")

	// ErrOutOfBounds is reported by the Throw binding policy.
	ErrOutOfBounds = errors.New("sqlite: value out of bounds")
)

// Error is an engine failure.
type Error struct {
	Op   string // what was attempted, e.g. "can't bind tool name"
	Code int    // engine result code, zero when the failure did not come from the engine
	Msg  string // engine error text

	kind error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return e.Op + ": " + e.Msg
}

// Is reports whether target is ErrStorage or the specific kind of e.
func (e *Error) Is(target error) bool {
	return target == ErrStorage || (e.kind != nil && target == e.kind)
}

// misuse builds the panic value for a broken statement contract.
func misuse(format string, args ...any) error {
	return fmt.Errorf("sqlite: misuse: "+format, args...)
}
