// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package sqlite

import (
	"fmt"
	"regexp"
)

// Pragma is an engine setting applied when a connection is opened.
type Pragma struct {
	Name  string
	Value string
}

// MemoryPragmas suit private in-memory databases.
var MemoryPragmas = []Pragma{
	{Name: "foreign_keys", Value: "ON"},
	{Name: "journal_mode", Value: "MEMORY"},
	{Name: "synchronous", Value: "OFF"},
	{Name: "temp_store", Value: "MEMORY"},
}

// DurablePragmas suit file databases shared with other processes.
var DurablePragmas = []Pragma{
	{Name: "foreign_keys", Value: "ON"},
	{Name: "journal_mode", Value: "WAL"},
	{Name: "synchronous", Value: "NORMAL"},
	{Name: "temp_store", Value: "FILE"},
}

var (
	rePragmaName  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
	rePragmaValue = regexp.MustCompile(`^(-?[0-9]+|[A-Za-z_][A-Za-z0-9_]*|'[^']*')$`)
)

// statement returns the command that applies p.
func (p Pragma) statement() (string, error) {
	if !rePragmaName.MatchString(p.Name) {
		return "", fmt.Errorf("pragma %q: invalid name", p.Name)
	}
	if !rePragmaValue.MatchString(p.Value) {
		return "", fmt.Errorf("pragma %s: invalid value %q", p.Name, p.Value)
	}
	return fmt.Sprintf("PRAGMA %s = %s;", p.Name, p.Value), nil
}
