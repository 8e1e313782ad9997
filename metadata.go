// Copyright (c) 2026 Michael D Henderson. All rights reserved.

package resourcedb

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Metadata describes the resource stored in a database and the tool that
// produced it. Metadata values are comparable with ==.
//
// Only producers holding a MetadataWriter and this package can build
// Metadata; everyone else reads it from a DB.
type Metadata struct {
	resourceType   uint32
	formatVersion  string
	toolName       string
	toolVersion    string
	toolInfo       string
	generationDate uint64
}

// Type is the magic number of the resource type.
func (md Metadata) Type() uint32 { return md.resourceType }

// FormatVersion is the version of the resource file format, "x.y.z" with an optional "-suffix".
func (md Metadata) FormatVersion() string { return md.formatVersion }

// ToolName is the name of the tool that generated the resource.
func (md Metadata) ToolName() string { return md.toolName }

// ToolVersion is the version of the tool, "x.y.z" with an optional "-suffix".
func (md Metadata) ToolVersion() string { return md.toolVersion }

// ToolInfo is free text, usually the tool version and the version of the
// writer library it used.
func (md Metadata) ToolInfo() string { return md.toolInfo }

// GenerationDate is the date the resource was generated.
func (md Metadata) GenerationDate() uint64 { return md.generationDate }

// FormatSemver parses FormatVersion as a semantic version.
func (md Metadata) FormatSemver() (*semver.Version, error) {
	v, err := semver.NewVersion(md.formatVersion)
	if err != nil {
		return nil, fmt.Errorf("format version %q: %w", md.formatVersion, err)
	}
	return v, nil
}

// ToolSemver parses ToolVersion as a semantic version.
func (md Metadata) ToolSemver() (*semver.Version, error) {
	v, err := semver.NewVersion(md.toolVersion)
	if err != nil {
		return nil, fmt.Errorf("tool version %q: %w", md.toolVersion, err)
	}
	return v, nil
}

// FormatSatisfies reports whether FormatVersion satisfies constraint,
// e.g. ">= 1.2, < 2". Readers use it to decide whether they understand a file.
func (md Metadata) FormatSatisfies(constraint string) (bool, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("constraint %q: %w", constraint, err)
	}
	v, err := md.FormatSemver()
	if err != nil {
		return false, err
	}
	return c.Check(v), nil
}

// MetadataWriter grants the right to build Metadata. Embed it in the type
// that produces a kind of resource:
//
//	type traceWriter struct {
//	    resourcedb.MetadataWriter
//	}
//
//	func (w traceWriter) metadata(now time.Time) resourcedb.Metadata {
//	    return w.Write(42, "1.0.0", "tracer", "2.1.0", "tracer 2.1.0", uint64(now.Unix()))
//	}
type MetadataWriter struct{}

// Write builds a Metadata value from its fields.
func (MetadataWriter) Write(resourceType uint32, formatVersion, toolName, toolVersion, toolInfo string, generationDate uint64) Metadata {
	return Metadata{
		resourceType:   resourceType,
		formatVersion:  formatVersion,
		toolName:       toolName,
		toolVersion:    toolVersion,
		toolInfo:       toolInfo,
		generationDate: generationDate,
	}
}
