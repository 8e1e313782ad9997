package resourcedb

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 1,
		Minor: 1,
		Patch: 0,
		Build: semver.Commit(),
	}
)

// Version returns the version of this package. The metadata layout it
// writes is MetadataVersion.
func Version() semver.Version {
	return version
}
