// Package version reports build and rule-engine versions.
package version

import (
	"runtime/debug"
)

// EngineVersion is the predicate vocabulary this engine understands.
// Catalogs may require a minimum via min_engine_version.
const EngineVersion = "1.1.0"

// Swappable for testing
var readBuildInfo = debug.ReadBuildInfo

// BuildVersion returns the module version, or "dev" if unavailable.
func BuildVersion() string {
	info, ok := readBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// UserAgent for outbound registry requests
func UserAgent() string {
	return "aerocheck/" + BuildVersion()
}
