// Package version reports build metadata injected via -ldflags.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the one-line version banner.
func String() string {
	return "murmur " + resolved() + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// resolved prefers the ldflags value and falls back to the module version
// recorded by `go install`.
func resolved() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return Version
}
