// Package version exposes build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/pysugar/drive-nexus/internal/version.Version=v0.1.0"
package version

import "fmt"

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// String formats the build information on one line.
func String() string {
	return fmt.Sprintf("drivenexus %s (commit %s, built %s)", Version, Commit, BuildTime)
}
