// Package version reports build information.
package version

import "fmt"

// Set at build time:
//
//	go build -ldflags "-X github.com/pablasso/apiflow/internal/version.Version=v1.0.0"
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// String describes the build, e.g. "v1.0.0 (commit abc123, built 2026-01-02)".
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}
