// Package buildinfo holds build-time variables injected via ldflags.
package buildinfo

import "fmt"

// Populated by -ldflags at build time; defaults used for local dev.
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// String returns a single-line description for `shelf --version`.
func String() string {
	return fmt.Sprintf("%s (built %s, %s@%s)", Version, BuildDate, GitBranch, GitCommit)
}
