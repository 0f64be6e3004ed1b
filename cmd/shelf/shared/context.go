// Package shared holds the context passed to all CLI commands.
package shared

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// ShelfHome overrides the shelf home directory.
	// When empty, resolution falls through to SHELF_HOME env var → persisted config → ~/.docshelf.
	ShelfHome string
}
