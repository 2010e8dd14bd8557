// Package buildinfo carries version metadata stamped at build time.
package buildinfo

// Set via -ldflags "-X ..." during release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
