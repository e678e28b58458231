// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Values left at their defaults are filled from the build info
// embedded by the Go toolchain when available.
package version
