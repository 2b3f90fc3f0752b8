//go:build purego || !sqlite_cgo
// +build purego !sqlite_cgo

package index

// This file is compiled when building without CGO or with the purego tag.
// It uses a pure Go SQLite implementation.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// The pure Go driver requires no C compiler and cross-compiles cleanly,
// at the cost of somewhat slower catalog writes during indexing.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
