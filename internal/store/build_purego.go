//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package store

// This file is compiled when building without CGO or with the purego tag.
// It uses a pure Go SQLite implementation; cosine distances are computed
// in Go instead of at the SQL layer.
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
