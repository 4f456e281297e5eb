//go:build !cgo

package storage

import (
	_ "modernc.org/sqlite"
)

// sqliteDriver selects the pure-Go driver for cgo-free builds.
const sqliteDriver = "sqlite"
