//go:build cgo

package storage

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriver selects the cgo-backed driver when cgo is available.
const sqliteDriver = "sqlite3"
