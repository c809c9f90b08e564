//go:build cgo

package storage

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver registered for this build.
// The cgo build uses mattn/go-sqlite3 so the asg017 sqlite-vec
// extension (also cgo) can load into the same connection.
const driverName = "sqlite3"
