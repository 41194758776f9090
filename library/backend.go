package library

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Table names a record table and its positional header.
type Table struct {
	Name   string
	Header []string
}

// Snapshot is the full content of a table as it should be stored.
type Snapshot struct {
	Table Table
	Rows  [][]string
}

// Backend stores tables of positional string rows.
//
// Load returns the data rows of a table in stored order, without the header.
// A table that was never saved has no rows. Save replaces the complete
// content of every given table; implementations apply all snapshots of one
// call together or leave the stored tables as they were.
type Backend interface {
	Load(table Table) ([][]string, error)
	Save(snapshots ...Snapshot) error
	Close() error
}

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// OpenBackend opens the backend called kind. dataDir holds the CSV files;
// dbPath is the SQLite file (relative paths resolve inside dataDir).
func OpenBackend(kind, dataDir, dbPath string, opts ...Option) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case BackendCSV, "":
		return NewCSVBackend(dataDir, opts...)
	case BackendSQLite:
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(dataDir, dbPath)
		}
		return NewDatabase(dbPath, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
