package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	dialectSQLite = "sqlite3"
	colRowNum     = "row_num"

	// Keeps bound parameters per INSERT well below SQLite's variable limit.
	insertBatchSize = 100
)

var tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Database is a single-file SQLite backend. Every record table becomes one SQL
// table, so a multi-table Save runs inside one transaction.
type Database struct {
	db     *sqlx.DB
	logger Logger
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps every statement on the same SQLite handle.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db, logger: s.logger}, nil
}

// Close closes the DB.
func (d *Database) Close() error {
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.Get(&current, `SELECT value FROM meta WHERE key='schema_version';`)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []Table{booksTable, usersTable, loansTable} {
		if err := ensureTable(tx, table); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return tx.Commit()
}

func ensureTable(exec sqlx.Execer, table Table) error {
	if !tableNamePattern.MatchString(table.Name) {
		return fmt.Errorf("invalid table name %q", table.Name)
	}
	cols := make([]string, 0, len(table.Header)+1)
	cols = append(cols, fmt.Sprintf("%q INTEGER PRIMARY KEY", colRowNum))
	for _, h := range table.Header {
		cols = append(cols, fmt.Sprintf("%q TEXT", h))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %q (%s);", table.Name, strings.Join(cols, ", "))
	_, err := exec.Exec(stmt)
	return err
}

// ---------------------------------------------------------------------------
// Backend
// ---------------------------------------------------------------------------

func (d *Database) Load(table Table) ([][]string, error) {
	if err := ensureTable(d.db, table); err != nil {
		return nil, err
	}

	cols := make([]any, 0, len(table.Header))
	for _, h := range table.Header {
		cols = append(cols, goqu.C(h))
	}
	query, _, err := goqu.Dialect(dialectSQLite).
		From(table.Name).
		Select(cols...).
		Order(goqu.C(colRowNum).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select for %s: %w", table.Name, err)
	}

	rows, err := d.db.Queryx(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(table.Header))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Save replaces every given table inside a single transaction.
func (d *Database) Save(snapshots ...Snapshot) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, snap := range snapshots {
		if err := d.replaceTable(tx, snap); err != nil {
			d.logger.Error(logMsgPersistFailed, logAttrTable, snap.Table.Name, logAttrError, err.Error())
			return err
		}
	}
	return tx.Commit()
}

func (d *Database) replaceTable(tx *sqlx.Tx, snap Snapshot) error {
	if err := ensureTable(tx, snap.Table); err != nil {
		return err
	}

	builder := goqu.Dialect(dialectSQLite)
	del, _, err := builder.Delete(snap.Table.Name).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete for %s: %w", snap.Table.Name, err)
	}
	if _, err := tx.Exec(del); err != nil {
		return err
	}
	if len(snap.Rows) == 0 {
		return nil
	}

	cols := make([]any, 0, len(snap.Table.Header)+1)
	cols = append(cols, colRowNum)
	for _, h := range snap.Table.Header {
		cols = append(cols, h)
	}
	vals := make([][]any, 0, len(snap.Rows))
	for i, row := range snap.Rows {
		if len(row) != len(snap.Table.Header) {
			return fmt.Errorf("%w: %s row %d has %d fields, want %d", ErrMalformedRecord, snap.Table.Name, i+1, len(row), len(snap.Table.Header))
		}
		v := make([]any, 0, len(row)+1)
		v = append(v, i+1)
		for _, field := range row {
			v = append(v, field)
		}
		vals = append(vals, v)
	}

	for start := 0; start < len(vals); start += insertBatchSize {
		end := min(start+insertBatchSize, len(vals))
		insert, args, err := builder.Insert(snap.Table.Name).
			Cols(cols...).
			Vals(vals[start:end]...).
			Prepared(true).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert for %s: %w", snap.Table.Name, err)
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			return err
		}
	}
	return nil
}
