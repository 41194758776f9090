package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CSVBackend keeps every table in <dir>/<table>.csv with a header row.
type CSVBackend struct {
	dir    string
	logger Logger
}

// NewCSVBackend uses dir as the data directory, creating it when needed.
func NewCSVBackend(dir string, opts ...Option) (*CSVBackend, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &CSVBackend{dir: dir, logger: s.logger}, nil
}

// Path returns the file that holds table.
func (b *CSVBackend) Path(table Table) string {
	return filepath.Join(b.dir, table.Name+".csv")
}

func (b *CSVBackend) Load(table Table) ([][]string, error) {
	path := b.Path(table)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		b.logger.Info(logMsgMissingTable, logAttrPath, path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := b.readRows(r, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// readRows drops the first record as the header, even when it does not
// parse, and skips data lines that do not parse.
func (b *CSVBackend) readRows(r *csv.Reader, table Table) ([][]string, error) {
	var rows [][]string
	for i := 0; ; i++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			b.logger.Warn(logMsgSkippedRecord, logAttrTable, table.Name, logAttrRow, parseErr.Line, logAttrError, err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		if i == 0 {
			continue
		}
		rows = append(rows, record)
	}
}

// Save writes each snapshot to a temporary file next to its target and only
// renames them into place once every file was written and synced. Each live
// file is hard-linked to a backup first; when a rename fails the tables
// already replaced are restored from their backups.
func (b *CSVBackend) Save(snapshots ...Snapshot) error {
	staged := make([]string, 0, len(snapshots))

	for _, snap := range snapshots {
		tmp, err := b.writeTemp(snap)
		if tmp != "" {
			staged = append(staged, tmp)
		}
		if err != nil {
			b.removeAll(staged...)
			return err
		}
	}

	var replaced []backup
	for i, snap := range snapshots {
		target := b.Path(snap.Table)
		bak, err := b.backup(target)
		if err == nil {
			err = os.Rename(staged[i], target)
			if err != nil {
				b.removeAll(bak.path)
			}
		}
		if err != nil {
			b.logger.Error(logMsgRenameFailed, logAttrPath, target, logAttrError, err.Error())
			b.rollback(replaced)
			b.removeAll(staged...)
			return fmt.Errorf("replace %s: %w", target, err)
		}
		replaced = append(replaced, bak)
	}
	for _, bak := range replaced {
		b.removeAll(bak.path)
	}
	return nil
}

// backup remembers the content of target before it is replaced. path is
// empty when target did not exist.
type backup struct {
	target string
	path   string
}

func (b *CSVBackend) backup(target string) (backup, error) {
	bak := backup{target: target}
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		return bak, nil
	}
	path := target + ".bak"
	b.removeAll(path)
	if err := os.Link(target, path); err != nil {
		if err := copyFile(target, path); err != nil {
			return bak, fmt.Errorf("back up %s: %w", target, err)
		}
	}
	bak.path = path
	return bak, nil
}

// rollback puts every replaced table back the way it was, newest first.
func (b *CSVBackend) rollback(replaced []backup) {
	for i := len(replaced) - 1; i >= 0; i-- {
		bak := replaced[i]
		var err error
		if bak.path == "" {
			err = os.Remove(bak.target)
		} else {
			err = os.Rename(bak.path, bak.target)
		}
		if err != nil {
			b.logger.Error(logMsgRestoreFailed, logAttrPath, bak.target, logAttrError, err.Error())
		}
	}
}

func (b *CSVBackend) removeAll(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger.Warn(logMsgTempCleanupFailed, logAttrPath, p, logAttrError, err.Error())
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
	}
	return err
}

func (b *CSVBackend) writeTemp(snap Snapshot) (string, error) {
	f, err := os.CreateTemp(b.dir, snap.Table.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", snap.Table.Name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(snap.Table.Header); err != nil {
		f.Close()
		return f.Name(), fmt.Errorf("write %s: %w", snap.Table.Name, err)
	}
	if err := w.WriteAll(snap.Rows); err != nil {
		f.Close()
		return f.Name(), fmt.Errorf("write %s: %w", snap.Table.Name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return f.Name(), fmt.Errorf("sync %s: %w", snap.Table.Name, err)
	}
	return f.Name(), f.Close()
}

// Close is a no-op; files are closed after every operation.
func (b *CSVBackend) Close() error { return nil }
