// Package store provides a SQLite-backed cache of parsed workbooks and the
// pointer to the active dataset.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/denigris/emplacamentos/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

const dateLayout = "2006-01-02"

// Cache provides SQLite-backed workbook caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// WorkbookInfo describes one cached workbook.
type WorkbookInfo struct {
	SourceID     string
	Name         string
	Path         string // empty for uploads
	Sheet        string
	MtimeNs      int64
	SizeBytes    int64
	RowCount     int
	InvalidDates int
	ParsedAt     time.Time
}

// Matches reports whether the cached entry still describes a file with the
// given mtime and size.
func (w WorkbookInfo) Matches(mtimeNs, sizeBytes int64) bool {
	return w.MtimeNs == mtimeNs && w.SizeBytes == sizeBytes
}

// ActiveSource is the persisted pointer to the dataset last loaded.
type ActiveSource struct {
	SourceID string
	Path     string
	SetAt    time.Time
}

const workbookColumns = `source_id, name, path, sheet, mtime_ns, size_bytes, row_count, invalid_dates, parsed_at`

func scanWorkbook(row interface{ Scan(...any) error }) (WorkbookInfo, error) {
	var w WorkbookInfo
	var parsedAt string
	if err := row.Scan(&w.SourceID, &w.Name, &w.Path, &w.Sheet, &w.MtimeNs, &w.SizeBytes,
		&w.RowCount, &w.InvalidDates, &parsedAt); err != nil {
		return w, err
	}
	w.ParsedAt, _ = time.Parse(time.RFC3339, parsedAt)
	return w, nil
}

// TrackedWorkbook returns the cached entry for a workbook path.
func (c *Cache) TrackedWorkbook(path string) (WorkbookInfo, bool, error) {
	w, err := scanWorkbook(c.db.QueryRow(
		"SELECT "+workbookColumns+" FROM workbooks WHERE path = ? ORDER BY parsed_at DESC LIMIT 1", path))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkbookInfo{}, false, nil
	}
	if err != nil {
		return WorkbookInfo{}, false, err
	}
	return w, true, nil
}

// Workbook returns the cached entry for a source ID.
func (c *Cache) Workbook(sourceID string) (WorkbookInfo, bool, error) {
	w, err := scanWorkbook(c.db.QueryRow(
		"SELECT "+workbookColumns+" FROM workbooks WHERE source_id = ?", sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return WorkbookInfo{}, false, nil
	}
	if err != nil {
		return WorkbookInfo{}, false, err
	}
	return w, true, nil
}

// Workbooks lists every cached workbook, most recently parsed first.
func (c *Cache) Workbooks() ([]WorkbookInfo, error) {
	rows, err := c.db.Query("SELECT " + workbookColumns + " FROM workbooks ORDER BY parsed_at DESC, source_id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []WorkbookInfo
	for rows.Next() {
		w, err := scanWorkbook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// SaveWorkbook replaces the cached rows of a workbook.
func (c *Cache) SaveWorkbook(info WorkbookInfo, records []model.Registration) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if info.ParsedAt.IsZero() {
		info.ParsedAt = time.Now()
	}

	if _, err := tx.Exec("DELETE FROM registrations WHERE source_id = ?", info.SourceID); err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO workbooks (`+workbookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.SourceID, info.Name, info.Path, info.Sheet, info.MtimeNs, info.SizeBytes,
		len(records), info.InvalidDates, info.ParsedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO registrations
		(source_id, row_num, plate, client_name, tax_id, tax_id_norm,
		 registered_at, brand, segment, model, extra_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		registeredAt := ""
		if r.HasDate() {
			registeredAt = r.RegisteredAt.Format(dateLayout)
		}
		extra := ""
		if len(r.Extra) > 0 {
			b, err := json.Marshal(r.Extra)
			if err != nil {
				return fmt.Errorf("encoding row %d: %w", r.Row, err)
			}
			extra = string(b)
		}
		_, err = stmt.Exec(info.SourceID, r.Row, r.Plate, r.ClientName, r.TaxID, r.TaxIDNormalized,
			registeredAt, r.Brand, r.Segment, r.Model, extra)
		if err != nil {
			return fmt.Errorf("caching row %d: %w", r.Row, err)
		}
	}

	return tx.Commit()
}

// LoadRegistrations reads the cached rows of a workbook in sheet order.
func (c *Cache) LoadRegistrations(sourceID string) ([]model.Registration, error) {
	rows, err := c.db.Query(`SELECT
		row_num, plate, client_name, tax_id, tax_id_norm,
		registered_at, brand, segment, model, extra_json
		FROM registrations WHERE source_id = ? ORDER BY row_num`, sourceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Registration
	for rows.Next() {
		var r model.Registration
		var registeredAt, extra string
		err := rows.Scan(&r.Row, &r.Plate, &r.ClientName, &r.TaxID, &r.TaxIDNormalized,
			&registeredAt, &r.Brand, &r.Segment, &r.Model, &extra)
		if err != nil {
			return nil, err
		}
		if registeredAt != "" {
			r.RegisteredAt, _ = time.Parse(dateLayout, registeredAt)
		}
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
				return nil, fmt.Errorf("decoding row %d: %w", r.Row, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteWorkbook removes a workbook and its rows.
func (c *Cache) DeleteWorkbook(sourceID string) error {
	_, err := c.db.Exec("DELETE FROM workbooks WHERE source_id = ?", sourceID)
	return err
}

// SetActive records which dataset is current. path is empty for uploads,
// which can only be restored from the cache.
func (c *Cache) SetActive(sourceID, path string) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO active_source (id, source_id, path, set_at)
		VALUES (1, ?, ?, ?)`, sourceID, path, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Active returns the persisted active dataset, if any.
func (c *Cache) Active() (ActiveSource, bool, error) {
	var a ActiveSource
	var setAt string
	err := c.db.QueryRow("SELECT source_id, path, set_at FROM active_source WHERE id = 1").
		Scan(&a.SourceID, &a.Path, &setAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ActiveSource{}, false, nil
	}
	if err != nil {
		return ActiveSource{}, false, err
	}
	a.SetAt, _ = time.Parse(time.RFC3339, setAt)
	return a, true, nil
}

// ClearActive forgets the active dataset.
func (c *Cache) ClearActive() error {
	_, err := c.db.Exec("DELETE FROM active_source")
	return err
}

// WorkbookCount returns the number of cached workbooks.
func (c *Cache) WorkbookCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM workbooks").Scan(&count)
	return count, err
}
