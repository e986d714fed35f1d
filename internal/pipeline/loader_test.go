package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/denigris/emplacamentos/internal/store"

	"github.com/xuri/excelize/v2"
)

var header = []any{"Data emplacamento", "CNPJ CLIENTE", "NOME DO CLIENTE", "PLACA", "Marca"}

// writeWorkbook saves a single-sheet workbook with the standard header
// followed by rows.
func writeWorkbook(t *testing.T, path string, rows ...[]any) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	all := append([][]any{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("saving %s: %v", path, err)
	}
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func openCache(t *testing.T) *store.Cache {
	t.Helper()
	c, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emplacamentos.xlsx")
	writeWorkbook(t, path,
		[]any{"15/01/2023", "12.345.678/0001-90", "Alfa", "abc1d23", "VOLVO"},
		[]any{"sem data", "12.345.678/0001-90", "Alfa", "def4g56", "VOLVO"},
	)

	ds, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Records) != 2 || ds.InvalidDates != 1 {
		t.Errorf("records=%d invalid=%d", len(ds.Records), ds.InvalidDates)
	}
	if ds.SourceName != "emplacamentos.xlsx" || ds.SourceID != "file:"+path {
		t.Errorf("source = %q / %q", ds.SourceName, ds.SourceID)
	}
	if ds.FromCache {
		t.Error("uncached load reported FromCache")
	}
	if info := ds.Info(); info.Records != 2 || info.Path != path {
		t.Errorf("Info = %+v", info)
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "2022.xlsx"), []any{"10/03/2022", "1", "Alfa", "AAA1111", "DAF"})
	writeWorkbook(t, filepath.Join(dir, "2023.xlsx"),
		[]any{"10/03/2023", "1", "Alfa", "BBB2222", "DAF"},
		[]any{"11/03/2023", "2", "Beta", "CCC3333", "DAF"},
	)
	if err := os.WriteFile(filepath.Join(dir, "broken.xlsx"), []byte("not a zip"), 0o600); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int64
	ds, err := Load(dir, func(current, total int) {
		calls.Add(1)
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Records) != 3 || ds.FileErrors != 1 || ds.Files != 3 {
		t.Errorf("records=%d fileErrors=%d files=%d", len(ds.Records), ds.FileErrors, ds.Files)
	}
	if ds.Records[0].Plate != "AAA1111" {
		t.Errorf("records not in file order: first plate %q", ds.Records[0].Plate)
	}
	if ds.SourceID != "dir:"+dir {
		t.Errorf("SourceID = %q", ds.SourceID)
	}
	if calls.Load() != 3 {
		t.Errorf("progress called %d times, want 3", calls.Load())
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("", nil); !errors.Is(err, ErrNoDataset) {
		t.Errorf("empty path err = %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"), nil); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := Load(t.TempDir(), nil); !errors.Is(err, ErrNoDataset) {
		t.Errorf("empty dir err = %v", err)
	}
}

func TestLoadWithCache_ReusesUnchanged(t *testing.T) {
	cache := openCache(t)
	path := filepath.Join(t.TempDir(), "emplacamentos.xlsx")
	writeWorkbook(t, path, []any{"15/01/2023", "1", "Alfa", "AAA1111", "DAF"})

	first, err := LoadWithCache(path, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache || first.Reparsed != 1 {
		t.Errorf("first load: fromCache=%v reparsed=%d", first.FromCache, first.Reparsed)
	}

	second, err := LoadWithCache(path, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache || second.CacheHits != 1 {
		t.Errorf("second load: fromCache=%v hits=%d", second.FromCache, second.CacheHits)
	}
	if len(second.Records) != 1 || !second.Records[0].RegisteredAt.Equal(time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("cached records = %+v", second.Records)
	}

	// Rewriting changes size and mtime, forcing a reparse.
	writeWorkbook(t, path,
		[]any{"15/01/2023", "1", "Alfa", "AAA1111", "DAF"},
		[]any{"15/02/2023", "1", "Alfa", "BBB2222", "DAF"},
	)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	third, err := LoadWithCache(path, cache, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.FromCache || len(third.Records) != 2 {
		t.Errorf("third load: fromCache=%v records=%d", third.FromCache, len(third.Records))
	}
}

func TestLoadUpload(t *testing.T) {
	cache := openCache(t)
	path := filepath.Join(t.TempDir(), "upload.xlsx")
	writeWorkbook(t, path, []any{"15/01/2023", "1", "Alfa", "AAA1111", "DAF"})
	data := readBytes(t, path)

	ds, err := LoadUpload("/tmp/../upload.xlsx", data, cache)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Path != "" || len(ds.Records) != 1 || ds.FromCache || ds.SourceName != "upload.xlsx" {
		t.Errorf("upload = %+v", ds)
	}

	again, err := LoadUpload("upload.xlsx", data, cache)
	if err != nil {
		t.Fatal(err)
	}
	if !again.FromCache || again.SourceID != ds.SourceID {
		t.Errorf("second upload = %+v", again)
	}

	if _, err := LoadUpload("notes.txt", data, nil); err == nil {
		t.Error("non-xlsx name should be rejected")
	}
	if _, err := LoadUpload("bad.xlsx", []byte("garbage"), nil); err == nil {
		t.Error("garbage upload should fail")
	}
}

func TestLoadActive(t *testing.T) {
	cache := openCache(t)
	dir := t.TempDir()
	fallback := filepath.Join(dir, "default.xlsx")
	writeWorkbook(t, fallback, []any{"15/01/2023", "1", "Alfa", "AAA1111", "DAF"})

	if _, err := LoadActive(cache, "", nil); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("nothing active err = %v", err)
	}

	ds, err := LoadActive(cache, fallback, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Path != fallback {
		t.Errorf("fallback path = %q", ds.Path)
	}

	upPath := filepath.Join(dir, "up.xlsx")
	writeWorkbook(t, upPath,
		[]any{"15/01/2023", "2", "Beta", "BBB2222", "DAF"},
		[]any{"15/01/2024", "2", "Beta", "CCC3333", "DAF"},
	)
	up, err := LoadUpload("up.xlsx", readBytes(t, upPath), cache)
	if err != nil {
		t.Fatal(err)
	}
	if err := Activate(cache, up); err != nil {
		t.Fatal(err)
	}

	restored, err := LoadActive(cache, fallback, nil)
	if err != nil {
		t.Fatal(err)
	}
	if restored.SourceID != up.SourceID || len(restored.Records) != 2 {
		t.Errorf("restored = %q with %d records", restored.SourceID, len(restored.Records))
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "explicit.xlsx")
	fallback := filepath.Join(dir, "fallback.xlsx")
	writeWorkbook(t, explicit, []any{"15/01/2023", "1", "Alfa", "AAA1111", "DAF"})
	writeWorkbook(t, fallback,
		[]any{"15/01/2023", "2", "Beta", "BBB2222", "DAF"},
		[]any{"15/01/2024", "2", "Beta", "CCC3333", "DAF"},
	)

	if _, err := Open(nil, "", "", nil); !errors.Is(err, ErrNoDataset) {
		t.Fatalf("nothing to open err = %v", err)
	}

	tests := []struct {
		name     string
		cache    bool
		explicit string
		wantPath string
	}{
		{"explicit without cache", false, explicit, explicit},
		{"fallback without cache", false, "", fallback},
		{"explicit with cache", true, explicit, explicit},
		{"fallback with cache", true, "", fallback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cache *store.Cache
			if tt.cache {
				cache = openCache(t)
			}
			ds, err := Open(cache, tt.explicit, fallback, nil)
			if err != nil {
				t.Fatal(err)
			}
			if ds.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", ds.Path, tt.wantPath)
			}
		})
	}
}

func TestCachePath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	if got := CachePath(); got != filepath.Join("/tmp/xdg", "emplac", "emplacamentos.db") {
		t.Errorf("CachePath = %q", got)
	}
}
