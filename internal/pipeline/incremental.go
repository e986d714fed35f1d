package pipeline

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/denigris/emplacamentos/internal/source"
	"github.com/denigris/emplacamentos/internal/store"
)

// LoadWithCache loads like Load but reparses only workbooks whose mtime or
// size changed since they were cached.
func LoadWithCache(path string, cache *store.Cache, progressFn ProgressFunc) (*Dataset, error) {
	files, isDir, err := resolve(path)
	if err != nil {
		return nil, err
	}
	ds := newDataset(path, isDir, len(files))

	// Diff: partition into changed and unchanged
	parsed := make([]source.ParseResult, len(files))
	var toReparse []source.DiscoveredFile
	var reparseIdx []int

	for i, f := range files {
		tracked, ok, err := cache.TrackedWorkbook(f.Path)
		if err != nil {
			return nil, fmt.Errorf("reading cache: %w", err)
		}
		if ok && tracked.Matches(f.MtimeNs, f.SizeBytes) {
			recs, err := cache.LoadRegistrations(tracked.SourceID)
			if err == nil {
				parsed[i] = source.ParseResult{
					Records:      recs,
					Sheet:        tracked.Sheet,
					InvalidDates: tracked.InvalidDates,
				}
				continue
			}
		}
		toReparse = append(toReparse, f)
		reparseIdx = append(reparseIdx, i)
	}

	ds.CacheHits = len(files) - len(toReparse)
	ds.Reparsed = len(toReparse)
	ds.FromCache = len(toReparse) == 0

	// Parse changed files
	results := parseAll(toReparse, progressFn, ds.CacheHits, len(files))
	for j, pr := range results {
		i := reparseIdx[j]
		parsed[i] = pr
		if pr.Err != nil {
			continue
		}
		info := store.WorkbookInfo{
			SourceID:     fileSourceID(toReparse[j].Path),
			Name:         toReparse[j].Name,
			Path:         toReparse[j].Path,
			Sheet:        pr.Sheet,
			MtimeNs:      toReparse[j].MtimeNs,
			SizeBytes:    toReparse[j].SizeBytes,
			InvalidDates: pr.InvalidDates,
		}
		_ = cache.SaveWorkbook(info, pr.Records)
	}

	for _, pr := range parsed {
		if err := ds.add(pr); err != nil {
			return nil, err
		}
	}
	return ds, ds.check()
}

// LoadUpload reads a workbook received as bytes. Identical uploads share a
// source ID and are served from the cache when present. cache may be nil.
func LoadUpload(name string, data []byte, cache *store.Cache) (*Dataset, error) {
	name = filepath.Base(name)
	if !source.IsWorkbookName(name) {
		return nil, fmt.Errorf("%w: %s is not an .xlsx file", source.ErrInvalidWorkbook, name)
	}
	sum := sha256.Sum256(data)
	id := fmt.Sprintf("upload:%s:%x", name, sum[:6])

	ds := &Dataset{
		SourceID:   id,
		SourceName: name,
		Files:      1,
		LoadedAt:   time.Now(),
	}

	if cache != nil {
		if cached, err := loadCached(cache, id); err == nil {
			return cached, nil
		}
	}

	pr := source.ReadWorkbook(bytes.NewReader(data), nil)
	if pr.Err != nil {
		return nil, fmt.Errorf("%s: %w", name, pr.Err)
	}
	ds.Records = pr.Records
	ds.InvalidDates = pr.InvalidDates

	if cache != nil {
		_ = cache.SaveWorkbook(store.WorkbookInfo{
			SourceID:     id,
			Name:         name,
			Sheet:        pr.Sheet,
			SizeBytes:    int64(len(data)),
			InvalidDates: pr.InvalidDates,
		}, pr.Records)
	}
	return ds, nil
}

// loadCached rebuilds a single-workbook dataset purely from the cache.
func loadCached(cache *store.Cache, sourceID string) (*Dataset, error) {
	w, ok, err := cache.Workbook(sourceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is not cached", ErrNoDataset, sourceID)
	}
	recs, err := cache.LoadRegistrations(sourceID)
	if err != nil {
		return nil, fmt.Errorf("loading cached registrations: %w", err)
	}
	return &Dataset{
		SourceID:     w.SourceID,
		SourceName:   w.Name,
		Path:         w.Path,
		Records:      recs,
		InvalidDates: w.InvalidDates,
		Files:        1,
		CacheHits:    1,
		LoadedAt:     time.Now(),
		FromCache:    true,
	}, nil
}

// LoadActive restores the dataset last marked active. A file-backed source is
// refreshed from disk when it still exists; an upload, or a file that has
// since disappeared, is served from the cache. With nothing active,
// fallbackPath is loaded instead.
func LoadActive(cache *store.Cache, fallbackPath string, progressFn ProgressFunc) (*Dataset, error) {
	active, ok, err := cache.Active()
	if err != nil {
		return nil, fmt.Errorf("reading active dataset: %w", err)
	}
	if ok {
		if active.Path != "" {
			if _, err := os.Stat(active.Path); err == nil {
				return LoadWithCache(active.Path, cache, progressFn)
			}
		}
		if ds, err := loadCached(cache, active.SourceID); err == nil {
			return ds, nil
		}
	}
	if fallbackPath == "" {
		return nil, ErrNoDataset
	}
	return LoadWithCache(fallbackPath, cache, progressFn)
}

// Open picks the dataset a run starts from: an explicit path wins, then the
// active source, then fallback. A nil cache reads workbooks directly.
func Open(cache *store.Cache, explicit, fallback string, progressFn ProgressFunc) (*Dataset, error) {
	switch {
	case explicit != "" && cache == nil:
		return Load(explicit, progressFn)
	case explicit != "":
		return LoadWithCache(explicit, cache, progressFn)
	case cache != nil:
		return LoadActive(cache, fallback, progressFn)
	case fallback == "":
		return nil, ErrNoDataset
	default:
		return Load(fallback, progressFn)
	}
}

// Activate records ds as the dataset later runs start from.
func Activate(cache *store.Cache, ds *Dataset) error {
	return cache.SetActive(ds.SourceID, ds.Path)
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "emplac")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "emplac")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "emplacamentos.db")
}
