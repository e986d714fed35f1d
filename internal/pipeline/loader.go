// Package pipeline loads registration datasets and turns them into
// summaries, searches and client reports.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/source"
)

// ErrNoDataset is returned when no workbook is loaded or configured.
var ErrNoDataset = errors.New("no dataset loaded")

// ProgressFunc is called during loading to report progress.
// For a single workbook current/total count rows; for a directory they count files.
type ProgressFunc func(current, total int)

// Dataset is the set of registrations every query runs against.
type Dataset struct {
	SourceID     string
	SourceName   string
	Path         string // empty for uploads
	Records      []model.Registration
	InvalidDates int
	Files        int
	FileErrors   int
	CacheHits    int
	Reparsed     int
	LoadedAt     time.Time
	FromCache    bool
}

// Info summarizes the dataset for status displays.
func (d *Dataset) Info() model.DatasetInfo {
	return model.DatasetInfo{
		SourceID:     d.SourceID,
		SourceName:   d.SourceName,
		Path:         d.Path,
		Records:      len(d.Records),
		InvalidDates: d.InvalidDates,
		LoadedAt:     d.LoadedAt,
		FromCache:    d.FromCache,
	}
}

// Load reads a workbook, or every workbook directly inside a directory,
// without touching the cache.
func Load(path string, progressFn ProgressFunc) (*Dataset, error) {
	files, isDir, err := resolve(path)
	if err != nil {
		return nil, err
	}

	ds := newDataset(path, isDir, len(files))
	results := parseAll(files, progressFn, 0, len(files))
	for _, pr := range results {
		if err := ds.add(pr); err != nil {
			return nil, err
		}
	}
	return ds, ds.check()
}

// resolve expands path into the workbooks it names.
func resolve(path string) ([]source.DiscoveredFile, bool, error) {
	if path == "" {
		return nil, false, ErrNoDataset
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, false, fmt.Errorf("opening %s: %w", path, err)
	}

	if !info.IsDir() {
		f, err := source.Stat(abs)
		if err != nil {
			return nil, false, err
		}
		return []source.DiscoveredFile{f}, false, nil
	}

	files, err := source.Discover(abs)
	if err != nil {
		return nil, true, fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(files) == 0 {
		return nil, true, fmt.Errorf("%w: no .xlsx workbooks in %s", ErrNoDataset, path)
	}
	return files, true, nil
}

func newDataset(path string, isDir bool, files int) *Dataset {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	ds := &Dataset{
		SourceID:   fileSourceID(abs),
		SourceName: filepath.Base(abs),
		Path:       abs,
		Files:      files,
		LoadedAt:   time.Now(),
	}
	if isDir {
		ds.SourceID = "dir:" + abs
	}
	return ds
}

func fileSourceID(abs string) string {
	return "file:" + abs
}

// add merges one parsed workbook. A failure is fatal only for single-file
// datasets; directories count it and carry on.
func (ds *Dataset) add(pr source.ParseResult) error {
	if pr.Err != nil {
		if ds.Files == 1 {
			return pr.Err
		}
		ds.FileErrors++
		return nil
	}
	ds.Records = append(ds.Records, pr.Records...)
	ds.InvalidDates += pr.InvalidDates
	return nil
}

func (ds *Dataset) check() error {
	if ds.Files > 0 && ds.FileErrors == ds.Files {
		return fmt.Errorf("%w: none of the %d workbooks in %s could be read", ErrNoDataset, ds.Files, ds.Path)
	}
	return nil
}

// parseAll parses files with a bounded worker pool, keeping input order.
// done and total shift the progress counts when some files came from cache.
func parseAll(files []source.DiscoveredFile, progressFn ProgressFunc, done, total int) []source.ParseResult {
	results := make([]source.ParseResult, len(files))
	if len(files) == 0 {
		return results
	}

	// A lone workbook reports row progress instead of file progress.
	if len(files) == 1 && total == 1 {
		var rowProgress source.ProgressFunc
		if progressFn != nil {
			rowProgress = source.ProgressFunc(progressFn)
		}
		results[0] = source.ParseFile(files[0].Path, rowProgress)
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx].Path, nil)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n)+done, total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}
