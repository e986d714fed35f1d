package source

import (
	"errors"

	"github.com/denigris/emplacamentos/internal/model"
)

var (
	// ErrMissingColumn is returned when a required header is absent from every sheet.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoSheet is returned for workbooks without any sheet.
	ErrNoSheet = errors.New("workbook has no sheets")
	// ErrInvalidWorkbook is returned when the input is not a readable XLSX file.
	ErrInvalidWorkbook = errors.New("not a valid xlsx workbook")
)

// ProgressFunc is called while rows or files are processed.
type ProgressFunc func(current, total int)

// ParseResult holds the output of reading one workbook.
type ParseResult struct {
	Records      []model.Registration
	Sheet        string
	Headers      []string
	InvalidDates int
	BlankRows    int
	Err          error
}

// DiscoveredFile is a workbook found on disk.
type DiscoveredFile struct {
	Path      string
	Name      string
	MtimeNs   int64
	SizeBytes int64
}
