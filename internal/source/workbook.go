// Package source discovers and reads vehicle registration workbooks.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/denigris/emplacamentos/internal/model"

	"github.com/xuri/excelize/v2"
)

// progressEvery is how many rows pass between progress callbacks.
const progressEvery = 500

// ParseFile opens and reads a workbook from disk.
func ParseFile(path string, progressFn ProgressFunc) ParseResult {
	f, err := os.Open(path) //nolint:gosec // workbook path is chosen by the local user
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()

	res := ReadWorkbook(f, progressFn)
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", path, res.Err)
	}
	return res
}

// ReadWorkbook reads the first sheet carrying the registration headers.
// Rows are read with raw cell values so dates arrive as Excel serials.
// Blank rows are skipped; rows whose date does not parse are kept with a zero
// date and counted in InvalidDates.
func ReadWorkbook(r io.Reader, progressFn ProgressFunc) ParseResult {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ParseResult{Err: fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParseResult{Err: ErrNoSheet}
	}

	var (
		rows     [][]string
		idx      columnIndex
		sheet    string
		firstErr error
	)
	for _, name := range sheets {
		rs, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil || len(rs) == 0 {
			continue
		}
		ci, err := indexHeaders(rs[0])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("sheet %q: %w", name, err)
			}
			continue
		}
		rows, idx, sheet = rs, ci, name
		break
	}
	if sheet == "" {
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: empty workbook", ErrMissingColumn)
		}
		return ParseResult{Err: firstErr}
	}

	res := ParseResult{
		Sheet:   sheet,
		Headers: idx.headers,
		Records: make([]model.Registration, 0, len(rows)-1),
	}

	total := len(rows) - 1
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if progressFn != nil && (i%progressEvery == 0 || i == total) {
			progressFn(i, total)
		}
		if blank(row) {
			res.BlankRows++
			continue
		}

		rec := idx.registration(row)
		rec.Row = i + 1
		if !rec.HasDate() {
			res.InvalidDates++
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func (idx columnIndex) registration(row []string) model.Registration {
	rec := model.Registration{
		ClientName: cell(row, idx.client),
		TaxID:      cell(row, idx.taxID),
		Brand:      cell(row, idx.brand),
		Segment:    cell(row, idx.segment),
		Model:      cell(row, idx.model),
		Plate:      model.NotAvailable,
	}
	rec.TaxIDNormalized = NormalizeTaxID(rec.TaxID)
	if idx.plate >= 0 {
		rec.Plate = NormalizePlate(cell(row, idx.plate))
	}
	if d, ok := ParseDate(cell(row, idx.date)); ok {
		rec.RegisteredAt = d
	}
	for i, h := range idx.extra {
		if v := cell(row, i); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string, len(idx.extra))
			}
			rec.Extra[h] = v
		}
	}
	return rec
}

func blank(row []string) bool {
	for i := range row {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}

// IsFormatError reports whether err means the input is not a usable
// registration workbook, as opposed to an I/O failure.
func IsFormatError(err error) bool {
	return errors.Is(err, ErrMissingColumn) || errors.Is(err, ErrNoSheet) || errors.Is(err, ErrInvalidWorkbook)
}
