package source

import (
	"fmt"
	"strings"

	"github.com/denigris/emplacamentos/internal/model"
)

var plateAliases = []string{"PLACA", "Placa", "placa", "PLACA VEÍCULO", "Placa Veículo"}

var requiredHeaders = []string{model.ColDate, model.ColTaxID, model.ColClient}

// columnIndex maps the known headers of a sheet to their positions.
type columnIndex struct {
	date, taxID, client   int
	plate                 int // -1 when the sheet has no plate column
	brand, segment, model int
	extra                 map[int]string
	headers               []string
}

// indexHeaders normalizes a header row. The first plate alias found becomes
// the plate column. It fails with ErrMissingColumn naming the absent headers.
func indexHeaders(row []string) (columnIndex, error) {
	pos := make(map[string]int, len(row))
	headers := make([]string, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		headers[i] = h
		if h == "" {
			continue
		}
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := pos[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	idx := columnIndex{
		date:    pos[model.ColDate],
		taxID:   pos[model.ColTaxID],
		client:  pos[model.ColClient],
		plate:   -1,
		brand:   lookup(pos, model.ColBrand),
		segment: lookup(pos, model.ColSegment),
		model:   lookup(pos, model.ColModel),
		extra:   make(map[int]string),
		headers: headers,
	}
	for _, alias := range plateAliases {
		if i, ok := pos[alias]; ok {
			idx.plate = i
			headers[i] = model.ColPlate
			break
		}
	}

	known := map[int]bool{idx.date: true, idx.taxID: true, idx.client: true}
	for _, i := range []int{idx.plate, idx.brand, idx.segment, idx.model} {
		if i >= 0 {
			known[i] = true
		}
	}
	for i, h := range headers {
		if h != "" && !known[i] && pos[h] == i {
			idx.extra[i] = h
		}
	}
	return idx, nil
}

func lookup(pos map[string]int, h string) int {
	if i, ok := pos[h]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
