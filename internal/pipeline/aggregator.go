package pipeline

import (
	"sort"
	"strings"

	"github.com/denigris/emplacamentos/internal/model"
)

// Summarize computes the headline numbers of the "Resumo Geral" view.
// Unique clients count distinct non-blank normalized tax IDs.
func Summarize(records []model.Registration) model.SummaryStats {
	stats := model.SummaryStats{TotalRegistrations: len(records)}
	clients := make(map[string]struct{})

	for _, r := range records {
		if r.TaxIDNormalized != "" {
			clients[r.TaxIDNormalized] = struct{}{}
		}
		y := r.Year()
		if y == 0 {
			stats.InvalidDates++
			continue
		}
		if stats.FirstYear == 0 || y < stats.FirstYear {
			stats.FirstYear = y
		}
		if y > stats.LastYear {
			stats.LastYear = y
		}
	}

	stats.UniqueClients = len(clients)
	return stats
}

// CountByYear returns registrations per year, oldest first. Rows without a
// valid date are left out.
func CountByYear(records []model.Registration) []model.YearCount {
	counts := make(map[int]int)
	for _, r := range records {
		if y := r.Year(); y > 0 {
			counts[y]++
		}
	}

	out := make([]model.YearCount, 0, len(counts))
	for y, n := range counts {
		out = append(out, model.YearCount{Year: y, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// BrandYearPivot counts registrations per brand and year. Every brand row has
// a cell for every year present, zero when the brand sold nothing that year.
// Rows without a brand or a valid date are left out.
func BrandYearPivot(records []model.Registration) model.BrandYearTable {
	cells := make(map[string]map[int]int)
	years := make(map[int]struct{})

	for _, r := range records {
		brand := strings.TrimSpace(r.Brand)
		y := r.Year()
		if brand == "" || y == 0 {
			continue
		}
		if cells[brand] == nil {
			cells[brand] = make(map[int]int)
		}
		cells[brand][y]++
		years[y] = struct{}{}
	}

	var table model.BrandYearTable
	for y := range years {
		table.Years = append(table.Years, y)
	}
	sort.Ints(table.Years)

	for brand, byYear := range cells {
		row := model.BrandYearRow{Brand: brand, Counts: make([]int, len(table.Years))}
		for i, y := range table.Years {
			row.Counts[i] = byYear[y]
			row.Total += byYear[y]
		}
		table.Rows = append(table.Rows, row)
	}
	sort.Slice(table.Rows, func(i, j int) bool { return table.Rows[i].Brand < table.Rows[j].Brand })
	return table
}

// GroupClients collects records by normalized tax ID, sorted by client name
// then tax ID. Records without a tax ID belong to no client.
func GroupClients(records []model.Registration) []model.ClientHistory {
	byTax := make(map[string]*model.ClientHistory)
	var order []string

	for _, r := range records {
		key := r.TaxIDNormalized
		if key == "" {
			continue
		}
		h, ok := byTax[key]
		if !ok {
			h = &model.ClientHistory{TaxID: key}
			byTax[key] = h
			order = append(order, key)
		}
		if h.DisplayTaxID == "" {
			h.DisplayTaxID = strings.TrimSpace(r.TaxID)
		}
		if h.Name == "" {
			h.Name = strings.TrimSpace(r.ClientName)
		}
		h.TotalCount++
		h.Records = append(h.Records, r)
		if r.HasDate() {
			h.Dates = append(h.Dates, r.RegisteredAt)
		}
	}

	out := make([]model.ClientHistory, 0, len(order))
	for _, key := range order {
		out = append(out, *byTax[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].TaxID < out[j].TaxID
	})
	return out
}

// Modes returns the most frequent non-blank values, sorted when several tie.
// With no values it returns a single N/A.
func Modes(values []string) []string {
	counts := make(map[string]int)
	best := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}
	if best == 0 {
		return []string{model.NotAvailable}
	}

	var out []string
	for v, n := range counts {
		if n == best {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
