package model

import (
	"strconv"
	"time"
)

// SummaryStats holds the top-level aggregate across a set of registrations.
type SummaryStats struct {
	TotalRegistrations int `json:"total_registrations"`
	UniqueClients      int `json:"unique_clients"`
	FirstYear          int `json:"first_year,omitempty"` // 0 when no date parsed
	LastYear           int `json:"last_year,omitempty"`
	InvalidDates       int `json:"invalid_dates"`
}

// Period formats the covered years as "2019 - 2024", using N/A when unknown.
func (s SummaryStats) Period() string {
	if s.FirstYear == 0 {
		return NotAvailable + " - " + NotAvailable
	}
	return itoa(s.FirstYear) + " - " + itoa(s.LastYear)
}

// YearCount holds the number of registrations in one calendar year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// BrandYearRow is one brand's registrations per year, aligned with BrandYearTable.Years.
type BrandYearRow struct {
	Brand  string `json:"brand"`
	Counts []int  `json:"counts"`
	Total  int    `json:"total"`
}

// BrandYearTable is a brand x year pivot with zero-filled cells.
type BrandYearTable struct {
	Years []int          `json:"years"`
	Rows  []BrandYearRow `json:"rows"`
}

// Empty reports whether the pivot has no cells.
func (t BrandYearTable) Empty() bool {
	return len(t.Rows) == 0 || len(t.Years) == 0
}

// DatasetInfo describes the currently loaded dataset.
type DatasetInfo struct {
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name"`
	Path         string    `json:"path,omitempty"`
	Records      int       `json:"records"`
	InvalidDates int       `json:"invalid_dates"`
	LoadedAt     time.Time `json:"loaded_at"`
	FromCache    bool      `json:"from_cache"`
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
