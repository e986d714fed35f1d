package pipeline

import (
	"sort"
	"strings"

	"github.com/denigris/emplacamentos/internal/model"
)

// Filter narrows a dataset by brand and segment. Empty lists match everything.
type Filter struct {
	Brands   []string `json:"brands,omitempty"`
	Segments []string `json:"segments,omitempty"`
}

// Empty reports whether the filter lets every record through.
func (f Filter) Empty() bool {
	return len(f.Brands) == 0 && len(f.Segments) == 0
}

func valueSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[strings.ToUpper(strings.TrimSpace(v))]
	return ok
}

// ApplyFilter returns the records matching f, in their original order.
// Brand and segment comparisons ignore case.
func ApplyFilter(records []model.Registration, f Filter) []model.Registration {
	if f.Empty() {
		return records
	}
	brands, segments := valueSet(f.Brands), valueSet(f.Segments)

	out := make([]model.Registration, 0, len(records))
	for _, r := range records {
		if inSet(brands, r.Brand) && inSet(segments, r.Segment) {
			out = append(out, r)
		}
	}
	return out
}

// FilterOptions returns the sorted distinct brands and segments present in
// records, ignoring blanks.
func FilterOptions(records []model.Registration) (brands, segments []string) {
	return distinct(records, func(r model.Registration) string { return r.Brand }),
		distinct(records, func(r model.Registration) string { return r.Segment })
}

func distinct(records []model.Registration, field func(model.Registration) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		v := strings.TrimSpace(field(r))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
