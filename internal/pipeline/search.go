package pipeline

import (
	"errors"
	"strings"
	"unicode"

	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/source"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyQuery is returned when a search has nothing to look for.
var ErrEmptyQuery = errors.New("empty search query")

// Search returns the records whose client name contains query, ignoring case
// and accents, or whose tax ID or plate contains the query stripped of
// punctuation. Record order is preserved.
func Search(records []model.Registration, query string) ([]model.Registration, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	name := fold(query)
	code := source.NormalizeQuery(query)

	var out []model.Registration
	for _, r := range records {
		if matches(r, name, code) {
			out = append(out, r)
		}
	}
	return out, nil
}

func matches(r model.Registration, name, code string) bool {
	if strings.Contains(fold(r.ClientName), name) {
		return true
	}
	if code == "" {
		return false
	}
	if strings.Contains(strings.ToUpper(r.TaxIDNormalized), code) {
		return true
	}
	return r.Plate != model.NotAvailable && strings.Contains(source.NormalizeQuery(r.Plate), code)
}

// fold lower-cases s and strips combining accents, so "São" matches "SAO".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
