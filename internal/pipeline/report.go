package pipeline

import (
	"errors"
	"sort"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/model"
	"github.com/denigris/emplacamentos/internal/source"
)

// ErrClientNotFound is returned when no record carries the requested tax ID.
var ErrClientNotFound = errors.New("client not found")

// DefaultColumns are shown in history tables when none are configured.
var DefaultColumns = []string{model.ColDate, model.ColPlate, model.ColBrand, model.ColModel, model.ColSegment}

// DefaultModeColumns are summarized as most frequent values per client.
var DefaultModeColumns = []string{model.ColBrand, model.ColModel, model.ColSegment}

// ReportOptions controls what every surface includes in client reports.
type ReportOptions struct {
	Columns        []string
	ModeColumns    []string
	ShowPrediction bool
	ShowModes      bool
	MaxClients     int // 0 means no limit
}

// DefaultReportOptions shows everything for up to ten clients per search.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{
		Columns:        DefaultColumns,
		ModeColumns:    DefaultModeColumns,
		ShowPrediction: true,
		ShowModes:      true,
		MaxClients:     10,
	}
}

func (o ReportOptions) columns() []string {
	if len(o.Columns) == 0 {
		return DefaultColumns
	}
	return o.Columns
}

// BuildClientReport builds the report of the client with the given tax ID,
// written with or without punctuation. today must be a calendar date shared
// by every report of the same request.
func BuildClientReport(records []model.Registration, taxID string, opts ReportOptions, today time.Time) (model.ClientReport, error) {
	key := source.NormalizeTaxID(taxID)
	if key == "" {
		return model.ClientReport{}, ErrClientNotFound
	}
	for _, h := range GroupClients(records) {
		if h.TaxID == key {
			return clientReport(h, opts, today), nil
		}
	}
	return model.ClientReport{}, ErrClientNotFound
}

// BuildSearchReport searches records and builds one report per matched
// client, using all of that client's records rather than only the matched
// rows. Clients are sorted by name and capped by opts.MaxClients.
func BuildSearchReport(records []model.Registration, query string, opts ReportOptions, today time.Time) (model.SearchReport, error) {
	matches, err := Search(records, query)
	if err != nil {
		return model.SearchReport{}, err
	}

	rep := model.SearchReport{
		Query:   query,
		Columns: opts.columns(),
		Matches: matches,
	}

	matched := make(map[string]struct{})
	for _, r := range matches {
		if r.TaxIDNormalized != "" {
			matched[r.TaxIDNormalized] = struct{}{}
		}
	}
	rep.MatchedClients = len(matched)

	for _, h := range GroupClients(records) {
		if _, ok := matched[h.TaxID]; !ok {
			continue
		}
		if opts.MaxClients > 0 && len(rep.Clients) >= opts.MaxClients {
			break
		}
		rep.Clients = append(rep.Clients, clientReport(h, opts, today))
	}
	return rep, nil
}

func clientReport(h model.ClientHistory, opts ReportOptions, today time.Time) model.ClientReport {
	today = cadence.Today(today)

	history := make([]model.Registration, len(h.Records))
	copy(history, h.Records)
	sort.SliceStable(history, func(i, j int) bool {
		a, b := history[i], history[j]
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		return a.RegisteredAt.After(b.RegisteredAt)
	})

	rep := model.ClientReport{
		TaxID:          h.TaxID,
		DisplayTaxID:   h.DisplayTaxID,
		Name:           h.Name,
		TotalPurchases: h.TotalCount,
		LastPurchase:   h.LastPurchase(),
		Columns:        opts.columns(),
		History:        history,
	}

	if opts.ShowModes {
		for _, col := range opts.ModeColumns {
			values := make([]string, len(h.Records))
			for i, r := range h.Records {
				values[i] = r.Field(col)
			}
			rep.Modes = append(rep.Modes, model.AttributeModes{Column: col, Values: Modes(values)})
		}
	}

	if opts.ShowPrediction {
		pred := cadence.PredictNextPurchase(h.Dates)
		msg := cadence.ClassifySalesOpportunity(rep.LastPurchase, pred.NextDate, h.TotalCount, today)
		rep.Prediction = &pred
		rep.Message = &msg
	}
	return rep
}
