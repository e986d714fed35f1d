// Package model defines domain types for vehicle registrations and client reports.
package model

import "time"

// Column headers as they appear in the registration workbook.
const (
	ColDate    = "Data emplacamento"
	ColTaxID   = "CNPJ CLIENTE"
	ColClient  = "NOME DO CLIENTE"
	ColPlate   = "PLACA"
	ColBrand   = "Marca"
	ColSegment = "Segmento"
	ColModel   = "Modelo"
	ColYear    = "Ano"
	ColMonth   = "Mes"
)

// NotAvailable is displayed for missing plates and empty attribute modes.
const NotAvailable = "N/A"

// DateLayout is the day-first layout used for every date shown to users.
const DateLayout = "02/01/2006"

// Registration is one spreadsheet row: a single vehicle registered to a client.
type Registration struct {
	Row             int               `json:"row"`
	Plate           string            `json:"plate"`
	ClientName      string            `json:"client_name"`
	TaxID           string            `json:"tax_id"`
	TaxIDNormalized string            `json:"tax_id_normalized"`
	RegisteredAt    time.Time         `json:"registered_at,omitzero"`
	Brand           string            `json:"brand,omitempty"`
	Segment         string            `json:"segment,omitempty"`
	Model           string            `json:"model,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// HasDate reports whether the registration date parsed.
func (r Registration) HasDate() bool {
	return !r.RegisteredAt.IsZero()
}

// Year returns the registration year, or 0 when the date is invalid.
func (r Registration) Year() int {
	if !r.HasDate() {
		return 0
	}
	return r.RegisteredAt.Year()
}

// Month returns the registration month (1-12), or 0 when the date is invalid.
func (r Registration) Month() int {
	if !r.HasDate() {
		return 0
	}
	return int(r.RegisteredAt.Month())
}

// Field returns the display value of a column by its workbook header.
// Unknown headers are looked up in Extra.
func (r Registration) Field(column string) string {
	switch column {
	case ColDate:
		if !r.HasDate() {
			return ""
		}
		return r.RegisteredAt.Format(DateLayout)
	case ColTaxID:
		return r.TaxID
	case ColClient:
		return r.ClientName
	case ColPlate:
		return r.Plate
	case ColBrand:
		return r.Brand
	case ColSegment:
		return r.Segment
	case ColModel:
		return r.Model
	case ColYear:
		if y := r.Year(); y > 0 {
			return itoa(y)
		}
		return ""
	case ColMonth:
		if m := r.Month(); m > 0 {
			return itoa(m)
		}
		return ""
	}
	return r.Extra[column]
}

// ClientHistory is every registration of one client, keyed by normalized tax ID.
// TotalCount includes rows whose date did not parse; Dates holds only valid ones.
type ClientHistory struct {
	TaxID        string
	DisplayTaxID string
	Name         string
	Dates        []time.Time
	TotalCount   int
	Records      []Registration
}

// LastPurchase returns the most recent valid date, or zero when there is none.
func (h ClientHistory) LastPurchase() time.Time {
	var last time.Time
	for _, d := range h.Dates {
		if d.After(last) {
			last = d
		}
	}
	return last
}
