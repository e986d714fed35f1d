package model

import (
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
)

// AttributeModes lists the most frequent values of one column for a client.
type AttributeModes struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// ClientReport is everything shown for one client: identity, history and outlook.
type ClientReport struct {
	TaxID          string    `json:"tax_id"`
	DisplayTaxID   string    `json:"display_tax_id"`
	Name           string    `json:"name"`
	TotalPurchases int       `json:"total_purchases"`
	LastPurchase   time.Time `json:"last_purchase,omitzero"`

	// History is sorted newest first; undated rows go last.
	Columns []string         `json:"columns"`
	History []Registration   `json:"history"`
	Modes   []AttributeModes `json:"modes,omitempty"`

	// Prediction and Message are nil when the report hides them.
	Prediction *cadence.Prediction   `json:"prediction,omitempty"`
	Message    *cadence.SalesMessage `json:"message,omitempty"`
}

// SearchReport is the result of a dashboard search.
type SearchReport struct {
	Query   string         `json:"query"`
	Columns []string       `json:"columns"`
	Matches []Registration `json:"matches"`
	Clients []ClientReport `json:"clients"`

	// MatchedClients counts every distinct client in Matches; Clients may be
	// capped below it.
	MatchedClients int `json:"matched_clients"`
}

// HiddenClients returns how many matched clients were left out of Clients.
func (r SearchReport) HiddenClients() int {
	return r.MatchedClients - len(r.Clients)
}
