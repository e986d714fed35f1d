package model

import (
	"testing"
	"time"
)

func TestRegistrationField(t *testing.T) {
	r := Registration{
		ClientName:   "Transportes São João",
		TaxID:        "12.345.678/0001-90",
		Plate:        "ABC1D23",
		Brand:        "VOLVO",
		RegisteredAt: time.Date(2022, 3, 7, 0, 0, 0, 0, time.UTC),
		Extra:        map[string]string{"Cidade": "Guarulhos"},
	}
	undated := Registration{Plate: "XYZ9A87"}

	tests := []struct {
		name string
		r    Registration
		col  string
		want string
	}{
		{"date", r, ColDate, "07/03/2022"},
		{"year", r, ColYear, "2022"},
		{"month", r, ColMonth, "3"},
		{"client", r, ColClient, "Transportes São João"},
		{"extra", r, "Cidade", "Guarulhos"},
		{"unknown", r, "Cor", ""},
		{"undated date", undated, ColDate, ""},
		{"undated year", undated, ColYear, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Field(tt.col); got != tt.want {
				t.Errorf("Field(%q) = %q, want %q", tt.col, got, tt.want)
			}
		})
	}
}

func TestPeriod(t *testing.T) {
	if got := (SummaryStats{}).Period(); got != "N/A - N/A" {
		t.Errorf("empty Period = %q", got)
	}
	if got := (SummaryStats{FirstYear: 2019, LastYear: 2024}).Period(); got != "2019 - 2024" {
		t.Errorf("Period = %q", got)
	}
}

func TestLastPurchase(t *testing.T) {
	h := ClientHistory{Dates: []time.Time{
		time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 8, 15, 0, 0, 0, 0, time.UTC),
	}}
	if got := h.LastPurchase(); !got.Equal(time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("LastPurchase = %v", got)
	}
	if !(ClientHistory{}).LastPurchase().IsZero() {
		t.Error("no dates should give a zero LastPurchase")
	}
}

func TestResultMessage(t *testing.T) {
	if got := ResultMessage(0); got != NoResultsMessage {
		t.Errorf("ResultMessage(0) = %q", got)
	}
	if got := ResultMessage(3); got != "3 registro(s) encontrado(s)." {
		t.Errorf("ResultMessage(3) = %q", got)
	}
}
