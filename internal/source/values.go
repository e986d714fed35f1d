package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/denigris/emplacamentos/internal/cadence"
	"github.com/denigris/emplacamentos/internal/model"

	"github.com/xuri/excelize/v2"
)

// Day-first layouts accepted for text dates, tried in order.
var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"02/01/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
	"02.01.2006",
}

// Excel serials outside this range are not dates (9999-12-31 is 2958465).
const (
	minSerial = 1
	maxSerial = 2958466
)

// ParseDate reads a registration date from a raw cell value: either an Excel
// serial number or a day-first text date. The time of day is dropped. It
// returns false when the value is blank or unparseable.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if !(serial >= minSerial && serial < maxSerial) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return cadence.Date(t), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return cadence.Date(t), true
		}
	}
	return time.Time{}, false
}

// NormalizeTaxID strips the punctuation of a formatted CNPJ/CPF, leaving the
// digits used to group and match clients.
func NormalizeTaxID(s string) string {
	return taxIDReplacer.Replace(strings.TrimSpace(s))
}

var taxIDReplacer = strings.NewReplacer(".", "", "/", "", "\\", "", "-", "")

// NormalizePlate trims and upper-cases a plate, using N/A for blanks.
func NormalizePlate(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return model.NotAvailable
	}
	return s
}

// NormalizeQuery prepares a search term for tax ID and plate matching.
func NormalizeQuery(q string) string {
	return strings.ToUpper(NormalizeTaxID(q))
}
