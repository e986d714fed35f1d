// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"strconv"
	"strings"
	"time"

	"github.com/denigris/emplacamentos/internal/model"
)

// FormatNumber adds Brazilian thousands separators to an integer.
// e.g., 1234567 -> "1.234.567"
func FormatNumber(n int) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte('.')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatDate formats a date as dd/mm/yyyy, or N/A when zero.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return model.NotAvailable
	}
	return t.Format(model.DateLayout)
}

// FormatDecimal formats f with one decimal place and a decimal comma.
func FormatDecimal(f float64) string {
	return strings.Replace(strconv.FormatFloat(f, 'f', 1, 64), ".", ",", 1)
}

// FormatMonths formats an interval such as "6,0 meses".
func FormatMonths(f float64) string {
	if f == 1 {
		return "1,0 mês"
	}
	return FormatDecimal(f) + " meses"
}

// FormatTaxID masks a bare CNPJ (14 digits) or CPF (11 digits). Anything else
// is returned unchanged.
func FormatTaxID(s string) string {
	if !allDigits(s) {
		return s
	}
	switch len(s) {
	case 14:
		return s[0:2] + "." + s[2:5] + "." + s[5:8] + "/" + s[8:12] + "-" + s[12:14]
	case 11:
		return s[0:3] + "." + s[3:6] + "." + s[6:9] + "-" + s[9:11]
	}
	return s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
