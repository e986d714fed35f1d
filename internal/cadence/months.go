// Package cadence estimates a client's purchase rhythm and turns it into a
// sales-opportunity message.
package cadence

import (
	"strconv"
	"time"
)

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the Portuguese name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return "?"
	}
	return monthNames[m-1]
}

// MonthYear formats a date as "Janeiro de 2024".
func MonthYear(t time.Time) string {
	return MonthName(t.Month()) + " de " + strconv.Itoa(t.Year())
}

// Today normalizes the wall clock to a calendar date. Callers capture it once
// per report so prediction and classification agree on the same day.
func Today(now time.Time) time.Time {
	return Date(now)
}

// Date strips the time of day from t, keeping its calendar date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months to t. The day of month is kept when it
// exists in the target month and clamped to the month's last day otherwise,
// so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)

	day := t.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthsBetween returns the signed number of whole months from `from` to `to`.
// A month only counts once the day of month has been reached, using the same
// clamping as AddMonths: from Jan 31 to Feb 28 is one month, from Jan 15 to
// Feb 14 is zero.
func MonthsBetween(from, to time.Time) int {
	from, to = Date(from), Date(to)
	delta := (to.Year()*12 + int(to.Month())) - (from.Year()*12 + int(from.Month()))

	if !to.Before(from) {
		for delta > 0 && to.Before(AddMonths(from, delta)) {
			delta--
		}
		return delta
	}
	for delta < 0 && to.After(AddMonths(from, delta)) {
		delta++
	}
	return delta
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
