package valueobject

import (
	"fmt"
	"time"
)

// PeriodLayout is the text form of a period, e.g. "2025-01"
const PeriodLayout = "2006-01"

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// Period is a calendar month. Dues, anchors and report rows are keyed by it.
// The zero value is not a valid period.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod creates a validated Period
func NewPeriod(year int, month time.Month) (Period, error) {
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 1900 || year > 9999 {
		return Period{}, fmt.Errorf("invalid year %d", year)
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the period containing t
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses "YYYY-MM"
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q, expected YYYY-MM", s)
	}
	return PeriodOf(t), nil
}

// Start returns the first day of the period at midnight UTC
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first day of the following period (exclusive bound)
func (p Period) End() time.Time {
	return p.Next().Start()
}

// Day returns the given day of the period, clamped to the month length
func (p Period) Day(day int) time.Time {
	if day < 1 {
		day = 1
	}
	if n := p.DaysIn(); day > n {
		day = n
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the period
func (p Period) DaysIn() int {
	return p.End().AddDate(0, 0, -1).Day()
}

// AddMonths returns the period n months away
func (p Period) AddMonths(n int) Period {
	return PeriodOf(p.Start().AddDate(0, n, 0))
}

// Next returns the following period
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Prev returns the preceding period
func (p Period) Prev() Period {
	return p.AddMonths(-1)
}

// Index returns a monotonically increasing month number usable for comparisons
func (p Period) Index() int {
	return p.Year*12 + int(p.Month) - 1
}

// Before reports whether p is strictly earlier than o
func (p Period) Before(o Period) bool {
	return p.Index() < o.Index()
}

// After reports whether p is strictly later than o
func (p Period) After(o Period) bool {
	return p.Index() > o.Index()
}

// Contains reports whether t falls inside the period
func (p Period) Contains(t time.Time) bool {
	return PeriodOf(t) == p
}

// IsZero reports whether p is the zero value
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// String returns "YYYY-MM"
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MonthName returns the Indonesian month name
func (p Period) MonthName() string {
	return MonthName(p.Month)
}

// Label returns "Januari 2025"
func (p Period) Label() string {
	return fmt.Sprintf("%s %d", p.MonthName(), p.Year)
}

// MonthName returns the Indonesian name of m
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return indonesianMonths[m-1]
}

// MinPeriod returns the earlier of a and b
func MinPeriod(a, b Period) Period {
	if a.Before(b) {
		return a
	}
	return b
}
