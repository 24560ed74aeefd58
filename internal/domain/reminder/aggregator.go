// Package reminder computes what a household still owes and renders it as a
// WhatsApp message.
package reminder

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultCutoffDay is the day of month from which the current month counts as due
const DefaultCutoffDay = 5

// DueBalance is a due with the verified wajib credited to it
type DueBalance struct {
	Due           dues.Due
	VerifiedWajib decimal.Decimal
}

// Line is one outstanding month
type Line struct {
	Period    valueobject.Period
	Remaining decimal.Decimal
	// Partial is set when part of the month was already paid
	Partial bool
}

// Summary is the outstanding balance of one house for one year
type Summary struct {
	HouseID    uuid.UUID
	Year       int
	Lines      []Line
	Total      decimal.Decimal
	MonthCount int
}

// CutoffMonth returns the last month of year that counts as due on today,
// 0 when none does. In the current year the current month counts from
// cutoffDay on; earlier years count fully; later years not at all.
func CutoffMonth(year int, today time.Time, cutoffDay int) int {
	if cutoffDay <= 0 {
		cutoffDay = DefaultCutoffDay
	}
	switch {
	case today.Year() > year:
		return 12
	case today.Year() < year:
		return 0
	case today.Day() >= cutoffDay:
		return int(today.Month())
	default:
		return int(today.Month()) - 1
	}
}

// BuildOutstandingSummary lists the unpaid and overdue dues of year that are
// due as of today with what remains on each. Returns nil when nothing is owed.
func BuildOutstandingSummary(houseID uuid.UUID, balances []DueBalance, year int, today time.Time, cutoffDay int) *Summary {
	cutoff := CutoffMonth(year, today, cutoffDay)
	if cutoff < 1 {
		return nil
	}

	ordered := make([]DueBalance, len(balances))
	copy(ordered, balances)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Due.Period.Before(ordered[j].Due.Period)
	})

	summary := &Summary{
		HouseID: houseID,
		Year:    year,
		Lines:   make([]Line, 0),
		Total:   decimal.Zero,
	}
	for _, b := range ordered {
		p := b.Due.Period
		if p.Year != year || int(p.Month) > cutoff || !b.Due.IsOutstanding() {
			continue
		}
		remaining := decimal.Max(decimal.Zero, b.Due.Amount.Sub(b.VerifiedWajib))
		if !remaining.IsPositive() {
			continue
		}
		summary.Lines = append(summary.Lines, Line{
			Period:    p,
			Remaining: remaining,
			Partial:   b.VerifiedWajib.IsPositive(),
		})
		summary.Total = summary.Total.Add(remaining)
	}

	if len(summary.Lines) == 0 {
		return nil
	}
	summary.MonthCount = len(summary.Lines)
	return summary
}
