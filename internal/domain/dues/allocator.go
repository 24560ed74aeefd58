package dues

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Split is an amount paid divided against a due's mandatory amount
type Split struct {
	Wajib    decimal.Decimal
	Sukarela decimal.Decimal
}

// Total returns wajib + sukarela
func (s Split) Total() decimal.Decimal {
	return s.Wajib.Add(s.Sukarela)
}

// SplitPayment divides amountPaid into the wajib portion (capped at the due
// amount) and the voluntary remainder.
func SplitPayment(dueAmount, amountPaid decimal.Decimal) (Split, error) {
	if amountPaid.IsNegative() {
		return Split{}, ErrNegativeAmount
	}
	wajib := decimal.Min(amountPaid, dueAmount)
	if wajib.IsNegative() {
		wajib = decimal.Zero
	}
	return Split{
		Wajib:    wajib,
		Sukarela: decimal.Max(decimal.Zero, amountPaid.Sub(dueAmount)),
	}, nil
}

// LumpSumTarget is a selected due together with what transfer and cash
// payments already credited to it. Manual credits are excluded since a
// lump-sum allocation replaces them.
type LumpSumTarget struct {
	Due           *Due
	ExistingWajib decimal.Decimal
}

// LumpSumEntry is the outcome for one selected due
type LumpSumEntry struct {
	Due       *Due
	Allocated decimal.Decimal
	Sukarela  decimal.Decimal
	Status    DueStatus
}

// NeedsPayment reports whether a manual payment must be written for the entry
func (e LumpSumEntry) NeedsPayment() bool {
	return e.Allocated.IsPositive() || e.Sukarela.IsPositive()
}

// Split returns the manual payment amounts for the entry
func (e LumpSumEntry) Split() Split {
	return Split{Wajib: e.Allocated, Sukarela: e.Sukarela}
}

// LumpSumPlan is the full allocation of one payment across several dues
type LumpSumPlan struct {
	// Entries holds one entry per selected due, oldest period first
	Entries        []LumpSumEntry
	TotalAllocated decimal.Decimal
	// Leftover is the overpayment recorded as sukarela on the last due that
	// received an allocation
	Leftover       decimal.Decimal
}

// Total returns everything the plan records. It always equals the amount paid.
func (p *LumpSumPlan) Total() decimal.Decimal {
	return p.TotalAllocated.Add(p.Leftover)
}

// PlanLumpSum allocates amountPaid across the targets, oldest period first.
// Each due receives at most what it still lacks; any overpayment lands as
// sukarela on the last due that received an allocation. A zero amount yields
// statuses derived from existing credits only.
//
// If money is left over but no due could take any of it, the payment is
// rejected with ErrNoAllocationTarget rather than dropped.
func PlanLumpSum(targets []LumpSumTarget, amountPaid decimal.Decimal) (*LumpSumPlan, error) {
	if len(targets) == 0 {
		return nil, ErrNoDuesSelected
	}
	if amountPaid.IsNegative() {
		return nil, ErrNegativeAmount
	}

	ordered := make([]LumpSumTarget, len(targets))
	copy(ordered, targets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Due.Period.Before(ordered[j].Due.Period)
	})

	plan := &LumpSumPlan{
		Entries:        make([]LumpSumEntry, 0, len(ordered)),
		TotalAllocated: decimal.Zero,
		Leftover:       decimal.Zero,
	}
	remaining := amountPaid
	lastAllocated := -1

	for _, target := range ordered {
		entry := LumpSumEntry{
			Due:       target.Due,
			Allocated: decimal.Zero,
			Sukarela:  decimal.Zero,
		}
		dueRemaining := decimal.Max(decimal.Zero, target.Due.Amount.Sub(target.ExistingWajib))

		switch {
		case !dueRemaining.IsPositive():
			entry.Status = DueStatusPaid
		case !remaining.IsPositive():
			entry.Status = DueStatusUnpaid
		default:
			allocate := decimal.Min(remaining, dueRemaining)
			entry.Allocated = allocate
			remaining = remaining.Sub(allocate)
			plan.TotalAllocated = plan.TotalAllocated.Add(allocate)
			entry.Status = StatusFor(target.ExistingWajib.Add(allocate), target.Due.Amount)
			lastAllocated = len(plan.Entries)
		}

		plan.Entries = append(plan.Entries, entry)
	}

	if remaining.IsPositive() {
		if lastAllocated < 0 {
			return nil, ErrNoAllocationTarget
		}
		plan.Entries[lastAllocated].Sukarela = remaining
		plan.Leftover = remaining
	}

	return plan, nil
}
