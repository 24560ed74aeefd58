package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// VerifiedWajib sums amountWajib over verified payments
func VerifiedWajib(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if payments[i].IsVerified() {
			total = total.Add(payments[i].AmountWajib)
		}
	}
	return total
}

// VerifiedWajibExcludingManual sums amountWajib over verified, non-manual payments.
// These are the transfer and cash credits a lump-sum reallocation keeps.
func VerifiedWajibExcludingManual(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if payments[i].IsVerified() && !payments[i].IsManual() {
			total = total.Add(payments[i].AmountWajib)
		}
	}
	return total
}

// StatusFor derives a due status from the verified wajib total
func StatusFor(verifiedWajib, dueAmount decimal.Decimal) DueStatus {
	if verifiedWajib.GreaterThanOrEqual(dueAmount) {
		return DueStatusPaid
	}
	return DueStatusUnpaid
}

// ReconcileStatus recomputes a due's status from its payments. It is pure and
// must be re-invoked by callers after any payment mutation on the due.
func ReconcileStatus(due *Due, payments []Payment) DueStatus {
	return StatusFor(VerifiedWajib(payments), due.Amount)
}

// SweepOverdue marks every unpaid due whose due date is before today as
// overdue and returns the ones it changed. Paid dues are never touched.
func SweepOverdue(dues []*Due, today time.Time) []*Due {
	changed := make([]*Due, 0)
	for _, d := range dues {
		if d.MarkOverdue(today) {
			changed = append(changed, d)
		}
	}
	return changed
}

// SettleStatus is ReconcileStatus for a stored due: a due already marked
// overdue stays overdue until it is paid in full.
func SettleStatus(due *Due, payments []Payment) DueStatus {
	status := ReconcileStatus(due, payments)
	if status == DueStatusUnpaid && due.Status == DueStatusOverdue {
		return DueStatusOverdue
	}
	return status
}
