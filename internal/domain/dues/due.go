package dues

import (
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultDueDay is the day of the period month a due falls due
const DefaultDueDay = 10

// DueStatus represents the payment state of a due
type DueStatus string

const (
	DueStatusUnpaid  DueStatus = "unpaid"
	DueStatusPaid    DueStatus = "paid"
	DueStatusOverdue DueStatus = "overdue"
)

// IsValid checks if the status is valid
func (s DueStatus) IsValid() bool {
	switch s {
	case DueStatusUnpaid, DueStatusPaid, DueStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of DueStatus
func (s DueStatus) String() string {
	return string(s)
}

// IsOutstanding reports whether money is still owed
func (s DueStatus) IsOutstanding() bool {
	return s == DueStatusUnpaid || s == DueStatusOverdue
}

// Due is one house's billing obligation for one calendar month.
// Status is derived from verified payments; only the overdue sweep sets it
// independently.
type Due struct {
	shared.BaseAggregateRoot
	HouseID uuid.UUID
	Period  valueobject.Period
	Amount  decimal.Decimal
	Status  DueStatus
	DueDate time.Time
}

// NewDue creates an unpaid due for a period. dueDay is clamped to the month length.
func NewDue(houseID uuid.UUID, period valueobject.Period, amount decimal.Decimal, dueDay int) (*Due, error) {
	if houseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_HOUSE", "House ID cannot be empty")
	}
	if period.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Due amount cannot be negative")
	}
	if dueDay <= 0 {
		dueDay = DefaultDueDay
	}

	return &Due{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		HouseID:           houseID,
		Period:            period,
		Amount:            amount,
		Status:            DueStatusUnpaid,
		DueDate:           period.Day(dueDay),
	}, nil
}

// UpdateAmount changes the mandatory amount. Callers must reconcile the
// status afterwards since the paid threshold moved.
func (d *Due) UpdateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Due amount cannot be negative")
	}
	d.Amount = amount
	d.IncrementVersion()
	return nil
}

// ApplyStatus stores a status computed by ReconcileStatus
func (d *Due) ApplyStatus(status DueStatus) {
	if d.Status == status {
		return
	}
	d.Status = status
	d.IncrementVersion()
}

// MarkOverdue moves an unpaid due past its due date to overdue.
// Paid and already-overdue dues are left untouched.
func (d *Due) MarkOverdue(today time.Time) bool {
	if d.Status != DueStatusUnpaid {
		return false
	}
	if !d.DueDate.Before(shared.Today(today)) {
		return false
	}
	d.Status = DueStatusOverdue
	d.IncrementVersion()
	return true
}

// IsOutstanding reports whether money is still owed on the due
func (d *Due) IsOutstanding() bool {
	return d.Status.IsOutstanding()
}
