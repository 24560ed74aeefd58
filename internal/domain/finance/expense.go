package finance

import (
	"strings"
	"time"

	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Expense is money spent from the neighborhood cash
type Expense struct {
	shared.BaseEntity
	Title    string
	Amount   decimal.Decimal
	Category string
	Date     time.Time
	Notes    string
	ProofKey string
}

// NewExpense creates a new expense
func NewExpense(title string, amount decimal.Decimal, date time.Time, category, notes string) (*Expense, error) {
	e := &Expense{BaseEntity: shared.NewBaseEntity()}
	if err := e.Update(title, amount, date, category, notes); err != nil {
		return nil, err
	}
	return e, nil
}

// Update replaces the editable fields
func (e *Expense) Update(title string, amount decimal.Decimal, date time.Time, category, notes string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Expense title cannot be empty")
	}
	if len(title) > 255 {
		return shared.NewDomainError("INVALID_TITLE", "Expense title cannot exceed 255 characters")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Expense amount cannot be negative")
	}
	if date.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Expense date is required")
	}

	e.Title = title
	e.Amount = amount
	e.Date = shared.Today(date)
	e.Category = strings.TrimSpace(category)
	e.Notes = strings.TrimSpace(notes)
	e.Touch()
	return nil
}

// Period returns the month the expense belongs to
func (e *Expense) Period() valueobject.Period {
	return valueobject.PeriodOf(e.Date)
}

// CloneInto copies the expense into another month, keeping the day of month
// clamped to the target month's length. The proof is not copied.
func (e *Expense) CloneInto(target valueobject.Period) *Expense {
	return &Expense{
		BaseEntity: shared.NewBaseEntity(),
		Title:      e.Title,
		Amount:     e.Amount,
		Category:   e.Category,
		Date:       target.Day(e.Date.Day()),
		Notes:      e.Notes,
	}
}

// TotalExpenses sums expense amounts
func TotalExpenses(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
	}
	return total
}
