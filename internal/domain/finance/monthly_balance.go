package finance

import (
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// MonthlyBalance anchors the opening cash balance of a period, overriding the
// balance chained from earlier months. Most periods have none.
type MonthlyBalance struct {
	shared.BaseEntity
	Period         valueobject.Period
	InitialBalance decimal.Decimal
	Notes          string
}

// NewMonthlyBalance creates an anchor for a period
func NewMonthlyBalance(period valueobject.Period, initial decimal.Decimal, notes string) (*MonthlyBalance, error) {
	if period.IsZero() {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period cannot be empty")
	}
	return &MonthlyBalance{
		BaseEntity:     shared.NewBaseEntity(),
		Period:         period,
		InitialBalance: initial,
		Notes:          notes,
	}, nil
}

// SetInitialBalance overwrites the anchored amount
func (m *MonthlyBalance) SetInitialBalance(amount decimal.Decimal, notes string) {
	m.InitialBalance = amount
	m.Notes = notes
	m.Touch()
}
