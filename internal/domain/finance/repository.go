package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// ExpenseFilter narrows expense listings
type ExpenseFilter struct {
	Period   *valueobject.Period
	Year     int
	Category string
}

// ExpenseRepository persists expenses
type ExpenseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	FindAll(ctx context.Context, filter ExpenseFilter) ([]Expense, error)
	Save(ctx context.Context, expense *Expense) error
	SaveBatch(ctx context.Context, expenses []*Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MonthlyBalanceRepository persists balance anchors
type MonthlyBalanceRepository interface {
	FindByPeriod(ctx context.Context, p valueobject.Period) (*MonthlyBalance, error)
	// Upsert inserts or replaces the anchor of the balance's period
	Upsert(ctx context.Context, balance *MonthlyBalance) error
	DeleteByPeriod(ctx context.Context, p valueobject.Period) (bool, error)
}
