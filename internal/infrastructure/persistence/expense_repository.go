package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormExpenseRepository implements finance.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByID finds an expense by its ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Expense, error) {
	var model models.ExpenseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, finance.ErrExpenseNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists expenses by date
func (r *GormExpenseRepository) FindAll(ctx context.Context, filter finance.ExpenseFilter) ([]finance.Expense, error) {
	query := r.db.WithContext(ctx).Model(&models.ExpenseModel{})
	if filter.Period != nil {
		query = query.Where("date >= ? AND date < ?", filter.Period.Start(), filter.Period.End())
	}
	if filter.Year > 0 {
		jan := valueobject.Period{Year: filter.Year, Month: time.January}
		query = query.Where("date >= ? AND date < ?", jan.Start(), jan.AddMonths(12).Start())
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var expenseModels []models.ExpenseModel
	if err := query.Order("date ASC, created_at ASC").Find(&expenseModels).Error; err != nil {
		return nil, err
	}
	expenses := make([]finance.Expense, len(expenseModels))
	for i := range expenseModels {
		expenses[i] = *expenseModels[i].ToDomain()
	}
	return expenses, nil
}

// Save creates or updates an expense
func (r *GormExpenseRepository) Save(ctx context.Context, expense *finance.Expense) error {
	model := &models.ExpenseModel{}
	model.FromDomain(expense)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveBatch inserts several new expenses
func (r *GormExpenseRepository) SaveBatch(ctx context.Context, expenses []*finance.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	expenseModels := make([]*models.ExpenseModel, len(expenses))
	for i, e := range expenses {
		expenseModels[i] = &models.ExpenseModel{}
		expenseModels[i].FromDomain(e)
	}
	return r.db.WithContext(ctx).Create(expenseModels).Error
}

// Delete removes an expense
func (r *GormExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ExpenseModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return finance.ErrExpenseNotFound
	}
	return nil
}
