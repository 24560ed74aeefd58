package persistence

import (
	"context"
	"errors"

	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMonthlyBalanceRepository implements finance.MonthlyBalanceRepository using GORM
type GormMonthlyBalanceRepository struct {
	db *gorm.DB
}

// NewGormMonthlyBalanceRepository creates a new GormMonthlyBalanceRepository
func NewGormMonthlyBalanceRepository(db *gorm.DB) *GormMonthlyBalanceRepository {
	return &GormMonthlyBalanceRepository{db: db}
}

// FindByPeriod returns the anchor of a period
func (r *GormMonthlyBalanceRepository) FindByPeriod(ctx context.Context, p valueobject.Period) (*finance.MonthlyBalance, error) {
	var model models.MonthlyBalanceModel
	if err := r.db.WithContext(ctx).Where("period = ?", p.Start()).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, finance.ErrAnchorNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert inserts the anchor or overwrites the one already set for its period
func (r *GormMonthlyBalanceRepository) Upsert(ctx context.Context, balance *finance.MonthlyBalance) error {
	model := &models.MonthlyBalanceModel{}
	model.FromDomain(balance)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"initial_balance", "notes", "updated_at"}),
		}).
		Create(model).Error
}

// DeleteByPeriod removes the anchor of a period, reporting whether one existed
func (r *GormMonthlyBalanceRepository) DeleteByPeriod(ctx context.Context, p valueobject.Period) (bool, error) {
	result := r.db.WithContext(ctx).Where("period = ?", p.Start()).Delete(&models.MonthlyBalanceModel{})
	return result.RowsAffected > 0, result.Error
}
