package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentRepository implements dues.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*dues.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDue lists all payments of a due, oldest first
func (r *GormPaymentRepository) FindByDue(ctx context.Context, dueID uuid.UUID) ([]dues.Payment, error) {
	return r.FindAll(ctx, dues.PaymentFilter{DueIDs: []uuid.UUID{dueID}})
}

// FindByDues groups the payments of several dues by due ID
func (r *GormPaymentRepository) FindByDues(ctx context.Context, dueIDs []uuid.UUID) (map[uuid.UUID][]dues.Payment, error) {
	grouped := make(map[uuid.UUID][]dues.Payment, len(dueIDs))
	if len(dueIDs) == 0 {
		return grouped, nil
	}
	payments, err := r.FindAll(ctx, dues.PaymentFilter{DueIDs: dueIDs})
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		grouped[p.DueID] = append(grouped[p.DueID], p)
	}
	return grouped, nil
}

// FindAll lists payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter dues.PaymentFilter) ([]dues.Payment, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	if len(filter.DueIDs) > 0 {
		query = query.Where("due_id IN ?", filter.DueIDs)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.Methods) > 0 {
		query = query.Where("method IN ?", filter.Methods)
	}
	if filter.PaymentDateFrom != nil {
		query = query.Where("payment_date >= ?", *filter.PaymentDateFrom)
	}
	if filter.PaymentDateTo != nil {
		query = query.Where("payment_date < ?", *filter.PaymentDateTo)
	}

	var paymentModels []models.PaymentModel
	if err := query.Order("payment_date ASC, created_at ASC").Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]dues.Payment, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// FindManualByDue returns the manual ledger entry of a due
func (r *GormPaymentRepository) FindManualByDue(ctx context.Context, dueID uuid.UUID) (*dues.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("due_id = ? AND method = ?", dueID, dues.PaymentMethodManual).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// EarliestVerifiedPaymentDate returns nil when no verified payment exists
func (r *GormPaymentRepository) EarliestVerifiedPaymentDate(ctx context.Context) (*time.Time, error) {
	var model models.PaymentModel
	err := r.db.WithContext(ctx).
		Select("payment_date").
		Where("status = ?", dues.PaymentStatusVerified).
		Order("payment_date ASC").
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &model.PaymentDate, nil
}

// CountByStatus counts payments in a status
func (r *GormPaymentRepository) CountByStatus(ctx context.Context, status dues.PaymentStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *dues.Payment) error {
	model := &models.PaymentModel{}
	model.FromDomain(payment)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a payment
func (r *GormPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return dues.ErrPaymentNotFound
	}
	return nil
}

// DeleteManualByDues removes the manual entries of the given dues
func (r *GormPaymentRepository) DeleteManualByDues(ctx context.Context, dueIDs []uuid.UUID) (int64, error) {
	if len(dueIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("due_id IN ? AND method = ?", dueIDs, dues.PaymentMethodManual).
		Delete(&models.PaymentModel{})
	return result.RowsAffected, result.Error
}
