package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDueRepository implements dues.DueRepository using GORM
type GormDueRepository struct {
	db *gorm.DB
}

// NewGormDueRepository creates a new GormDueRepository
func NewGormDueRepository(db *gorm.DB) *GormDueRepository {
	return &GormDueRepository{db: db}
}

// FindByID finds a due by its ID
func (r *GormDueRepository) FindByID(ctx context.Context, id uuid.UUID) (*dues.Due, error) {
	var model models.DueModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrDueNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds dues by IDs ordered by period
func (r *GormDueRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]dues.Due, error) {
	return r.findByIDs(r.db.WithContext(ctx), ids)
}

// FindByIDsForUpdate is FindByIDs holding row locks until the transaction ends
func (r *GormDueRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]dues.Due, error) {
	return r.findByIDs(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ids)
}

func (r *GormDueRepository) findByIDs(db *gorm.DB, ids []uuid.UUID) ([]dues.Due, error) {
	if len(ids) == 0 {
		return []dues.Due{}, nil
	}
	var dueModels []models.DueModel
	if err := db.Where("id IN ?", ids).Order("period ASC").Find(&dueModels).Error; err != nil {
		return nil, err
	}
	return toDues(dueModels), nil
}

// FindByHousePeriod finds the due of a house for a month
func (r *GormDueRepository) FindByHousePeriod(ctx context.Context, houseID uuid.UUID, period valueobject.Period) (*dues.Due, error) {
	var model models.DueModel
	if err := r.db.WithContext(ctx).
		Where("house_id = ? AND period = ?", houseID, period.Start()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrDueNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists dues matching the filter ordered by period
func (r *GormDueRepository) FindAll(ctx context.Context, filter dues.DueFilter) ([]dues.Due, error) {
	query := r.db.WithContext(ctx).Model(&models.DueModel{})
	if filter.HouseID != nil {
		query = query.Where("house_id = ?", *filter.HouseID)
	}
	if len(filter.HouseIDs) > 0 {
		query = query.Where("house_id IN ?", filter.HouseIDs)
	}
	if filter.Year > 0 {
		from := valueobject.Period{Year: filter.Year, Month: time.January}
		query = query.Where("period >= ? AND period < ?", from.Start(), from.AddMonths(12).Start())
	}
	if filter.Period != nil {
		query = query.Where("period = ?", filter.Period.Start())
	}
	if filter.Until != nil {
		query = query.Where("period <= ?", filter.Until.Start())
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var dueModels []models.DueModel
	if err := query.Order("period ASC").Find(&dueModels).Error; err != nil {
		return nil, err
	}
	return toDues(dueModels), nil
}

// FindOverdueCandidates returns unpaid dues whose due date is before today
func (r *GormDueRepository) FindOverdueCandidates(ctx context.Context, today time.Time) ([]dues.Due, error) {
	var dueModels []models.DueModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", dues.DueStatusUnpaid, shared.Today(today)).
		Order("due_date ASC").
		Find(&dueModels).Error; err != nil {
		return nil, err
	}
	return toDues(dueModels), nil
}

// ExistsForPeriod reports whether the house already has a due for the month
func (r *GormDueRepository) ExistsForPeriod(ctx context.Context, houseID uuid.UUID, period valueobject.Period) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DueModel{}).
		Where("house_id = ? AND period = ?", houseID, period.Start()).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a due
func (r *GormDueRepository) Save(ctx context.Context, due *dues.Due) error {
	model := &models.DueModel{}
	model.FromDomain(due)
	err := r.db.WithContext(ctx).Save(model).Error
	if isUniqueViolation(err) {
		return dues.ErrDuplicateDue
	}
	return err
}

// SaveBatch inserts new dues in one statement
func (r *GormDueRepository) SaveBatch(ctx context.Context, batch []*dues.Due) error {
	if len(batch) == 0 {
		return nil
	}
	dueModels := make([]*models.DueModel, len(batch))
	for i, d := range batch {
		dueModels[i] = &models.DueModel{}
		dueModels[i].FromDomain(d)
	}
	err := r.db.WithContext(ctx).CreateInBatches(dueModels, 100).Error
	if isUniqueViolation(err) {
		return dues.ErrDuplicateDue
	}
	return err
}

// DeleteOutstandingByHouse removes unpaid and overdue dues of a house with their payments
func (r *GormDueRepository) DeleteOutstandingByHouse(ctx context.Context, houseID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)
	outstanding := []dues.DueStatus{dues.DueStatusUnpaid, dues.DueStatusOverdue}
	dueIDs := db.Model(&models.DueModel{}).Select("id").
		Where("house_id = ? AND status IN ?", houseID, outstanding)
	if err := db.Where("due_id IN (?)", dueIDs).Delete(&models.PaymentModel{}).Error; err != nil {
		return 0, err
	}
	result := db.Where("house_id = ? AND status IN ?", houseID, outstanding).Delete(&models.DueModel{})
	return result.RowsAffected, result.Error
}

func toDues(ms []models.DueModel) []dues.Due {
	out := make([]dues.Due, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}
