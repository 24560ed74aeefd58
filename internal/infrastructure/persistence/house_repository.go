package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormHouseRepository implements dues.HouseRepository using GORM
type GormHouseRepository struct {
	db *gorm.DB
}

// NewGormHouseRepository creates a new GormHouseRepository
func NewGormHouseRepository(db *gorm.DB) *GormHouseRepository {
	return &GormHouseRepository{db: db}
}

// FindByID finds a house by its ID
func (r *GormHouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*dues.House, error) {
	var model models.HouseModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrHouseNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByBlockNumber finds a house by its address
func (r *GormHouseRepository) FindByBlockNumber(ctx context.Context, block, number string) (*dues.House, error) {
	var model models.HouseModel
	if err := r.db.WithContext(ctx).
		Where("block = ? AND number = ?", strings.TrimSpace(block), strings.TrimSpace(number)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrHouseNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists houses, by block then number unless the filter sorts otherwise
func (r *GormHouseRepository) FindAll(ctx context.Context, filter dues.HouseFilter) ([]dues.House, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.HouseModel{}), filter).
		Order(houseOrder(filter.OrderBy, filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var houseModels []models.HouseModel
	if err := query.Find(&houseModels).Error; err != nil {
		return nil, err
	}
	return toHouses(houseModels), nil
}

// FindConnected returns connected houses that have an owner
func (r *GormHouseRepository) FindConnected(ctx context.Context) ([]dues.House, error) {
	var houseModels []models.HouseModel
	if err := r.db.WithContext(ctx).
		Where("is_connected = ? AND owner_id IS NOT NULL", true).
		Order("block ASC, number ASC").
		Find(&houseModels).Error; err != nil {
		return nil, err
	}
	return toHouses(houseModels), nil
}

// Count counts houses matching the filter
func (r *GormHouseRepository) Count(ctx context.Context, filter dues.HouseFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.HouseModel{}), filter).Count(&count).Error
	return count, err
}

// Save creates or updates a house
func (r *GormHouseRepository) Save(ctx context.Context, house *dues.House) error {
	model := &models.HouseModel{}
	model.FromDomain(house)
	err := r.db.WithContext(ctx).Save(model).Error
	if isUniqueViolation(err) {
		return shared.NewDomainError("ALREADY_EXISTS", "A house with this block and number already exists")
	}
	return err
}

// Delete removes a house together with its dues and their payments
func (r *GormHouseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	dueIDs := db.Model(&models.DueModel{}).Select("id").Where("house_id = ?", id)
	if err := db.Where("due_id IN (?)", dueIDs).Delete(&models.PaymentModel{}).Error; err != nil {
		return err
	}
	if err := db.Where("house_id = ?", id).Delete(&models.DueModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.HouseModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return dues.ErrHouseNotFound
	}
	return nil
}

func (r *GormHouseRepository) applyFilter(query *gorm.DB, filter dues.HouseFilter) *gorm.DB {
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(block) LIKE ? OR LOWER(number) LIKE ?", like, like)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Subsidized != nil {
		query = query.Where("is_subsidized = ?", *filter.Subsidized)
	}
	if filter.Occupancy != "" {
		query = query.Where("occupancy = ?", filter.Occupancy)
	}
	if filter.HasOwner != nil {
		if *filter.HasOwner {
			query = query.Where("owner_id IS NOT NULL")
		} else {
			query = query.Where("owner_id IS NULL")
		}
	}
	return query
}

func toHouses(ms []models.HouseModel) []dues.House {
	houses := make([]dues.House, len(ms))
	for i := range ms {
		houses[i] = *ms[i].ToDomain()
	}
	return houses
}

// GormResidentRepository implements dues.ResidentRepository using GORM
type GormResidentRepository struct {
	db *gorm.DB
}

// NewGormResidentRepository creates a new GormResidentRepository
func NewGormResidentRepository(db *gorm.DB) *GormResidentRepository {
	return &GormResidentRepository{db: db}
}

// FindByID finds a resident by its ID
func (r *GormResidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*dues.Resident, error) {
	var model models.ResidentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrResidentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds residents by IDs; missing IDs are skipped
func (r *GormResidentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]dues.Resident, error) {
	if len(ids) == 0 {
		return []dues.Resident{}, nil
	}
	var residentModels []models.ResidentModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&residentModels).Error; err != nil {
		return nil, err
	}
	residents := make([]dues.Resident, len(residentModels))
	for i := range residentModels {
		residents[i] = *residentModels[i].ToDomain()
	}
	return residents, nil
}

// FindByEmail finds a resident by email, case-insensitively
func (r *GormResidentRepository) FindByEmail(ctx context.Context, email string) (*dues.Resident, error) {
	var model models.ResidentModel
	if err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrResidentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNamePhone finds a resident without email by name and phone
func (r *GormResidentRepository) FindByNamePhone(ctx context.Context, name, phone string) (*dues.Resident, error) {
	var model models.ResidentModel
	if err := r.db.WithContext(ctx).
		Where("name = ? AND phone = ?", strings.TrimSpace(name), dues.NormalizePhone(phone)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dues.ErrResidentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a resident
func (r *GormResidentRepository) Save(ctx context.Context, resident *dues.Resident) error {
	model := &models.ResidentModel{}
	model.FromDomain(resident)
	return r.db.WithContext(ctx).Save(model).Error
}
