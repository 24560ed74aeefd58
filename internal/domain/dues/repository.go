package dues

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
)

// HouseFilter narrows house listings
type HouseFilter struct {
	shared.Filter
	OwnerID    *uuid.UUID
	Subsidized *bool
	Occupancy  Occupancy
	HasOwner   *bool
}

// DueFilter narrows due listings
type DueFilter struct {
	HouseID  *uuid.UUID
	HouseIDs []uuid.UUID
	Year     int
	Period   *valueobject.Period
	// Until includes periods up to and including this one
	Until    *valueobject.Period
	Statuses []DueStatus
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	DueIDs   []uuid.UUID
	Statuses []PaymentStatus
	Methods  []PaymentMethod
	// PaymentDateFrom and PaymentDateTo bound payment_date, [from, to)
	PaymentDateFrom *time.Time
	PaymentDateTo   *time.Time
}

// HouseRepository persists houses
type HouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*House, error)
	FindByBlockNumber(ctx context.Context, block, number string) (*House, error)
	FindAll(ctx context.Context, filter HouseFilter) ([]House, error)
	// FindConnected returns every connected house that has an owner, the
	// input of an OwnerGroupIndex
	FindConnected(ctx context.Context) ([]House, error)
	Count(ctx context.Context, filter HouseFilter) (int64, error)
	Save(ctx context.Context, house *House) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResidentRepository persists residents
type ResidentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Resident, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Resident, error)
	FindByEmail(ctx context.Context, email string) (*Resident, error)
	FindByNamePhone(ctx context.Context, name, phone string) (*Resident, error)
	Save(ctx context.Context, resident *Resident) error
}

// DueRepository persists dues
type DueRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Due, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Due, error)
	// FindByIDsForUpdate locks the rows for the rest of the transaction
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Due, error)
	FindByHousePeriod(ctx context.Context, houseID uuid.UUID, period valueobject.Period) (*Due, error)
	FindAll(ctx context.Context, filter DueFilter) ([]Due, error)
	// FindOverdueCandidates returns unpaid dues whose due date is before today
	FindOverdueCandidates(ctx context.Context, today time.Time) ([]Due, error)
	ExistsForPeriod(ctx context.Context, houseID uuid.UUID, period valueobject.Period) (bool, error)
	Save(ctx context.Context, due *Due) error
	SaveBatch(ctx context.Context, dues []*Due) error
	// DeleteOutstandingByHouse removes unpaid and overdue dues of a house
	DeleteOutstandingByHouse(ctx context.Context, houseID uuid.UUID) (int64, error)
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByDue(ctx context.Context, dueID uuid.UUID) ([]Payment, error)
	FindByDues(ctx context.Context, dueIDs []uuid.UUID) (map[uuid.UUID][]Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	FindManualByDue(ctx context.Context, dueID uuid.UUID) (*Payment, error)
	// EarliestVerifiedPaymentDate returns nil when no verified payment exists
	EarliestVerifiedPaymentDate(ctx context.Context) (*time.Time, error)
	CountByStatus(ctx context.Context, status PaymentStatus) (int64, error)
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteManualByDues(ctx context.Context, dueIDs []uuid.UUID) (int64, error)
}
