package persistence

import (
	"context"

	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
	"gorm.io/gorm"
)

// GormTransactionScope implements appdues.TransactionScope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn in a transaction, committing when it returns nil
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appdues.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Houses() dues.HouseRepository {
	return NewGormHouseRepository(r.tx)
}

func (r *gormTransactionalRepositories) Residents() dues.ResidentRepository {
	return NewGormResidentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Dues() dues.DueRepository {
	return NewGormDueRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() dues.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

var (
	_ appdues.TransactionScope          = (*GormTransactionScope)(nil)
	_ appdues.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ dues.HouseRepository              = (*GormHouseRepository)(nil)
	_ dues.ResidentRepository           = (*GormResidentRepository)(nil)
	_ dues.DueRepository                = (*GormDueRepository)(nil)
	_ dues.PaymentRepository            = (*GormPaymentRepository)(nil)
)
