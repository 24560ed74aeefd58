package dues

import (
	"context"

	"github.com/rt44/backend/internal/domain/dues"
)

// TransactionScope runs a unit of work atomically. If fn returns an error
// every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories that share one transaction
type TransactionalRepositories interface {
	Houses() dues.HouseRepository
	Residents() dues.ResidentRepository
	Dues() dues.DueRepository
	Payments() dues.PaymentRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Used by tests and tools that do not need atomicity.
type NoOpTransactionScope struct {
	houses    dues.HouseRepository
	residents dues.ResidentRepository
	dueRepo   dues.DueRepository
	payments  dues.PaymentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	houses dues.HouseRepository,
	residents dues.ResidentRepository,
	dueRepo dues.DueRepository,
	payments dues.PaymentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{houses: houses, residents: residents, dueRepo: dueRepo, payments: payments}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Houses returns the house repository
func (s *NoOpTransactionScope) Houses() dues.HouseRepository { return s.houses }

// Residents returns the resident repository
func (s *NoOpTransactionScope) Residents() dues.ResidentRepository { return s.residents }

// Dues returns the due repository
func (s *NoOpTransactionScope) Dues() dues.DueRepository { return s.dueRepo }

// Payments returns the payment repository
func (s *NoOpTransactionScope) Payments() dues.PaymentRepository { return s.payments }
