package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// ExpenseService records cash spending
type ExpenseService struct {
	repo   finance.ExpenseRepository
	proofs appdues.ProofStorage
	clock  shared.Clock
	logger *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(repo finance.ExpenseRepository, proofs appdues.ProofStorage, clock shared.Clock, logger *zap.Logger) *ExpenseService {
	return &ExpenseService{repo: repo, proofs: proofs, clock: clock, logger: logger}
}

// Create records an expense
func (s *ExpenseService) Create(ctx context.Context, req ExpenseRequest) (*ExpenseResponse, error) {
	e, err := finance.NewExpense(req.Title, req.Amount, req.Date, req.Category, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.attachProof(ctx, e, req); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, e); err != nil {
		s.dropProof(ctx, e.ProofKey)
		return nil, err
	}

	s.logger.Info("Expense recorded",
		zap.String("expense_id", e.ID.String()),
		zap.String("amount", e.Amount.String()),
		zap.String("period", e.Period().String()),
	)
	resp := toExpenseResponse(e)
	return &resp, nil
}

// Update replaces an expense's fields. A new proof replaces the old one.
func (s *ExpenseService) Update(ctx context.Context, id uuid.UUID, req ExpenseRequest) (*ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := e.Update(req.Title, req.Amount, req.Date, req.Category, req.Notes); err != nil {
		return nil, err
	}
	oldProof := e.ProofKey
	if err := s.attachProof(ctx, e, req); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, e); err != nil {
		if e.ProofKey != oldProof {
			s.dropProof(ctx, e.ProofKey)
		}
		return nil, err
	}
	if e.ProofKey != oldProof {
		s.dropProof(ctx, oldProof)
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

// Get returns one expense
func (s *ExpenseService) Get(ctx context.Context, id uuid.UUID) (*ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toExpenseResponse(e)
	return &resp, nil
}

// List returns expenses ordered by date, with their sum
func (s *ExpenseService) List(ctx context.Context, filter ExpenseListFilter) (*ExpenseList, error) {
	list, err := s.repo.FindAll(ctx, finance.ExpenseFilter{Period: filter.Period, Year: filter.Year, Category: filter.Category})
	if err != nil {
		return nil, err
	}
	out := &ExpenseList{Items: make([]ExpenseResponse, len(list)), Total: finance.TotalExpenses(list)}
	for i := range list {
		out.Items[i] = toExpenseResponse(&list[i])
	}
	return out, nil
}

// Delete removes an expense and its proof
func (s *ExpenseService) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.dropProof(ctx, e.ProofKey)
	return nil
}

// Clone copies every expense of source into target, keeping the day of month
// clamped to the target's length
func (s *ExpenseService) Clone(ctx context.Context, source, target valueobject.Period) (*CloneResult, error) {
	if source == target {
		return nil, finance.ErrSameMonthClone
	}
	list, err := s.repo.FindAll(ctx, finance.ExpenseFilter{Period: &source})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, finance.ErrNothingToClone
	}

	clones := make([]*finance.Expense, len(list))
	for i := range list {
		clones[i] = list[i].CloneInto(target)
	}
	if err := s.repo.SaveBatch(ctx, clones); err != nil {
		return nil, err
	}

	result := &CloneResult{Source: source.String(), Target: target.String(), Created: make([]ExpenseResponse, len(clones))}
	for i, c := range clones {
		result.Created[i] = toExpenseResponse(c)
	}
	s.logger.Info("Expenses cloned",
		zap.String("source", result.Source),
		zap.String("target", result.Target),
		zap.Int("count", len(clones)),
	)
	return result, nil
}

// ProofURL returns a time-limited link to an expense's proof
func (s *ExpenseService) ProofURL(ctx context.Context, id uuid.UUID) (string, time.Time, error) {
	e, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if e.ProofKey == "" {
		return "", time.Time{}, shared.NewNotFoundError("Expense proof")
	}
	return s.proofs.DownloadURL(ctx, e.ProofKey)
}

func (s *ExpenseService) attachProof(ctx context.Context, e *finance.Expense, req ExpenseRequest) error {
	if req.Proof == nil {
		return nil
	}
	key := storage.ObjectKey("expenses", s.clock.Now(), req.FileName)
	if err := s.proofs.Put(ctx, key, req.Proof, req.ProofSize, req.ContentType); err != nil {
		return fmt.Errorf("failed to store expense proof: %w", err)
	}
	e.ProofKey = key
	return nil
}

func (s *ExpenseService) dropProof(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.proofs.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to delete expense proof", zap.String("key", key), zap.Error(err))
	}
}
