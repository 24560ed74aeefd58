package dues

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// submissionTTL is how long a transfer idempotency key is remembered
const submissionTTL = 24 * time.Hour

// ErrDuplicateSubmission is returned when a transfer with the same
// idempotency key was already accepted
var ErrDuplicateSubmission = shared.NewDomainError("DUPLICATE_REQUEST", "This payment was already submitted")

// PaymentService records, allocates and reviews payments
type PaymentService struct {
	houses      dues.HouseRepository
	residents   dues.ResidentRepository
	dueRepo     dues.DueRepository
	payments    dues.PaymentRepository
	txScope     TransactionScope
	proofs      ProofStorage
	idempotency shared.IdempotencyStore
	clock       shared.Clock
	metrics     *telemetry.FinanceMetrics
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService. metrics may be nil.
func NewPaymentService(
	houses dues.HouseRepository,
	residents dues.ResidentRepository,
	dueRepo dues.DueRepository,
	payments dues.PaymentRepository,
	txScope TransactionScope,
	proofs ProofStorage,
	idempotency shared.IdempotencyStore,
	clock shared.Clock,
	metrics *telemetry.FinanceMetrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		houses:      houses,
		residents:   residents,
		dueRepo:     dueRepo,
		payments:    payments,
		txScope:     txScope,
		proofs:      proofs,
		idempotency: idempotency,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

func (s *PaymentService) today() time.Time {
	return shared.Today(s.clock.Now())
}

// AllocateSingle upserts the manual payment of a due with amountPaid split
// into wajib and sukarela. A zero amount deletes the manual payment instead.
// The due status is re-derived from the remaining payments either way.
func (s *PaymentService) AllocateSingle(ctx context.Context, dueID uuid.UUID, amountPaid decimal.Decimal, recordedBy *uuid.UUID) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "allocate_single",
		telemetry.SpanAttrDueID, dueID.String(), telemetry.SpanAttrAmount, amountPaid.String())
	defer span.End()

	if amountPaid.IsNegative() {
		return nil, dues.ErrNegativeAmount
	}

	result := &AllocationResult{DueID: dueID}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		due, err := lockDue(ctx, repos, dueID)
		if err != nil {
			return err
		}
		split, err := dues.SplitPayment(due.Amount, amountPaid)
		if err != nil {
			return err
		}
		result.AmountWajib, result.AmountSukarela = split.Wajib, split.Sukarela

		manual, err := repos.Payments().FindManualByDue(ctx, dueID)
		if err != nil && !shared.IsNotFound(err) {
			return err
		}

		switch {
		case amountPaid.IsZero():
			if manual != nil {
				if err := repos.Payments().Delete(ctx, manual.ID); err != nil {
					return err
				}
			}
			result.Removed = true
		case manual != nil:
			manual.ApplySplit(split, s.today())
			manual.RecordedBy = recordedBy
			if err := repos.Payments().Save(ctx, manual); err != nil {
				return err
			}
		default:
			if err := repos.Payments().Save(ctx, dues.NewManualPayment(dueID, split, s.today(), recordedBy)); err != nil {
				return err
			}
		}

		status, err := reconcileInTx(ctx, repos, due)
		result.Status = string(status)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, asConsistencyError(ctx, s.logger, "allocate single", err)
	}

	if !result.Removed {
		s.metrics.PaymentRecorded(ctx, string(dues.PaymentMethodManual), string(dues.PaymentStatusVerified), amountPaid.InexactFloat64())
	}
	return result, nil
}

// AllocateLumpSum spreads one payment over the selected dues of a house,
// oldest period first. Existing manual payments on those dues are replaced.
// Everything happens in one transaction.
func (s *PaymentService) AllocateLumpSum(ctx context.Context, req LumpSumRequest) (*LumpSumResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "allocate_lump_sum",
		telemetry.SpanAttrHouseID, req.HouseID.String(),
		telemetry.SpanAttrAmount, req.AmountPaid.String(),
		telemetry.SpanAttrCount, len(req.DueIDs),
	)
	defer span.End()

	ids := uniqueIDs(req.DueIDs)
	if len(ids) == 0 {
		return nil, dues.ErrNoDuesSelected
	}
	if req.AmountPaid.IsNegative() {
		return nil, dues.ErrNegativeAmount
	}
	paymentDate := s.today()
	if req.PaymentDate != nil {
		paymentDate = shared.Today(*req.PaymentDate)
	}

	var plan *dues.LumpSumPlan
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Houses().FindByID(ctx, req.HouseID); err != nil {
			return err
		}
		selected, err := repos.Dues().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if len(selected) != len(ids) {
			return dues.ErrDueNotFound
		}
		for i := range selected {
			if selected[i].HouseID != req.HouseID {
				return dues.ErrDueHouseMismatch
			}
		}

		if _, err := repos.Payments().DeleteManualByDues(ctx, ids); err != nil {
			return err
		}
		grouped, err := repos.Payments().FindByDues(ctx, ids)
		if err != nil {
			return err
		}

		targets := make([]dues.LumpSumTarget, len(selected))
		for i := range selected {
			targets[i] = dues.LumpSumTarget{
				Due:           &selected[i],
				ExistingWajib: dues.VerifiedWajibExcludingManual(grouped[selected[i].ID]),
			}
		}
		if plan, err = dues.PlanLumpSum(targets, req.AmountPaid); err != nil {
			return err
		}

		for _, entry := range plan.Entries {
			if entry.NeedsPayment() {
				p := dues.NewManualPayment(entry.Due.ID, entry.Split(), paymentDate, req.RecordedBy)
				if err := repos.Payments().Save(ctx, p); err != nil {
					return err
				}
			}
			status := entry.Status
			if status == dues.DueStatusUnpaid && entry.Due.Status == dues.DueStatusOverdue {
				// still short: the sweep's verdict stands
				status = dues.DueStatusOverdue
			}
			entry.Due.ApplyStatus(status)
			if err := repos.Dues().Save(ctx, entry.Due); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, asConsistencyError(ctx, s.logger, "allocate lump sum", err)
	}

	result := &LumpSumResult{
		HouseID:        req.HouseID,
		AmountPaid:     req.AmountPaid,
		TotalAllocated: plan.TotalAllocated,
		Leftover:       plan.Leftover,
		Lines:          make([]LumpSumLine, len(plan.Entries)),
	}
	for i, e := range plan.Entries {
		result.Lines[i] = LumpSumLine{
			DueID:     e.Due.ID,
			Period:    e.Due.Period.String(),
			Allocated: e.Allocated,
			Sukarela:  e.Sukarela,
			Status:    string(e.Due.Status),
		}
	}

	if req.AmountPaid.IsPositive() {
		s.metrics.PaymentRecorded(ctx, string(dues.PaymentMethodManual), string(dues.PaymentStatusVerified), req.AmountPaid.InexactFloat64())
	}
	s.logger.Info("Lump sum allocated",
		zap.String("house_id", req.HouseID.String()),
		zap.Int("dues", len(ids)),
		zap.String("amount_paid", req.AmountPaid.String()),
		zap.String("leftover", plan.Leftover.String()),
	)
	return result, nil
}

// SubmitTransfer stores a transfer proof and records a pending payment for
// the due. A repeated idempotency key is rejected without side effects.
func (s *PaymentService) SubmitTransfer(ctx context.Context, req TransferRequest) (*PaymentResponse, error) {
	if !req.AmountPaid.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be positive")
	}
	if req.Proof == nil {
		return nil, shared.NewDomainError("PROOF_REQUIRED", "Transfer payments require a proof of transfer")
	}

	var key string
	if req.IdempotencyKey != "" {
		key = "transfer:" + req.IdempotencyKey
		fresh, err := s.idempotency.MarkProcessed(ctx, key, submissionTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check submission key: %w", err)
		}
		if !fresh {
			return nil, ErrDuplicateSubmission
		}
	}

	payment, err := s.submitTransfer(ctx, req)
	if err != nil {
		if key != "" {
			if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
				s.logger.Warn("Failed to release submission key", zap.String("key", key), zap.Error(releaseErr))
			}
		}
		return nil, err
	}

	s.metrics.PaymentRecorded(ctx, string(payment.Method), string(payment.Status), payment.AmountPaid.InexactFloat64())
	resp := toPaymentResponse(payment)
	return &resp, nil
}

func (s *PaymentService) submitTransfer(ctx context.Context, req TransferRequest) (*dues.Payment, error) {
	due, err := s.dueRepo.FindByID(ctx, req.DueID)
	if err != nil {
		return nil, err
	}
	split, err := dues.SplitPayment(due.Amount, req.AmountPaid)
	if err != nil {
		return nil, err
	}

	objectKey := storage.ObjectKey("proofs", s.clock.Now(), req.FileName)
	if err := s.proofs.Put(ctx, objectKey, req.Proof, req.ProofSize, req.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store proof: %w", err)
	}

	payment, err := dues.NewTransferPayment(due.ID, split, s.today(), req.PayerID, objectKey)
	if err == nil {
		payment.Notes = req.Notes
		err = s.payments.Save(ctx, payment)
	}
	if err != nil {
		if delErr := s.proofs.Delete(ctx, objectKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned proof", zap.String("key", objectKey), zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("Transfer submitted",
		zap.String("payment_id", payment.ID.String()),
		zap.String("due_id", due.ID.String()),
		zap.String("amount_paid", payment.AmountPaid.String()),
	)
	return payment, nil
}

// RecordCash records a verified cash payment and re-derives the due status
func (s *PaymentService) RecordCash(ctx context.Context, req CashRequest) (*PaymentResponse, error) {
	if !req.AmountPaid.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be positive")
	}
	paymentDate := s.today()
	if req.PaymentDate != nil {
		paymentDate = shared.Today(*req.PaymentDate)
	}

	var payment *dues.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		due, err := lockDue(ctx, repos, req.DueID)
		if err != nil {
			return err
		}
		split, err := dues.SplitPayment(due.Amount, req.AmountPaid)
		if err != nil {
			return err
		}
		payment = dues.NewCashPayment(due.ID, split, paymentDate, req.PayerID, req.RecordedBy)
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return err
		}
		_, err = reconcileInTx(ctx, repos, due)
		return err
	})
	if err != nil {
		return nil, asConsistencyError(ctx, s.logger, "record cash", err)
	}

	s.metrics.PaymentRecorded(ctx, string(payment.Method), string(payment.Status), payment.AmountPaid.InexactFloat64())
	resp := toPaymentResponse(payment)
	return &resp, nil
}

// Verify accepts a pending payment
func (s *PaymentService) Verify(ctx context.Context, paymentID uuid.UUID, by *uuid.UUID) (*PaymentResponse, error) {
	return s.review(ctx, paymentID, func(p *dues.Payment) error {
		return p.Verify(by, s.clock.Now())
	})
}

// Reject declines a payment. Rejecting a verified payment takes it back out
// of the due's paid total.
func (s *PaymentService) Reject(ctx context.Context, paymentID uuid.UUID, by *uuid.UUID, reason string) (*PaymentResponse, error) {
	return s.review(ctx, paymentID, func(p *dues.Payment) error {
		return p.Reject(by, s.clock.Now(), reason)
	})
}

func (s *PaymentService) review(ctx context.Context, paymentID uuid.UUID, decide func(*dues.Payment) error) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "review", telemetry.SpanAttrPaymentID, paymentID.String())
	defer span.End()

	var payment *dues.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		due, err := lockDue(ctx, repos, p.DueID)
		if err != nil {
			return err
		}
		if err := decide(p); err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p); err != nil {
			return err
		}
		payment = p
		_, err = reconcileInTx(ctx, repos, due)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, asConsistencyError(ctx, s.logger, "review payment", err)
	}

	s.metrics.PaymentReviewed(ctx, string(payment.Status))
	s.logger.Info("Payment reviewed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", string(payment.Status)),
	)
	resp := toPaymentResponse(payment)
	return &resp, nil
}

// List returns payments matching the filter
func (s *PaymentService) List(ctx context.Context, filter PaymentListFilter) ([]PaymentResponse, error) {
	query := dues.PaymentFilter{}
	if filter.DueID != nil {
		query.DueIDs = []uuid.UUID{*filter.DueID}
	}
	if filter.Status != "" {
		query.Statuses = []dues.PaymentStatus{filter.Status}
	}
	if filter.Method != "" {
		query.Methods = []dues.PaymentMethod{filter.Method}
	}
	list, err := s.payments.FindAll(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, len(list))
	for i := range list {
		out[i] = toPaymentResponse(&list[i])
	}
	return out, nil
}

// Receipt returns the receipt data of a verified payment
func (s *PaymentService) Receipt(ctx context.Context, paymentID uuid.UUID) (*Receipt, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.IsVerified() {
		return nil, dues.ErrReceiptNotReady
	}
	due, err := s.dueRepo.FindByID(ctx, payment.DueID)
	if err != nil {
		return nil, err
	}
	house, err := s.houses.FindByID(ctx, due.HouseID)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		PaymentID:      payment.ID,
		HouseLabel:     house.Label(),
		Period:         due.Period.String(),
		PeriodLabel:    due.Period.Label(),
		AmountWajib:    payment.AmountWajib,
		AmountSukarela: payment.AmountSukarela,
		AmountPaid:     payment.AmountPaid,
		AmountText:     valueobject.FormatRupiah(payment.AmountPaid),
		Method:         string(payment.Method),
		PaymentDate:    payment.PaymentDate,
		VerifiedAt:     payment.VerifiedAt,
	}

	ownerID := house.OwnerID
	if payment.PayerID != nil {
		ownerID = payment.PayerID
	}
	if ownerID != nil {
		owner, err := s.residents.FindByID(ctx, *ownerID)
		switch {
		case err == nil:
			receipt.OwnerName = owner.Name
		case !shared.IsNotFound(err):
			return nil, err
		}
	}

	if payment.ProofKey != "" {
		url, expires, err := s.proofs.DownloadURL(ctx, payment.ProofKey)
		if err != nil {
			s.logger.Warn("Failed to sign proof URL", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		} else {
			receipt.ProofURL = url
			receipt.ProofExpiresAt = &expires
		}
	}
	return receipt, nil
}

func lockDue(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*dues.Due, error) {
	locked, err := repos.Dues().FindByIDsForUpdate(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, dues.ErrDueNotFound
	}
	return &locked[0], nil
}

// reconcileInTx re-derives and stores the status of due from its payments as
// seen inside the transaction
func reconcileInTx(ctx context.Context, repos TransactionalRepositories, due *dues.Due) (dues.DueStatus, error) {
	payments, err := repos.Payments().FindByDue(ctx, due.ID)
	if err != nil {
		return "", err
	}
	before := due.Status
	due.ApplyStatus(dues.SettleStatus(due, payments))
	if due.Status == before {
		return due.Status, nil
	}
	return due.Status, repos.Dues().Save(ctx, due)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
