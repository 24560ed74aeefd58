package dues

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the billing rules the services apply
type Config struct {
	Tariff dues.Tariff
	// DueDay is the day of the period month a due falls due
	DueDay int
}

// DuesService generates, sweeps and reports on monthly dues
type DuesService struct {
	houses   dues.HouseRepository
	dueRepo  dues.DueRepository
	payments dues.PaymentRepository
	txScope  TransactionScope
	config   Config
	clock    shared.Clock
	metrics  *telemetry.FinanceMetrics
	logger   *zap.Logger
}

// NewDuesService creates a new DuesService. metrics may be nil.
func NewDuesService(
	houses dues.HouseRepository,
	dueRepo dues.DueRepository,
	payments dues.PaymentRepository,
	txScope TransactionScope,
	config Config,
	clock shared.Clock,
	metrics *telemetry.FinanceMetrics,
	logger *zap.Logger,
) *DuesService {
	if config.DueDay <= 0 {
		config.DueDay = dues.DefaultDueDay
	}
	return &DuesService{
		houses:   houses,
		dueRepo:  dueRepo,
		payments: payments,
		txScope:  txScope,
		config:   config,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Generate creates the dues of a period for every billable house that has
// none yet. A nil period means the current month. Safe to run repeatedly.
func (s *DuesService) Generate(ctx context.Context, period *valueobject.Period) (*GenerateResult, error) {
	target := valueobject.PeriodOf(s.clock.Now())
	if period != nil {
		target = *period
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", "generate", telemetry.SpanAttrPeriod, target.String())
	defer span.End()

	result := &GenerateResult{Period: target.String()}
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		houses, err := repos.Houses().FindAll(ctx, dues.HouseFilter{})
		if err != nil {
			return err
		}
		connected, err := repos.Houses().FindConnected(ctx)
		if err != nil {
			return err
		}
		calc := dues.NewCalculator(s.config.Tariff, dues.NewOwnerGroupIndex(connected))

		existing, err := repos.Dues().FindAll(ctx, dues.DueFilter{Period: &target})
		if err != nil {
			return err
		}
		billed := make(map[uuid.UUID]bool, len(existing))
		for _, d := range existing {
			billed[d.HouseID] = true
		}

		batch := make([]*dues.Due, 0, len(houses))
		for i := range houses {
			h := &houses[i]
			switch {
			case !h.IsBillable():
				result.Subsidized++
				continue
			case billed[h.ID]:
				result.Skipped++
				continue
			}
			due, err := dues.NewDue(h.ID, target, calc.Calculate(h), s.config.DueDay)
			if err != nil {
				return err
			}
			batch = append(batch, due)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := repos.Dues().SaveBatch(ctx, batch); err != nil {
			return err
		}
		result.Created = len(batch)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.consistency(ctx, "generate dues", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, result.Created)
	s.metrics.DuesGenerated(ctx, result.Created)
	s.logger.Info("Dues generated",
		zap.String("period", result.Period),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("subsidized", result.Subsidized),
	)
	return result, nil
}

// SweepOverdue moves unpaid dues whose due date is before today to overdue
// and returns how many changed. Paid dues are never touched.
func (s *DuesService) SweepOverdue(ctx context.Context, today time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "dues", "sweep_overdue")
	defer span.End()

	var changed []*dues.Due
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		candidates, err := repos.Dues().FindOverdueCandidates(ctx, today)
		if err != nil {
			return err
		}
		ptrs := make([]*dues.Due, len(candidates))
		for i := range candidates {
			ptrs[i] = &candidates[i]
		}
		changed = dues.SweepOverdue(ptrs, today)
		for _, d := range changed {
			if err := repos.Dues().Save(ctx, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, s.consistency(ctx, "sweep overdue", err)
	}

	s.metrics.DuesOverdue(ctx, len(changed))
	s.logger.Info("Overdue sweep finished",
		zap.String("today", shared.Today(today).Format(time.DateOnly)),
		zap.Int("marked_overdue", len(changed)),
	)
	return len(changed), nil
}

// ReconcileStatus recomputes a due's status from its verified payments and
// stores it when it changed
func (s *DuesService) ReconcileStatus(ctx context.Context, dueID uuid.UUID) (dues.DueStatus, error) {
	due, err := s.dueRepo.FindByID(ctx, dueID)
	if err != nil {
		return "", err
	}
	payments, err := s.payments.FindByDue(ctx, dueID)
	if err != nil {
		return "", err
	}
	before := due.Status
	due.ApplyStatus(dues.SettleStatus(due, payments))
	if due.Status != before {
		if err := s.dueRepo.Save(ctx, due); err != nil {
			return "", err
		}
	}
	return due.Status, nil
}

// Get returns one due with what has been paid on it
func (s *DuesService) Get(ctx context.Context, id uuid.UUID) (*DueResponse, error) {
	due, err := s.dueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	house, err := s.houses.FindByID(ctx, due.HouseID)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.FindByDue(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toDueResponse(due, house.Label(), dues.VerifiedWajib(payments))
	return &resp, nil
}

// List returns dues matching the filter, oldest period first
func (s *DuesService) List(ctx context.Context, filter DueListFilter) ([]DueResponse, error) {
	query := dues.DueFilter{HouseID: filter.HouseID, Year: filter.Year, Period: filter.Period}
	if filter.Status != "" {
		query.Statuses = []dues.DueStatus{filter.Status}
	}
	list, err := s.dueRepo.FindAll(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, list)
}

func (s *DuesService) describe(ctx context.Context, list []dues.Due) ([]DueResponse, error) {
	if len(list) == 0 {
		return []DueResponse{}, nil
	}
	ids := make([]uuid.UUID, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	grouped, err := s.payments.FindByDues(ctx, ids)
	if err != nil {
		return nil, err
	}
	houses, err := s.houses.FindAll(ctx, dues.HouseFilter{})
	if err != nil {
		return nil, err
	}
	labels := make(map[uuid.UUID]string, len(houses))
	for i := range houses {
		labels[houses[i].ID] = houses[i].Label()
	}

	out := make([]DueResponse, len(list))
	for i := range list {
		out[i] = toDueResponse(&list[i], labels[list[i].HouseID], dues.VerifiedWajib(grouped[list[i].ID]))
	}
	return out, nil
}

// UpdateAmount sets a due's amount and re-derives its status
func (s *DuesService) UpdateAmount(ctx context.Context, dueID uuid.UUID, amount decimal.Decimal) (*DueResponse, error) {
	var updated *dues.Due
	var verified decimal.Decimal
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.Dues().FindByIDsForUpdate(ctx, []uuid.UUID{dueID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return dues.ErrDueNotFound
		}
		due := &locked[0]
		if err := due.UpdateAmount(amount); err != nil {
			return err
		}
		payments, err := repos.Payments().FindByDue(ctx, dueID)
		if err != nil {
			return err
		}
		due.ApplyStatus(dues.SettleStatus(due, payments))
		if err := repos.Dues().Save(ctx, due); err != nil {
			return err
		}
		updated, verified = due, dues.VerifiedWajib(payments)
		return nil
	})
	if err != nil {
		return nil, s.consistency(ctx, "update due amount", err)
	}

	house, err := s.houses.FindByID(ctx, updated.HouseID)
	if err != nil {
		return nil, err
	}
	resp := toDueResponse(updated, house.Label(), verified)
	return &resp, nil
}

// BulkUpdateAmount sets the amount of every due in a period (or of the listed
// houses only) in one transaction, returning how many dues changed
func (s *DuesService) BulkUpdateAmount(ctx context.Context, req BulkAmountRequest) (int, error) {
	if req.Amount.IsNegative() {
		return 0, dues.ErrNegativeAmount
	}
	count := 0
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		list, err := repos.Dues().FindAll(ctx, dues.DueFilter{Period: &req.Period, HouseIDs: req.HouseIDs})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(list))
		for i := range list {
			ids[i] = list[i].ID
		}
		grouped, err := repos.Payments().FindByDues(ctx, ids)
		if err != nil {
			return err
		}
		for i := range list {
			due := &list[i]
			if err := due.UpdateAmount(req.Amount); err != nil {
				return err
			}
			due.ApplyStatus(dues.SettleStatus(due, grouped[due.ID]))
			if err := repos.Dues().Save(ctx, due); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, s.consistency(ctx, "bulk update due amounts", err)
	}
	s.logger.Info("Due amounts updated",
		zap.String("period", req.Period.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("dues", count),
	)
	return count, nil
}

// Calendar returns every house by the twelve months of year
func (s *DuesService) Calendar(ctx context.Context, year int) (*Calendar, error) {
	houses, err := s.houses.FindAll(ctx, dues.HouseFilter{})
	if err != nil {
		return nil, err
	}
	list, err := s.dueRepo.FindAll(ctx, dues.DueFilter{Year: year})
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	grouped := map[uuid.UUID][]dues.Payment{}
	if len(ids) > 0 {
		if grouped, err = s.payments.FindByDues(ctx, ids); err != nil {
			return nil, err
		}
	}

	byHouse := make(map[uuid.UUID]map[time.Month]*dues.Due, len(houses))
	for i := range list {
		d := &list[i]
		if byHouse[d.HouseID] == nil {
			byHouse[d.HouseID] = make(map[time.Month]*dues.Due, 12)
		}
		byHouse[d.HouseID][d.Period.Month] = d
	}

	cal := &Calendar{Year: year, Rows: make([]CalendarRow, 0, len(houses))}
	for i := range houses {
		h := &houses[i]
		row := CalendarRow{
			HouseID:      h.ID,
			HouseLabel:   h.Label(),
			IsSubsidized: h.IsSubsidized,
			Months:       make([]CalendarCell, 12),
		}
		for m := time.January; m <= time.December; m++ {
			cell := CalendarCell{
				Month:         int(m),
				Status:        CalendarStatusNone,
				Amount:        decimal.Zero,
				VerifiedWajib: decimal.Zero,
			}
			if d, ok := byHouse[h.ID][m]; ok {
				id := d.ID
				cell.DueID = &id
				cell.Status = string(d.Status)
				cell.Amount = d.Amount
				cell.VerifiedWajib = dues.VerifiedWajib(grouped[d.ID])
			}
			row.Months[m-1] = cell
		}
		cal.Rows = append(cal.Rows, row)
	}
	return cal, nil
}

// Dashboard summarises the month containing today
func (s *DuesService) Dashboard(ctx context.Context) (*Dashboard, error) {
	period := valueobject.PeriodOf(s.clock.Now())
	houses, err := s.houses.FindAll(ctx, dues.HouseFilter{})
	if err != nil {
		return nil, err
	}
	list, err := s.dueRepo.FindAll(ctx, dues.DueFilter{Period: &period})
	if err != nil {
		return nil, err
	}
	pending, err := s.payments.CountByStatus(ctx, dues.PaymentStatusPending)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		Period:           period.String(),
		Houses:           len(houses),
		Billed:           decimal.Zero,
		Collected:        decimal.Zero,
		PendingTransfers: pending,
	}
	for i := range houses {
		if houses[i].IsBillable() {
			dash.BillableHouses++
		}
	}
	if len(list) == 0 {
		return dash, nil
	}

	ids := make([]uuid.UUID, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	grouped, err := s.payments.FindByDues(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		d := &list[i]
		switch d.Status {
		case dues.DueStatusPaid:
			dash.PaidDues++
		case dues.DueStatusOverdue:
			dash.OverdueDues++
		default:
			dash.UnpaidDues++
		}
		dash.Billed = dash.Billed.Add(d.Amount)
		dash.Collected = dash.Collected.Add(dues.VerifiedWajib(grouped[d.ID]))
	}
	return dash, nil
}

// consistency passes domain errors through and hides anything else behind a
// generic CONSISTENCY_ERROR, logging the cause
func (s *DuesService) consistency(ctx context.Context, op string, err error) error {
	return asConsistencyError(ctx, s.logger, op, err)
}

func asConsistencyError(ctx context.Context, logger *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.IsDomainError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Error("Transaction rolled back",
		zap.String("operation", op),
		zap.String("trace_id", telemetry.GetTraceID(ctx)),
		zap.Error(err),
	)
	return shared.NewConsistencyError(err)
}
