package integration

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	appfinance "github.com/rt44/backend/internal/application/finance"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/infrastructure/cache"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"github.com/rt44/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stack holds the services wired over one database, as cmd/server does
type stack struct {
	houses   *persistence.GormHouseRepository
	dueRepo  *persistence.GormDueRepository
	payments *persistence.GormPaymentRepository
	dues     *appdues.DuesService
	pay      *appdues.PaymentService
	expenses *appfinance.ExpenseService
	reports  *appfinance.ReportService
}

func newStack(t *testing.T, tdb *TestDB) *stack {
	t.Helper()
	log := zaptest.NewLogger(t)
	clock := testutil.ClockAt(2025, time.March, 20)
	keys := cache.NewMemoryStore()
	t.Cleanup(func() { _ = keys.Close() })
	proofs := storage.NewStubStorage()

	db := tdb.DB
	s := &stack{
		houses:   persistence.NewGormHouseRepository(db),
		dueRepo:  persistence.NewGormDueRepository(db),
		payments: persistence.NewGormPaymentRepository(db),
	}
	residents := persistence.NewGormResidentRepository(db)
	scope := persistence.NewGormTransactionScope(db)
	cfg := appdues.Config{Tariff: dues.DefaultTariff()}
	expenseRepo := persistence.NewGormExpenseRepository(db)

	s.dues = appdues.NewDuesService(s.houses, s.dueRepo, s.payments, scope, cfg, clock, nil, log)
	s.pay = appdues.NewPaymentService(s.houses, residents, s.dueRepo, s.payments, scope, proofs, keys, clock, nil, log)
	s.expenses = appfinance.NewExpenseService(expenseRepo, proofs, clock, log)
	s.reports = appfinance.NewReportService(persistence.NewGormLedger(db), expenseRepo,
		persistence.NewGormMonthlyBalanceRepository(db), log)
	return s
}

func (s *stack) house(t *testing.T, block, number string, occupancy dues.Occupancy) *dues.House {
	t.Helper()
	h, err := dues.NewHouse(block, number, occupancy)
	require.NoError(t, err)
	require.NoError(t, s.houses.Save(t.Context(), h))
	return h
}

func TestDuesLifecycle_Postgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	s := newStack(t, tdb)
	ctx := t.Context()

	occupied := s.house(t, "A1", "1", dues.OccupancyOccupied)
	vacant := s.house(t, "A1", "2", dues.OccupancyVacant)
	march := testutil.Period(2025, time.March)

	res, err := s.dues.Generate(ctx, &march)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)

	again, err := s.dues.Generate(ctx, &march)
	require.NoError(t, err)
	assert.Zero(t, again.Created)
	assert.Equal(t, 2, again.Skipped)

	occupiedDue, err := s.dueRepo.FindByHousePeriod(ctx, occupied.ID, march)
	require.NoError(t, err)
	vacantDue, err := s.dueRepo.FindByHousePeriod(ctx, vacant.ID, march)
	require.NoError(t, err)
	testutil.RequireDecimal(t, 110000, vacantDue.Amount)

	t.Run("verified transfer pays the due", func(t *testing.T) {
		submitted, err := s.pay.SubmitTransfer(ctx, appdues.TransferRequest{
			DueID:          occupiedDue.ID,
			AmountPaid:     testutil.Rupiah(170000),
			IdempotencyKey: "form-1",
			Proof:          bytes.NewReader([]byte("\x89PNG\r\n\x1a\n")),
			ProofSize:      8,
			ContentType:    "image/png",
			FileName:       "bukti.png",
		})
		require.NoError(t, err)
		assert.Equal(t, string(dues.PaymentStatusPending), submitted.Status)

		verified, err := s.pay.Verify(ctx, submitted.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, string(dues.PaymentStatusVerified), verified.Status)

		due, err := s.dues.Get(ctx, occupiedDue.ID)
		require.NoError(t, err)
		assert.Equal(t, string(dues.DueStatusPaid), due.Status)
		testutil.RequireDecimal(t, 0, due.Remaining)
	})

	t.Run("partial cash leaves the due overdue after the sweep", func(t *testing.T) {
		_, err := s.pay.RecordCash(ctx, appdues.CashRequest{DueID: vacantDue.ID, AmountPaid: testutil.Rupiah(50000)})
		require.NoError(t, err)

		changed, err := s.dues.SweepOverdue(ctx, testutil.Date(2025, time.March, 20))
		require.NoError(t, err)
		assert.Equal(t, 1, changed)

		due, err := s.dues.Get(ctx, vacantDue.ID)
		require.NoError(t, err)
		assert.Equal(t, string(dues.DueStatusOverdue), due.Status)
		testutil.RequireDecimal(t, 60000, due.Remaining)
	})

	t.Run("monthly report", func(t *testing.T) {
		_, err := s.expenses.Create(ctx, appfinance.ExpenseRequest{
			Title:  "Kebersihan",
			Amount: testutil.Rupiah(70000),
			Date:   testutil.Date(2025, time.March, 15),
		})
		require.NoError(t, err)

		report, err := s.reports.Monthly(ctx, march)
		require.NoError(t, err)
		testutil.RequireDecimal(t, 210000, report.IncomeWajib)
		testutil.RequireDecimal(t, 10000, report.IncomeSukarela)
		testutil.RequireDecimal(t, 70000, report.TotalExpenses)
		testutil.RequireDecimal(t, 150000, report.ClosingBalance)

		_, err = s.reports.UpsertAnchor(ctx, march, testutil.Rupiah(1000000), "kas awal")
		require.NoError(t, err)
		report, err = s.reports.Monthly(ctx, march)
		require.NoError(t, err)
		assert.True(t, report.Anchored)
		testutil.RequireDecimal(t, 1150000, report.ClosingBalance)

		yearly, err := s.reports.Yearly(ctx, 2025)
		require.NoError(t, err)
		require.Len(t, yearly.Months, 12)
		testutil.RequireDecimal(t, 1150000, yearly.Months[3].OpeningBalance)
	})
}

func TestManualPayment_ConcurrentUpserts(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	s := newStack(t, tdb)
	ctx := t.Context()

	house := s.house(t, "B2", "7", dues.OccupancyOccupied)
	due, err := dues.NewDue(house.ID, testutil.Period(2025, time.March), testutil.Rupiah(160000), dues.DefaultDueDay)
	require.NoError(t, err)
	require.NoError(t, s.dueRepo.Save(ctx, due))

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.pay.AllocateSingle(ctx, due.ID, testutil.Rupiah(160000), nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	manual, err := s.payments.FindAll(ctx, dues.PaymentFilter{
		DueIDs:  []uuid.UUID{due.ID},
		Methods: []dues.PaymentMethod{dues.PaymentMethodManual},
	})
	require.NoError(t, err)
	assert.Len(t, manual, 1, "row lock serializes the upsert")

	found, err := s.dueRepo.FindByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, dues.DueStatusPaid, found.Status)
}

func TestLumpSum_RollsBackOnForeignDue(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	s := newStack(t, tdb)
	ctx := t.Context()

	mine := s.house(t, "C1", "1", dues.OccupancyOccupied)
	other := s.house(t, "C1", "2", dues.OccupancyOccupied)
	ids := make([]uuid.UUID, 0, 2)
	for _, h := range []*dues.House{mine, other} {
		d, err := dues.NewDue(h.ID, testutil.Period(2025, time.February), testutil.Rupiah(160000), dues.DefaultDueDay)
		require.NoError(t, err)
		require.NoError(t, s.dueRepo.Save(ctx, d))
		ids = append(ids, d.ID)
	}

	_, err := s.pay.AllocateLumpSum(ctx, appdues.LumpSumRequest{
		HouseID:    mine.ID,
		DueIDs:     ids,
		AmountPaid: testutil.Rupiah(320000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, dues.ErrDueHouseMismatch)

	count, err := s.payments.CountByStatus(ctx, dues.PaymentStatusVerified)
	require.NoError(t, err)
	assert.Zero(t, count)
}
