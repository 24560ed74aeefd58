package finance_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	appfinance "github.com/rt44/backend/internal/application/finance"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"github.com/rt44/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	proofs   *storage.StubStorage
	expenses *appfinance.ExpenseService
	reports  *appfinance.ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zaptest.NewLogger(t)
	expenseRepo := persistence.NewGormExpenseRepository(db)
	f := &fixture{db: db, proofs: storage.NewStubStorage()}
	f.expenses = appfinance.NewExpenseService(expenseRepo, f.proofs, testutil.ClockAt(2025, time.March, 15), logger)
	f.reports = appfinance.NewReportService(persistence.NewGormLedger(db), expenseRepo,
		persistence.NewGormMonthlyBalanceRepository(db), logger)
	return f
}

func (f *fixture) expense(t *testing.T, title string, amount int64, on time.Time) *appfinance.ExpenseResponse {
	t.Helper()
	resp, err := f.expenses.Create(t.Context(), appfinance.ExpenseRequest{
		Title: title, Amount: testutil.Rupiah(amount), Date: on, Category: "operasional",
	})
	require.NoError(t, err)
	return resp
}

// income records a verified cash payment of wajib+sukarela on the given day
func (f *fixture) income(t *testing.T, wajib, sukarela int64, on time.Time) {
	t.Helper()
	ctx := t.Context()
	h, err := dues.NewHouse("A"+uuid.NewString()[:4], "1", dues.OccupancyOccupied)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormHouseRepository(f.db).Save(ctx, h))
	d, err := dues.NewDue(h.ID, testutil.Period(on.Year(), on.Month()), testutil.Rupiah(160000), dues.DefaultDueDay)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormDueRepository(f.db).Save(ctx, d))
	split := dues.Split{Wajib: testutil.Rupiah(wajib), Sukarela: testutil.Rupiah(sukarela)}
	require.NoError(t, persistence.NewGormPaymentRepository(f.db).Save(ctx, dues.NewCashPayment(d.ID, split, on, nil, nil)))
}

func TestExpenseService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	t.Run("creates with proof", func(t *testing.T) {
		resp, err := f.expenses.Create(ctx, appfinance.ExpenseRequest{
			Title:       " Kebersihan ",
			Amount:      testutil.Rupiah(50000),
			Date:        testutil.Date(2025, time.March, 3),
			Proof:       strings.NewReader("receipt"),
			ProofSize:   7,
			ContentType: "image/png",
			FileName:    "nota.PNG",
		})
		require.NoError(t, err)
		assert.Equal(t, "Kebersihan", resp.Title)
		assert.Equal(t, "2025-03", resp.Period)
		assert.True(t, resp.HasProof)

		url, _, err := f.expenses.ProofURL(ctx, resp.ID)
		require.NoError(t, err)
		assert.Contains(t, url, "expenses/2025/03/")
		assert.True(t, strings.HasSuffix(url, ".png"))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := f.expenses.Create(ctx, appfinance.ExpenseRequest{Title: "", Amount: testutil.Rupiah(1), Date: testutil.Date(2025, 3, 1)})
		de, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_TITLE", de.Code)

		_, err = f.expenses.Create(ctx, appfinance.ExpenseRequest{Title: "x", Amount: testutil.Rupiah(-1), Date: testutil.Date(2025, 3, 1)})
		de, ok = shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_AMOUNT", de.Code)
	})

	t.Run("updates and replaces proof", func(t *testing.T) {
		created, err := f.expenses.Create(ctx, appfinance.ExpenseRequest{
			Title: "Lampu", Amount: testutil.Rupiah(45000), Date: testutil.Date(2025, 3, 9),
			Proof: strings.NewReader("old"), FileName: "a.jpg",
		})
		require.NoError(t, err)
		oldURL, _, err := f.expenses.ProofURL(ctx, created.ID)
		require.NoError(t, err)

		updated, err := f.expenses.Update(ctx, created.ID, appfinance.ExpenseRequest{
			Title: "Lampu jalan", Amount: testutil.Rupiah(60000), Date: testutil.Date(2025, 4, 1),
			Proof: strings.NewReader("new"), FileName: "b.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, "Lampu jalan", updated.Title)
		assert.Equal(t, "2025-04", updated.Period)
		testutil.RequireDecimal(t, 60000, updated.Amount)

		newURL, _, err := f.expenses.ProofURL(ctx, created.ID)
		require.NoError(t, err)
		assert.NotEqual(t, oldURL, newURL)
		oldKey := strings.TrimPrefix(oldURL, f.proofs.BaseURL+"/")
		_, kept := f.proofs.Object(oldKey)
		assert.False(t, kept, "replaced proof is deleted")
	})

	t.Run("proof url without proof", func(t *testing.T) {
		plain := f.expense(t, "Air", 10000, testutil.Date(2025, 3, 4))
		_, _, err := f.expenses.ProofURL(ctx, plain.ID)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("lists with total", func(t *testing.T) {
		march := testutil.Period(2025, time.March)
		list, err := f.expenses.List(ctx, appfinance.ExpenseListFilter{Period: &march})
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		testutil.RequireDecimal(t, 60000, list.Total)
		assert.True(t, !list.Items[1].Date.Before(list.Items[0].Date))

		year, err := f.expenses.List(ctx, appfinance.ExpenseListFilter{Year: 2025})
		require.NoError(t, err)
		assert.Len(t, year.Items, 3)
	})

	t.Run("deletes", func(t *testing.T) {
		e := f.expense(t, "Hapus", 1000, testutil.Date(2025, 3, 5))
		require.NoError(t, f.expenses.Delete(ctx, e.ID))
		_, err := f.expenses.Get(ctx, e.ID)
		assert.ErrorIs(t, err, finance.ErrExpenseNotFound)
		assert.ErrorIs(t, f.expenses.Delete(ctx, e.ID), finance.ErrExpenseNotFound)
	})
}

type failingProofs struct{ *storage.StubStorage }

func (failingProofs) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("bucket unavailable")
}

func TestExpenseService_ProofFailure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := persistence.NewGormExpenseRepository(db)
	svc := appfinance.NewExpenseService(repo, failingProofs{storage.NewStubStorage()},
		testutil.ClockAt(2025, time.March, 15), zaptest.NewLogger(t))

	_, err := svc.Create(t.Context(), appfinance.ExpenseRequest{
		Title: "Nota", Amount: testutil.Rupiah(1000), Date: testutil.Date(2025, 3, 1),
		Proof: strings.NewReader("x"), FileName: "n.jpg",
	})
	require.Error(t, err)

	list, err := svc.List(t.Context(), appfinance.ExpenseListFilter{Year: 2025})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestExpenseService_Clone(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.expense(t, "Satpam", 200000, testutil.Date(2025, time.January, 31))
	f.expense(t, "Sampah", 30000, testutil.Date(2025, time.January, 2))

	t.Run("copies into the target month clamping the day", func(t *testing.T) {
		result, err := f.expenses.Clone(ctx, testutil.Period(2025, time.January), testutil.Period(2025, time.February))
		require.NoError(t, err)
		require.Len(t, result.Created, 2)
		assert.Equal(t, "2025-02", result.Target)

		feb := testutil.Period(2025, time.February)
		list, err := f.expenses.List(ctx, appfinance.ExpenseListFilter{Period: &feb})
		require.NoError(t, err)
		require.Len(t, list.Items, 2)
		assert.Equal(t, testutil.Date(2025, time.February, 2), list.Items[0].Date)
		assert.Equal(t, testutil.Date(2025, time.February, 28), list.Items[1].Date)
		testutil.RequireDecimal(t, 230000, list.Total)
	})

	t.Run("same month", func(t *testing.T) {
		_, err := f.expenses.Clone(ctx, testutil.Period(2025, time.January), testutil.Period(2025, time.January))
		assert.ErrorIs(t, err, finance.ErrSameMonthClone)
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := f.expenses.Clone(ctx, testutil.Period(2025, time.June), testutil.Period(2025, time.July))
		assert.ErrorIs(t, err, finance.ErrNothingToClone)
	})
}

func TestReportService_Monthly(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	f.income(t, 160000, 20000, testutil.Date(2025, time.January, 5))
	f.expense(t, "Kebersihan", 50000, testutil.Date(2025, time.January, 20))
	f.income(t, 160000, 0, testutil.Date(2025, time.February, 3))
	f.expense(t, "Satpam", 200000, testutil.Date(2025, time.February, 1))

	t.Run("chains the opening balance", func(t *testing.T) {
		report, err := f.reports.Monthly(ctx, testutil.Period(2025, time.February))
		require.NoError(t, err)
		assert.False(t, report.Anchored)
		testutil.RequireDecimal(t, 130000, report.OpeningBalance)
		testutil.RequireDecimal(t, 160000, report.IncomeWajib)
		testutil.RequireDecimal(t, 0, report.IncomeSukarela)
		testutil.RequireDecimal(t, 200000, report.TotalExpenses)
		testutil.RequireDecimal(t, 90000, report.ClosingBalance)
		require.Len(t, report.Expenses, 1)
		assert.Equal(t, "Satpam", report.Expenses[0].Title)
	})

	t.Run("anchor overrides the chain", func(t *testing.T) {
		anchor, err := f.reports.UpsertAnchor(ctx, testutil.Period(2025, time.February), testutil.Rupiah(1000000), "kas awal")
		require.NoError(t, err)
		assert.Equal(t, "2025-02", anchor.Period)

		report, err := f.reports.Monthly(ctx, testutil.Period(2025, time.March))
		require.NoError(t, err)
		testutil.RequireDecimal(t, 960000, report.OpeningBalance)
		testutil.RequireDecimal(t, 960000, report.ClosingBalance)

		feb, err := f.reports.Monthly(ctx, testutil.Period(2025, time.February))
		require.NoError(t, err)
		assert.True(t, feb.Anchored)
		testutil.RequireDecimal(t, 1000000, feb.OpeningBalance)
	})

	t.Run("removing the anchor restores the chain", func(t *testing.T) {
		require.NoError(t, f.reports.DeleteAnchor(ctx, testutil.Period(2025, time.February)))
		assert.ErrorIs(t, f.reports.DeleteAnchor(ctx, testutil.Period(2025, time.February)), finance.ErrAnchorNotFound)

		report, err := f.reports.Monthly(ctx, testutil.Period(2025, time.March))
		require.NoError(t, err)
		testutil.RequireDecimal(t, 90000, report.OpeningBalance)
	})
}

func TestReportService_Yearly(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	f.expense(t, "Tahun lalu", 40000, testutil.Date(2024, time.December, 10))
	f.income(t, 160000, 10000, testutil.Date(2025, time.March, 2))
	f.expense(t, "Perbaikan", 70000, testutil.Date(2025, time.June, 8))

	report, err := f.reports.Yearly(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, report.Months, 12)
	assert.Equal(t, "2025-01", report.Months[0].Period)
	assert.Equal(t, "2025-12", report.Months[11].Period)

	testutil.RequireDecimal(t, -40000, report.OpeningBalance)
	testutil.RequireDecimal(t, 170000, report.TotalIncome)
	testutil.RequireDecimal(t, 70000, report.TotalExpenses)
	testutil.RequireDecimal(t, 60000, report.ClosingBalance)

	for i := 1; i < 12; i++ {
		assert.True(t, report.Months[i].OpeningBalance.Equal(report.Months[i-1].ClosingBalance), "month %d chains", i+1)
	}
	testutil.RequireDecimal(t, 130000, report.Months[2].ClosingBalance)
}
