package persistence

import (
	"errors"
	"testing"
	"time"

	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLedger(t *testing.T) {
	db := setupTestDB(t)
	ledger := NewGormLedger(db)
	ctx := t.Context()

	t.Run("empty ledger", func(t *testing.T) {
		earliest, err := ledger.EarliestRecordPeriod(ctx)
		require.NoError(t, err)
		assert.Nil(t, earliest)

		anchor, err := ledger.LatestAnchorAtOrBefore(ctx, period(2025, time.June))
		require.NoError(t, err)
		assert.Nil(t, anchor)
	})

	house := seedHouse(t, db, "D1", "1", dues.OccupancyOccupied)
	janDue := seedDue(t, db, house.ID, period(2025, time.January), 160000)
	febDue := seedDue(t, db, house.ID, period(2025, time.February), 160000)

	// paid in February for January: income belongs to February
	seedPayment(t, db, dues.NewCashPayment(janDue.ID, split(160000, 20000), date(2025, 2, 3), nil, nil))
	seedPayment(t, db, dues.NewManualPayment(febDue.ID, split(100000, 0), date(2025, 2, 28), nil))
	pending, err := dues.NewTransferPayment(febDue.ID, split(60000, 0), date(2025, 2, 20), nil, "proofs/x.png")
	require.NoError(t, err)
	seedPayment(t, db, pending)

	expenses := NewGormExpenseRepository(db)
	for _, e := range []struct {
		title  string
		amount int64
		on     time.Time
	}{
		{"Kebersihan", 50000, date(2024, 12, 30)},
		{"Satpam", 200000, date(2025, 2, 1)},
		{"Listrik", 75000, date(2025, 2, 15)},
	} {
		exp, err := finance.NewExpense(e.title, decimalFromInt(e.amount), e.on, "operasional", "")
		require.NoError(t, err)
		require.NoError(t, expenses.Save(ctx, exp))
	}

	t.Run("income is attributed to the payment month", func(t *testing.T) {
		income, err := ledger.IncomeByPeriod(ctx, period(2025, time.January), period(2025, time.March))
		require.NoError(t, err)
		_, hasJanuary := income[period(2025, time.January)]
		assert.False(t, hasJanuary)

		feb := income[period(2025, time.February)]
		assert.True(t, decimalFromInt(260000).Equal(feb.Wajib), "pending transfer excluded")
		assert.True(t, decimalFromInt(20000).Equal(feb.Sukarela))
	})

	t.Run("expenses are summed per month", func(t *testing.T) {
		sums, err := ledger.ExpensesByPeriod(ctx, period(2024, time.December), period(2025, time.February))
		require.NoError(t, err)
		assert.True(t, decimalFromInt(50000).Equal(sums[period(2024, time.December)]))
		assert.True(t, decimalFromInt(275000).Equal(sums[period(2025, time.February)]))
	})

	t.Run("earliest record spans payments and expenses", func(t *testing.T) {
		earliest, err := ledger.EarliestRecordPeriod(ctx)
		require.NoError(t, err)
		require.NotNil(t, earliest)
		assert.Equal(t, period(2024, time.December), *earliest)
	})

	t.Run("anchors", func(t *testing.T) {
		anchors := NewGormMonthlyBalanceRepository(db)
		a, err := finance.NewMonthlyBalance(period(2025, time.January), decimalFromInt(1000000), "kas awal")
		require.NoError(t, err)
		require.NoError(t, anchors.Upsert(ctx, a))

		replacement, err := finance.NewMonthlyBalance(period(2025, time.January), decimalFromInt(1200000), "koreksi")
		require.NoError(t, err)
		require.NoError(t, anchors.Upsert(ctx, replacement))

		found, err := anchors.FindByPeriod(ctx, period(2025, time.January))
		require.NoError(t, err)
		assert.True(t, decimalFromInt(1200000).Equal(found.InitialBalance))
		assert.Equal(t, "koreksi", found.Notes)

		latest, err := ledger.LatestAnchorAtOrBefore(ctx, period(2025, time.March))
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, period(2025, time.January), latest.Period)

		between, err := ledger.AnchorsBetween(ctx, period(2024, time.January), period(2025, time.December))
		require.NoError(t, err)
		assert.Len(t, between, 1)

		removed, err := anchors.DeleteByPeriod(ctx, period(2025, time.January))
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = anchors.DeleteByPeriod(ctx, period(2025, time.January))
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("resolver over the real ledger", func(t *testing.T) {
		resolver := finance.NewBalanceChainResolver(ledger)
		closing, err := resolver.ResolveClosingBalance(ctx, period(2025, time.February))
		require.NoError(t, err)
		// -50,000 (Dec) + 0 (Jan) + 280,000 - 275,000 (Feb)
		assert.True(t, decimalFromInt(-45000).Equal(closing), closing.String())
	})
}

func TestExpenseRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormExpenseRepository(db)
	ctx := t.Context()

	a, err := finance.NewExpense("Sampah", decimalFromInt(30000), date(2025, 5, 2), "kebersihan", "")
	require.NoError(t, err)
	b, err := finance.NewExpense("Lampu", decimalFromInt(45000), date(2025, 6, 9), "perbaikan", "")
	require.NoError(t, err)
	require.NoError(t, repo.SaveBatch(ctx, []*finance.Expense{a, b}))

	may := period(2025, time.May)
	list, err := repo.FindAll(ctx, finance.ExpenseFilter{Period: &may})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = repo.FindAll(ctx, finance.ExpenseFilter{Year: 2025, Category: "perbaikan"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, finance.ErrExpenseNotFound)
}

func TestSettingRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSettingRepository(db)
	ctx := t.Context()

	_, found, err := repo.Get(ctx, "auto_reminder")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set(ctx, "auto_reminder", "true"))
	require.NoError(t, repo.Set(ctx, "auto_reminder", "false"))

	value, found, err := repo.Get(ctx, "auto_reminder")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "false", value)
}

func TestGormTransactionScope(t *testing.T) {
	db := setupTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := t.Context()
	house := seedHouse(t, db, "E1", "5", dues.OccupancyOccupied)

	t.Run("commits on success", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
			d, err := dues.NewDue(house.ID, period(2025, time.July), decimalFromInt(160000), 10)
			if err != nil {
				return err
			}
			return repos.Dues().Save(ctx, d)
		})
		require.NoError(t, err)

		exists, err := NewGormDueRepository(db).ExistsForPeriod(ctx, house.ID, period(2025, time.July))
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("rolls back every write on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := scope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
			d, err := dues.NewDue(house.ID, period(2025, time.August), decimalFromInt(160000), 10)
			if err != nil {
				return err
			}
			if err := repos.Dues().Save(ctx, d); err != nil {
				return err
			}
			if err := repos.Payments().Save(ctx, dues.NewManualPayment(d.ID, split(160000, 0), date(2025, 8, 1), nil)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		exists, err := NewGormDueRepository(db).ExistsForPeriod(ctx, house.ID, period(2025, time.August))
		require.NoError(t, err)
		assert.False(t, exists)
		count, err := NewGormPaymentRepository(db).CountByStatus(ctx, dues.PaymentStatusVerified)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
