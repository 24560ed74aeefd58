package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedger is an in-memory Ledger
type memoryLedger struct {
	anchors  map[valueobject.Period]decimal.Decimal
	income   map[valueobject.Period]Income
	expenses map[valueobject.Period]decimal.Decimal
	err      error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		anchors:  make(map[valueobject.Period]decimal.Decimal),
		income:   make(map[valueobject.Period]Income),
		expenses: make(map[valueobject.Period]decimal.Decimal),
	}
}

func (l *memoryLedger) LatestAnchorAtOrBefore(_ context.Context, p valueobject.Period) (*MonthlyBalance, error) {
	if l.err != nil {
		return nil, l.err
	}
	var best *MonthlyBalance
	for period, amount := range l.anchors {
		if period.After(p) {
			continue
		}
		if best == nil || period.After(best.Period) {
			best = &MonthlyBalance{Period: period, InitialBalance: amount}
		}
	}
	return best, nil
}

func (l *memoryLedger) AnchorsBetween(_ context.Context, from, to valueobject.Period) (map[valueobject.Period]MonthlyBalance, error) {
	out := make(map[valueobject.Period]MonthlyBalance)
	for period, amount := range l.anchors {
		if !period.Before(from) && !period.After(to) {
			out[period] = MonthlyBalance{Period: period, InitialBalance: amount}
		}
	}
	return out, nil
}

func (l *memoryLedger) EarliestRecordPeriod(_ context.Context) (*valueobject.Period, error) {
	var earliest *valueobject.Period
	consider := func(p valueobject.Period) {
		if earliest == nil || p.Before(*earliest) {
			cp := p
			earliest = &cp
		}
	}
	for p := range l.income {
		consider(p)
	}
	for p := range l.expenses {
		consider(p)
	}
	return earliest, nil
}

func (l *memoryLedger) IncomeByPeriod(_ context.Context, from, to valueobject.Period) (map[valueobject.Period]Income, error) {
	out := make(map[valueobject.Period]Income)
	for p, v := range l.income {
		if !p.Before(from) && !p.After(to) {
			out[p] = v
		}
	}
	return out, nil
}

func (l *memoryLedger) ExpensesByPeriod(_ context.Context, from, to valueobject.Period) (map[valueobject.Period]decimal.Decimal, error) {
	out := make(map[valueobject.Period]decimal.Decimal)
	for p, v := range l.expenses {
		if !p.Before(from) && !p.After(to) {
			out[p] = v
		}
	}
	return out, nil
}

func period(year int, month time.Month) valueobject.Period {
	return valueobject.Period{Year: year, Month: month}
}

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestBalanceChain_AnchorThenChain(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	ledger.anchors[period(2025, time.March)] = amt(1000000)
	ledger.income[period(2025, time.March)] = Income{Wajib: amt(480000), Sukarela: amt(20000)}
	ledger.expenses[period(2025, time.March)] = amt(300000)

	r := NewBalanceChainResolver(ledger)

	opening, err := r.ResolveOpeningBalance(ctx, period(2025, time.March))
	require.NoError(t, err)
	assert.True(t, amt(1000000).Equal(opening))

	closing, err := r.ResolveClosingBalance(ctx, period(2025, time.March))
	require.NoError(t, err)
	assert.True(t, amt(1200000).Equal(closing))

	next, err := r.Resolve(ctx, period(2025, time.April))
	require.NoError(t, err)
	assert.False(t, next.Anchored)
	assert.True(t, amt(1200000).Equal(next.Opening), "V + incomeM - expensesM")
}

func TestBalanceChain_NoRecordsIsZero(t *testing.T) {
	r := NewBalanceChainResolver(newMemoryLedger())

	opening, err := r.ResolveOpeningBalance(context.Background(), period(2025, time.June))
	require.NoError(t, err)
	assert.True(t, opening.IsZero())
}

func TestBalanceChain_StartsAtEarliestRecord(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	ledger.income[period(2024, time.November)] = Income{Wajib: amt(500), Sukarela: decimal.Zero}
	ledger.expenses[period(2024, time.December)] = amt(200)
	ledger.income[period(2025, time.February)] = Income{Wajib: amt(100), Sukarela: amt(10)}

	r := NewBalanceChainResolver(ledger)

	t.Run("before the earliest record the balance is zero", func(t *testing.T) {
		opening, err := r.ResolveOpeningBalance(ctx, period(2024, time.October))
		require.NoError(t, err)
		assert.True(t, opening.IsZero())
	})

	t.Run("earliest month opens at zero", func(t *testing.T) {
		opening, err := r.ResolveOpeningBalance(ctx, period(2024, time.November))
		require.NoError(t, err)
		assert.True(t, opening.IsZero())
	})

	t.Run("later months chain forward", func(t *testing.T) {
		opening, err := r.ResolveOpeningBalance(ctx, period(2025, time.March))
		require.NoError(t, err)
		assert.True(t, amt(410).Equal(opening))
	})
}

func TestBalanceChain_LaterAnchorOverridesChain(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	ledger.income[period(2025, time.January)] = Income{Wajib: amt(1000), Sukarela: decimal.Zero}
	ledger.anchors[period(2025, time.March)] = amt(50)
	ledger.expenses[period(2025, time.March)] = amt(20)

	r := NewBalanceChainResolver(ledger)

	rows, err := r.ResolveRange(ctx, period(2025, time.January), period(2025, time.April))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.True(t, rows[0].Opening.IsZero())
	assert.True(t, amt(1000).Equal(rows[0].Closing))
	assert.True(t, amt(1000).Equal(rows[1].Opening))
	assert.True(t, rows[2].Anchored)
	assert.True(t, amt(50).Equal(rows[2].Opening))
	assert.True(t, amt(30).Equal(rows[3].Opening))
}

func TestBalanceChain_AnchorBeforeFirstRecordIsHonoured(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	ledger.anchors[period(2025, time.January)] = amt(700)
	ledger.income[period(2025, time.March)] = Income{Wajib: amt(100), Sukarela: decimal.Zero}

	r := NewBalanceChainResolver(ledger)

	opening, err := r.ResolveOpeningBalance(ctx, period(2025, time.April))
	require.NoError(t, err)
	assert.True(t, amt(800).Equal(opening))
}

func TestBalanceChain_LongHistory(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	start := period(1990, time.January)
	for p := start; p.Before(period(2025, time.January)); p = p.Next() {
		ledger.income[p] = Income{Wajib: amt(10), Sukarela: decimal.Zero}
	}

	r := NewBalanceChainResolver(ledger)

	opening, err := r.ResolveOpeningBalance(ctx, period(2025, time.January))
	require.NoError(t, err)
	assert.True(t, amt(35*12*10).Equal(opening))
}

func TestBalanceChain_Errors(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	r := NewBalanceChainResolver(ledger)

	_, err := r.ResolveRange(ctx, period(2025, time.May), period(2025, time.April))
	assert.Error(t, err)

	ledger.err = errors.New("db down")
	_, err = r.ResolveOpeningBalance(ctx, period(2025, time.May))
	assert.EqualError(t, err, "db down")
}
