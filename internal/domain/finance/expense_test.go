package finance

import (
	"testing"
	"time"

	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExpense(t *testing.T) {
	date := time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC)

	t.Run("valid expense", func(t *testing.T) {
		e, err := NewExpense(" Kebersihan ", amt(250000), date, "operasional", "")
		require.NoError(t, err)
		assert.Equal(t, "Kebersihan", e.Title)
		assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), e.Date)
		assert.Equal(t, period(2025, time.January), e.Period())
	})

	t.Run("zero amount allowed", func(t *testing.T) {
		_, err := NewExpense("Donasi barang", decimal.Zero, date, "", "")
		assert.NoError(t, err)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := NewExpense("", amt(1), date, "", "")
		assert.Error(t, err)
		_, err = NewExpense("Listrik", amt(-1), date, "", "")
		assert.Error(t, err)
		_, err = NewExpense("Listrik", amt(1), time.Time{}, "", "")
		assert.Error(t, err)
	})
}

func TestExpense_CloneInto(t *testing.T) {
	e, err := NewExpense("Satpam", amt(1500000), time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), "keamanan", "gaji")
	require.NoError(t, err)
	e.ProofKey = "expenses/receipt.jpg"

	clone := e.CloneInto(valueobject.Period{Year: 2025, Month: time.February})

	assert.NotEqual(t, e.ID, clone.ID)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), clone.Date, "day clamped to month length")
	assert.Equal(t, e.Title, clone.Title)
	assert.True(t, e.Amount.Equal(clone.Amount))
	assert.Equal(t, "keamanan", clone.Category)
	assert.Equal(t, "gaji", clone.Notes)
	assert.Empty(t, clone.ProofKey)

	march := e.CloneInto(valueobject.Period{Year: 2025, Month: time.March})
	assert.Equal(t, 31, march.Date.Day())
}

func TestTotalExpenses(t *testing.T) {
	assert.True(t, TotalExpenses(nil).IsZero())
	assert.True(t, amt(30).Equal(TotalExpenses([]Expense{{Amount: amt(10)}, {Amount: amt(20)}})))
}
