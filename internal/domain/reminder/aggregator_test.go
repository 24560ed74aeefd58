package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balance(t *testing.T, houseID uuid.UUID, year int, month time.Month, amount, paid int64, status dues.DueStatus) DueBalance {
	t.Helper()
	due, err := dues.NewDue(houseID, valueobject.Period{Year: year, Month: month}, decimal.NewFromInt(amount), 10)
	require.NoError(t, err)
	due.Status = status
	return DueBalance{Due: *due, VerifiedWajib: decimal.NewFromInt(paid)}
}

func TestCutoffMonth(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		today time.Time
		want  int
	}{
		{"current year on cutoff day", 2025, time.Date(2025, 8, 5, 9, 0, 0, 0, time.UTC), 8},
		{"current year before cutoff day", 2025, time.Date(2025, 8, 4, 9, 0, 0, 0, time.UTC), 7},
		{"january before cutoff", 2025, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), 0},
		{"past year", 2024, time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), 12},
		{"future year", 2026, time.Date(2025, 12, 31, 9, 0, 0, 0, time.UTC), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CutoffMonth(tt.year, tt.today, DefaultCutoffDay))
		})
	}
}

func TestBuildOutstandingSummary(t *testing.T) {
	houseID := uuid.New()
	today := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)

	t.Run("lists due months oldest first", func(t *testing.T) {
		balances := []DueBalance{
			balance(t, houseID, 2025, time.March, 160000, 0, dues.DueStatusUnpaid),
			balance(t, houseID, 2025, time.January, 160000, 0, dues.DueStatusOverdue),
			balance(t, houseID, 2025, time.February, 160000, 60000, dues.DueStatusOverdue),
			balance(t, houseID, 2025, time.April, 160000, 0, dues.DueStatusUnpaid),
			balance(t, houseID, 2024, time.December, 160000, 0, dues.DueStatusOverdue),
		}

		s := BuildOutstandingSummary(houseID, balances, 2025, today, DefaultCutoffDay)
		require.NotNil(t, s)
		require.Len(t, s.Lines, 3)
		assert.Equal(t, time.January, s.Lines[0].Period.Month)
		assert.Equal(t, time.February, s.Lines[1].Period.Month)
		assert.True(t, s.Lines[1].Partial)
		assert.True(t, decimal.NewFromInt(100000).Equal(s.Lines[1].Remaining))
		assert.Equal(t, time.March, s.Lines[2].Period.Month)
		assert.Equal(t, 3, s.MonthCount)
		assert.True(t, decimal.NewFromInt(420000).Equal(s.Total))
	})

	t.Run("paid dues and fully covered months are skipped", func(t *testing.T) {
		balances := []DueBalance{
			balance(t, houseID, 2025, time.January, 160000, 160000, dues.DueStatusPaid),
			balance(t, houseID, 2025, time.February, 160000, 200000, dues.DueStatusOverdue),
		}
		assert.Nil(t, BuildOutstandingSummary(houseID, balances, 2025, today, DefaultCutoffDay))
	})

	t.Run("nothing is due in a future year", func(t *testing.T) {
		balances := []DueBalance{balance(t, houseID, 2026, time.January, 160000, 0, dues.DueStatusUnpaid)}
		assert.Nil(t, BuildOutstandingSummary(houseID, balances, 2026, today, DefaultCutoffDay))
	})
}

func TestComposeMessage(t *testing.T) {
	houseID := uuid.New()
	today := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)
	s := BuildOutstandingSummary(houseID, []DueBalance{
		balance(t, houseID, 2025, time.January, 160000, 0, dues.DueStatusOverdue),
		balance(t, houseID, 2025, time.February, 160000, 25000, dues.DueStatusOverdue),
	}, 2025, today, DefaultCutoffDay)
	require.NotNil(t, s)

	from := Sender{Association: "RT-44", Signature: "Ketua RT 44"}
	to := Recipient{OwnerName: "Budi", HouseLabel: "A1/12"}

	msg := ComposeMessage(from, to, s, true)

	assert.True(t, strings.HasPrefix(msg, "Assalamu'alaikum Bapak/Ibu Budi,\n\n"))
	assert.Contains(t, msg, "Sistem *Otomatis* RT-44 menginformasikan tagihan iuran tahun 2025 untuk rumah A1/12 yang belum lunas.")
	assert.Contains(t, msg, "📌 *Rincian Tagihan (2 bulan):*\n• *Januari*: Rp 160.000\n• *Februari*: Rp 135.000 (sisa)\n\n")
	assert.Contains(t, msg, "💰 *Total: Rp 295.000*")
	assert.True(t, strings.HasSuffix(msg, "Salam,\n*Ketua RT 44*"))

	manual := ComposeMessage(from, to, s, false)
	assert.Contains(t, manual, "Pengurus RT-44 menginformasikan")
	assert.NotContains(t, manual, "Otomatis")
}
