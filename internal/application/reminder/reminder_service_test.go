package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	appreminder "github.com/rt44/backend/internal/application/reminder"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/reminder"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/cache"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type sentMessage struct {
	target  string
	message string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) Send(_ context.Context, target, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{target: target, message: message})
	return nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type fixture struct {
	db       *gorm.DB
	sender   *fakeSender
	settings *persistence.GormSettingRepository
	svc      *appreminder.ReminderService
}

func newFixture(t *testing.T, pause time.Duration) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	keys := cache.NewMemoryStore()
	t.Cleanup(func() { _ = keys.Close() })

	f := &fixture{db: db, sender: &fakeSender{}, settings: persistence.NewGormSettingRepository(db)}
	f.svc = appreminder.NewReminderService(
		persistence.NewGormHouseRepository(db),
		persistence.NewGormResidentRepository(db),
		persistence.NewGormDueRepository(db),
		persistence.NewGormPaymentRepository(db),
		f.settings,
		f.sender,
		keys,
		appreminder.Config{
			Sender:    reminder.Sender{Association: "RT-44", Signature: "Ketua RT 44"},
			CutoffDay: 5,
			SendPause: pause,
		},
		testutil.ClockAt(2025, time.March, 10),
		nil,
		zaptest.NewLogger(t),
	)
	return f
}

func (f *fixture) house(t *testing.T, number, ownerName, phone string, subsidized bool) *dues.House {
	t.Helper()
	ctx := t.Context()
	h, err := dues.NewHouse("A1", number, dues.OccupancyOccupied)
	require.NoError(t, err)
	if ownerName != "" {
		owner, err := dues.NewResident(ownerName, "", phone)
		require.NoError(t, err)
		require.NoError(t, persistence.NewGormResidentRepository(f.db).Save(ctx, owner))
		h.AssignOwner(&owner.ID)
	}
	h.SetSubsidized(subsidized)
	require.NoError(t, persistence.NewGormHouseRepository(f.db).Save(ctx, h))
	return h
}

func (f *fixture) due(t *testing.T, houseID uuid.UUID, p valueobject.Period, status dues.DueStatus) *dues.Due {
	t.Helper()
	d, err := dues.NewDue(houseID, p, testutil.Rupiah(160000), dues.DefaultDueDay)
	require.NoError(t, err)
	d.ApplyStatus(status)
	require.NoError(t, persistence.NewGormDueRepository(f.db).Save(t.Context(), d))
	return d
}

func (f *fixture) pay(t *testing.T, dueID uuid.UUID, wajib int64) {
	t.Helper()
	split := dues.Split{Wajib: testutil.Rupiah(wajib), Sukarela: testutil.Rupiah(0)}
	require.NoError(t, persistence.NewGormPaymentRepository(f.db).Save(t.Context(),
		dues.NewManualPayment(dueID, split, testutil.Date(2025, time.February, 20), nil)))
}

// owing seeds a house with January paid, February partly paid and March unpaid
func (f *fixture) owing(t *testing.T, number, ownerName, phone string) *dues.House {
	t.Helper()
	h := f.house(t, number, ownerName, phone, false)
	f.due(t, h.ID, testutil.Period(2025, time.January), dues.DueStatusPaid)
	feb := f.due(t, h.ID, testutil.Period(2025, time.February), dues.DueStatusOverdue)
	f.pay(t, feb.ID, 60000)
	f.due(t, h.ID, testutil.Period(2025, time.March), dues.DueStatusUnpaid)
	// April is not due yet on March 10
	f.due(t, h.ID, testutil.Period(2025, time.April), dues.DueStatusUnpaid)
	return h
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	de, ok := shared.IsDomainError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	return de.Code
}

func TestReminderService_SendForHouse(t *testing.T) {
	f := newFixture(t, 0)
	ctx := t.Context()
	owing := f.owing(t, "1", "Budi", "0812-111")

	t.Run("sends the outstanding months", func(t *testing.T) {
		resp, err := f.svc.SendForHouse(ctx, owing.ID, 2025)
		require.NoError(t, err)
		assert.True(t, resp.Sent)
		require.Len(t, resp.Lines, 2)
		assert.Equal(t, "2025-02", resp.Lines[0].Period)
		assert.True(t, resp.Lines[0].Partial)
		testutil.RequireDecimal(t, 100000, resp.Lines[0].Remaining)
		testutil.RequireDecimal(t, 260000, resp.Total)

		sent := f.sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, resp.Phone, sent[0].target)
		assert.Contains(t, sent[0].message, "Bapak/Ibu Budi")
		assert.Contains(t, sent[0].message, "Pengurus RT-44")
		assert.Contains(t, sent[0].message, "• *Februari*: Rp 100.000 (sisa)")
		assert.Contains(t, sent[0].message, "• *Maret*: Rp 160.000")
		assert.NotContains(t, sent[0].message, "April")
		assert.Contains(t, sent[0].message, "💰 *Total: Rp 260.000*")
		assert.Contains(t, sent[0].message, "*Ketua RT 44*")
	})

	t.Run("manual sends are not deduplicated", func(t *testing.T) {
		_, err := f.svc.SendForHouse(ctx, owing.ID, 2025)
		require.NoError(t, err)
		assert.Len(t, f.sender.messages(), 2)
	})

	t.Run("preview does not send", func(t *testing.T) {
		resp, err := f.svc.Preview(ctx, owing.ID, 2025)
		require.NoError(t, err)
		assert.False(t, resp.Sent)
		assert.Len(t, f.sender.messages(), 2)
	})

	t.Run("future year owes nothing yet", func(t *testing.T) {
		_, err := f.svc.SendForHouse(ctx, owing.ID, 2026)
		assert.ErrorIs(t, err, appreminder.ErrNothingOutstanding)
	})

	t.Run("rejections", func(t *testing.T) {
		subsidized := f.house(t, "2", "Sari", "0812-222", true)
		_, err := f.svc.SendForHouse(ctx, subsidized.ID, 2025)
		assert.ErrorIs(t, err, appreminder.ErrHouseSubsidized)

		noPhone := f.house(t, "3", "Tono", "", false)
		_, err = f.svc.SendForHouse(ctx, noPhone.ID, 2025)
		assert.ErrorIs(t, err, appreminder.ErrNoRecipient)

		noOwner := f.house(t, "4", "", "", false)
		_, err = f.svc.SendForHouse(ctx, noOwner.ID, 2025)
		assert.ErrorIs(t, err, appreminder.ErrNoRecipient)

		_, err = f.svc.SendForHouse(ctx, uuid.New(), 2025)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("gateway failure", func(t *testing.T) {
		f.sender.err = errors.New("device disconnected")
		defer func() { f.sender.err = nil }()

		_, err := f.svc.SendForHouse(ctx, owing.ID, 2025)
		assert.Equal(t, "REMINDER_SEND_FAILED", domainCode(t, err))
	})
}

func TestReminderService_SendAuto(t *testing.T) {
	f := newFixture(t, 0)
	ctx := t.Context()

	owing := f.owing(t, "1", "Budi", "0812-111")
	f.owing(t, "2", "Tanpa Nomor", "")
	settled := f.house(t, "3", "Lunas", "0812-333", false)
	f.due(t, settled.ID, testutil.Period(2025, time.January), dues.DueStatusPaid)
	subsidized := f.house(t, "4", "Sari", "0812-444", true)
	f.due(t, subsidized.ID, testutil.Period(2025, time.January), dues.DueStatusUnpaid)
	f.house(t, "5", "", "", false)

	t.Run("disabled by default", func(t *testing.T) {
		result, err := f.svc.SendAuto(ctx)
		require.NoError(t, err)
		assert.False(t, result.Enabled)
		assert.Empty(t, f.sender.messages())
	})

	_, err := f.svc.SetAutoReminder(ctx, true)
	require.NoError(t, err)

	t.Run("sends to reachable owners who owe", func(t *testing.T) {
		result, err := f.svc.SendAuto(ctx)
		require.NoError(t, err)
		assert.True(t, result.Enabled)
		assert.Equal(t, 2025, result.Year)
		assert.Equal(t, 2, result.Considered)
		assert.Equal(t, 1, result.Sent)
		assert.Equal(t, 1, result.Skipped)
		assert.Zero(t, result.Failed)

		sent := f.sender.messages()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].message, "Sistem *Otomatis* RT-44")
		assert.Contains(t, sent[0].message, "rumah "+owing.Label())
	})

	t.Run("at most once per house per day", func(t *testing.T) {
		result, err := f.svc.SendAuto(ctx)
		require.NoError(t, err)
		assert.Zero(t, result.Sent)
		assert.Equal(t, 2, result.Skipped)
		assert.Len(t, f.sender.messages(), 1)
	})
}

func TestReminderService_SendAuto_FailureReleasesKey(t *testing.T) {
	f := newFixture(t, 0)
	ctx := t.Context()
	f.owing(t, "1", "Budi", "0812-111")
	_, err := f.svc.SetAutoReminder(ctx, true)
	require.NoError(t, err)

	f.sender.err = errors.New("quota exceeded")
	result, err := f.svc.SendAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	f.sender.err = nil
	result, err = f.svc.SendAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent, "a failed send can be retried the same day")
}

func TestReminderService_SendAuto_Paced(t *testing.T) {
	f := newFixture(t, 40*time.Millisecond)
	ctx := t.Context()
	f.owing(t, "1", "Budi", "0812-111")
	f.owing(t, "2", "Wati", "0812-222")
	f.owing(t, "3", "Joko", "0812-333")
	_, err := f.svc.SetAutoReminder(ctx, true)
	require.NoError(t, err)

	start := time.Now()
	result, err := f.svc.SendAuto(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Sent)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestReminderService_Settings(t *testing.T) {
	f := newFixture(t, 0)
	ctx := t.Context()

	settings, err := f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.AutoReminder)

	_, err = f.svc.SetAutoReminder(ctx, true)
	require.NoError(t, err)
	settings, err = f.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, settings.AutoReminder)

	// values written as "1" count as on
	require.NoError(t, f.settings.Set(ctx, reminder.SettingAutoReminder, "1"))
	enabled, err := f.svc.AutoReminderEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, f.settings.Set(ctx, reminder.SettingAutoReminder, "maybe"))
	enabled, err = f.svc.AutoReminderEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}
