package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB returns an in-memory sqlite database with every table migrated.
// A single connection keeps the in-memory database shared across calls.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.ResidentModel{},
		&models.HouseModel{},
		&models.DueModel{},
		&models.PaymentModel{},
		&models.ExpenseModel{},
		&models.MonthlyBalanceModel{},
		&models.SettingModel{},
	))
	return db
}

func newID() uuid.UUID { return uuid.New() }

func idList(ids ...uuid.UUID) []uuid.UUID { return ids }

func decimalFromInt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func period(year int, month time.Month) valueobject.Period {
	return valueobject.Period{Year: year, Month: month}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func seedHouse(t *testing.T, db *gorm.DB, block, number string, occupancy dues.Occupancy) *dues.House {
	t.Helper()
	h, err := dues.NewHouse(block, number, occupancy)
	require.NoError(t, err)
	require.NoError(t, NewGormHouseRepository(db).Save(t.Context(), h))
	return h
}

func seedDue(t *testing.T, db *gorm.DB, houseID uuid.UUID, p valueobject.Period, amount int64) *dues.Due {
	t.Helper()
	d, err := dues.NewDue(houseID, p, decimalFromInt(amount), dues.DefaultDueDay)
	require.NoError(t, err)
	require.NoError(t, NewGormDueRepository(db).Save(t.Context(), d))
	return d
}

func seedPayment(t *testing.T, db *gorm.DB, p *dues.Payment) *dues.Payment {
	t.Helper()
	require.NoError(t, NewGormPaymentRepository(db).Save(t.Context(), p))
	return p
}

func split(wajib, sukarela int64) dues.Split {
	return dues.Split{Wajib: decimalFromInt(wajib), Sukarela: decimalFromInt(sukarela)}
}
