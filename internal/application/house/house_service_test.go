package house_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/application/house"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var march2025 = testutil.Period(2025, time.March)

type fixture struct {
	db        *gorm.DB
	houses    *persistence.GormHouseRepository
	residents *persistence.GormResidentRepository
	dueRepo   *persistence.GormDueRepository
	svc       *house.HouseService
	imports   *house.ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	clock := testutil.ClockAt(2025, time.March, 12)
	scope := persistence.NewGormTransactionScope(db)
	cfg := appdues.Config{Tariff: dues.DefaultTariff()}
	f := &fixture{
		db:        db,
		houses:    persistence.NewGormHouseRepository(db),
		residents: persistence.NewGormResidentRepository(db),
		dueRepo:   persistence.NewGormDueRepository(db),
	}
	f.svc = house.NewHouseService(f.houses, f.residents, scope, cfg, clock, zaptest.NewLogger(t))
	f.imports = house.NewImportService(scope, cfg, clock, zaptest.NewLogger(t))
	return f
}

func (f *fixture) owner(t *testing.T, name string) *dues.Resident {
	t.Helper()
	r, err := dues.NewResident(name, strings.ToLower(name)+"@example.com", "0812")
	require.NoError(t, err)
	require.NoError(t, f.residents.Save(t.Context(), r))
	return r
}

func (f *fixture) marchDue(t *testing.T, houseID uuid.UUID) *dues.Due {
	t.Helper()
	d, err := f.dueRepo.FindByHousePeriod(t.Context(), houseID, march2025)
	require.NoError(t, err)
	return d
}

func (f *fixture) billMarch(t *testing.T, houseID uuid.UUID, amount int64) *dues.Due {
	t.Helper()
	d, err := dues.NewDue(houseID, march2025, testutil.Rupiah(amount), dues.DefaultDueDay)
	require.NoError(t, err)
	require.NoError(t, f.dueRepo.Save(t.Context(), d))
	return d
}

func ptr[T any](v T) *T { return &v }

func TestHouseService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	budi := f.owner(t, "Budi")

	created, err := f.svc.Create(ctx, house.CreateHouseRequest{
		Block:          " A ",
		Number:         "7",
		Occupancy:      dues.OccupancyVacant,
		ResidentStatus: dues.ResidentStatusTenant,
		OwnerID:        &budi.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "A/7", created.House.Label)
	assert.Equal(t, "Budi", created.House.OwnerName)
	testutil.RequireDecimal(t, 110000, created.House.MonthlyAmount)

	_, err = f.svc.Create(ctx, house.CreateHouseRequest{Block: "A", Number: "7"})
	de, ok := shared.IsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "ALREADY_EXISTS", de.Code)

	_, err = f.svc.Create(ctx, house.CreateHouseRequest{Block: "A", Number: "8", OwnerID: ptr(uuid.New())})
	assert.ErrorIs(t, err, house.ErrOwnerNotFound)

	_, err = f.svc.Create(ctx, house.CreateHouseRequest{Block: "A", Number: "1"})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, house.ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "A/1", page.Items[0].Label)
	assert.Equal(t, "Budi", page.Items[1].OwnerName)

	got, err := f.svc.Get(ctx, created.House.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant", got.ResidentStatus)

	require.NoError(t, f.svc.Delete(ctx, created.House.ID))
	_, err = f.svc.Get(ctx, created.House.ID)
	assert.ErrorIs(t, err, dues.ErrHouseNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, created.House.ID), dues.ErrHouseNotFound)
}

func TestHouseService_SubsidizedRemovesOutstandingDues(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	created, err := f.svc.Create(ctx, house.CreateHouseRequest{Block: "B", Number: "2"})
	require.NoError(t, err)
	id := created.House.ID

	paid, err := dues.NewDue(id, testutil.Period(2025, time.January), testutil.Rupiah(160000), 10)
	require.NoError(t, err)
	paid.ApplyStatus(dues.DueStatusPaid)
	require.NoError(t, f.dueRepo.Save(ctx, paid))
	f.billMarch(t, id, 160000)

	result, err := f.svc.Update(ctx, id, house.UpdateHouseRequest{IsSubsidized: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.DuesRemoved)
	assert.True(t, result.House.IsSubsidized)
	testutil.RequireDecimal(t, 0, result.House.MonthlyAmount)

	left, err := f.dueRepo.FindAll(ctx, dues.DueFilter{HouseID: &id})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, paid.ID, left[0].ID)

	again, err := f.svc.Update(ctx, id, house.UpdateHouseRequest{IsSubsidized: ptr(true)})
	require.NoError(t, err)
	assert.Zero(t, again.DuesRemoved)
}

func TestHouseService_GroupRecalculation(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	siti := f.owner(t, "Siti")

	left, err := f.svc.Create(ctx, house.CreateHouseRequest{Block: "C", Number: "1", OwnerID: &siti.ID})
	require.NoError(t, err)
	right, err := f.svc.Create(ctx, house.CreateHouseRequest{Block: "C", Number: "2", OwnerID: &siti.ID})
	require.NoError(t, err)
	leftDue := f.billMarch(t, left.House.ID, 160000)
	rightDue := f.billMarch(t, right.House.ID, 160000)

	_, err = f.svc.Update(ctx, left.House.ID, house.UpdateHouseRequest{IsConnected: ptr(true), MeterCount: ptr(1)})
	require.NoError(t, err)
	testutil.RequireDecimal(t, 160000, f.marchDue(t, leftDue.HouseID).Amount, "partner not connected yet")

	result, err := f.svc.Update(ctx, right.House.ID, house.UpdateHouseRequest{IsConnected: ptr(true), MeterCount: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.DuesRecomputed)
	testutil.RequireDecimal(t, 135000, f.marchDue(t, leftDue.HouseID).Amount)
	testutil.RequireDecimal(t, 135000, f.marchDue(t, rightDue.HouseID).Amount)
	testutil.RequireDecimal(t, 135000, result.House.MonthlyAmount)

	t.Run("moving a house to another owner restores the partner's rate", func(t *testing.T) {
		other := f.owner(t, "Joko")
		result, err := f.svc.Update(ctx, right.House.ID, house.UpdateHouseRequest{OwnerID: &other.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, result.DuesRecomputed)
		testutil.RequireDecimal(t, 160000, f.marchDue(t, leftDue.HouseID).Amount)
	})

	t.Run("paid dues reopen when the amount rises", func(t *testing.T) {
		_, err := f.svc.Update(ctx, right.House.ID, house.UpdateHouseRequest{OwnerID: &siti.ID})
		require.NoError(t, err)
		d := f.marchDue(t, rightDue.HouseID)
		testutil.RequireDecimal(t, 135000, d.Amount)

		payment := dues.NewManualPayment(d.ID, dues.Split{Wajib: testutil.Rupiah(135000), Sukarela: testutil.Rupiah(0)}, testutil.Date(2025, time.March, 3), nil)
		require.NoError(t, persistence.NewGormPaymentRepository(f.db).Save(ctx, payment))
		d.ApplyStatus(dues.DueStatusPaid)
		require.NoError(t, f.dueRepo.Save(ctx, d))

		_, err = f.svc.Update(ctx, right.House.ID, house.UpdateHouseRequest{IsConnected: ptr(false)})
		require.NoError(t, err)
		after := f.marchDue(t, rightDue.HouseID)
		testutil.RequireDecimal(t, 160000, after.Amount)
		assert.Equal(t, dues.DueStatusUnpaid, after.Status)
	})
}

func TestImportService(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	existing, err := f.svc.Create(ctx, house.CreateHouseRequest{Block: "G", Number: "1"})
	require.NoError(t, err)

	t.Run("imports owners, houses and the current due", func(t *testing.T) {
		sheet := "Blok,Nomor,Nama,Email,Phone,StatusHuni,StatusResiden\n" +
			"G,1,Budi Santoso,budi@example.com,08123456789,berpenghuni,pemilik\n" +
			"G,2,Siti,,0812 000,kosong,kontrak\n" +
			"G,3,,,,berpenghuni,\n"
		result, err := f.imports.Import(ctx, house.ImportRequest{File: strings.NewReader(sheet)})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Rows)
		assert.Equal(t, 2, result.HousesCreated)
		assert.Equal(t, 1, result.HousesUpdated)
		assert.Equal(t, 2, result.ResidentsCreated)
		assert.Equal(t, 3, result.DuesCreated)

		g1, err := f.houses.FindByID(ctx, existing.House.ID)
		require.NoError(t, err)
		require.NotNil(t, g1.OwnerID)

		siti, err := f.residents.FindByEmail(ctx, "g2@rt44.com")
		require.NoError(t, err)
		assert.Equal(t, "0812000", siti.Phone)

		g2, err := f.houses.FindByBlockNumber(ctx, "G", "2")
		require.NoError(t, err)
		assert.Equal(t, dues.ResidentStatusTenant, g2.ResidentStatus)
		testutil.RequireDecimal(t, 110000, f.marchDue(t, g2.ID).Amount)
	})

	t.Run("importing again updates in place", func(t *testing.T) {
		sheet := "Blok,Nomor,Nama,Email,Phone\nG,1,Budi S,budi@example.com,\n"
		result, err := f.imports.Import(ctx, house.ImportRequest{File: strings.NewReader(sheet)})
		require.NoError(t, err)
		assert.Equal(t, 1, result.ResidentsUpdated)
		assert.Zero(t, result.DuesCreated)

		budi, err := f.residents.FindByEmail(ctx, "budi@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Budi S", budi.Name)
		assert.Equal(t, "08123456789", budi.Phone, "blank phone keeps the stored one")
	})

	t.Run("an invalid row rejects the file", func(t *testing.T) {
		sheet := "Blok,Nomor,StatusHuni\nH,1,berpenghuni\nH,2,rusak\n"
		_, err := f.imports.Import(ctx, house.ImportRequest{File: strings.NewReader(sheet)})
		var importErr *house.ImportError
		require.True(t, errors.As(err, &importErr))
		require.Len(t, importErr.Rows, 1)
		assert.Equal(t, 3, importErr.Rows[0].Row)
		assert.ErrorIs(t, err, house.ErrImportRejected)

		_, err = f.houses.FindByBlockNumber(ctx, "H", "1")
		assert.ErrorIs(t, err, dues.ErrHouseNotFound)
	})

	t.Run("a domain failure mid-file rolls back earlier rows", func(t *testing.T) {
		long := strings.Repeat("x", 101)
		sheet := "Blok,Nomor,Nama\nJ,1,Ana\nJ,2," + long + "\n"
		_, err := f.imports.Import(ctx, house.ImportRequest{File: strings.NewReader(sheet)})
		var importErr *house.ImportError
		require.True(t, errors.As(err, &importErr))
		assert.Equal(t, 3, importErr.Rows[0].Row)

		_, err = f.houses.FindByBlockNumber(ctx, "J", "1")
		assert.ErrorIs(t, err, dues.ErrHouseNotFound)
	})

	t.Run("unreadable files", func(t *testing.T) {
		_, err := f.imports.Import(ctx, house.ImportRequest{File: strings.NewReader("Nama\nBudi\n")})
		de, ok := shared.IsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_FILE", de.Code)
	})

	t.Run("template", func(t *testing.T) {
		var b strings.Builder
		require.NoError(t, f.imports.Template(&b))
		assert.True(t, strings.HasPrefix(b.String(), "Blok,Nomor,Nama,Email,Phone,StatusHuni,StatusResiden\n"))
	})
}
