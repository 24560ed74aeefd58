package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	appfinance "github.com/rt44/backend/internal/application/finance"
	apphouse "github.com/rt44/backend/internal/application/house"
	appreminder "github.com/rt44/backend/internal/application/reminder"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/reminder"
	"github.com/rt44/backend/internal/infrastructure/cache"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"github.com/rt44/backend/internal/interfaces/http/middleware"
	"github.com/rt44/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type recordingSender struct {
	mu      sync.Mutex
	targets []string
	err     error
}

func (s *recordingSender) Send(_ context.Context, target, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.targets = append(s.targets, target)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}

// testServer wires every handler over an in-memory database, the way the
// server does in production
type testServer struct {
	db        *gorm.DB
	engine    *gin.Engine
	houses    *persistence.GormHouseRepository
	residents *persistence.GormResidentRepository
	dueRepo   *persistence.GormDueRepository
	proofs    *storage.StubStorage
	sender    *recordingSender
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := zaptest.NewLogger(t)
	clock := testutil.ClockAt(2025, time.March, 10)
	keys := cache.NewMemoryStore()
	t.Cleanup(func() { _ = keys.Close() })

	s := &testServer{
		db:        db,
		houses:    persistence.NewGormHouseRepository(db),
		residents: persistence.NewGormResidentRepository(db),
		dueRepo:   persistence.NewGormDueRepository(db),
		proofs:    storage.NewStubStorage(),
		sender:    &recordingSender{},
	}
	payments := persistence.NewGormPaymentRepository(db)
	scope := persistence.NewGormTransactionScope(db)
	cfg := appdues.Config{Tariff: dues.DefaultTariff()}

	duesSvc := appdues.NewDuesService(s.houses, s.dueRepo, payments, scope, cfg, clock, nil, log)
	paySvc := appdues.NewPaymentService(s.houses, s.residents, s.dueRepo, payments, scope, s.proofs, keys, clock, nil, log)
	houseSvc := apphouse.NewHouseService(s.houses, s.residents, scope, cfg, clock, log)
	importSvc := apphouse.NewImportService(scope, cfg, clock, log)
	expenseRepo := persistence.NewGormExpenseRepository(db)
	expenseSvc := appfinance.NewExpenseService(expenseRepo, s.proofs, clock, log)
	reportSvc := appfinance.NewReportService(persistence.NewGormLedger(db), expenseRepo,
		persistence.NewGormMonthlyBalanceRepository(db), log)
	reminderSvc := appreminder.NewReminderService(s.houses, s.residents, s.dueRepo, payments,
		persistence.NewGormSettingRepository(db), s.sender, keys,
		appreminder.Config{Sender: reminder.Sender{Association: "RT-44", Signature: "Ketua RT 44"}, CutoffDay: 5},
		clock, nil, log)

	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	api := engine.Group("/api/v1")
	NewHouseHandler(houseSvc, importSvc, 1<<20).RegisterRoutes(api)
	NewDuesHandler(duesSvc, paySvc, clock).RegisterRoutes(api)
	NewPaymentHandler(paySvc, 1<<20).SetSubmitLimit(middleware.RateLimit(middleware.NewRateLimiter(100))).RegisterRoutes(api)
	NewExpenseHandler(expenseSvc, 1<<20).RegisterRoutes(api)
	NewReportHandler(reportSvc, clock).RegisterRoutes(api)
	NewReminderHandler(reminderSvc, clock).RegisterRoutes(api)
	s.engine = engine
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Do(t, s.engine, method, "/api/v1"+path, body, headers...)
}

// house registers a house directly through the repository
func (s *testServer) house(t *testing.T, block, number string, occupancy dues.Occupancy) *dues.House {
	t.Helper()
	h, err := dues.NewHouse(block, number, occupancy)
	require.NoError(t, err)
	require.NoError(t, s.houses.Save(t.Context(), h))
	return h
}

func (s *testServer) ownedHouse(t *testing.T, block, number, phone string) *dues.House {
	t.Helper()
	owner, err := dues.NewResident("Warga "+block+number, "", phone)
	require.NoError(t, err)
	require.NoError(t, s.residents.Save(t.Context(), owner))

	h := s.house(t, block, number, dues.OccupancyOccupied)
	h.AssignOwner(&owner.ID)
	require.NoError(t, s.houses.Save(t.Context(), h))
	return h
}

func (s *testServer) due(t *testing.T, houseID uuid.UUID, month time.Month, amount int64) *dues.Due {
	t.Helper()
	d, err := dues.NewDue(houseID, testutil.Period(2025, month), testutil.Rupiah(amount), dues.DefaultDueDay)
	require.NoError(t, err)
	require.NoError(t, s.dueRepo.Save(t.Context(), d))
	return d
}

func (s *testServer) dueStatus(t *testing.T, id uuid.UUID) dues.DueStatus {
	t.Helper()
	d, err := s.dueRepo.FindByID(t.Context(), id)
	require.NoError(t, err)
	return d.Status
}

type formFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

// multipartBody encodes fields and files; it returns the body and its content type
func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *testServer) upload(t *testing.T, path string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files...)
	return s.do(t, http.MethodPost, path, body, "Content-Type", contentType)
}

var pngProof = formFile{field: "proof", name: "bukti.png", contentType: "image/png", content: []byte("\x89PNG\r\n\x1a\nproof")}
