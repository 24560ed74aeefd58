package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appdues "github.com/rt44/backend/internal/application/dues"
	appfinance "github.com/rt44/backend/internal/application/finance"
	apphouse "github.com/rt44/backend/internal/application/house"
	appreminder "github.com/rt44/backend/internal/application/reminder"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/reminder"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/cache"
	"github.com/rt44/backend/internal/infrastructure/config"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"github.com/rt44/backend/internal/infrastructure/messaging"
	"github.com/rt44/backend/internal/infrastructure/persistence"
	"github.com/rt44/backend/internal/infrastructure/scheduler"
	"github.com/rt44/backend/internal/infrastructure/storage"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"github.com/rt44/backend/internal/interfaces/http/handler"
	"github.com/rt44/backend/internal/interfaces/http/middleware"
	"github.com/rt44/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/rt44/backend/docs"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			RT 44 Dues and Finance API
//	@version		1.0
//	@description	Monthly dues, payments, expenses and cash reports of the RT 44 neighborhood association.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry providers are no-ops when telemetry is disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.Telemetry.ServiceName, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}
	defer func() {
		shutdownCtx := context.Background()
		for name, shutdown := range map[string]func(context.Context) error{
			"tracer": tracerProvider.Shutdown,
			"meter":  meterProvider.Shutdown,
			"logger": loggerProvider.Shutdown,
			"profiler": func(context.Context) error {
				return profiler.Stop()
			},
		} {
			if err := shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down telemetry", zap.String("provider", name), zap.Error(err))
			}
		}
	}()

	financeMetrics, err := telemetry.NewFinanceMetrics(meterProvider.Meter("rt44"))
	if err != nil {
		log.Fatal("Failed to create finance metrics", zap.Error(err))
	}

	log.Info("Starting RT 44 backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("timezone", cfg.App.Timezone),
		zap.String("version", version),
	)

	// Database
	dbOpts := []persistence.DatabaseOption{persistence.WithLogLevel(logger.GormLevel(cfg.Log.Level))}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithTracing(cfg.Telemetry.DBSlowQueryThresh))
	}
	db, err := persistence.NewDatabase(cfg.Database, log, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	clock := shared.SystemClock{Location: cfg.App.Location()}

	// Idempotency keys live in Redis when it is configured
	idempotency := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	proofs := newProofStorage(ctx, cfg.Storage, log)

	sender := messaging.NewFonnteClient(cfg.Messaging, log)
	if !sender.Configured() {
		log.Warn("WhatsApp gateway token not set, reminders will fail to send")
	}

	// Repositories
	houseRepo := persistence.NewGormHouseRepository(db.DB)
	residentRepo := persistence.NewGormResidentRepository(db.DB)
	dueRepo := persistence.NewGormDueRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)
	anchorRepo := persistence.NewGormMonthlyBalanceRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB)
	ledger := persistence.NewGormLedger(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Application services
	duesConfig := appdues.Config{
		Tariff: dues.Tariff{
			OccupiedRate:    cfg.Dues.OccupiedRate,
			VacantRate:      cfg.Dues.VacantRate,
			SharedMeterRate: cfg.Dues.SharedMeterRate,
		},
		DueDay: cfg.Dues.DueDay,
	}
	duesService := appdues.NewDuesService(houseRepo, dueRepo, paymentRepo, txScope, duesConfig, clock, financeMetrics, log)
	paymentService := appdues.NewPaymentService(houseRepo, residentRepo, dueRepo, paymentRepo, txScope,
		proofs, idempotency, clock, financeMetrics, log)
	houseService := apphouse.NewHouseService(houseRepo, residentRepo, txScope, duesConfig, clock, log)
	importService := apphouse.NewImportService(txScope, duesConfig, clock, log)
	expenseService := appfinance.NewExpenseService(expenseRepo, proofs, clock, log)
	reportService := appfinance.NewReportService(ledger, expenseRepo, anchorRepo, log)
	reminderService := appreminder.NewReminderService(houseRepo, residentRepo, dueRepo, paymentRepo, settingRepo,
		sender, idempotency,
		appreminder.Config{
			Sender: reminder.Sender{
				Association: cfg.Messaging.Association,
				Signature:   cfg.Messaging.Signature,
			},
			CutoffDay: cfg.Dues.ReminderCutoffDay,
			SendPause: cfg.Messaging.SendPause,
		},
		clock, financeMetrics, log)

	// Recurring jobs
	if cfg.Scheduler.Enabled {
		runs, err := scheduler.DailyRunsFrom(cfg.Scheduler)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		jobs := scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), profiledExecutor{next: scheduledTasks(duesService, reminderService, log)}, log)
		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			if err := jobs.Stop(context.Background()); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewCronTrigger(runs, jobs, clock, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			if err := trigger.Stop(context.Background()); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.String("generate_time", cfg.Scheduler.GenerateTime),
			zap.String("sweep_time", cfg.Scheduler.SweepTime),
			zap.String("reminder_time", cfg.Scheduler.ReminderTime),
		)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if p, ok := idempotency.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = p.Ping
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)

	engine := router.NewEngine(router.EngineConfig{
		Logger: log,
		HTTP:   cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Metrics: middleware.NewHTTPMetrics("rt44"),
		System:  systemHandler,
	})

	// Transfer submissions are limited per client IP
	submitLimiter := middleware.NewRateLimiter(cfg.HTTP.SubmitRatePerMinute)
	stopCleanup := startLimiterCleanup(submitLimiter, log)
	defer stopCleanup()

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.Info)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(
			handler.NewHouseHandler(houseService, importService, cfg.HTTP.MaxUploadSize),
			handler.NewDuesHandler(duesService, paymentService, clock),
			handler.NewPaymentHandler(paymentService, cfg.HTTP.MaxUploadSize).
				SetSubmitLimit(middleware.RateLimit(submitLimiter)),
			handler.NewExpenseHandler(expenseService, cfg.HTTP.MaxUploadSize),
			handler.NewReportHandler(reportService, clock),
			handler.NewReminderHandler(reminderService, clock),
			systemRoutes,
		).
		Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newProofStorage returns the S3 store when a bucket is configured. Without
// one, proofs are kept in memory, which only suits local development.
func newProofStorage(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) appdues.ProofStorage {
	if cfg.Bucket == "" {
		log.Warn("Storage bucket not configured, keeping proofs in memory")
		return storage.NewStubStorage()
	}
	s3Storage, err := storage.NewS3Storage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize proof storage", zap.Error(err))
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		log.Fatal("Failed to prepare proof bucket", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
	}
	log.Info("Proof storage ready", zap.String("bucket", s3Storage.Bucket()))
	return s3Storage
}

// startLimiterCleanup evicts idle rate limiter entries every minute until the
// returned function is called
func startLimiterCleanup(limiter *middleware.RateLimiter, log *zap.Logger) func() {
	ticker := time.NewTicker(time.Minute)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := limiter.Cleanup(); n > 0 {
					log.Debug("Rate limiter entries evicted", zap.Int("count", n))
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
