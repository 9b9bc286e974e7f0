package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ledgerapp "github.com/fleetrent/backend/internal/application/ledger"
	reminderapp "github.com/fleetrent/backend/internal/application/reminder"
	"github.com/fleetrent/backend/internal/domain/reminder"
	"github.com/fleetrent/backend/internal/infrastructure/cache"
	"github.com/fleetrent/backend/internal/infrastructure/config"
	"github.com/fleetrent/backend/internal/infrastructure/event"
	"github.com/fleetrent/backend/internal/infrastructure/logger"
	"github.com/fleetrent/backend/internal/infrastructure/persistence"
	"github.com/fleetrent/backend/internal/infrastructure/scheduler"
	"github.com/fleetrent/backend/internal/infrastructure/telemetry"
	"github.com/fleetrent/backend/internal/interfaces/http/handler"
	"github.com/fleetrent/backend/internal/interfaces/http/middleware"
	"github.com/fleetrent/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Fleet Rental Ledger API
//	@version		1.0
//	@description	Back-office ledger and payment allocation engine for fleet rental contracts

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting fleet rental ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize OpenTelemetry tracing
	tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 10*time.Second)
	tracerProvider, err := telemetry.NewTracerProvider(tracerCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	tracerCancel()
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register database query tracing
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	chargeRepo := persistence.NewGormChargeRepository(db)
	paymentRepo := persistence.NewGormPaymentRepository(db)
	reminderEventRepo := persistence.NewGormReminderEventRepository(db)
	schedulerJobRepo := scheduler.NewSchedulerJobRepository(db.DB)

	// In-process event bus for post-commit domain events
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eventBus.Stop(stopCtx)
	}()

	// Audit listeners: every ledger and reminder event leaves a log line
	eventBus.Subscribe(event.NewSettlementAuditHandler(log))
	eventBus.Subscribe(event.NewReminderAuditHandler(log))

	// Balance cache: Redis when enabled, in-process fallback otherwise
	var balanceCache ledgerapp.BalanceCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisBalanceCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("Redis unavailable, using in-memory balance cache", zap.Error(err))
			balanceCache = cache.NewInMemoryBalanceCache(cache.WithInMemoryLogger(log))
		} else {
			balanceCache = redisCache
			log.Info("Redis balance cache connected")
		}
	} else {
		balanceCache = cache.NewInMemoryBalanceCache(cache.WithInMemoryLogger(log))
	}

	// Initialize application services
	chargeService := ledgerapp.NewChargeService(chargeRepo, balanceCache,
		ledgerapp.WithChargeEventPublisher(eventBus))
	paymentService := ledgerapp.NewPaymentService(
		paymentRepo,
		chargeRepo,
		db,
		ledgerapp.WithBalanceCache(balanceCache),
		ledgerapp.WithEventPublisher(eventBus),
	)
	balanceService := ledgerapp.NewBalanceService(chargeRepo, paymentRepo, balanceCache)

	reminderPolicy := reminder.Policy{
		UpcomingEnabled:       cfg.Reminder.UpcomingEnabled,
		DueEnabled:            cfg.Reminder.DueEnabled,
		OverdueEnabled:        cfg.Reminder.OverdueEnabled,
		MaxOverdueReminders:   cfg.Reminder.MaxOverdueReminders,
		RespectCreditCoverage: cfg.Reminder.RespectCreditCoverage,
	}
	if err := reminderPolicy.Validate(); err != nil {
		log.Fatal("Invalid reminder policy", zap.Error(err))
	}
	reminderService := reminderapp.NewService(
		chargeRepo,
		paymentRepo,
		reminderEventRepo,
		reminderPolicy,
		reminderapp.WithEventPublisher(eventBus),
		reminderapp.WithTransactionManager(db),
	)

	// Daily reminder scheduler
	cronHour, cronMinute := cfg.Scheduler.RunAt()
	cronScheduler := scheduler.NewReminderCronScheduler(
		scheduler.ReminderCronSchedulerConfig{
			Enabled:    cfg.Scheduler.Enabled,
			CronHour:   cronHour,
			CronMinute: cronMinute,
			Location:   cfg.Scheduler.Location(),
			JobTimeout: cfg.Scheduler.JobTimeout,
		},
		reminderService,
		chargeRepo,
		schedulerJobRepo,
		log,
	)
	if cfg.Scheduler.Enabled {
		if err := cronScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reminder scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = cronScheduler.Stop(stopCtx)
		}()
	}

	// Initialize handlers
	chargeHandler := handler.NewChargeHandler(chargeService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	contractHandler := handler.NewContractHandler(balanceService)
	reminderHandler := handler.NewReminderHandler(reminderService)
	schedulerHandler := handler.NewSchedulerHandler(cronScheduler)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - OpenTelemetry spans
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Ledger domain (charges, payments, contract balances)
	ledgerRoutes := router.NewDomainGroup("ledger", "")
	ledgerRoutes.POST("/charges", chargeHandler.Create)
	ledgerRoutes.GET("/charges", chargeHandler.List)
	ledgerRoutes.GET("/charges/:id", chargeHandler.GetByID)
	ledgerRoutes.POST("/charges/:id/cancel", chargeHandler.Cancel)

	ledgerRoutes.POST("/payments", paymentHandler.Record)
	ledgerRoutes.GET("/payments", paymentHandler.List)
	ledgerRoutes.GET("/payments/:id", paymentHandler.GetByID)

	ledgerRoutes.GET("/contracts/balances", contractHandler.ListBalances)
	ledgerRoutes.GET("/contracts/:id/balance", contractHandler.GetBalance)
	ledgerRoutes.GET("/contracts/:id/ledger", contractHandler.GetLedger)

	// Reminder domain (events, preview, manual runs)
	reminderRoutes := router.NewDomainGroup("reminders", "/reminders")
	reminderRoutes.GET("", reminderHandler.List)
	reminderRoutes.GET("/preview", reminderHandler.Preview)
	reminderRoutes.POST("/run", reminderHandler.Run)

	// Scheduler introspection
	schedulerRoutes := router.NewDomainGroup("scheduler", "/scheduler")
	schedulerRoutes.GET("/status", schedulerHandler.Status)
	schedulerRoutes.POST("/trigger", schedulerHandler.Trigger)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(ledgerRoutes).
		Register(reminderRoutes).
		Register(schedulerRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		resp := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			resp["db_pool"] = gin.H{
				"open":   stats.OpenConnections,
				"in_use": stats.InUse,
				"idle":   stats.Idle,
				"waits":  stats.WaitCount,
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
