package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/infrastructure/auth"
	"github.com/finhub/backend/internal/infrastructure/bank"
	"github.com/finhub/backend/internal/infrastructure/cache"
	"github.com/finhub/backend/internal/infrastructure/config"
	"github.com/finhub/backend/internal/infrastructure/event"
	"github.com/finhub/backend/internal/infrastructure/lock"
	"github.com/finhub/backend/internal/infrastructure/logger"
	"github.com/finhub/backend/internal/infrastructure/migration"
	"github.com/finhub/backend/internal/infrastructure/notification"
	"github.com/finhub/backend/internal/infrastructure/persistence"
	"github.com/finhub/backend/internal/infrastructure/scheduler"
	"github.com/finhub/backend/internal/infrastructure/storage"
	"github.com/finhub/backend/internal/infrastructure/telemetry"
	"github.com/finhub/backend/internal/interfaces/http/handler"
	"github.com/finhub/backend/internal/interfaces/http/middleware"
	"github.com/finhub/backend/internal/interfaces/http/router"
	"github.com/finhub/backend/migrations"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/finhub/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:generate swag init --v3.1 -g cmd/server/main.go -d ../../ -o ../../docs

//	@title			FinHub Origination API
//	@version		1.0
//	@description	Application lifecycle and partner bank synchronization for financial product applications.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logProvider, err := telemetry.NewLoggerProvider(rootCtx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log provider", zap.Error(err))
	}
	log = logProvider.Bridge(log, cfg.Telemetry.ServiceName, log.Level())
	zap.ReplaceGlobals(log)
	defer func() { _ = log.Sync() }()

	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting FinHub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	meter := meterProvider.Meter("github.com/finhub/backend")

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.NewDBTracing(cfg.Telemetry, log).Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBPoolMetrics(meter, sqlDB); err != nil {
		log.Warn("Failed to register database pool metrics", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrateUp(&cfg.Database, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Infrastructure adapters
	repos := persistence.NewGormRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	locker, closeLocker, err := lock.NewApplicationLocker(cfg.Redis, cfg.Sync, log)
	if err != nil {
		log.Fatal("Failed to initialize application locker", zap.Error(err))
	}
	defer func() { _ = closeLocker() }()

	objectStorage, err := storage.NewObjectStorage(rootCtx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	bankSystem, err := bank.NewBankSystem(&cfg.Bank, log)
	if err != nil {
		log.Fatal("Failed to initialize bank integration", zap.Error(err))
	}

	syncMetrics, err := telemetry.NewSyncMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize sync metrics", zap.Error(err))
	}

	// Application services
	appCfg := apporig.Config{
		MaxInfoRequestCycles: cfg.Sync.MaxInfoRequestCycles,
		StalledAfter:         cfg.Sync.StalledAfter,
		BankRequestTimeout:   cfg.Bank.RequestTimeout,
		ChatPageSize:         cfg.Chat.PageSize,
		MaxAttachmentBytes:   cfg.Chat.MaxAttachmentBytes,
		MaxDocumentBytes:     cfg.Storage.MaxDocumentSize,
		UploadURLExpiry:      cfg.Storage.UploadURLExpiry,
	}
	documents := apporig.NewDocumentStore(objectStorage, appCfg, log)
	bankSync := apporig.NewBankSyncGateway(bankSystem, appCfg, syncMetrics, log)
	chat := apporig.NewChatChannel(txScope, repos.ChatMessageRepo(), objectStorage, appCfg, log)
	applicationService := apporig.NewApplicationService(repos, txScope, locker, documents, bankSync, chat, appCfg, log)
	applicationService.SetMetrics(syncMetrics)

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	event.RegisterOriginationEvents(serializer)
	auditHandler := event.NewAuditLogHandler(serializer, log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)
	deliveryStore := cache.NewIdempotencyStore(cfg.Redis, log)
	defer func() { _ = deliveryStore.Close() }()
	notificationHandler := event.NewIdempotentHandler(
		apporig.NewNotificationHandler(repos.ApplicationRepo(), notification.NewLogNotifier(log), log),
		deliveryStore, log, event.WithHandlerName("notification"),
	)
	eventBus.Subscribe(notificationHandler, notificationHandler.EventTypes()...)
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	applicationService.SetEventPublisher(eventBus)

	// Bank status poller
	var poller *scheduler.BankStatusPoller
	if cfg.Scheduler.Enabled {
		poller, err = scheduler.NewBankStatusPoller(cfg.Scheduler, applicationService, log)
		if err != nil {
			log.Fatal("Failed to create bank status poller", zap.Error(err))
		}
		if err := poller.Start(rootCtx); err != nil {
			log.Fatal("Failed to start bank status poller", zap.Error(err))
		}
	}

	// Authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
		tokenBlacklist = auth.NewRedisTokenBlacklist(redisClient)
	}
	jwtMiddleware := middleware.JWTAuth(middleware.JWTConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		Logger:         log,
	})

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validator", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to initialize HTTP metrics", zap.Error(err))
	}
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.HTTP.CORSAllowOrigins)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(httpMetrics)

	engine.GET("/health", healthHandler(db))
	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, jwtMiddleware),
			ginSwagger.WrapHandler(swaggerFiles.Handler),
		)
	}

	maxUpload := max(cfg.Storage.MaxDocumentSize, cfg.Chat.MaxAttachmentBytes)
	router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithGroupMiddleware(jwtMiddleware, middleware.SpanEnricher()),
	).
		Register(handler.NewApplicationHandler(applicationService, maxUpload)).
		Setup()

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

	<-rootCtx.Done()
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if poller != nil {
		if err := poller.Stop(ctx); err != nil {
			log.Warn("Bank status poller did not stop cleanly", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler did not stop cleanly", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"log":    logProvider.Shutdown,
	} {
		if err := shutdown(ctx); err != nil {
			log.Warn("Telemetry provider shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// migrateUp applies the embedded migrations on a dedicated connection,
// since closing the migrator closes its database handle.
func migrateUp(cfg *config.DatabaseConfig, log *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		_ = sqlDB.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}

// healthHandler reports whether the database is reachable
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.For(c.Request.Context(), zap.L()).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
