package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountcmd "github.com/financialapp/account-service/internal/command"
	"github.com/financialapp/account-service/internal/config"
	"github.com/financialapp/account-service/internal/db"
	"github.com/financialapp/account-service/internal/handler"
	accountqry "github.com/financialapp/account-service/internal/query"
	"github.com/financialapp/account-service/internal/repository"
	"github.com/financialapp/account-service/shared/events"
	"github.com/financialapp/account-service/shared/middleware"
	redisClient "github.com/financialapp/account-service/shared/redis"
	"github.com/financialapp/account-service/shared/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "account-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger depends on the config, so this one goes to stderr directly
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := tracing.Init(ctx, cfg.OTLPEndpoint, serviceName)
	if err != nil {
		logger.Fatal("Failed to initialise tracing", zap.Error(err))
	}

	// Database connection (write store)
	conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if cfg.MigrationsEnabled {
		applied, err := db.ApplyMigrations(ctx, conn, db.Migrations())
		if err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations applied", zap.Strings("files", applied))
	}

	// Redis connection (read model store + event streaming)
	redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	refCache, err := repository.NewReferenceCache()
	if err != nil {
		logger.Fatal("Failed to create reference data cache", zap.Error(err))
	}
	defer refCache.Close()

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client)

	writeRepo := repository.NewAccountWriteRepository(conn)
	readRepo := repository.NewAccountReadRepository(conn, redis.Client, cfg.AccountViewTTL, cfg.CaseInsensitiveFilter, logger)
	typeRepo := repository.NewAccountTypeRepository(conn, refCache)
	userRepo := repository.NewUserRepository(conn, redis.Client, cfg.UserCacheTTL, logger)

	commandSvc := accountcmd.NewAccountCommandService(writeRepo, readRepo, publisher, logger)
	querySvc := accountqry.NewAccountQueryService(readRepo, typeRepo)
	userSvc := accountqry.NewUserQueryService(userRepo)
	userEvents := accountcmd.NewUserEventHandler(userRepo, logger)

	accountHandler := handler.NewAccountHandler(commandSvc, querySvc, logger)

	// Setup router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.TracingMiddleware(serviceName),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	accounts := router.Group("/account",
		middleware.AuthMiddleware(cfg.JWTSecret),
		middleware.CurrentUserMiddleware(userSvc, logger),
	)
	accountHandler.RegisterRoutes(accounts)

	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "account-service-group",
			Consumer: consumerName(),
			Stream:   events.UserEventsStream,
			Handler:  userEvents.HandleUserEvent,
			Logger:   logger,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Subscriber stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Account service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("Tracer shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.With(zap.String("service", serviceName))
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "account-consumer-1"
	}
	return "account-consumer-" + host
}
