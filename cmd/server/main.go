// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/database"
	"github.com/javajoker/insurance-backend/internal/i18n"
	"github.com/javajoker/insurance-backend/internal/router"
	"github.com/javajoker/insurance-backend/internal/services"
	"github.com/javajoker/insurance-backend/internal/store"
)

type backingStores interface {
	store.ApplicationStore
	store.TransactionLedger
	store.AuditLogStore
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db          *gorm.DB
		redisClient *redis.Client
		stores      backingStores
	)

	// Initialize database
	if cfg.Database.Driver == "postgres" {
		db, err = database.Initialize(cfg.Database)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize database")
		}
		defer database.Close(db)

		// Run database migrations
		if err := database.RunMigrations(db, cfg.ViewCounter.Driver == "postgres"); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
		stores = store.NewPostgresStore(db)
	} else {
		logrus.Warn("Using in-memory store, data is lost on restart")
		stores = store.NewMemoryStore()
	}

	var counters store.ViewCounterStore
	switch cfg.ViewCounter.Driver {
	case "redis":
		redisClient, err = database.InitializeRedis(ctx, cfg.Redis)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize redis")
		}
		defer redisClient.Close()
		counters = store.NewRedisViewCounterStore(redisClient, cfg.ViewCounter.KeyPrefix)
	case "postgres":
		counters = store.NewPostgresViewCounterStore(db)
	default:
		counters = store.NewMemoryViewCounterStore()
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	storageService, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	authorizer := services.NewRoleAuthorizer()
	notifier := services.NewNotificationService(cfg.Email)
	gateway := services.NewStripeGateway(cfg.Payment)

	applicationService := services.NewApplicationService(stores, stores, authorizer, notifier)
	paymentService := services.NewPaymentService(stores, stores, stores, gateway, authorizer, notifier, cfg.Payment)
	viewService := services.NewViewCounterService(counters)
	reportService := services.NewReportService(stores, stores, authorizer, storageService)

	if cfg.Reconciler.Enabled {
		go services.NewReconciler(stores, paymentService, cfg.Reconciler).Run(ctx)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(ctx, cfg, router.Dependencies{
		Applications: applicationService,
		Payments:     paymentService,
		Views:        viewService,
		Reports:      reportService,
		AuditLogs:    stores,
		Ready:        readinessCheck(db, redisClient),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetOutput(os.Stdout)
}

func readinessCheck(db *gorm.DB, redisClient *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if db != nil {
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis unavailable: %w", err)
			}
		}
		return nil
	}
}
