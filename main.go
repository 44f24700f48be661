// Package main provides the main entry point for the load-shedding review service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gridops/loadshed-review/app/handlers"
	"github.com/gridops/loadshed-review/app/middleware"
	"github.com/gridops/loadshed-review/app/router"
	"github.com/gridops/loadshed-review/app/services"
	businessflow "github.com/gridops/loadshed-review/business_flow"
	"github.com/gridops/loadshed-review/config"
	"github.com/gridops/loadshed-review/models"
	"github.com/gridops/loadshed-review/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logWriter, closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting load-shedding review service (%s, version %s)...", cfg.Deployment.Environment, cfg.Deployment.Version)

	app, err := initializeApplication(cfg, logWriter)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	// Stop background workers and close connections
	for i := len(app.stopFuncs) - 1; i >= 0; i-- {
		app.stopFuncs[i]()
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to stdout, a rotated file, or both
func initializeLogging(cfg config.LoggingConfig) (io.Writer, func()) {
	flags := log.LstdFlags | log.LUTC
	if cfg.Level == "debug" {
		flags |= log.Lshortfile
	}
	log.SetFlags(flags)

	if cfg.Output == "stdout" {
		log.SetOutput(os.Stdout)
		return os.Stdout, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		log.Printf("Failed to create log directory, logging to stdout: %v", err)
		return os.Stdout, func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var w io.Writer = rotator
	if cfg.Output == "both" {
		w = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(w)

	return w, func() { _ = rotator.Close() }
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logWriter io.Writer) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(log.New(logWriter, "", log.LstdFlags|log.LUTC), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity issues.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires configuration, persistence, sessions, and HTTP handlers
func initializeApplication(cfg *config.Config, logWriter io.Writer) (*Application, error) {
	var stopFuncs []func()
	var healthChecks []router.HealthCheck

	rules, err := config.LoadRules(cfg.Review.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load review rules: %w", err)
	}

	var saveRepo repository.SimulationSaveRepository
	var uploadRepo repository.ReferenceUploadRepository
	if cfg.Database.Enabled {
		db, err := initializeDatabase(cfg.Database, logWriter)
		if err != nil {
			return nil, err
		}
		saveRepo = repository.NewSimulationSaveRepository(db)
		uploadRepo = repository.NewReferenceUploadRepository(db)

		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })
		healthChecks = append(healthChecks, router.HealthCheck{Name: "database", Check: sqlDB.PingContext})
	} else {
		log.Println("Database disabled; saved simulations and upload history are unavailable")
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second))
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
		healthChecks = append(healthChecks, router.HealthCheck{Name: "cache", Check: func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}})
	}

	tokenService, err := services.NewTokenService(
		cfg.Session.TokenTTL,
		cfg.Session.Issuer,
		cfg.Session.Audience,
		cfg.Session.TokenSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	store := businessflow.NewSessionStore(cfg.Session.MaxSessions, cfg.Session.IdleTimeout)
	stopFuncs = append(stopFuncs, store.StartJanitor(context.Background(), cfg.Session.JanitorInterval))

	reviewFlow := businessflow.NewReviewFlow(
		store,
		tokenService,
		rules,
		saveRepo,
		uploadRepo,
		rc,
		cfg.Review,
		&cfg.Cache,
	)

	sessionHandler := handlers.NewSessionHandler(reviewFlow)
	reviewHandler := handlers.NewReviewHandler(reviewFlow, cfg.Review.MaxUploadBytes)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	r := router.NewFiberRouter(cfg, logWriter, sessionHandler, reviewHandler, authMiddleware, healthChecks...)

	return &Application{
		router:    r,
		server:    r.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
