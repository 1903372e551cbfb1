package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"blog/api"
	apiblog "blog/api/blog"
	"blog/api/health"
	blogapp "blog/application/blog"
	"blog/cmd"
	"blog/config"
	"blog/domain/shared"
	"blog/infrastructure/persistence/mysql"
	"blog/infrastructure/persistence/retry"
	"blog/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Server startup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := parseConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env))

	// The outbox bus writes to the same database as the repositories,
	// so a connection is needed for either.
	var db *gorm.DB
	if cfg.Database.Type == "mysql" || cfg.Broker.Driver == "outbox" {
		db, err = cmd.OpenDatabase(cfg)
		if err != nil {
			return err
		}
	}

	repo, readRepo, err := cmd.BuildRepositories(cfg, db)
	if err != nil {
		return err
	}

	eventBus, closeBus, err := cmd.BuildEventBus(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build event bus: %w", err)
	}
	defer closeBus()

	logger.Info("Event bus ready", zap.String("driver", cfg.Broker.Driver))

	// With a database the service persists and publishes inside one
	// transaction, so the outbox bus commits atomically with the aggregate.
	var uow shared.UnitOfWork
	if db != nil {
		uow = mysql.NewUnitOfWork(db).WithRetry(retry.FromAppConfig(cfg))
	}

	postService := blogapp.NewApplicationService(repo, readRepo, eventBus, uow)

	var healthDB interface{}
	if db != nil {
		sqlDB, _ := db.DB()
		healthDB = sqlDB
	}
	healthController := health.NewController(cfg, healthDB)
	if checker, ok := eventBus.(interface {
		HealthCheck(ctx context.Context) error
	}); ok {
		healthController = healthController.WithBrokerCheck(checker.HealthCheck)
	}
	router := api.NewRouter(cfg,
		healthController,
		apiblog.NewController(postService),
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func parseConfigPath() string {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	return configPath
}
