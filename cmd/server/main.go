// Command dl-server starts the download entitlement HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/filemart/downloads/internal/cache"
	"github.com/filemart/downloads/internal/config"
	"github.com/filemart/downloads/internal/migrate"
	"github.com/filemart/downloads/internal/repository/postgres"
	httpserver "github.com/filemart/downloads/internal/server/http"
	"github.com/filemart/downloads/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and serves the grant API.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	var entCache cache.EntitlementCache = cache.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(cfg.RedisURL)
		if err != nil {
			logger.Fatal("cache.Connect", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		entCache = cache.NewRedis(rdb, cfg.CacheTTL)
	}

	// Repositories
	packageRepo := postgres.NewPackageRepo(db)
	ledgerRepo := postgres.NewLedgerRepo(db)
	deviceRepo := postgres.NewDeviceRepo(db)
	fileRepo := postgres.NewFileRepo(db)
	purchaseRepo := postgres.NewPurchaseRepo(db)

	// Services
	tokenSvc := service.NewTokenService(ledgerRepo, fileRepo, entCache, cfg.HandleTTL)
	packageSvc := service.NewPackageService(packageRepo, ledgerRepo, entCache)
	deviceSvc := service.NewDeviceService(packageRepo, deviceRepo)
	grantSvc := service.NewGrantService(fileRepo, packageRepo, ledgerRepo, deviceRepo, purchaseRepo, tokenSvc, entCache)

	handler := httpserver.New(grantSvc, tokenSvc, packageSvc, deviceSvc, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewRouter(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
