package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hostel-maintenance-api/api/swagger"
	"github.com/noah-isme/hostel-maintenance-api/internal/handler"
	"github.com/noah-isme/hostel-maintenance-api/internal/middleware"
	"github.com/noah-isme/hostel-maintenance-api/internal/repository"
	"github.com/noah-isme/hostel-maintenance-api/internal/service"
	"github.com/noah-isme/hostel-maintenance-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
	"github.com/noah-isme/hostel-maintenance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hostel-maintenance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hostel-maintenance-api/pkg/middleware/requestid"
	"github.com/noah-isme/hostel-maintenance-api/pkg/storage"
)

// @title Hostel Maintenance API
// @version 1.0.0
// @description Maintenance request tracking for hostel residents and administrators
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := buildApp(cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.exports != nil {
		go runExportCleanup(ctx, app.exports, cfg.Exports.CleanupTTL, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.File)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
}

type app struct {
	router  *gin.Engine
	exports *service.ExportService
}

func buildApp(cfg *config.Config, logr *zap.Logger) (*app, error) {
	metrics := service.NewMetricsService()

	store, err := repository.NewCSVStore(cfg.Storage.File, logr, repository.WithStoreObserver(metrics))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureStorage(context.Background()); err != nil {
		return nil, err
	}
	repo := repository.NewRequestRepository(store)

	validate := validator.New()
	requests := service.NewRequestService(repo, validate, logr, metrics)

	if cfg.Admin.PasswordHash == "" {
		logr.Warn("ADMIN_PASSWORD_HASH is empty; admin login is disabled")
	}
	auth := service.NewAuthService(
		service.NewBcryptAuthenticator(cfg.Admin.Username, cfg.Admin.PasswordHash),
		validate,
		logr,
		service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
		},
	)

	var exports *service.ExportService
	exportHandler := handler.NewExportHandler(nil)
	if cfg.Exports.Enabled {
		if err := checkExportDir(cfg.Exports.StorageDir, cfg.Storage.File); err != nil {
			return nil, err
		}
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exports = service.NewExportService(requests, files, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.CleanupTTL,
		}, logr, metrics)
		exportHandler = handler.NewExportHandler(exports)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.EnableGzip {
		r.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	r.Use(middleware.Metrics(metrics))

	registerRoutes(r, cfg, routeHandlers{
		requests: handler.NewRequestHandler(requests),
		auth:     handler.NewAuthHandler(auth),
		exports:  exportHandler,
		metrics:  handler.NewMetricsHandler(metrics, store, logr),
	}, auth)

	return &app{router: r, exports: exports}, nil
}

// checkExportDir rejects an export directory that holds the request file's
// directory, since export cleanup deletes inside it.
func checkExportDir(exportDir, storageFile string) error {
	exportAbs, err := filepath.Abs(exportDir)
	if err != nil {
		return fmt.Errorf("resolve EXPORTS_STORAGE_DIR: %w", err)
	}
	storageAbs, err := filepath.Abs(filepath.Dir(storageFile))
	if err != nil {
		return fmt.Errorf("resolve STORAGE_FILE: %w", err)
	}
	rel, err := filepath.Rel(exportAbs, storageAbs)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("EXPORTS_STORAGE_DIR %q must not contain the request storage directory %q", exportDir, filepath.Dir(storageFile)))
	}
	return nil
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, ttl time.Duration, logr *zap.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(); err != nil {
				logr.Warn("scheduled export cleanup failed", zap.Error(err))
			}
		}
	}
}
