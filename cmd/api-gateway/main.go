package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/compliance-docs-api/api/swagger"
	"github.com/noah-isme/compliance-docs-api/internal/handler"
	"github.com/noah-isme/compliance-docs-api/internal/infra/supabase"
	"github.com/noah-isme/compliance-docs-api/internal/models"
	"github.com/noah-isme/compliance-docs-api/internal/repository"
	"github.com/noah-isme/compliance-docs-api/internal/service"
	"github.com/noah-isme/compliance-docs-api/pkg/cache"
	"github.com/noah-isme/compliance-docs-api/pkg/config"
	"github.com/noah-isme/compliance-docs-api/pkg/database"
	"github.com/noah-isme/compliance-docs-api/pkg/jobs"
	"github.com/noah-isme/compliance-docs-api/pkg/logger"
	"github.com/noah-isme/compliance-docs-api/pkg/storage"
	"github.com/noah-isme/compliance-docs-api/pkg/tracing"
)

// @title Compliance Docs API
// @version 1.0.0
// @description Document control and compliance tracking for companies, projects and their controlled documents.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const localDownloadPath = "/files/download"

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing, cfg.Env)
	if err != nil {
		logr.Sugar().Fatalw("failed to init tracing", "error", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var supa *supabase.Client
	if cfg.Supabase.URL != "" {
		supa, err = supabase.NewClient(nil, cfg.Supabase, logr.Named("supabase"))
		if err != nil {
			logr.Sugar().Fatalw("failed to init supabase client", "error", err)
		}
	}

	files, local, err := newFileStore(ctx, cfg, supa)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file store", "driver", cfg.Storage.Driver, "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	documentRepo := repository.NewDocumentRepository(db, models.TrackDocument)
	formatRepo := repository.NewDocumentRepository(db, models.TrackRecord)
	entryRepo := repository.NewRecordEntryRepository(db)

	identityCfg := service.IdentityConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
		RemoteVerify: cfg.Auth.RemoteVerify,
	}
	identitySvc := service.NewIdentityService(userRepo, nil, identityCfg, logr.Named("identity"))
	if supa != nil {
		identitySvc = service.NewIdentityService(userRepo, supa, identityCfg, logr.Named("identity"))
	}

	docCfg := service.DocumentServiceConfig{
		ExpiringSoonDays: cfg.Compliance.ExpiringSoonDays,
		MaxFileSize:      cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Storage.AllowedMIMEs,
		URLTTL:           cfg.Storage.SignedURLTTL,
	}

	companySvc := service.NewCompanyService(companyRepo, auditRepo, cacheSvc, validate, logr)
	projectSvc := service.NewProjectService(projectRepo, companyRepo, userRepo, auditRepo, cacheSvc, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo, auditRepo, cacheSvc, validate, logr)
	userSvc := service.NewUserService(userRepo, companyRepo, auditRepo, cacheSvc, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, categoryRepo, projectSvc, files, auditRepo, cacheSvc, metricsSvc, validate, logr.Named("documents"), docCfg)
	formatSvc := service.NewDocumentService(formatRepo, categoryRepo, projectSvc, files, auditRepo, cacheSvc, metricsSvc, validate, logr.Named("record_formats"), docCfg)
	entrySvc := service.NewRecordEntryService(entryRepo, formatRepo, projectSvc, files, auditRepo, cacheSvc, validate, logr.Named("record_entries"), docCfg)
	expirationSvc := service.NewExpirationService(auditRepo, cacheSvc, metricsSvc, logr.Named("expiration"), documentRepo, formatRepo)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Projects:   projectSvc,
		Documents:  documentRepo,
		Formats:    formatRepo,
		Categories: categoryRepo,
		Entries:    entryRepo,
		Cache:      cacheSvc,
		Logger:     logr.Named("dashboard"),
		Config: service.DashboardServiceConfig{
			CacheTTL:         cfg.Dashboard.CacheTTL,
			ExpiringSoonDays: cfg.Compliance.ExpiringSoonDays,
		},
	})
	reportSvc := service.NewReportService(projectSvc, documentRepo, formatRepo, categoryRepo, validate, logr.Named("reports"), cfg.Compliance.ExpiringSoonDays)
	auditSvc := service.NewAuditService(auditRepo)

	var reconcileQueue *jobs.Queue
	var reconcileScheduler *jobs.Scheduler
	if cfg.Compliance.ReconcileEnabled {
		reconcileQueue = jobs.NewQueue("expiration", expirationSvc.HandleJob, jobs.QueueConfig{
			Workers:    1,
			BufferSize: 4,
			MaxRetries: cfg.Compliance.WorkerRetries,
			RetryDelay: 30 * time.Second,
			Logger:     logr.Named("jobs"),
		})
		reconcileQueue.Start(ctx)
		reconcileScheduler = jobs.NewScheduler(reconcileQueue, service.JobTypeExpirationReconcile, cfg.Compliance.ReconcileInterval, logr.Named("scheduler"))
		reconcileScheduler.Start(ctx)
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	handlers := handler.Handlers{
		Companies:     handler.NewCompanyHandler(companySvc),
		Projects:      handler.NewProjectHandler(projectSvc),
		Categories:    handler.NewCategoryHandler(categorySvc),
		Users:         handler.NewUserHandler(userSvc),
		Documents:     handler.NewDocumentHandler(documentSvc),
		RecordFormats: handler.NewDocumentHandler(formatSvc),
		RecordEntries: handler.NewRecordEntryHandler(entrySvc),
		Dashboard:     handler.NewDashboardHandler(dashboardSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Admin:         handler.NewAdminHandler(expirationSvc, auditSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc, checks),
	}
	if local != nil {
		handlers.Files = handler.NewFileHandler(local)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config: handler.RouterConfig{
			APIPrefix:      cfg.APIPrefix,
			ServiceName:    cfg.Tracing.ServiceName,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			EnableDocs:     cfg.Env != config.EnvProduction,
			MaxUploadBytes: cfg.Storage.MaxFileSizeBytes,
		},
		Handlers: handlers,
		Auth:     identitySvc,
		Metrics:  metricsSvc,
		Audit:    auditRepo,
		Logger:   logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	if reconcileScheduler != nil {
		reconcileScheduler.Stop()
		reconcileQueue.Stop()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logr.Warn("tracer shutdown failed", zap.Error(err))
	}
}

// newFileStore picks the configured backend. local is non-nil only for the
// filesystem driver, whose signed links are served by this process.
func newFileStore(ctx context.Context, cfg *config.Config, supa *supabase.Client) (storage.FileStore, *storage.LocalStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageMinio:
		store, err := storage.NewMinioStorage(cfg.Storage.Minio)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.StorageSupabase:
		if supa == nil {
			return nil, nil, errors.New("supabase storage requires SUPABASE_URL")
		}
		return supabase.NewStorage(supa), nil, nil
	case config.StorageLocal, "":
		signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
		store, err := storage.NewLocalStorage(cfg.Storage.LocalDir, signer, localDownloadPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
