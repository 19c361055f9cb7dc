package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classforge/school-api/api/swagger"
	"github.com/classforge/school-api/internal/handler"
	"github.com/classforge/school-api/internal/middleware"
	"github.com/classforge/school-api/internal/repository"
	"github.com/classforge/school-api/internal/router"
	"github.com/classforge/school-api/internal/service"
	"github.com/classforge/school-api/pkg/cache"
	"github.com/classforge/school-api/pkg/config"
	"github.com/classforge/school-api/pkg/database"
	"github.com/classforge/school-api/pkg/jobs"
	"github.com/classforge/school-api/pkg/logger"
	corsmiddleware "github.com/classforge/school-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classforge/school-api/pkg/middleware/requestid"
	"github.com/classforge/school-api/pkg/storage"
)

// @title School Fee Ledger API
// @version 1.0.0
// @description Multi-tenant school management API: subscription gating, fee ledger, promotion and graduation.
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The entitlement gate degrades to direct DB reads without redis.
		logr.Sugar().Warnw("redis unavailable, entitlement caching disabled", "error", err)
		redisClient = nil
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewFeeRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)

	metricsSvc := service.NewMetricsService()
	entitlementSvc := service.NewEntitlementService(tenantRepo, redisClient, cfg.Entitlement.CacheTTL, metricsSvc, logr)
	authSvc := service.NewAuthService(userRepo, userRepo, cfg.JWT, logr)
	feeSvc := service.NewFeeService(feeRepo, classRepo, studentRepo, academicRepo, userRepo, metricsSvc, logr, exportStore, signer)
	promotionSvc := service.NewPromotionService(promotionRepo, classRepo, academicRepo, userRepo, metricsSvc, logr)
	academicSvc := service.NewAcademicService(academicRepo, userRepo, logr)
	tenantSvc := service.NewTenantService(tenantRepo, entitlementSvc, userRepo, logr)

	maintenanceQueue := jobs.NewQueue("fee-maintenance", func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(handler.GenerateMissingPayload)
		if !ok {
			return fmt.Errorf("unexpected payload for job %s", job.ID)
		}
		result, err := feeSvc.GenerateMissing(ctx, payload.TenantID, payload.ActorID)
		if err != nil {
			return err
		}
		logr.Info("queued fee maintenance run finished",
			zap.String("job_id", job.ID),
			zap.String("tenant_id", payload.TenantID),
			zap.Int64("records_created", result.RecordsCreated))
		return nil
	}, jobs.QueueConfig{
		Workers:    cfg.Maintenance.Workers,
		BufferSize: cfg.Maintenance.BufferSize,
		MaxRetries: cfg.Maintenance.MaxRetries,
		RetryDelay: cfg.Maintenance.RetryDelay,
		Logger:     logr,
	})
	maintenanceQueue.Start(context.Background())
	defer maintenanceQueue.Stop()

	if cfg.Exports.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for range ticker.C {
				removed, err := exportStore.CleanupOlderThan(cfg.Exports.SignedURLTTL)
				if err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					logr.Info("expired statement exports removed", zap.Int("count", len(removed)))
				}
			}
		}()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	router.Register(r, cfg.APIPrefix, router.Dependencies{
		Auth:         handler.NewAuthHandler(authSvc),
		FeeStructure: handler.NewFeeStructureHandler(feeSvc),
		FeeRecords:   handler.NewFeeRecordHandler(feeSvc, maintenanceQueue, exportStore, signer),
		Promotion:    handler.NewPromotionHandler(promotionSvc),
		Academic:     handler.NewAcademicHandler(academicSvc),
		Tenants:      handler.NewTenantHandler(tenantSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc, db),
		AuthService:  authSvc,
		Entitlements: entitlementSvc,
		Users:        userRepo,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
