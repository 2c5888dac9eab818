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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/report-compliance-api/api/swagger"
	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/handler"
	"github.com/noah-isme/report-compliance-api/internal/middleware"
	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/internal/repository"
	"github.com/noah-isme/report-compliance-api/internal/service"
	"github.com/noah-isme/report-compliance-api/pkg/cache"
	"github.com/noah-isme/report-compliance-api/pkg/config"
	"github.com/noah-isme/report-compliance-api/pkg/database"
	"github.com/noah-isme/report-compliance-api/pkg/export"
	"github.com/noah-isme/report-compliance-api/pkg/jobs"
	"github.com/noah-isme/report-compliance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/report-compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/report-compliance-api/pkg/middleware/requestid"
	"github.com/noah-isme/report-compliance-api/pkg/storage"
)

// @title Report Compliance API
// @version 1.0.0
// @description Tracks which schools submitted which division reports, on time or late.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to apply schema", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, tables cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	app, err := buildApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Fatal("failed to build application", zap.Error(err))
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// noticeQueueBuffer bounds how many schools one overdue-notice dispatch can queue at once.
const noticeQueueBuffer = 2048

type application struct {
	router *gin.Engine
	queues []*jobs.Queue
}

func (a *application) shutdown() {
	for _, q := range a.queues {
		q.Stop()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	reportRepo := repository.NewReportRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	exportRepo := repository.NewExportJobRepository(db)

	var cacheStore service.CacheRepository
	cacheRepo := repository.NewCacheRepository(redisClient, "", logr)
	if redisClient != nil {
		cacheStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheStore, metrics, cfg.Cache.TablesTTL, logr, cfg.Cache.Enabled)

	tables := service.NewTablesService(service.TablesServiceParams{
		Schools:     schoolRepo,
		Reports:     reportRepo,
		Submissions: submissionRepo,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Logger:      logr,
		CacheTTL:    cfg.Cache.TablesTTL,
	})
	complianceSvc := service.NewComplianceService(service.ComplianceServiceParams{
		Tables: tables,
		Users:  userRepo,
		Clock:  compliance.NewClock(nil, cfg.Location()),
		Thresholds: compliance.Thresholds{
			PromptMinRate:    cfg.Rankings.PromptMinRate,
			PromptMinReports: cfg.Rankings.PromptMinReports,
			FrequentLateMin:  cfg.Rankings.FrequentLateMin,
		},
		Logger: logr,
	})

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "report-compliance-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	schoolSvc := service.NewSchoolService(schoolRepo, tables, userRepo, validate, logr)
	reportSvc := service.NewReportService(reportRepo, tables, userRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(service.SubmissionServiceParams{
		Repo:      submissionRepo,
		Schools:   schoolRepo,
		Reports:   reportRepo,
		Users:     userRepo,
		Tables:    tables,
		Audit:     userRepo,
		Validator: validate,
		Logger:    logr,
	})

	noticeQueue := jobs.NewQueue("overdue-notices", service.NewNoticeWorker(logr).Handle, jobs.QueueConfig{
		Workers:       cfg.Automation.WorkerConcurrency,
		BufferSize:    noticeQueueBuffer,
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
		MaxRetryDelay: time.Minute,
		Logger:        logr,
		OnGiveUp: func(job jobs.Job, err error) {
			logr.Error("overdue notice dropped", zap.String("job_id", job.ID), zap.Error(err))
		},
	})
	automationSvc := service.NewAutomationService(service.AutomationServiceParams{
		Compliance:        complianceSvc,
		Users:             userRepo,
		Queue:             noticeQueue,
		Signer:            storage.NewTokenSigner(cfg.Automation.ConfirmSecret, cfg.Automation.ConfirmTTL),
		Confirmations:     cacheRepo,
		Audit:             userRepo,
		Metrics:           metrics,
		Logger:            logr,
		SchedulerInterval: cfg.Automation.Interval,
	})

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	exportSvc := service.NewExportService(
		complianceSvc,
		store,
		storage.NewTokenSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Exports.SignedURLTTL},
		logr,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
	)
	exportWorker := service.NewExportWorker(exportRepo, exportSvc, metrics, cfg.Exports.WorkerRetries, logr)
	exportQueue := jobs.NewQueue("exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	exportJobs := service.NewExportJobService(exportRepo, exportQueue, exportSvc, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})

	metrics.TrackQueue(noticeQueue.Name(), noticeQueue.Stats)
	metrics.TrackQueue(exportQueue.Name(), exportQueue.Stats)
	noticeQueue.Start(ctx)
	exportQueue.Start(ctx)
	exportJobs.RecoverPendingJobs(ctx)
	exportJobs.StartCleanup(ctx)
	if cfg.Automation.SchedulerEnabled {
		automationSvc.StartScheduler(ctx)
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, middleware.LogFields))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.ResponseMeta())

	registerRoutes(r, cfg, routeHandlers{
		auth:        handler.NewAuthHandler(authSvc),
		users:       handler.NewUserHandler(userSvc),
		schools:     handler.NewSchoolHandler(schoolSvc),
		reports:     handler.NewReportHandler(reportSvc),
		submissions: handler.NewSubmissionHandler(submissionSvc),
		compliance:  handler.NewComplianceHandler(complianceSvc),
		automation:  handler.NewAutomationHandler(automationSvc),
		exports:     handler.NewExportHandler(exportJobs),
		metrics:     handler.NewMetricsHandler(metrics, checks),
	}, authSvc, userRepo)

	return &application{router: r, queues: []*jobs.Queue{noticeQueue, exportQueue}}, nil
}

type routeHandlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	schools     *handler.SchoolHandler
	reports     *handler.ReportHandler
	submissions *handler.SubmissionHandler
	compliance  *handler.ComplianceHandler
	automation  *handler.AutomationHandler
	exports     *handler.ExportHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers, authSvc *service.AuthService, audit middleware.AuditLogger) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleModerator)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleModerator, models.RoleSchool)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	api.GET("/export/:token", h.exports.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.POST("/auth/logout", h.auth.Logout)
	secured.POST("/auth/change-password", h.auth.ChangePassword)
	secured.GET("/auth/me", h.auth.Me)

	users := secured.Group("/users", admin)
	users.GET("", h.users.List)
	users.GET("/:id", h.users.Get)
	users.POST("", h.users.Create)
	users.PUT("/:id", h.users.Update)
	users.DELETE("/:id", h.users.Delete)

	secured.GET("/schools", anyone, h.schools.List)
	secured.GET("/schools/:id", anyone, h.schools.Get)
	secured.POST("/schools", staff, h.schools.Create)
	secured.PUT("/schools/:id", staff, h.schools.Update)
	secured.DELETE("/schools/:id", admin, h.schools.Delete)

	secured.GET("/reports", anyone, h.reports.List)
	secured.GET("/reports/:id", anyone, h.reports.Get)
	secured.POST("/reports", staff, h.reports.Create)
	secured.PUT("/reports/:id", staff, h.reports.Update)
	secured.DELETE("/reports/:id", admin, h.reports.Delete)

	secured.GET("/submissions", staff, h.submissions.List)
	secured.PUT("/submissions", staff, h.submissions.Record)
	secured.DELETE("/submissions/:schoolId/:reportId", staff, h.submissions.Delete)

	comp := secured.Group("/compliance")
	comp.GET("/overview", staff, h.compliance.Overview)
	comp.GET("/matrix", staff, h.compliance.Matrix)
	comp.GET("/export.csv", staff, middleware.Audit(audit, models.AuditActionComplianceExport, "compliance"), h.compliance.ExportCSV)
	comp.GET("/school", anyone, h.compliance.MySchool)
	comp.GET("/schools/:id", staff, h.compliance.School)
	comp.GET("/tagging", staff, h.compliance.Tagging)

	auto := secured.Group("/automation", admin)
	auto.POST("/simulate", h.automation.Simulate)
	auto.POST("/overdue-notices/preview", h.automation.PreviewNotices)
	auto.POST("/overdue-notices/dispatch", h.automation.DispatchNotices)

	secured.POST("/exports", staff, middleware.Audit(audit, models.AuditActionExportRequest, "exports"), h.exports.Create)
	secured.GET("/exports/:id", staff, h.exports.Status)

	secured.GET("/metrics/summary", admin, h.metrics.Summary)
}
