package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	internalcoordinator "github.com/noah-isme/campus-scheduler/internal/coordinator"
	internalhandler "github.com/noah-isme/campus-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/campus-scheduler/internal/middleware"
	"github.com/noah-isme/campus-scheduler/internal/repository"
	"github.com/noah-isme/campus-scheduler/internal/service"
	"github.com/noah-isme/campus-scheduler/internal/timetable"
	"github.com/noah-isme/campus-scheduler/pkg/cache"
	"github.com/noah-isme/campus-scheduler/pkg/config"
	"github.com/noah-isme/campus-scheduler/pkg/database"
	"github.com/noah-isme/campus-scheduler/pkg/export"
	"github.com/noah-isme/campus-scheduler/pkg/jobs"
	"github.com/noah-isme/campus-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-scheduler/pkg/middleware/requestid"
	"github.com/noah-isme/campus-scheduler/pkg/storage"
)

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

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	// Auth: signup/login issue department-head or admin JWTs; everything
	// below the auth group requires one.
	userRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-scheduler",
		Audience:           []string{"campus-scheduler-clients"},
	})
	userSvc := service.NewUserService(userRepo, logr)
	authHandler := internalhandler.NewAuthHandler(authSvc, userSvc)

	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", authHandler.Signup)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.POST("/refresh", authHandler.Refresh)
	authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
	authRoutes.POST("/reset-password", authHandler.ResetPassword)
	protectedAuth := authRoutes.Group("")
	protectedAuth.Use(internalmiddleware.JWT(authSvc))
	protectedAuth.POST("/logout", authHandler.Logout)
	protectedAuth.POST("/change-password", authHandler.ChangePassword)
	protectedAuth.GET("/me", authHandler.Me)
	protectedAuth.GET("/validate", authHandler.Validate)

	// Repositories backing the six dept.* entities, the materialized
	// schedule grid, and the global coordinator's reserved-cell index.
	sectionRepo := repository.NewSectionRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	deptTimetableRepo := repository.NewDeptTimetableRepository(db)
	slotRepo := repository.NewScheduledSlotRepository(db)
	settingsRepo := repository.NewCoordinatorSettingsRepository(db)
	if err := settingsRepo.SeedDefaults(context.Background()); err != nil {
		logr.Sugar().Warnw("failed to seed default department priorities", "error", err)
	}

	sectionSvc := service.NewSectionService(sectionRepo, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, nil, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, nil, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, courseRepo, sectionRepo, teacherRepo, nil, logr)
	ruleSvc := service.NewRuleService(ruleRepo, nil, logr)

	coord := internalcoordinator.New(slotRepo, deptTimetableRepo, classroomRepo, assignmentRepo, teacherRepo, settingsRepo)
	if err := coord.Load(context.Background()); err != nil {
		logr.Sugar().Warnw("failed to preload global coordinator state", "error", err)
	}

	snapshotLoader := timetable.NewLoader(sectionRepo, teacherRepo, courseRepo, classroomRepo, assignmentRepo, ruleRepo)
	materializer := timetable.NewMaterializer(db, slotRepo, deptTimetableRepo)
	deptTimetableSvc := service.NewDeptTimetableService(
		deptTimetableRepo,
		slotRepo,
		snapshotLoader,
		materializer,
		coord,
		nil,
		logr,
		service.DeptTimetableConfig{SolveBudget: cfg.Scheduler.ProposalTTL},
	)

	deptHandler := internalhandler.NewDeptHandler(sectionSvc, teacherSvc, courseSvc, classroomSvc, assignmentSvc, ruleSvc, deptTimetableSvc)

	// admin.reports.* async rendering pipeline: render to a local signed
	// URL store, queue on a bounded worker pool, recover/clean up on boot.
	reportRepo := repository.NewReportRepository(db)
	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportCfg := service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL}
	exportSvc := service.NewExportService(coord, coord, fileStore, signer, exportCfg, logr, export.NewCSVExporter(), export.NewPDFExporter())
	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	workers := cfg.Reports.WorkerConcurrency
	if workers <= 0 {
		workers = 1
	}
	queueCfg := jobs.QueueConfig{
		Workers:    workers,
		BufferSize: workers * 4,
		MaxRetries: cfg.Reports.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr,
	}
	queueCtx, cancel := context.WithCancel(context.Background())
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, queueCfg)
	reportQueue.Start(queueCtx)
	defer func() {
		cancel()
		reportQueue.Stop()
	}()
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(queueCtx)
	reportSvc.StartCleanup(queueCtx)

	adminSvc := service.NewAdminService(db, coord, slotRepo, settingsRepo, deptTimetableRepo, deptTimetableSvc, logr, service.AdminServiceConfig{})
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("dashboard cache disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		adminSvc = adminSvc.WithDashboardCache(cache.NewStore(redisClient), 30*time.Second)
	}
	adminHandler := internalhandler.NewAdminHandler(adminSvc, reportSvc, exportSvc, settingsRepo)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))

	dept := secured.Group("/dept")
	dept.Use(internalmiddleware.DeptOrAdmin())
	dept.GET("/sections", deptHandler.ListSections)
	dept.POST("/sections", deptHandler.CreateSections)
	dept.GET("/teachers", deptHandler.ListTeachers)
	dept.POST("/teachers", deptHandler.CreateTeachers)
	dept.GET("/courses", deptHandler.ListCourses)
	dept.POST("/courses", deptHandler.CreateCourses)
	dept.GET("/classrooms", deptHandler.ListClassrooms)
	dept.POST("/classrooms", deptHandler.CreateClassrooms)
	dept.GET("/assignments", deptHandler.ListAssignments)
	dept.POST("/assignments", deptHandler.CreateAssignments)
	dept.GET("/rules", deptHandler.ListRules)
	dept.POST("/rules", deptHandler.CreateRules)
	dept.GET("/timetables", deptHandler.ListTimetables)
	dept.POST("/timetables/generate", deptHandler.GenerateTimetable)
	dept.GET("/timetables/:id/results", deptHandler.TimetableResults)

	admin := secured.Group("/admin")
	admin.Use(internalmiddleware.AdminOnly())
	admin.GET("/dashboard", adminHandler.Dashboard)
	admin.GET("/departments", adminHandler.Departments)
	admin.POST("/scheduler/initialize", adminHandler.InitializeScheduler)
	admin.POST("/conflicts/detect", adminHandler.DetectConflicts)
	admin.POST("/synchronize", adminHandler.Synchronize)
	admin.GET("/slots", adminHandler.GlobalSlots)
	admin.POST("/slots/reserve", adminHandler.ReserveSlots)
	admin.POST("/slots/release", adminHandler.ReleaseSlots)
	admin.GET("/resources/shared", adminHandler.SharedResources)
	admin.GET("/validate", adminHandler.ValidateConsistency)
	admin.POST("/timetables/bulk-regenerate", adminHandler.BulkRegenerate)
	admin.GET("/priorities", adminHandler.ListPriorities)
	admin.PUT("/priorities", adminHandler.SetPriority)
	admin.POST("/reports", adminHandler.CreateReport)
	admin.GET("/reports/:id", adminHandler.ReportStatus)
	admin.GET("/reports/download/:token", adminHandler.DownloadReport)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
