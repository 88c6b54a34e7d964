package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusetu/school-onboard-api/internal/repository"
	"github.com/edusetu/school-onboard-api/internal/router"
	"github.com/edusetu/school-onboard-api/internal/service"
	"github.com/edusetu/school-onboard-api/pkg/cache"
	"github.com/edusetu/school-onboard-api/pkg/config"
	"github.com/edusetu/school-onboard-api/pkg/database"
	"github.com/edusetu/school-onboard-api/pkg/jobs"
	"github.com/edusetu/school-onboard-api/pkg/logger"
	"github.com/edusetu/school-onboard-api/pkg/mailer"
	"github.com/edusetu/school-onboard-api/pkg/storage"
)

// @title School Onboard API
// @version 1.0.0
// @description Registration, teacher management and class roster submission service
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional: the roster service degrades to uncached reads.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	uploads, err := storage.NewLocalStorage(cfg.Roster.ImportArchiveDir)
	if err != nil {
		logr.Sugar().Warnw("import archive disabled", "error", err)
		uploads = nil
	} else {
		go sweepImportArchive(uploads, cfg.Roster.ImportArchiveTTL, logr)
	}

	userRepo := repository.NewUserRepository(db)
	principalRepo := repository.NewPrincipalRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	historyRepo := repository.NewEditHistoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	authService := service.NewAuthService(userRepo, principalRepo, schoolRepo, teacherRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	mailQueue := mailer.NewAsync(mailer.New(cfg.SMTP), jobs.QueueConfig{Workers: 2, Logger: logr})
	mailQueue.Start(context.Background())
	defer mailQueue.Stop()

	registrationService := service.NewRegistrationService(registrationRepo, principalRepo, userRepo,
		mailQueue, validate, logr, cfg.Registration.NotifyEnabled)
	teacherService := service.NewTeacherService(teacherRepo, studentRepo, validate, logr, cfg.Roster.CodeMintAttempts)
	rosterService := service.NewRosterService(studentRepo, historyRepo, userRepo, cacheRepo, validate, logr, service.RosterConfig{
		CacheTTL:         cfg.Roster.CacheTTL,
		MaxImportRows:    cfg.Roster.MaxImportRows,
		CodeMintAttempts: cfg.Roster.CodeMintAttempts,
	})

	engine := router.New(router.Dependencies{
		Config:       cfg,
		Logger:       logr,
		AuthService:  authService,
		Registration: registrationService,
		Teachers:     teacherService,
		Rosters:      rosterService,
		Metrics:      metrics,
		Users:        userRepo,
		Uploads:      uploads,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := engine.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

// sweepImportArchive prunes archived import uploads past their retention TTL.
func sweepImportArchive(uploads *storage.LocalStorage, ttl time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		deleted, err := uploads.CleanupOlderThan(ttl)
		if err != nil {
			logr.Sugar().Warnw("import archive cleanup failed", "error", err)
			continue
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("import archive cleaned", "deleted", len(deleted))
		}
	}
}
