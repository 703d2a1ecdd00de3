package main

import (
	"time"

	"github.com/omsorg/care-api/internal/config"
	"github.com/omsorg/care-api/internal/email"
	authHandler "github.com/omsorg/care-api/internal/handler/auth"
	checklistHandler "github.com/omsorg/care-api/internal/handler/checklist"
	healthHandler "github.com/omsorg/care-api/internal/handler/health"
	logentryHandler "github.com/omsorg/care-api/internal/handler/logentry"
	patientHandler "github.com/omsorg/care-api/internal/handler/patient"
	planHandler "github.com/omsorg/care-api/internal/handler/plan"
	pushHandler "github.com/omsorg/care-api/internal/handler/push"
	reminderHandler "github.com/omsorg/care-api/internal/handler/reminder"
	"github.com/omsorg/care-api/internal/middleware"
	"github.com/omsorg/care-api/internal/push"
	"github.com/omsorg/care-api/internal/repository/postgres"
	"github.com/omsorg/care-api/internal/router"
	"github.com/omsorg/care-api/internal/scheduler"
	accessService "github.com/omsorg/care-api/internal/service/access"
	authService "github.com/omsorg/care-api/internal/service/auth"
	checklistService "github.com/omsorg/care-api/internal/service/checklist"
	eventlogService "github.com/omsorg/care-api/internal/service/eventlog"
	patientService "github.com/omsorg/care-api/internal/service/patient"
	planService "github.com/omsorg/care-api/internal/service/plan"
	reminderService "github.com/omsorg/care-api/internal/service/reminder"
	"github.com/omsorg/care-api/internal/service/session"
	"github.com/omsorg/care-api/pkg/auth"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/messaging/redis"
	"github.com/omsorg/care-api/pkg/metrics"
	"github.com/omsorg/care-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load configuration")
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Fatal(err, "invalid timezone")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.Redis.URL}, &log.ZL)
	if err != nil {
		log.Fatal(err, "failed to connect to redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("care", "api")

	// Repositories.
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	accessRepo := postgres.NewAccessRequestRepository(db)
	logRepo := postgres.NewLogEntryRepository(db)
	reminderRepo := postgres.NewReminderRepository(db)
	checklistRepo := postgres.NewChecklistRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)

	// Services.
	fanout := session.NewFanout(broker, log)
	hasher := security.NewBcryptHasher(0)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	authSvc := authService.NewService(userRepo, hasher, jwtSvc, log)
	accessSvc := accessService.NewService(patientRepo, accessRepo, log)
	patientSvc := patientService.NewService(patientRepo, log)
	eventlogSvc := eventlogService.NewService(logRepo, fanout, loc, log)
	engine := checklistService.NewEngine(eventlogSvc, loc)
	checklistSvc := checklistService.NewService(checklistRepo, eventlogSvc, engine, fanout, log)
	reminderSvc := reminderService.NewService(reminderRepo, fanout, log)
	planSvc := planService.NewService(planRepo, reminderSvc, fanout, log)

	sender := push.NewFCMSender(cfg.Push.ServerKey, cfg.Push.Endpoint, log)
	mailer := email.NewSMTPService(cfg.Email, log)
	sched := scheduler.NewServerScheduler(
		patientRepo, reminderRepo, logRepo, tokenRepo, userRepo, checklistRepo,
		sender, mailer, m, log, loc, cfg.Scheduler,
	)

	// HTTP surface.
	authMW := middleware.NewAuthMiddleware(authSvc)
	accessMW := middleware.NewAccessMiddleware(accessSvc)

	r := router.NewRouter(authMW, accessMW, router.Handlers{
		Auth:      authHandler.NewHandler(authSvc),
		Health:    healthHandler.NewHandler(db),
		Patient:   patientHandler.NewHandler(patientSvc, accessSvc),
		LogEntry:  logentryHandler.NewHandler(eventlogSvc, loc),
		Checklist: checklistHandler.NewHandler(checklistSvc),
		Reminder:  reminderHandler.NewHandler(reminderSvc),
		Plan:      planHandler.NewHandler(planSvc, loc),
		Push:      pushHandler.NewHandler(tokenRepo, sender, sched, log),
	}, log, m, router.Config{
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		CORS:           middleware.DefaultCORSConfig(),
	})

	log.Info("starting api server", "port", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatal(err, "server exited")
	}
}
