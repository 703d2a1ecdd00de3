package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authHandler "github.com/omsorg/care-api/internal/handler/auth"
	checklistHandler "github.com/omsorg/care-api/internal/handler/checklist"
	healthHandler "github.com/omsorg/care-api/internal/handler/health"
	logentryHandler "github.com/omsorg/care-api/internal/handler/logentry"
	patientHandler "github.com/omsorg/care-api/internal/handler/patient"
	planHandler "github.com/omsorg/care-api/internal/handler/plan"
	pushHandler "github.com/omsorg/care-api/internal/handler/push"
	reminderHandler "github.com/omsorg/care-api/internal/handler/reminder"
	"github.com/omsorg/care-api/internal/middleware"
	"github.com/omsorg/care-api/pkg/logger"
	"github.com/omsorg/care-api/pkg/metrics"
)

type Config struct {
	Timeout        time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORS           middleware.CORSConfig
}

type Router struct {
	engine *gin.Engine
}

type Handlers struct {
	Auth      *authHandler.Handler
	Health    *healthHandler.Handler
	Patient   *patientHandler.Handler
	LogEntry  *logentryHandler.Handler
	Checklist *checklistHandler.Handler
	Reminder  *reminderHandler.Handler
	Plan      *planHandler.Handler
	Push      *pushHandler.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	access *middleware.AccessMiddleware,
	handlers Handlers,
	log *logger.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.Timeout}),
		middleware.CORS(cfg.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	})
	engine.Use(rateLimiter.RateLimit())

	api := engine.Group("/api/v1")

	// Public surface.
	handlers.Health.RegisterRoutes(api)
	handlers.Auth.RegisterRoutes(api)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Everything below requires a session.
	protected := api.Group("")
	protected.Use(auth.Authenticate())
	handlers.Auth.RegisterProtectedRoutes(protected)
	handlers.Patient.RegisterRoutes(protected)
	handlers.Push.RegisterRoutes(protected)

	// Per-patient collections behind the access check.
	scoped := protected.Group("/patients/:patientId")
	scoped.Use(access.RequirePatientAccess())
	handlers.Patient.RegisterScopedRoutes(scoped)
	handlers.LogEntry.RegisterScopedRoutes(scoped)
	handlers.Checklist.RegisterScopedRoutes(scoped)
	handlers.Reminder.RegisterScopedRoutes(scoped)
	handlers.Plan.RegisterScopedRoutes(scoped)

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(port int) error {
	return r.engine.Run(fmt.Sprintf(":%d", port))
}
