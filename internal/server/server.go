package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/aman-churiwal/quota-gateway/internal/circuitbreaker"
	"github.com/aman-churiwal/quota-gateway/internal/config"
	"github.com/aman-churiwal/quota-gateway/internal/handler"
	"github.com/aman-churiwal/quota-gateway/internal/healthcheck"
	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/metrics"
	"github.com/aman-churiwal/quota-gateway/internal/middleware"
	"github.com/aman-churiwal/quota-gateway/internal/ratelimit"
	"github.com/aman-churiwal/quota-gateway/internal/service"
	"github.com/aman-churiwal/quota-gateway/internal/usage"
)

// Deps are the external collaborators of the gateway. Plans and Keys are normally the
// postgres repositories, Counter the Redis client.
type Deps struct {
	Config  *config.Config
	Logger  logging.FieldLogger
	Plans   service.PlanStore
	Keys    service.APIKeyStore
	Counter redis.Scripter
	// Probes feed /ready.
	Probes   []healthcheck.Dependency
	Registry *prometheus.Registry
	Clock    clockwork.Clock
}

type Server struct {
	router     *gin.Engine
	config     *config.Config
	log        logging.FieldLogger
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	breaker    *circuitbreaker.CircuitBreaker
	tracker    *usage.Tracker
	checker    *healthcheck.Checker
	admission  gin.HandlerFunc
	adminAuth  gin.HandlerFunc
	plans      *handler.PlanHandler
	apiKeys    *handler.APIKeyHandler
	system     *handler.SystemHandler
	httpServer *http.Server
}

func New(deps Deps) *Server {
	cfg := deps.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	log := deps.Logger

	m := metrics.NewCollector(metrics.Namespace)
	m.MustRegister(registry)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	breaker := circuitbreaker.New(circuitbreaker.Config{
		MaxFailures: cfg.RateLimit.BreakerMaxFailures,
		Timeout:     cfg.RateLimit.BreakerOpenTimeout,
		Clock:       clock,
		OnStateChange: func(from, to circuitbreaker.State) {
			m.SetBreakerState(int(to))
			log.Warn("counter store circuit breaker changed state",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	})

	planService := service.NewPlanService(deps.Plans, deps.Keys)
	apiKeyService := service.NewAPIKeyService(deps.Keys, deps.Plans)
	adminAuth := service.NewAdminAuthService(cfg.Admin)

	tracker := usage.NewTracker(deps.Keys, usage.Config{
		QueueSize:        cfg.Usage.QueueSize,
		Workers:          cfg.Usage.Workers,
		CoalesceInterval: cfg.Usage.CoalesceInterval,
		WriteTimeout:     cfg.Database.QueryTimeout,
	}, clock, log.With(logging.String("component", "usage")), m)

	checker := healthcheck.NewChecker(healthcheck.Config{
		Dependencies: deps.Probes,
		Clock:        clock,
	}, log.With(logging.String("component", "healthcheck")))

	counter := ratelimit.NewGuardedCounter(
		ratelimit.NewRedisCounter(deps.Counter),
		breaker,
		cfg.Redis.OpTimeout,
		m,
	)

	s := &Server{
		router:   gin.New(),
		config:   cfg,
		log:      log,
		registry: registry,
		metrics:  m,
		breaker:  breaker,
		tracker:  tracker,
		checker:  checker,
		admission: middleware.RateLimit(middleware.RateLimitConfig{
			ProtectedPrefix: cfg.Server.ProtectedPrefix,
			Resolver:        apiKeyService,
			Limits:          ratelimit.NewPlanCache(deps.Plans, clock, m),
			Counter:         counter,
			Usage:           tracker,
			FailOpen:        cfg.RateLimit.FailureMode == config.FailOpen,
			Clock:           clock,
			Metrics:         m,
		}),
		adminAuth: middleware.RequireAdmin(adminAuth),
		plans:     handler.NewPlanHandler(planService),
		apiKeys:   handler.NewAPIKeyHandler(apiKeyService),
		system:    handler.NewSystemHandler(breaker, checker, planService, apiKeyService, clock),
	}

	s.setupMiddleware()
	s.setupRoutes()

	// Built up front so Shutdown never races with Run
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger(s.log))
	s.router.Use(middleware.Recovery())
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderAPIKey, middleware.HeaderRequestID},
		ExposeHeaders: []string{
			middleware.HeaderRateLimitLimit,
			middleware.HeaderRateLimitRemaining,
			middleware.HeaderRateLimitReset,
			middleware.HeaderRetryAfter,
			middleware.HeaderRequestID,
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	s.router.Use(s.admission)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.system.Health)
	s.router.GET("/ready", s.system.Ready)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	protected := s.router.Group(s.config.Server.ProtectedPrefix)
	{
		protected.GET("/hello", handler.Hello)
		protected.GET("/search", handler.Search)
		protected.POST("/export", handler.Export)
	}

	admin := s.router.Group("/admin", s.adminAuth)
	{
		admin.GET("/status", s.system.Status)

		admin.POST("/plans", s.plans.Create)
		admin.GET("/plans", s.plans.List)
		admin.GET("/plans/:id", s.plans.Get)
		admin.PATCH("/plans/:id", s.plans.Update)
		admin.DELETE("/plans/:id", s.plans.Delete)

		admin.POST("/api-keys", s.apiKeys.Create)
		admin.GET("/api-keys", s.apiKeys.List)
		admin.GET("/api-keys/:id", s.apiKeys.Get)
		admin.PATCH("/api-keys/:id", s.apiKeys.Update)
		admin.DELETE("/api-keys/:id", s.apiKeys.Delete)

		admin.GET("/system/breaker", s.system.CircuitBreakerStatus)
		admin.POST("/system/breaker/reset", s.system.ResetCircuitBreaker)
	}
}

// Starts the usage tracker and the dependency checker
func (s *Server) Start() {
	s.tracker.Start()
	s.checker.Start()
}

// Starts background work and serves HTTP on addr until Shutdown
func (s *Server) Run(addr string) error {
	s.Start()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.log.Info("starting quota gateway",
		logging.String("addr", ln.Addr().String()),
		logging.String("environment", s.config.Server.Environment),
		logging.String("protected_prefix", s.config.Server.ProtectedPrefix),
		logging.String("failure_mode", string(s.config.RateLimit.FailureMode)),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stops accepting requests, then drains the usage tracker and stops the dependency checker
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	drainCtx, cancel := context.WithTimeout(ctx, s.config.Usage.DrainTimeout)
	defer cancel()
	if err := s.tracker.Shutdown(drainCtx); err != nil {
		errs = append(errs, err)
	}

	s.checker.Stop()

	return errors.Join(errs...)
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
