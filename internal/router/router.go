package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicaviva/agenda-api/internal/handler/agenda"
	"github.com/clinicaviva/agenda-api/internal/handler/audit"
	"github.com/clinicaviva/agenda-api/internal/handler/client"
	"github.com/clinicaviva/agenda-api/internal/handler/finance"
	"github.com/clinicaviva/agenda-api/internal/handler/health"
	"github.com/clinicaviva/agenda-api/internal/handler/professional"
	"github.com/clinicaviva/agenda-api/internal/handler/stats"
	"github.com/clinicaviva/agenda-api/internal/middleware"
	"github.com/clinicaviva/agenda-api/pkg/auth"
)

type Handlers struct {
	Agenda       *agenda.Handler
	Client       *client.Handler
	Professional *professional.Handler
	Finance      *finance.Handler
	Stats        *stats.Handler
	Audit        *audit.Handler
	Health       *health.Handler
}

type Config struct {
	CORS         middleware.CORSConfig
	RateLimitRPS float64
	RateBurst    int
	Timeout      time.Duration
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   Config
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(authMW *middleware.AuthMiddleware, handlers Handlers, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     authMW,
		handlers: handlers,
		config:   config,
		metrics:  initRouterMetrics(),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		r.metricsMiddleware(),
		middleware.CORS(config.CORS),
	)

	rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateBurst)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/healthz", r.handlers.Health.Check)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	// Public routes
	public := api.Group("/public")
	public.Use(middleware.Timeout(r.config.Timeout))
	public.GET("/stats", r.handlers.Stats.GetPublicStats)

	// Admin panel
	admin := api.Group("")
	admin.Use(r.auth.Authenticate(), r.auth.RequireRole(auth.RoleAdmin))
	// The SSE stream keeps its connection open, so it mounts before the
	// timeout wraps the rest of the group.
	admin.GET("/agenda/stream", r.handlers.Agenda.Stream)
	admin.Use(middleware.Timeout(r.config.Timeout))
	r.setupAdminRoutes(admin)

	// Professional self-service panel
	me := api.Group("/me")
	me.Use(
		r.auth.Authenticate(),
		r.auth.RequireRole(auth.RoleProfessional),
		middleware.Timeout(r.config.Timeout),
	)
	me.GET("/agenda", r.handlers.Agenda.GetMyAgenda)
	me.GET("/finance/summary", r.handlers.Finance.GetMySummary)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/agenda", r.handlers.Agenda.GetAgenda)
	rg.POST("/agenda/cells", r.handlers.Agenda.SaveCell)
	rg.GET("/agenda/cells/:id", r.handlers.Agenda.GetCell)
	rg.DELETE("/agenda/cells/:id", r.handlers.Agenda.DeleteCell)
	rg.GET("/agenda/balances/clients/:id", r.handlers.Agenda.GetClientBalance)
	rg.GET("/agenda/balances/professionals/:id", r.handlers.Agenda.GetProfessionalBalance)

	clients := rg.Group("/clients")
	{
		clients.POST("", r.handlers.Client.Create)
		clients.GET("", r.handlers.Client.List)
		clients.GET("/:id", r.handlers.Client.Get)
		clients.PATCH("/:id", r.handlers.Client.Update)
		clients.DELETE("/:id", r.handlers.Client.Delete)
	}

	pros := rg.Group("/professionals")
	{
		pros.POST("", r.handlers.Professional.Create)
		pros.GET("", r.handlers.Professional.List)
		pros.GET("/:id", r.handlers.Professional.Get)
		pros.PATCH("/:id", r.handlers.Professional.Update)
		pros.DELETE("/:id", r.handlers.Professional.Delete)
		pros.PUT("/:id/clients/:clientId", r.handlers.Professional.AssociateClient)
		pros.DELETE("/:id/clients/:clientId", r.handlers.Professional.DissociateClient)
	}

	rg.GET("/finance/summary", r.handlers.Finance.GetSummary)
	rg.POST("/finance/appointments/:id", r.handlers.Finance.PostFinance)

	rg.GET("/audit", r.handlers.Audit.List)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics() *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
