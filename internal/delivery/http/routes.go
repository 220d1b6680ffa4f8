package http

import (
	"net/http"

	"github.com/carniceria-aranda/backend/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsExporter records requests and serves the collected metrics.
type MetricsExporter interface {
	RequestObserver
	Handler() http.Handler
}

// SetupRouter creates and configures the Gin router. exporter may be nil,
// in which case /metrics is not served.
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger, exporter MetricsExporter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger.Named("http"), exporter))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if exporter != nil {
		router.GET("/metrics", gin.WrapH(exporter.Handler()))
	}

	// Chat gateway webhook
	limiter := NewRateLimiter(cfg.RateLimit.PerIP)
	router.POST("/webhook", limiter.Middleware(), handler.Webhook)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware())
	{
		v1.POST("/extract", handler.Extract)
		v1.POST("/resolve", handler.Resolve)
		v1.POST("/time/normalize", handler.NormalizeTime)

		catalog := v1.Group("/catalog")
		{
			catalog.GET("", handler.Catalog)
			catalog.POST("/reload", handler.ReloadCatalog)
		}

		v1.GET("/orders/:id", handler.GetOrder)
	}

	return router
}
