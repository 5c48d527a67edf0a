package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/makkenzo/keyauth-service/internal/handler/middleware"
	"github.com/makkenzo/keyauth-service/internal/metrics"
	"github.com/makkenzo/keyauth-service/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Auth        *service.AuthService
	Credentials *service.CredentialService
	Metrics     *metrics.Metrics
	// MetricsHandler serves /metrics; nil leaves the route out.
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
	// AdminKeySource picks the key the admin routes' API key guard checks.
	AdminKeySource middleware.KeySource
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger

	healthHandler := NewHealthHandler(logger, deps.HealthChecks...)
	authHandler := NewAuthHandler(deps.Auth, logger)
	credentialHandler := NewCredentialHandler(deps.Credentials, logger)

	tokenAuthMiddleware := middleware.TokenAuthMiddleware(deps.Auth, deps.Metrics, logger)
	adminKeySource := deps.AdminKeySource
	if adminKeySource == nil {
		adminKeySource = middleware.HeaderKeySource{}
	}
	apiKeyAuthMiddleware := middleware.APIKeyAuthMiddleware(deps.Credentials, adminKeySource, deps.Metrics, logger)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLoggerMiddleware(logger))

	if len(deps.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: deps.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders: []string{
				"Origin",
				"Content-Type",
				"Accept",
				"Authorization",
				middleware.APIKeyHeader,
			},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.Use(middleware.ErrorHandlerMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.GET("/healthz", healthHandler.Check)
	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/challenge", authHandler.Challenge)
		authRoutes.POST("/verify", authHandler.Verify)
		authRoutes.GET("/session", tokenAuthMiddleware, authHandler.Session)
	}

	adminRoutes := router.Group("/admin/api-keys")
	adminRoutes.Use(apiKeyAuthMiddleware, tokenAuthMiddleware)
	{
		adminRoutes.POST("", credentialHandler.Create)
		adminRoutes.GET("", credentialHandler.List)
		adminRoutes.GET("/:key", credentialHandler.Get)
		adminRoutes.PATCH("/:key/disable", credentialHandler.Disable)
		adminRoutes.DELETE("/:key", credentialHandler.Delete)
	}

	return router
}

// DefaultMetricsHandler exposes the default prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}
