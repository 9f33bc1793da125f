package api

import (
	"net/http"

	"llm-router/internal/llm-router/config"
	"llm-router/internal/llm-router/service"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine. metricsHandler is mounted at the
// configured metrics path when metrics are enabled.
func NewRouter(cfg *config.Config, routerService *service.RouterService, metricsHandler http.Handler) *gin.Engine {
	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware())
	router.Use(ErrorMiddleware())
	if cfg.Server.CORS.Enabled {
		router.Use(CORSMiddleware(cfg.Server.CORS))
	}

	handler := NewHandler(routerService)

	if cfg.Metrics.Enabled && metricsHandler != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(metricsHandler))
	}

	// API routes
	api := router.Group("/api/v1")
	{
		// Public endpoints
		api.GET("/health", handler.GetHealth)

		// Protected endpoints
		protected := api.Group("")
		protected.Use(AuthMiddleware(cfg.Server.APIKeys))
		{
			protected.POST("/chat", handler.Chat)
			protected.POST("/analyze", handler.Analyze)
			protected.GET("/backends", handler.GetBackends)
			protected.GET("/attempts", handler.GetAttempts)
		}
	}

	return router
}
