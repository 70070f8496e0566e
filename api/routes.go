package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/customeros/rfpstack/api/handlers"
	"github.com/customeros/rfpstack/api/middleware"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services/rfp"
)

type RouteConfig struct {
	APIKey    string
	AppSource string
}

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, rfpService *rfp.Service, cfg RouteConfig, log logger.Logger) {
	if rfpService == nil {
		panic("RFP service cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(rfpService, log)

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/v1")
	api.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  middleware.APIKeyHeader,
		ValidAPIKey: cfg.APIKey,
	}))
	api.Use(middleware.CustomContextMiddleware(cfg.AppSource))
	api.Use(middleware.TracingMiddleware())
	api.Use(middleware.MetricsMiddleware())
	{
		chat := api.Group("/chat")
		{
			chat.GET("/history", apiHandlers.Chat.History())
			chat.GET("/:id", apiHandlers.Chat.Get())
			chat.POST("", apiHandlers.Chat.Send())
			chat.POST("/finalize", apiHandlers.Chat.Finalize())
			chat.POST("/cancel", apiHandlers.Chat.Cancel())
			chat.POST("/complete", apiHandlers.Chat.Complete())
		}

		vendors := api.Group("/vendors")
		{
			vendors.GET("", apiHandlers.Vendors.List())
			vendors.POST("", apiHandlers.Vendors.Create())
		}

		proposals := api.Group("/proposals")
		{
			proposals.GET("/session/:sessionId", apiHandlers.Proposals.ListBySession())
			proposals.GET("/:id", apiHandlers.Proposals.Get())
			proposals.POST("/compare", apiHandlers.Proposals.Compare())
			proposals.POST("/poll", apiHandlers.Proposals.Poll())
		}
	}
}
