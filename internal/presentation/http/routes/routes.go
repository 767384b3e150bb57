// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AtRiskMedia/pulsetrack-go/internal/application/container"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/pulsetrack-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	behaviorHandlers := handlers.NewBehaviorHandlers(
		c.TrackingService,
		c.PersonalizationService,
		c.StatisticsService,
		c.Broadcaster,
		c.Logger,
	)

	adminHandlers := handlers.NewAdminHandlers(c.Logger)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/health", behaviorHandlers.Health)

		admin := api.Group("/admin")
		{
			admin.GET("/log-levels", adminHandlers.LogLevels)
			admin.PUT("/log-levels", adminHandlers.SetLogLevel)
		}

		behavior := api.Group("/behavior")
		{
			behavior.POST("/events", behaviorHandlers.TrackEvent)
			behavior.POST("/sessions", behaviorHandlers.StartSession)
			behavior.GET("/sessions/:sessionId/recommendations", behaviorHandlers.Recommendations)
			behavior.POST("/sessions/:sessionId/personalizations", behaviorHandlers.Apply)
			behavior.GET("/statistics", behaviorHandlers.Statistics)
			behavior.GET("/profiles/:sessionId", behaviorHandlers.Profile)
			behavior.GET("/rules", behaviorHandlers.Rules)
			behavior.GET("/clusters", behaviorHandlers.Clusters)
			behavior.GET("/live/:sessionId", behaviorHandlers.Live)
		}
	}

	return r
}
