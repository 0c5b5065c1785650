package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"mtolling/internal/handler"
	"mtolling/internal/metrics"
	"mtolling/internal/middleware"
	"mtolling/internal/stream"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AuthHandler     *handler.AuthHandler
	TollHandler     *handler.TollHandler
	TripHandler     *handler.TripHandler
	LocationHandler *handler.LocationHandler
	TrackingHandler *handler.TrackingHandler
	StreamHandler   *stream.Handler
	AllowedOrigins  []string
	RedisClient     *redis.Client // optional
	NewRelicApp     *newrelic.Application
	Logger          *logrus.Entry
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	if deps.Logger != nil {
		router.Use(middleware.RequestLogger(deps.Logger))
	}
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins...))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Session routes.
		auth := v1.Group("/auth")
		{
			auth.POST("/login", deps.AuthHandler.Login)
			auth.POST("/logout", deps.AuthHandler.Logout)
			auth.GET("/me", deps.AuthHandler.Me)
		}

		// Toll routes.
		tolls := v1.Group("/tolls")
		{
			tolls.GET("", deps.TollHandler.List)
			tolls.GET("/nearby", deps.TollHandler.Nearby)
		}

		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.GET("", deps.TripHandler.List)
			trips.POST("/poll", deps.TripHandler.Poll)
			trips.GET("/events", deps.TripHandler.Events)
		}

		// Location routes.
		location := v1.Group("/location")
		{
			location.GET("", deps.LocationHandler.Current)
			location.POST("/fixes", deps.LocationHandler.PushFix)
			location.PUT("/providers/:name", deps.LocationHandler.SetProvider)
		}

		// Tracking lifecycle routes.
		tracking := v1.Group("/tracking")
		{
			tracking.POST("/start", deps.TrackingHandler.Start)
			tracking.POST("/stop", deps.TrackingHandler.Stop)
			tracking.GET("/status", deps.TrackingHandler.Status)
		}
		v1.PUT("/settings", deps.TrackingHandler.UpdateSettings)
		v1.POST("/lifecycle/boot", deps.TrackingHandler.Boot)

		if deps.StreamHandler != nil {
			v1.GET("/stream", deps.StreamHandler.Serve)
		}
	}

	return router
}
