package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/internal/api"
	"github.com/crumbworks/mealforge/internal/middleware"
)

// Options carries the handlers and middleware the router wires together.
type Options struct {
	Generate *api.GenerateHandler
	Recipes  *api.RecipeHandler
	Logger   *zap.Logger

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string

	// RateLimiter throttles generation submissions; nil disables throttling
	// (tests run without Redis).
	RateLimiter *middleware.RateLimiter
}

// Setup configures the application routes
func Setup(opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(opts.Logger))
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.CORS(opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	var submitMiddleware []gin.HandlerFunc
	if opts.RateLimiter != nil {
		submitMiddleware = append(submitMiddleware, opts.RateLimiter.Middleware())
	}
	opts.Generate.RegisterRoutes(v1, submitMiddleware...)

	opts.Recipes.RegisterRoutes(v1)

	return router
}
