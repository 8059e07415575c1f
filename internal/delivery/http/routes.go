package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cartwise/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		lists := v1.Group("/lists")
		{
			lists.POST("", handler.CreateList)
			lists.GET("/:listId/items", handler.ListItems)
			lists.POST("/:listId/items", handler.AddItem)
			lists.DELETE("/:listId/items/:itemId", handler.DeleteItem)
			lists.GET("/:listId/optimization", handler.GetOptimization)
			lists.GET("/:listId/optimization/stream", handler.StreamOptimization)
		}

		v1.GET("/offers/search", handler.SearchOffers)
		v1.GET("/merchants/:merchantId", handler.GetMerchant)
	}

	return router
}
