package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/surgefund/backend/internal/auth"
	"github.com/surgefund/backend/internal/config"
	"github.com/surgefund/backend/internal/service"
	"github.com/surgefund/backend/internal/websocket"
)

// NewRouter assembles the gin engine: health endpoint, authenticated
// escrow routes, public read routes and websocket endpoints.
func NewRouter(cfg *config.Config, pools *service.PoolService, rdb *redis.Client, hub *websocket.Hub) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(auth.SecurityHeaders())

	handlers := NewHandlers(pools)
	authMw := auth.NewMiddleware()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"service":   "surgefund-api",
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Public reads: records are addressable from public inputs.
		v1.GET("/pools", handlers.ListPools)
		v1.GET("/pools/:address", handlers.GetPool)
		v1.GET("/pools/:address/receipts", handlers.ListReceipts)
		v1.GET("/receipts/:address", handlers.GetReceipt)

		// Mutations require an authenticated principal.
		authed := v1.Group("")
		authed.Use(authMw.RequireAuth())
		authed.Use(RateLimitByPrincipal(rdb, cfg.RateLimitPerMinute))
		{
			authed.POST("/counter", handlers.InitializeCounter)
			authed.POST("/counter/next", handlers.NextPoolID)
			authed.POST("/pools", handlers.CreatePool)
			authed.POST("/pools/:address/contributions", handlers.Contribute)
			authed.POST("/pools/:address/deploy", handlers.Deploy)
			authed.POST("/pools/:address/claims", handlers.Claim)
		}
	}

	if hub != nil {
		websocket.SetupRoutes(router, websocket.NewHandler(hub))
	}

	return router
}
