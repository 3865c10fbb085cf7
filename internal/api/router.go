package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/rmoretti/plpulse/internal/middleware"
)

// readTimeout bounds the read-side endpoints. The collect trigger is
// exempt: a full universe crawl legitimately runs for minutes and is
// bounded by the pipeline's own HTTP timeouts instead.
const readTimeout = 10 * time.Second

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, RequestLogger, Recovery,
//     ErrorHandler).
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes: POST /api/v1/collect and
//     GET /api/v1/pl/:ticker.
//
// Health and readiness probes are registered in app.InitializeApp.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.ErrorHandler,
	)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/collect", handler.Collect)

		reads := v1.Group("")
		reads.Use(func(c *gin.Context) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
			defer cancel()
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
		reads.GET("/pl/:ticker", handler.LatestPL)
	}

	return router
}
