package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/api/handlers"
	"github.com/feichai0017/content-analyzer/api/middleware"
	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// SetupRoutes registers every API route on r
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger) {
	r.Use(middleware.CORS())
	r.Use(middleware.RequestLogger(log))

	v1 := r.Group("/api/v1")

	v1.GET("/health", h.Health.Check)

	docs := v1.Group("/documents")
	{
		docs.POST("/extract", h.Document.Extract)
	}

	v1.POST("/analysis", h.Analysis.Analyze)
}
