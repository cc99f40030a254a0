package router

import (
	"github.com/gin-gonic/gin"

	"quintos/internal/handler"
	"quintos/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(ocrH *handler.OCRHandler, healthH *handler.HealthHandler) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	documents := v1.Group("/documents")
	documents.POST("/process", ocrH.Process)

	return r
}
