package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"porttariff/internal/handler"
	"porttariff/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log *zap.Logger,
	corsOrigins []string,
	healthH *handler.HealthHandler,
	tariffH *handler.TariffHandler,
	structureH *handler.StructureHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	ports := v1.Group("/ports/:port_id")
	ports.POST("/documents", tariffH.Upload)
	ports.POST("/documents/s3", tariffH.IngestFromS3)
	ports.POST("/documents/:id/approve", tariffH.Approve)
	ports.GET("/tariffs", tariffH.List)

	v1.POST("/structure", structureH.Structure)
	v1.POST("/structure/batch", structureH.Batch)

	return r
}
