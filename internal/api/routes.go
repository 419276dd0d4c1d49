package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kurihiro0119/github-profile-miner/internal/storage"
)

// SetupRouter configures the gin router with all routes
func SetupRouter(store storage.Storage) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(RecoveryMiddleware())
	router.Use(CORSMiddleware())

	handler := NewHandler(store)

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/runs", handler.ListRuns)
		v1.GET("/runs/:id", handler.GetRun)
	}

	return router
}
