package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipforge/clipforge/internal/middleware"
)

func setupRouter(api *API, rateLimiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(api.logger))
	router.Use(middleware.RateLimit(rateLimiter))

	router.GET("/health", api.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := router.Group("/api/projects")
	{
		projects.POST("", api.createProject)
		projects.GET("", api.listProjects)
		projects.GET("/:id", api.getProject)
		projects.PUT("/:id", api.updateProject)
		projects.DELETE("/:id", api.deleteProject)

		projects.POST("/:id/process", api.processProject)
		projects.POST("/:id/export", api.exportProject)
		projects.GET("/:id/info", api.getProjectInfo)
	}

	return router
}
