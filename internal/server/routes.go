package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	gin.SetMode(s.cfg.GinMode)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(s.requestIDMiddleware())
	router.Use(s.corsMiddleware())
	router.Use(s.maxBodySizeMiddleware())
	router.Use(s.rateLimitMiddleware())
	router.Use(s.metricsMiddleware())

	// Embedded demo pages and the embeddable widget loader.
	router.GET("/", s.handleIndexPage)
	router.GET("/builder", s.handleBuilderPage)
	router.GET("/widget.js", s.handleWidgetScript)

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/models", s.handleModels)
		api.POST("/chat", s.handleChat)

		api.GET("/builder/state", s.handleBuilderStateGet)
		api.POST("/builder/state", s.handleBuilderStateSave)
		api.GET("/memory", s.handleMemoryGet)
		api.POST("/memory", s.handleMemorySave)

		api.POST("/analytics/event", s.handleAnalyticsEvent)
		api.GET("/analytics/summary", s.handleAnalyticsSummary)

		api.POST("/automation/trigger", s.handleAutomationTrigger)

		api.GET("/stats", s.handleStats)
	}

	s.router = router
}
