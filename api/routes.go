package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *Handlers) {
	// API group; every route sits behind the request guard
	api := r.Group("/api", RequestGuard(h.server.Config()))

	// Browser state and navigation
	api.GET("/state", h.GetState)
	api.GET("/directory", h.GetDirectory)
	api.POST("/navigate", h.Navigate)
	api.POST("/navigate/parent", h.NavigateParent)
	api.POST("/refresh", h.Refresh)

	// Shell commands - static routes first
	api.POST("/commands", h.SubmitCommand)
	api.GET("/commands/active", h.GetActiveCommand)
	api.DELETE("/commands/:id", h.CancelCommand)

	// Command history
	api.GET("/history", h.GetHistory)
	api.POST("/history/previous", h.HistoryPrevious)
	api.POST("/history/next", h.HistoryNext)

	// View events (WebSocket)
	api.GET("/stream", h.Stream)

	// Interactive terminal (WebSocket)
	api.GET("/terminal", h.Terminal)
}
