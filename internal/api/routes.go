// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/jd-analyzer/backend/internal/storage"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store     storage.Store
	UploadMgr *upload.Manager
	Logger    *slog.Logger
	Version   string
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Files  FileHandler
	Socket IngestSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Files:  NewFileHandler(deps.Store, deps.UploadMgr),
		Socket: NewWebSocketHandler(deps.UploadMgr, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)

	apiGroup := e.Group("/api")
	apiGroup.GET("/formats", handlers.Files.HandleGetFormats)

	// Validation, ingestion and document routes
	files := apiGroup.Group("/files")
	files.POST("/validate", handlers.Files.HandleValidateFile)
	files.POST("/validate/batch", handlers.Files.HandleValidateBatch)
	files.POST("/parse", handlers.Files.HandleParseFile)
	files.POST("/batch", handlers.Files.HandleStartBatch)
	files.GET("/jobs/:jobId", handlers.Files.HandleGetJob)
	files.GET("/recent", handlers.Files.HandleGetRecentFiles)
	files.GET("/:id", handlers.Files.HandleGetFile)
	files.GET("/:id/text", handlers.Files.HandleGetText)
	files.GET("/:id/text/msgpack", handlers.Files.HandleGetTextMsgpack)
	files.PUT("/:id", handlers.Files.HandleRenameFile)
	files.DELETE("/:id", handlers.Files.HandleDeleteFile)

	// WebSocket ingestion channel
	apiGroup.GET("/ws/ingest", handlers.Socket.HandleWebSocket)
}
