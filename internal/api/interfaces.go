// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// FileHandler handles validation, ingestion and retrieval of JD documents
type FileHandler interface {
	HandleGetFormats(c echo.Context) error
	HandleValidateFile(c echo.Context) error
	HandleValidateBatch(c echo.Context) error
	HandleParseFile(c echo.Context) error
	HandleStartBatch(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleGetText(c echo.Context) error
	HandleGetTextMsgpack(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// IngestSocketHandler handles the WebSocket ingestion channel
type IngestSocketHandler interface {
	HandleWebSocket(c echo.Context) error
}
