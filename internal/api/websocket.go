package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// WebSocket message types for the ingestion channel
const (
	// Client -> Server messages
	MsgTypeIngest   = "ingest"
	MsgTypeJobWatch = "job:watch"
	MsgTypePing     = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// IngestPayload carries one file to validate and parse.
type IngestPayload struct {
	FileName string `json:"fileName"`
	Data     string `json:"data"`               // Base64 encoded file
	Encoding string `json:"encoding,omitempty"` // "gzip", "none"
}

// JobWatchPayload subscribes to progress of a batch job.
type JobWatchPayload struct {
	JobID string `json:"jobId"`
}

// IngestResultPayload reports a successfully ingested file.
type IngestResultPayload struct {
	File     *models.FileInfo       `json:"file"`
	Document *models.ParsedDocument `json:"document"`
}

// WSErrorResponse is the payload of an error frame.
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// WebSocketHandler ingests files and streams job progress over WebSocket
type WebSocketHandler struct {
	manager      *upload.Manager
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket ingestion handler
func NewWebSocketHandler(manager *upload.Manager, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		pollInterval: 200 * time.Millisecond,
		logger:       logger.With("component", "websocket"),
	}
}

// HandleWebSocket upgrades the HTTP connection and serves the ingestion protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	// base64 inflates payloads by 4/3
	ws.SetReadLimit(wsh.manager.Validator().Limits().MaxFileBytes*2 + 64*1024)

	wsh.logger.Debug("client connected", "remote", c.RealIP())

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wsh.logger.Warn("connection error", "error", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeIngest:
			wsh.handleIngest(ws, msg)
		case MsgTypeJobWatch:
			wsh.handleJobWatch(ws, msg)
		default:
			wsh.sendError(ws, msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	wsh.logger.Debug("client disconnected")
	return nil
}

// handleIngest validates, parses and stores one file sent inline
func (wsh *WebSocketHandler) handleIngest(ws *websocket.Conn, msg WSMessage) {
	var payload IngestPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wsh.sendError(ws, msg.ID, "Invalid ingest payload", "INVALID_PAYLOAD")
		return
	}
	if payload.FileName == "" {
		wsh.sendError(ws, msg.ID, "fileName is required", "VALIDATION_ERROR")
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		wsh.sendError(ws, msg.ID, "Invalid base64 data", "INVALID_PAYLOAD")
		return
	}
	if payload.Encoding == "gzip" {
		if data, err = decompressGzip(data, wsh.manager.Validator().Limits().MaxFileBytes); err != nil {
			var oversize *upload.OversizeError
			if errors.As(err, &oversize) {
				apiErr := NewIngestionError(err)
				wsh.sendError(ws, msg.ID, apiErr.Message, apiErr.Code)
				return
			}
			wsh.sendError(ws, msg.ID, "Failed to decompress data", "INVALID_PAYLOAD")
			return
		}
	}

	info, doc, err := wsh.manager.Ingest(models.UploadCandidate{
		Name: payload.FileName,
		Size: int64(len(data)),
		Data: data,
	})
	if err != nil {
		apiErr := NewIngestionError(err)
		wsh.sendError(ws, msg.ID, apiErr.Message, apiErr.Code)
		return
	}

	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeComplete,
		ID:        msg.ID,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(IngestResultPayload{File: info, Document: doc}),
	})
}

// handleJobWatch streams job snapshots until the job finishes
func (wsh *WebSocketHandler) handleJobWatch(ws *websocket.Conn, msg WSMessage) {
	var payload JobWatchPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.JobID == "" {
		wsh.sendError(ws, msg.ID, "jobId is required", "VALIDATION_ERROR")
		return
	}

	ticker := time.NewTicker(wsh.pollInterval)
	defer ticker.Stop()

	lastProcessed := -1
	for {
		job, ok := wsh.manager.GetJob(payload.JobID)
		if !ok {
			wsh.sendError(ws, msg.ID, fmt.Sprintf("job not found: %s", payload.JobID), "NOT_FOUND")
			return
		}

		finished := job.Status == upload.StatusComplete || job.Status == upload.StatusError
		if finished {
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypeComplete,
				ID:        msg.ID,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(job),
			})
			return
		}
		if job.Processed != lastProcessed {
			lastProcessed = job.Processed
			wsh.sendMessage(ws, WSMessage{
				Type:      MsgTypeProgress,
				ID:        msg.ID,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(job),
			})
		}

		<-ticker.C
	}
}

// Helper methods

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if err := ws.WriteJSON(msg); err != nil {
		wsh.logger.Warn("failed to send message", "type", msg.Type, "error", err)
	}
}

func (wsh *WebSocketHandler) sendError(ws *websocket.Conn, id, message, code string) {
	wsh.sendMessage(ws, WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Message: message,
			Code:    code,
		}),
	})
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// decompressGzip inflates at most limit bytes.
func decompressGzip(data []byte, limit int64) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out, err := io.ReadAll(&io.LimitedReader{R: reader, N: limit + 1})
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, &upload.OversizeError{Kind: upload.LimitFileSize, Actual: int64(len(out)), Limit: limit}
	}
	return out, nil
}
