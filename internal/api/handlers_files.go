// handlers_files.go - JD document validation, ingestion and retrieval handlers
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jd-analyzer/backend/internal/logging"
	"github.com/jd-analyzer/backend/internal/models"
	"github.com/jd-analyzer/backend/internal/storage"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store   storage.Store
	manager *upload.Manager
}

// NewFileHandler creates a new file handler instance
func NewFileHandler(store storage.Store, manager *upload.Manager) FileHandler {
	return &FileHandlerImpl{
		store:   store,
		manager: manager,
	}
}

// HandleGetFormats returns the accepted extensions and the active limits
func (h *FileHandlerImpl) HandleGetFormats(c echo.Context) error {
	v := h.manager.Validator()
	limits := v.Limits()

	return c.JSON(http.StatusOK, formatsResponse{
		Formats: v.Formats().SupportedFormats(),
		Limits:  limits,
		Display: limitsDisplay{
			MaxFileSize:  upload.FormatSize(limits.MaxFileBytes),
			MaxBatchSize: upload.FormatSize(limits.MaxBatchBytes),
		},
	})
}

// HandleValidateFile checks a declared file name and size without an upload
func (h *FileHandlerImpl) HandleValidateFile(c echo.Context) error {
	var req validateFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	verdict := h.manager.Validator().ValidateFile(req.Size, req.Name)
	return c.JSON(http.StatusOK, newVerdictResponse(verdict))
}

// HandleValidateBatch checks a declared set of files without an upload
func (h *FileHandlerImpl) HandleValidateBatch(c echo.Context) error {
	var req validateBatchRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	verdict := h.manager.Validator().ValidateBatch(req.Files)
	return c.JSON(http.StatusOK, newVerdictResponse(verdict))
}

// HandleParseFile accepts one multipart file, extracts its text and stores it
func (h *FileHandlerImpl) HandleParseFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	// Reject on the declared size before buffering the body
	if err := h.manager.Validator().CheckFile(fh.Size, fh.Filename); err != nil {
		return NewIngestionError(err)
	}

	candidate, err := readCandidate(fh)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	info, doc, err := h.manager.Ingest(candidate)
	if err != nil {
		logging.WithFields(c, "file", fh.Filename).Warn("parse rejected", "error", err)
		return NewIngestionError(err)
	}

	return c.JSON(http.StatusCreated, parseResponse{File: info, Document: doc})
}

// HandleStartBatch accepts a multipart batch under the "files" field and
// starts an async ingestion job
func (h *FileHandlerImpl) HandleStartBatch(c echo.Context) error {
	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File["files"]
	}

	declared := make([]models.UploadCandidate, len(headers))
	for i, fh := range headers {
		declared[i] = models.UploadCandidate{Name: fh.Filename, Size: fh.Size}
	}
	if err := h.manager.Validator().CheckBatch(declared); err != nil {
		return NewIngestionError(err)
	}

	candidates := make([]models.UploadCandidate, 0, len(headers))
	for _, fh := range headers {
		candidate, err := readCandidate(fh)
		if err != nil {
			return NewInternalError("failed to read uploaded file", err)
		}
		candidates = append(candidates, candidate)
	}

	job, err := h.manager.StartJob(candidates)
	if err != nil {
		return NewIngestionError(err)
	}

	logging.WithFields(c, "job_id", job.ID).Info("batch job started", "files", job.TotalFiles)

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"jobId":      job.ID,
		"status":     job.Status,
		"totalFiles": job.TotalFiles,
	})
}

// HandleGetJob returns the current state of a batch job
func (h *FileHandlerImpl) HandleGetJob(c echo.Context) error {
	id := c.Param("jobId")
	if id == "" {
		return NewValidationError("jobId")
	}

	job, ok := h.manager.GetJob(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleGetRecentFiles returns the most recently ingested documents
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewBadRequestError("limit must be a positive integer", err)
		}
		limit = min(n, maxRecentLimit)
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}

	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific document
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

// HandleGetText returns the extracted text of a document as JSON
func (h *FileHandlerImpl) HandleGetText(c echo.Context) error {
	resp, err := h.loadText(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleGetTextMsgpack returns the extracted text of a document as MessagePack
func (h *FileHandlerImpl) HandleGetTextMsgpack(c echo.Context) error {
	resp, err := h.loadText(c.Param("id"))
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteFile deletes a document and its extracted text
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if err := h.store.Delete(id); err != nil {
		return NewNotFoundError("file", id)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile updates the display name of a document
func (h *FileHandlerImpl) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	var req renameFileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	if req.Name == "" {
		return NewValidationError("name")
	}

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewNotFoundError("file", id)
	}

	return c.JSON(http.StatusOK, info)
}

func (h *FileHandlerImpl) loadText(id string) (*textResponse, error) {
	if id == "" {
		return nil, NewValidationError("id")
	}

	info, err := h.store.Get(id)
	if err != nil {
		return nil, NewNotFoundError("file", id)
	}
	text, err := h.store.GetText(id)
	if err != nil {
		return nil, NewInternalError("failed to read extracted text", err)
	}

	return &textResponse{
		ID:       info.ID,
		Name:     info.Name,
		Format:   info.Format,
		Encoding: info.Encoding,
		Text:     text,
	}, nil
}

// Request/Response types

type validateFileRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (r *validateFileRequest) validate() error {
	if r.Name == "" {
		return NewValidationError("name")
	}
	if r.Size < 0 {
		return NewValidationError("size")
	}
	return nil
}

type validateBatchRequest struct {
	Files []models.UploadCandidate `json:"files"`
}

type renameFileRequest struct {
	Name string `json:"name"`
}

type verdictResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func newVerdictResponse(v models.ValidationVerdict) verdictResponse {
	resp := verdictResponse{Valid: v.Valid, Message: v.Message}
	if !v.Valid && v.Err != nil {
		resp.Code = NewIngestionError(v.Err).Code
	}
	return resp
}

type limitsDisplay struct {
	MaxFileSize  string `json:"maxFileSize"`
	MaxBatchSize string `json:"maxBatchSize"`
}

type formatsResponse struct {
	Formats []string      `json:"formats"`
	Limits  upload.Limits `json:"limits"`
	Display limitsDisplay `json:"display"`
}

type parseResponse struct {
	File     *models.FileInfo       `json:"file"`
	Document *models.ParsedDocument `json:"document"`
}

type textResponse struct {
	ID       string `json:"id" msgpack:"id"`
	Name     string `json:"name" msgpack:"name"`
	Format   string `json:"format" msgpack:"format"`
	Encoding string `json:"encoding,omitempty" msgpack:"encoding,omitempty"`
	Text     string `json:"text" msgpack:"text"`
}

// Helper functions

// readCandidate buffers an uploaded multipart file
func readCandidate(fh *multipart.FileHeader) (models.UploadCandidate, error) {
	src, err := fh.Open()
	if err != nil {
		return models.UploadCandidate{}, fmt.Errorf("opening %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return models.UploadCandidate{}, fmt.Errorf("reading %s: %w", fh.Filename, err)
	}

	return models.UploadCandidate{
		Name: fh.Filename,
		Size: int64(len(data)),
		Data: data,
	}, nil
}
