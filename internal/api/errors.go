// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jd-analyzer/backend/internal/logging"
	"github.com/jd-analyzer/backend/internal/parser"
	"github.com/jd-analyzer/backend/internal/storage"
	"github.com/jd-analyzer/backend/internal/upload"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error constructors for consistent error handling

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewIngestionError maps a validation or extraction failure to its HTTP
// status and error code. Unrecognized errors become internal errors.
func NewIngestionError(err error) *APIError {
	var (
		unsupported *parser.UnsupportedFormatError
		oversize    *upload.OversizeError
		decodeErr   *parser.DecodeError
		parseErr    *parser.ParseError
	)

	switch {
	case errors.As(err, &unsupported):
		return &APIError{
			Status:  http.StatusUnsupportedMediaType,
			Code:    "UNSUPPORTED_FORMAT",
			Message: err.Error(),
		}
	case errors.As(err, &oversize):
		return &APIError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "LIMIT_EXCEEDED",
			Message: err.Error(),
			Details: string(oversize.Kind),
		}
	case errors.Is(err, upload.ErrEmptyBatch):
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "EMPTY_BATCH",
			Message: err.Error(),
		}
	case errors.As(err, &decodeErr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "DECODE_ERROR",
			Message: err.Error(),
		}
	case errors.As(err, &parseErr):
		return &APIError{
			Status:  http.StatusUnprocessableEntity,
			Code:    "PARSE_ERROR",
			Message: err.Error(),
		}
	case errors.Is(err, storage.ErrNotFound):
		return &APIError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: err.Error(),
		}
	default:
		return NewInternalError("ingestion failed", err)
	}
}

// ErrorHandler middleware for Echo
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		logging.FromContext(c).Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		c.NoContent(apiErr.Status)
		return
	}
	c.JSON(apiErr.Status, apiErr)
}
