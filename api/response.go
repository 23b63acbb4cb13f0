package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weeksdev/duckfinder/browser"
	"github.com/weeksdev/duckfinder/fs"
	"github.com/weeksdev/duckfinder/log"
	"github.com/weeksdev/duckfinder/shell"
)

// =============================================================================
// Standard API Response Types
// =============================================================================
//
// Every endpoint answers with {data: ...} on success and
// {error: {code, message}} on failure.

// ErrorCode defines standard error codes for programmatic handling
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"            // 400 - Malformed request
	ErrCodeNotDirectory     ErrorCode = "NOT_A_DIRECTORY"        // 400 - Path is a file
	ErrCodeEmptyCommand     ErrorCode = "EMPTY_COMMAND"          // 400 - Blank command line
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"           // 401 - Missing or wrong access token
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"              // 403 - OS refused access, or foreign origin
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"              // 404 - Resource not found
	ErrCodeSessionBusy      ErrorCode = "SESSION_BUSY"           // 409 - A command is running
	ErrCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA_TYPE" // 415 - Body is not JSON

	// Server errors (5xx)
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"      // 500 - Unexpected error
	ErrCodeWatchLost          ErrorCode = "WATCH_LOST"          // 503 - Directory can't be observed
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE" // 503 - Shutting down
)

// ErrorResponse is the standard error response structure
type ErrorResponse struct {
	Error struct {
		Code    ErrorCode `json:"code"`    // Machine-readable error code
		Message string    `json:"message"` // Human-readable error message
	} `json:"error"`
}

// DataResponse wraps a single resource or object response
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// RespondData sends a successful response with a single data object
// Status: 200 OK
func RespondData[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, DataResponse[T]{Data: data})
}

// RespondAccepted sends a 202 Accepted response for async operations
func RespondAccepted[T any](c *gin.Context, data T) {
	c.JSON(http.StatusAccepted, DataResponse[T]{Data: data})
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// respondError is the internal helper for error responses
func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(status, resp)
}

// RespondBadRequest sends a 400 Bad Request error
func RespondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// RespondNotFound sends a 404 Not Found error
func RespondNotFound(c *gin.Context, message string) {
	respondError(c, http.StatusNotFound, ErrCodeNotFound, message)
}

// RespondServiceUnavailable sends a 503 Service Unavailable error
func RespondServiceUnavailable(c *gin.Context, message string) {
	respondError(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// RespondErr maps a domain error onto its HTTP status
func RespondErr(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= 500 {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	respondError(c, status, code, err.Error())
}

func classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, fs.ErrNotFound), errors.Is(err, shell.ErrSessionNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, fs.ErrAccessDenied):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, fs.ErrNotDirectory):
		return http.StatusBadRequest, ErrCodeNotDirectory
	case errors.Is(err, shell.ErrEmptyCommand):
		return http.StatusBadRequest, ErrCodeEmptyCommand
	case errors.Is(err, shell.ErrSessionBusy):
		return http.StatusConflict, ErrCodeSessionBusy
	case errors.Is(err, fs.ErrWatchLost):
		return http.StatusServiceUnavailable, ErrCodeWatchLost
	case errors.Is(err, browser.ErrClosed), errors.Is(err, browser.ErrNotStarted),
		errors.Is(err, shell.ErrRunnerClosed), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
