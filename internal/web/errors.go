package web

// errors.go turns service errors into HTTP responses.
//
// Every error is logged with its technical detail and request ID, then
// mapped through core.MapError so clients get a message, a suggested action
// and a support code. statusFor picks the HTTP status from the error type.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/csvimport/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Set for structural errors only.
	Missing []string            `json:"missing,omitempty"`
	Mapping *core.ColumnMapping `json:"mapping,omitempty"`
}

var (
	errNoFile        = errors.New("no file provided")
	errBadPolicy     = errors.New("invalid commit policy")
	errBadExtraField = errors.New("invalid extra_fields value")
	errBadLimit      = errors.New("invalid limit")
	errBadBody       = errors.New("invalid request body")
)

// respondError logs err and writes its user-facing form with statusCode.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	resp := ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		// Internal detail stays in the log.
		resp.Error = userMsg.Message
	}

	var se *core.StructuralError
	if errors.As(err, &se) {
		resp.Missing = se.Missing
		resp.Mapping = &se.Mapping
	}

	writeJSON(w, statusCode, resp)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var se *core.StructuralError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	case core.IsCommitError(err):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrUnknownEntity),
		errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidRowsPresent),
		errors.Is(err, core.ErrAlreadyCommitted),
		errors.Is(err, core.ErrCommitInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, errNoFile),
		errors.Is(err, errBadPolicy),
		errors.Is(err, errBadExtraField),
		errors.Is(err, errBadLimit),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyCommits):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrRollbackUnsupported),
		errors.Is(err, core.ErrHistoryUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
