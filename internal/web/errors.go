package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted for the client: HTMX fragment, JSON or plain text
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode), or respondErr to pick the status
//  3. Error is mapped via core.MapError to get the user-friendly message
//  4. Technical error is logged with the request ID for correlation
//  5. User message is rendered in the format the client expects

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/hrpulse/internal/core"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
	"github.com/JonMunkholm/hrpulse/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondErr responds with the status that fits err.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs the technical error and writes the user-facing message
// in the format the client expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	ue := core.NewUserError(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", args...)
	} else {
		log.Warn("request error", args...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(r.Context(), w, ue.User, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, ue.User, statusCode)
	default:
		respondErrorText(w, ue.User, statusCode)
	}
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	var (
		schemaErr *csvcodec.SchemaError
		parseErr  *csvcodec.ParseError
		fieldErr  *core.ValidationError
		fieldErrs core.ValidationErrors
		readErr   *core.ReadError
	)

	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, roster.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateRecord):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.As(err, &schemaErr), errors.As(err, &fieldErr), errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity
	case core.IsRejectedImport(err),
		errors.Is(err, core.ErrIdentityImmutable),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrInvalidRequest),
		errors.Is(err, csvcodec.ErrUnknownParse),
		errors.As(err, &parseErr),
		errors.As(err, &readErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorText writes a plain text error response.
func respondErrorText(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(ctx context.Context, w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	// HTMX ignores 4xx/5xx bodies unless told to swap them.
	w.Header().Set("HX-Reswap", "innerHTML")
	w.WriteHeader(statusCode)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(ctx, w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
