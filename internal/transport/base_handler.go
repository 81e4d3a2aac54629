package transport

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/supplier-portal/internal"
	"github.com/frahmantamala/supplier-portal/pkg/logger"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError writes the structured {"error": {...}} payload.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps a service error onto its HTTP form. Anything that is
// not an AppError becomes a generic 500 and only the log sees the cause.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	lg := logger.From(r.Context())

	appErr, ok := internal.IsAppError(err)
	if !ok {
		lg.ErrorContext(r.Context(), "unhandled service error", "error", err)
		h.WriteAppError(w, internal.NewInternalError("Internal server error", nil))
		return
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		lg.ErrorContext(r.Context(), "request failed", "code", appErr.Code, "error", appErr)
		h.WriteAppError(w, internal.NewInternalError("Internal server error", nil))
		return
	}

	lg.InfoContext(r.Context(), "request rejected", "status", appErr.StatusCode, "code", appErr.Code)
	h.WriteAppError(w, appErr)
}

// DecodeJSON decodes a bounded request body into dst. An empty body leaves
// dst untouched.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return internal.ErrInvalidBody.WithCause(err)
	}
	return nil
}

// ExtractTokenFromHeader returns the token of an "Authorization: Bearer <token>"
// header, or "" when the header is absent or malformed.
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}

	token := strings.TrimSpace(authHeader[len("Bearer "):])
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
