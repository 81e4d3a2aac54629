package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/supplier-portal/pkg/logger"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID accepts a caller-supplied X-Request-ID or mints a uuid, stores it
// where chi's GetReqID finds it and tags the request logger with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, reqID)
		ctx = logger.With(ctx, "request_id", reqID)

		w.Header().Set(RequestIDHeader, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextLogger makes lg the request-scoped logger that handlers read back
// with logger.From. Mount it before RequestID so the request id is attached to it.
func ContextLogger(lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.Into(r.Context(), lg)))
		})
	}
}
