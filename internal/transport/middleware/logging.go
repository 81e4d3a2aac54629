package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
)

// sensitiveFields are matched as case-insensitive substrings of JSON keys and
// header names, so "newPassword" and "refreshToken" are caught as well.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"cookie",
	"secret",
	"api_key",
	"credential",
}

const (
	redacted      = "[FILTERED]"
	maxLoggedBody = 4096
)

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// LoggingMiddleware writes one line per request and one per response. Bodies
// and headers are only captured when the logger is at debug level, and always
// go through the redaction filters first.
func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			debug := logger.Enabled(r.Context(), slog.LevelDebug)
			base := []any{
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			}

			if debug {
				var reqBody []byte
				if r.Body != nil {
					reqBody, _ = io.ReadAll(io.LimitReader(r.Body, maxLoggedBody+1))
					r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(reqBody), r.Body))
				}
				logger.Debug("incoming request", append(base,
					"query", r.URL.RawQuery,
					"remote_addr", r.RemoteAddr,
					"user_agent", r.UserAgent(),
					"headers", filterSensitiveHeaders(r.Header),
					"body", filterSensitiveBody(reqBody))...)
			} else {
				logger.Info("incoming request", append(base, "remote_addr", r.RemoteAddr)...)
			}

			rec := &recordingWriter{ResponseWriter: w, capture: debug}
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			attrs := append(base,
				"status_code", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size)
			if debug {
				attrs = append(attrs, "body", filterSensitiveBody(rec.body.Bytes()))
			}
			logger.Log(r.Context(), levelForStatus(status), "response", attrs...)
		})
	}
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// recordingWriter remembers the status and size, and the first
// maxLoggedBody bytes of the body when capture is on.
type recordingWriter struct {
	http.ResponseWriter
	status  int
	size    int
	capture bool
	body    bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.capture && rw.body.Len() < maxLoggedBody {
		rw.body.Write(b)
	}
	rw.size += len(b)
	return rw.ResponseWriter.Write(b)
}

func filterSensitiveHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			out[name] = redacted
			continue
		}
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// filterSensitiveBody redacts sensitive keys at any depth of a JSON body. A
// body that is not JSON is dropped entirely when it mentions a sensitive
// field name.
func filterSensitiveBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		if len(body) > maxLoggedBody {
			return string(body[:maxLoggedBody]) + "...[truncated]"
		}
		return string(body)
	}

	out, err := json.Marshal(redactJSON(doc))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func redactJSON(v interface{}) interface{} {
	switch node := v.(type) {
	case map[string]interface{}:
		for key, child := range node {
			if isSensitive(key) {
				node[key] = redacted
			} else {
				node[key] = redactJSON(child)
			}
		}
		return node
	case []interface{}:
		for i, child := range node {
			node[i] = redactJSON(child)
		}
		return node
	default:
		return v
	}
}
