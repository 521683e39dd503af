// Package middleware provides the HTTP middleware stack for the species
// identification API.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// errorCodeKey is the context key for error code.
type errorCodeKey struct{}

// responseStateKey is the context key for the per-request response state.
type responseStateKey struct{}

// responseState carries values set by handlers back out to Logging, since
// handlers can only derive child contexts.
type responseState struct {
	mu        sync.Mutex
	errorCode string
}

func (s *responseState) setErrorCode(code string) {
	s.mu.Lock()
	s.errorCode = code
	s.mu.Unlock()
}

func (s *responseState) getErrorCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorCode
}

func stateFrom(ctx context.Context) *responseState {
	st, _ := ctx.Value(responseStateKey{}).(*responseState)
	return st
}

// SetErrorCode stores an error code in the context and, when running under
// Logging, records it for the request log line.
func SetErrorCode(ctx context.Context, code string) context.Context {
	if st := stateFrom(ctx); st != nil {
		st.setErrorCode(code)
	}
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode retrieves the error code from context. Returns empty string if not present.
func GetErrorCode(ctx context.Context) string {
	if code, ok := ctx.Value(errorCodeKey{}).(string); ok {
		return code
	}
	return ""
}

// UpdateResponseContext publishes the error code carried by ctx to the
// logging middleware serving w.
func UpdateResponseContext(w http.ResponseWriter, ctx context.Context) {
	code := GetErrorCode(ctx)
	if code == "" {
		return
	}
	if st := stateFrom(ctx); st != nil {
		st.setErrorCode(code)
		return
	}
	if rw, ok := w.(*responseWriter); ok {
		rw.state.setErrorCode(code)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
	state       *responseState
}

// WriteHeader records only the first status code, matching net/http.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.wroteHeader = true
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func newResponseWriter(w http.ResponseWriter, st *responseState) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		state:          st,
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield ok=false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewLogger creates an slog.Logger for env. Production logs JSON at info,
// everything else logs text at debug. A recognised level overrides the default.
func NewLogger(env, level string) *slog.Logger {
	lvl := slog.LevelDebug
	if env == "production" {
		lvl = slog.LevelInfo
	}
	if parsed, ok := ParseLevel(level); ok {
		lvl = parsed
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Logging logs one structured line per request: method, path, status,
// latency_ms, size, request_id, trace_id and error_code (4xx/5xx only).
//
// A panicking handler produces no log line; place Recover outside Logging.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			st := &responseState{}
			ctx := context.WithValue(r.Context(), responseStateKey{}, st)
			r = r.WithContext(ctx)
			rw := newResponseWriter(w, st)

			next.ServeHTTP(rw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
				slog.Int("size", rw.size),
			}
			if requestID := GetRequestID(ctx); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}
			if traceID := GetTraceID(r); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			if rw.statusCode >= 400 {
				code := st.getErrorCode()
				if code == "" {
					code = GetErrorCode(ctx)
				}
				if code != "" {
					attrs = append(attrs, slog.String("error_code", code))
				}
			}

			switch {
			case rw.statusCode >= 500:
				logger.LogAttrs(ctx, slog.LevelError, "request completed", attrs...)
			case rw.statusCode >= 400:
				logger.LogAttrs(ctx, slog.LevelWarn, "request completed", attrs...)
			default:
				logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}

// Recover turns a handler panic into a 500 and logs it.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.ErrorContext(r.Context(), "handler panic",
						slog.Any("panic", v),
						slog.String("path", r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())))
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
