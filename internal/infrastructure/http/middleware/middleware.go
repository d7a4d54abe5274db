// Package middleware provides Chi-compatible middleware for the API server
package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/alchemorsel/mealplan/pkg/errors"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger logs every request with its outcome
func Logger(logger *zap.Logger, skipPaths ...string) func(next http.Handler) http.Handler {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			if _, ok := skip[r.URL.Path]; ok {
				return
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("latency", time.Since(start)),
			}

			switch {
			case status >= 500:
				logger.Error("Server error", fields...)
			case status >= 400:
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}

// Recovery turns a panic into a 500 error response
func Recovery(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := chimiddleware.GetReqID(r.Context())
				logger.Error("Panic recovered",
					zap.String("request_id", requestID),
					zap.Any("error", rec),
					zap.String("stack", string(debug.Stack())),
				)

				appErr := errors.NewInternalError("Internal server error").
					WithCause(fmt.Errorf("panic: %v", rec))
				writeError(w, appErr, requestID)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// BodyLimit caps request bodies at maxBytes
func BodyLimit(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// JSONOnly rejects request bodies that are not JSON
func JSONOnly() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				// bodiless POSTs such as nutrition recompute are allowed
				if r.ContentLength != 0 && !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
					appErr := errors.NewAppError(errors.CodeBadRequest,
						"Content-Type must be application/json", r.Header.Get("Content-Type"))
					writeErrorStatus(w, http.StatusUnsupportedMediaType, appErr, chimiddleware.GetReqID(r.Context()))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Security adds security headers for API responses
func Security() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			next.ServeHTTP(w, r)
		})
	}
}

// NotFound renders unknown routes with the error envelope
func NotFound(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewNotFoundError("Route").WithMetadata("path", r.URL.Path)
	writeError(w, appErr, chimiddleware.GetReqID(r.Context()))
}

// MethodNotAllowed renders unsupported methods with the error envelope
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	appErr := errors.NewAppError(errors.CodeBadRequest, "Method not allowed", r.Method)
	writeErrorStatus(w, http.StatusMethodNotAllowed, appErr, chimiddleware.GetReqID(r.Context()))
}

func writeError(w http.ResponseWriter, appErr *errors.AppError, requestID string) {
	writeErrorStatus(w, appErr.StatusCode(), appErr, requestID)
}

func writeErrorStatus(w http.ResponseWriter, status int, appErr *errors.AppError, requestID string) {
	resp := errors.ToErrorResponse(appErr, requestID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool                `json:"success"`
		Error   errors.ErrorDetails `json:"error"`
		Message string              `json:"message,omitempty"`
	}{Error: resp.Error, Message: appErr.Message})
}
