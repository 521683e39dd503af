// Package api implements the HTTP surface of the species identification service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wildlife-vision/speciesid/internal/ecoregion"
	"github.com/wildlife-vision/speciesid/internal/geo"
	"github.com/wildlife-vision/speciesid/internal/identify"
	"github.com/wildlife-vision/speciesid/internal/middleware"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/seed"
	"github.com/wildlife-vision/speciesid/internal/species"
)

// Error codes returned in the error envelope.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeBadRequest indicates a malformed request body.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeNotFound indicates nothing matched the request.
	ErrCodeNotFound = "not_found"

	// ErrCodeAuthFailed indicates a missing bearer token.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeForbidden indicates a bearer token that does not match.
	ErrCodeForbidden = "forbidden"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeMethodNotAllowed indicates the route does not accept the method.
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// ErrCodeUnavailable indicates a disabled feature or an abandoned request.
	ErrCodeUnavailable = "unavailable"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"
)

// ErrorResponse is the error envelope: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the error envelope with status and records code for the
// request log.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	ctx = middleware.SetErrorCode(ctx, code)
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the HTTP status for an error code.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode classifies a domain error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, identify.ErrNoCandidates),
		errors.Is(err, identify.ErrNoSignals),
		errors.Is(err, ranking.ErrEmptyCandidateSet),
		errors.Is(err, species.ErrNotFound),
		errors.Is(err, ecoregion.ErrNotFound),
		errors.Is(err, seed.ErrNoVersions),
		errors.Is(err, seed.ErrNoFiles):
		return ErrCodeNotFound
	case errors.Is(err, identify.ErrInvalidRequest),
		errors.Is(err, ranking.ErrInvalidSimilarityValue),
		errors.Is(err, ranking.ErrInvalidWeight),
		errors.Is(err, geo.ErrInvalidCoordinates),
		errors.Is(err, species.ErrInvalidQuery),
		errors.Is(err, seed.ErrInvalidVersion),
		errors.Is(err, seed.ErrInvalidTTL):
		return ErrCodeValidation
	case errors.Is(err, seed.ErrMissingToken):
		return ErrCodeAuthFailed
	case errors.Is(err, seed.ErrInvalidToken):
		return ErrCodeForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeUnavailable
	case errors.Is(err, ranking.ErrScoreOverflow):
		return ErrCodeInternal
	default:
		return ErrCodeInternal
	}
}

// writeDomainError maps err to the envelope. Internal errors are logged and
// their text is not sent to the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	code := ErrorCode(err)
	message := err.Error()
	if code == ErrCodeInternal {
		slog.ErrorContext(ctx, "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(ctx))
		message = "Internal server error"
	}
	WriteError(w, ctx, StatusCodeMapping(code), code, message)
}

// methodNotAllowed writes 405 with an Allow header.
func methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	WriteError(w, r.Context(), http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
}

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err, "path", r.URL.Path)
	}
}
