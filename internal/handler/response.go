package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
)

// ErrorResponse is the standard error shape returned by every endpoint.
// A fixed shape means clients parse one format whether the status is 400,
// 404 or 500.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "unauthenticated"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // offending field for validation errors
}

// writeJSON sends a JSON response. Headers and status must go out before
// the body — once Encode writes, the headers are committed.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// This is the single place the apperror taxonomy meets HTTP. The service
// layer never sees a status code; different transports could map the same
// errors differently.
//
// Unauthenticated and Unauthorized deliberately map to different statuses
// AND different messages — "log in first" and "this isn't yours" are
// different instructions to the user.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		kind := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			kind = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			kind = "not_found"
		case errors.Is(err, apperror.ErrDuplicateUsername):
			status = http.StatusConflict
			kind = "duplicate_username"
		case errors.Is(err, apperror.ErrInvalidCredential):
			status = http.StatusUnauthorized
			kind = "invalid_credentials"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			kind = "unauthenticated"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusForbidden
			kind = "unauthorized"
		case errors.Is(err, apperror.ErrOAuthFailure):
			status = http.StatusBadGateway
			kind = "oauth_failure"
		case errors.Is(err, apperror.ErrOAuthLinkFailure):
			status = http.StatusBadGateway
			kind = "oauth_link_failure"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// Unknown error: generic 500. The raw message may contain SQL or
	// paths — it is logged upstream, never sent to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}
