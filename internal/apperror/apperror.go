package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the application's failure taxonomy. Services return
// these (wrapped in an *AppError); the HTTP layer maps them to status codes
// and user-facing messages without inspecting strings.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrOAuthFailure      = errors.New("oauth failure")
	ErrOAuthLinkFailure  = errors.New("oauth link failure")
)

type AppError struct {
	Err     error  // sentinel (one of the vars above)
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateUsername is returned when a signup or profile edit collides with
// an existing username. Detection happens at the storage layer (UNIQUE
// constraint), never by a pre-check, so two racing inserts can't both win.
func DuplicateUsername(username string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUsername,
		Message: fmt.Sprintf("username %q is already taken", username),
		Field:   "username",
	}
}

// InvalidCredentials covers both "no such user" and "wrong password".
// The single message is deliberate: a login failure must not reveal which
// of the two happened (anti-enumeration).
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredential,
		Message: "invalid username or password",
	}
}

// Unauthenticated is a guard rejection: the request carries no resolvable
// identity. HTTP handlers map this to 401.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// Unauthorized is a guard rejection: the request has an identity, but it
// doesn't own the target resource. HTTP handlers map this to 403 — a
// distinct message from Unauthenticated.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "you do not have access to this resource",
	}
}

// OAuthFailure means the provider callback carried no usable token or the
// identity fetch failed. Nothing was persisted; the user can retry the
// provider flow.
func OAuthFailure(message string) *AppError {
	return &AppError{
		Err:     ErrOAuthFailure,
		Message: message,
	}
}

// OAuthLinkFailure means persistence failed while linking a provider
// identity. The enclosing transaction has been rolled back — no partial
// rows remain.
func OAuthLinkFailure(message string) *AppError {
	return &AppError{
		Err:     ErrOAuthLinkFailure,
		Message: message,
	}
}
