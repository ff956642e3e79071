package apperror

import (
	"errors"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", 42),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("username", "username is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "DuplicateUsername wraps ErrDuplicateUsername",
			err:       DuplicateUsername("alice"),
			target:    ErrDuplicateUsername,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredential",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredential,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated(),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "OAuthFailure wraps ErrOAuthFailure",
			err:       OAuthFailure("provider returned no token"),
			target:    ErrOAuthFailure,
			wantMatch: true,
		},
		{
			name:      "OAuthLinkFailure wraps ErrOAuthLinkFailure",
			err:       OAuthLinkFailure("saving link failed"),
			target:    ErrOAuthLinkFailure,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated does NOT match ErrUnauthorized",
			err:       Unauthenticated(),
			target:    ErrUnauthorized,
			wantMatch: false,
		},
		{
			name:      "DuplicateUsername does NOT match ErrValidation",
			err:       DuplicateUsername("alice"),
			target:    ErrValidation,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("message", 7),
			wantMessage: "message not found with id 7",
		},
		{
			name:        "DuplicateUsername names the username",
			err:         DuplicateUsername("alice"),
			wantMessage: `username "alice" is already taken`,
		},
		{
			name:        "InvalidCredentials is generic",
			err:         InvalidCredentials(),
			wantMessage: "invalid username or password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

// The login failure message must be identical whether the username doesn't
// exist or the password is wrong — a caller (or attacker) can't tell the
// two apart from the error alone.
func TestInvalidCredentialsIndistinguishable(t *testing.T) {
	unknownUser := InvalidCredentials()
	wrongPassword := InvalidCredentials()

	if unknownUser.Error() != wrongPassword.Error() {
		t.Errorf("messages differ: %q vs %q", unknownUser.Error(), wrongPassword.Error())
	}
	if !errors.Is(unknownUser, ErrInvalidCredential) || !errors.Is(wrongPassword, ErrInvalidCredential) {
		t.Error("both should wrap ErrInvalidCredential")
	}
}

func TestUnwrap(t *testing.T) {
	err := DuplicateUsername("bob")
	if unwrapped := err.Unwrap(); unwrapped != ErrDuplicateUsername {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrDuplicateUsername)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("username", "username is required")
	if err.Field != "username" {
		t.Errorf("Field = %q, want %q", err.Field, "username")
	}
}
