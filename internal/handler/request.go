package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sakif/microblog/internal/apperror"
)

// validate is shared by all handlers. go-playground/validator reads the
// `validate` struct tags on the request DTOs below; one instance caches
// the parsed tags.
var validate = validator.New()

// Request DTOs. The `validate` tags are the whole form contract: decode +
// validate happens in decodeBody before any handler logic runs.

type signupRequest struct {
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName"  validate:"max=50"`
	Username  string `json:"username"  validate:"required,max=256"`
	Password  string `json:"password"  validate:"required,max=72"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName"  validate:"max=50"`
	Username  string `json:"username"  validate:"required,max=256"`
}

type updatePasswordRequest struct {
	Password string `json:"password" validate:"required,max=72"`
}

type messageRequest struct {
	Content string  `json:"content" validate:"required,max=10000"`
	TagIDs  []int64 `json:"tagIds"  validate:"dive,gt=0"`
}

type tagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// decodeBody decodes a JSON body into dst and runs the validator.
// Returns a typed validation error naming the first offending field.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.ValidationFailed("", "request body is required")
		}
		return apperror.ValidationFailed("", "request body is not valid JSON")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
			return apperror.ValidationFailed(field, validationMessage(fe, field))
		}
		return apperror.ValidationFailed("", "invalid request body")
	}
	return nil
}

func validationMessage(fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be positive", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

// listOptions reads limit/offset query parameters, leaving zero values for
// the service to clamp to defaults.
func listOptions(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, _ = strconv.Atoi(v)
	}
	return limit, offset
}
