package utils

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies an AppError so the HTTP layer can pick a status code.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindAuthorization  ErrorKind = "authorization"
	KindAuthentication ErrorKind = "authentication"
	KindBadRequest     ErrorKind = "bad_request"
	KindConflict       ErrorKind = "conflict"
	KindInternal       ErrorKind = "internal"
)

// AppError is the structured error returned by services.
type AppError struct {
	Kind    ErrorKind           `json:"-"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
	Err     error               `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind to an HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// NewValidationError creates a validation error with optional per-field messages.
func NewValidationError(message string, fields map[string][]string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

// NewNotFoundError reports a missing entity, e.g. NewNotFoundError("property").
func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func NewAuthorizationError(message string) *AppError {
	if message == "" {
		message = "You are not allowed to perform this action"
	}
	return &AppError{Kind: KindAuthorization, Message: message}
}

func NewAuthenticationError(message string) *AppError {
	if message == "" {
		message = "Unauthenticated"
	}
	return &AppError{Kind: KindAuthentication, Message: message}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// WrapInternal hides err behind a generic message. The cause stays reachable
// through errors.Unwrap for server-side logging.
func WrapInternal(err error, message string) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// InvalidIDs builds a validation error listing unknown ids per field.
func InvalidIDs(invalid map[string][]string) *AppError {
	fields := make(map[string][]string, len(invalid))
	keys := make([]string, 0, len(invalid))
	for field := range invalid {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		ids := invalid[field]
		fields[field] = []string{fmt.Sprintf("The selected %s are invalid: %s", field, strings.Join(ids, ", "))}
		parts = append(parts, field)
	}
	return NewValidationError("Invalid ids for "+strings.Join(parts, ", "), fields)
}
