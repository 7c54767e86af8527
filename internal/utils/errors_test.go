package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad", nil), http.StatusUnprocessableEntity},
		{NewNotFoundError("property"), http.StatusNotFound},
		{NewAuthorizationError(""), http.StatusForbidden},
		{NewAuthenticationError(""), http.StatusUnauthorized},
		{NewBadRequestError("Invalid OTP"), http.StatusBadRequest},
		{NewConflictError("taken"), http.StatusConflict},
		{WrapInternal(errors.New("boom"), "failed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.err.StatusCode(); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.err.Kind, got, tt.want)
		}
	}
}

func TestNotFoundMessage(t *testing.T) {
	if got := NewNotFoundError("property").Message; got != "property not found" {
		t.Errorf("message = %q", got)
	}
}

func TestWrapInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("outer: %w", WrapInternal(cause, "failed to load"))

	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through errors.Is")
	}
	if !IsKind(err, KindInternal) {
		t.Error("IsKind should see through wrapping")
	}
	if IsKind(errors.New("plain"), KindInternal) {
		t.Error("plain errors have no kind")
	}
}

func TestInvalidIDs(t *testing.T) {
	err := InvalidIDs(map[string][]string{
		"locality_ids": {"x"},
		"bhk_type_ids": {"a", "b"},
	})
	if err.Kind != KindValidation {
		t.Fatalf("kind = %s", err.Kind)
	}
	if got := err.Fields["bhk_type_ids"][0]; got != "The selected bhk_type_ids are invalid: a, b" {
		t.Errorf("bhk message = %q", got)
	}
	if got := err.Message; got != "Invalid ids for bhk_type_ids, locality_ids" {
		t.Errorf("message = %q", got)
	}
}
