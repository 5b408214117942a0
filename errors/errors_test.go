package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew_StatusFromCode(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeInvalidToken, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeRouteNotFound, http.StatusNotFound},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeHashing, http.StatusInternalServerError},
		{ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "msg")
			if err.HTTPStatus != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, err.HTTPStatus)
			}
		})
	}
}

func TestUnauthorized_DefaultMessage(t *testing.T) {
	err := Unauthorized("")
	if err.Code != ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED, got %s", err.Code)
	}
	if err.Message == "" {
		t.Error("expected default message")
	}
	if err.Retryable {
		t.Error("Unauthorized should not be retryable")
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("db connection lost")
	err := Internal(cause)
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.HTTPStatus)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
	if !strings.Contains(err.Error(), "db connection lost") {
		t.Errorf("expected cause in Error(), got %q", err.Error())
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", Unauthorized("Email or password is incorrect"))
	if !stderrors.Is(wrapped, Unauthorized("")) {
		t.Error("expected wrapped error to match Unauthorized kind")
	}
	if stderrors.Is(wrapped, Conflict("x")) {
		t.Error("did not expect Conflict kind to match")
	}
}

func TestValidation_Fields(t *testing.T) {
	err := Validation("", FieldError{Field: "email", Message: "must be a valid email"})
	if err.Code != ErrCodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %s", err.Code)
	}
	err.WithField("password", "is required")
	if len(err.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(err.Fields))
	}
	if err.Fields[1].Field != "password" {
		t.Errorf("expected password field, got %q", err.Fields[1].Field)
	}
}

func TestToResponse_Envelope(t *testing.T) {
	resp := Conflict("User with this email already exists").ToResponse()
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	if body["code"] != "CONFLICT" {
		t.Errorf("expected code CONFLICT, got %v", body["code"])
	}
	if body["timestamp"] == "" || body["timestamp"] == nil {
		t.Error("expected timestamp")
	}
	if _, ok := body["errors"]; ok {
		t.Error("expected errors to be omitted when empty")
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Error("expected nil for nil error")
	}
	plain := fmt.Errorf("boom")
	if got := From(plain); got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_SERVER_ERROR, got %s", got.Code)
	}
	orig := BadRequest("Name is required")
	if got := From(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Error("expected From to unwrap the original AppError")
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error should not convert")
	}
	if !IsAppError(fmt.Errorf("w: %w", TokenExpired())) {
		t.Error("wrapped AppError should be detected")
	}
}
