package validation

import (
	"fmt"
	"testing"

	"github.com/kbukum/codecompass/errors"
)

func TestValidatorRequired(t *testing.T) {
	if New().Required("name", "Ana").HasErrors() {
		t.Error("expected no errors for valid input")
	}
	if !New().Required("name", "").HasErrors() {
		t.Error("expected error for empty required field")
	}
	if !New().Required("name", "   ").HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorMinLength(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"longpassword1", false},
		{"12345678", false},
		{"short", true},
		{"", false},
		{"ñññññññ", true},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			got := New().MinLength("password", tc.value, 8).HasErrors()
			if got != tc.wantErr {
				t.Errorf("MinLength(%q) hasErrors=%v, want %v", tc.value, got, tc.wantErr)
			}
		})
	}
}

func TestValidatorEmail(t *testing.T) {
	if New().Email("email", "ana@x.com").HasErrors() {
		t.Error("expected valid email")
	}
	if !New().Email("email", "not-an-email").HasErrors() {
		t.Error("expected invalid email")
	}
	if !New().Email("email", "Ana <ana@x.com>").HasErrors() {
		t.Error("display-name form should be rejected")
	}
}

func TestValidator_ValidateBuildsBadRequest(t *testing.T) {
	err := New().
		Required("name", "").
		Required("email", "ana@x.com").
		MinLength("password", "short", 8).
		Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Code != errors.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %s", err.Code)
	}
	if len(err.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Fields))
	}
	if err.Fields[0].Field != "name" || err.Fields[1].Field != "password" {
		t.Errorf("unexpected fields: %+v", err.Fields)
	}

	if New().Required("name", "Ana").Validate() != nil {
		t.Error("expected nil for valid input")
	}
}

type registerPayload struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	NoTag    string `validate:"omitempty,max=2"`
}

func TestValidate_Struct(t *testing.T) {
	ok := registerPayload{Name: "Ana", Email: "ana@x.com", Password: "longpassword1"}
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := Validate(registerPayload{Email: "nope", Password: "short", NoTag: "abc"})
	appErr, isApp := errors.AsAppError(err)
	if !isApp {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %s", appErr.Code)
	}
	got := map[string]string{}
	for _, f := range appErr.Fields {
		got[f.Field] = f.Message
	}
	want := map[string]string{
		"name":     "is required",
		"email":    "must be a valid email address",
		"password": "must be at least 8 characters",
		"no_tag":   "must be at most 2 characters",
	}
	for field, msg := range want {
		if got[field] != msg {
			t.Errorf("field %s: expected %q, got %q", field, msg, got[field])
		}
	}
}

func TestFromError_NonValidation(t *testing.T) {
	appErr := FromError(fmt.Errorf("unexpected EOF"))
	if appErr.Code != errors.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %s", appErr.Code)
	}
}
