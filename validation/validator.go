package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/kbukum/codecompass/errors"
)

// Validator collects field failures for programmatic checks in services.
type Validator struct {
	errors []errors.FieldError
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, errors.FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []errors.FieldError {
	return v.errors
}

// Validate returns a BAD_REQUEST AppError listing every failure, or nil.
func (v *Validator) Validate() *errors.AppError {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	appErr := errors.BadRequest(strings.Join(messages, "; "))
	appErr.Fields = v.errors
	return appErr
}

// Required checks if a string is non-empty after trimming.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// MinLength checks a non-empty string has at least n characters. Empty
// values are left to Required.
func (v *Validator) MinLength(field, value string, n int) *Validator {
	if value != "" && utf8.RuneCountInString(value) < n {
		v.AddError(field, fmt.Sprintf("must be at least %d characters long", n))
	}
	return v
}

// MaxLength checks a string has at most n characters.
func (v *Validator) MaxLength(field, value string, n int) *Validator {
	if utf8.RuneCountInString(value) > n {
		v.AddError(field, fmt.Sprintf("must be at most %d characters long", n))
	}
	return v
}

// Email checks a non-empty string is a bare email address.
func (v *Validator) Email(field, value string) *Validator {
	if value == "" {
		return v
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.AddError(field, "must be a valid email address")
	}
	return v
}

// Custom adds an error when ok is false.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
