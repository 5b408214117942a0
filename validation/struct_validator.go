package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/codecompass/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// Engine returns the shared validator instance. Field names in errors are
// taken from json tags so they match the request payload.
func Engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return validate
}

// Validate validates a struct using `validate:"..."` tags.
func Validate(s any) error {
	if err := Engine().Struct(s); err != nil {
		return FromError(err)
	}
	return nil
}

// FromError converts validator errors into a VALIDATION_ERROR AppError.
// Other errors (e.g. malformed JSON from binding) become BAD_REQUEST.
func FromError(err error) *errors.AppError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.BadRequest("Request body is malformed.").WithCause(err)
	}

	fields := make([]errors.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, errors.FieldError{
			Field:   e.Field(),
			Message: formatValidationError(e),
		})
	}
	return errors.Validation("Validation failed.", fields...)
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + e.Param() + " characters"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
