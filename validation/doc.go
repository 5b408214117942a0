// Package validation checks request payloads and service inputs.
//
// Struct tag validation (go-playground/validator) handles HTTP DTOs and
// yields VALIDATION_ERROR; the fluent Validator is used inside services and
// yields BAD_REQUEST:
//
//	if err := validation.New().
//	    Required("email", email).
//	    MinLength("password", password, 8).
//	    Validate(); err != nil {
//	    return err
//	}
package validation
