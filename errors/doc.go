// Package errors provides the service's single tagged error type.
//
// Every failure the auth core can produce is an *AppError whose Code selects
// the kind (BAD_REQUEST, UNAUTHORIZED, CONFLICT, ...). The HTTP layer maps a
// code to a status and renders the ErrorResponse envelope.
package errors
