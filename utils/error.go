package utils

import "errors"

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrorForbidden      = errors.New("forbidden")
	ErrorUnauthorized   = errors.New("unauthorized")
	ErrorValidation     = errors.New("validation failed")

	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorUserDisabled       = errors.New("user is disabled")
)

// ValidationError carries per-field messages; errors.Is(err, ErrorValidation) holds for it.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

func NewValidationError(field string, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
