package validate

import "github.com/pot-code/progress-engine/internal/domain"

// FieldError field error to be nested by other errors
type FieldError = domain.FieldError

// NewFieldError create new field error
func NewFieldError(domain string, reason string) *FieldError {
	return &FieldError{Domain: domain, Reason: reason}
}

// Validator .
type Validator interface {
	Struct(s interface{}) []*FieldError
	Empty(varName string, s interface{}) []*FieldError
}
