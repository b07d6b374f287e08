package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAccessDenied gating failed: course not free, not purchased, user absent or role insufficient
var ErrAccessDenied = errors.New("Access to the course is denied")

// ErrNotFound referenced user, course, lesson or enrollment does not exist upstream
var ErrNotFound = errors.New("Resource not found")

// ErrInvalidInput malformed or out-of-range request data
var ErrInvalidInput = errors.New("Invalid input")

// FieldError field error to be nested by other errors
type FieldError struct {
	Domain string `json:"domain"`
	Reason string `json:"reason"`
}

// InputError carries the offending fields, matches ErrInvalidInput
type InputError struct {
	Fields []*FieldError
}

// NewInputError create an InputError with a single field
func NewInputError(domain, reason string) *InputError {
	return &InputError{Fields: []*FieldError{{Domain: domain, Reason: reason}}}
}

func (e *InputError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Domain, f.Reason))
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidInput.Error(), strings.Join(parts, "; "))
}

// Is make errors.Is(err, ErrInvalidInput) work
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError names what was missing, matches ErrNotFound
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No such %s: %s", e.Kind, e.ID)
}

// Is make errors.Is(err, ErrNotFound) work
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
