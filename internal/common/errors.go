// Package common defines shared constants and sentinel errors used across
// the repository, service and transport layers. Callers should use errors.Is
// and errors.As to match these values.
package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrPersistence marks a backing-store failure (database or object store).
	ErrPersistence = errors.New("something went wrong")

	// ErrAdjudicationFailed is reported when an accept/reject decision could not be stored.
	ErrAdjudicationFailed = errors.New("adjudication failed")

	// ErrConflict is the umbrella for business-rule violations. Every
	// *ConflictError matches it with errors.Is.
	ErrConflict = errors.New("conflict")

	// Auth errors.
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ConflictError is a business-rule violation that is reported to the caller
// as a single human-readable message.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Is makes every ConflictError match ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

var (
	ErrAlreadySubmitted  error = &ConflictError{Message: "challenge has been already submitted"}
	ErrOwnChallenge      error = &ConflictError{Message: "you cannot submit to your own challenge"}
	ErrSelfJudging       error = &ConflictError{Message: "you cannot judge your own submission"}
	ErrChallengeClosed   error = &ConflictError{Message: "challenge is already done"}
	ErrSubmissionDecided error = &ConflictError{Message: "submission is already decided"}
	ErrEmailTaken        error = &ConflictError{Message: "user with this email already exists"}
	ErrUsernameTaken     error = &ConflictError{Message: "username already exists"}
)

// ValidationError carries field-level schema violations.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}
