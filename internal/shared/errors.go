package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across modules. Services resolve failures into one
// of these kinds so handlers can pick a message without inspecting store
// error text.
var (
	// ErrUnauthenticated indicates no resolvable caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the caller lacks a required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the referenced id does not resolve to a live row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness invariant was violated at write time.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrGuarded indicates a soft delete was blocked by live dependents.
	ErrGuarded = errors.New("blocked by dependents")
	// ErrValidation indicates submitted data failed form-level rules.
	ErrValidation = errors.New("validation failed")
	// ErrConstraint indicates a store-layer integrity violation other than
	// uniqueness, e.g. a foreign key reference to a missing row.
	ErrConstraint = errors.New("constraint violation")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when a CSRF token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// DuplicateError carries the entity and key that collided.
type DuplicateError struct {
	Entity string
	Key    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Key)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// GuardError reports a refused soft delete and what blocked it.
type GuardError struct {
	Entity     string
	Dependents string
	Count      int
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("%s has %d live %s", e.Entity, e.Count, e.Dependents)
}

func (e *GuardError) Unwrap() error { return ErrGuarded }

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// UserSafeMessage converts an error into text suitable for rendering to the
// caller. Unexpected store errors collapse to a generic message so internal
// details never leak.
func UserSafeMessage(err error) string {
	var dup *DuplicateError
	var guard *GuardError
	var val *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dup):
		return dup.Error()
	case errors.As(err, &guard):
		return fmt.Sprintf("Cannot delete: %d dependent %s still exist", guard.Count, guard.Dependents)
	case errors.As(err, &val):
		return "Please correct the highlighted fields"
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	case errors.Is(err, ErrDuplicate):
		return "A record with that name already exists"
	case errors.Is(err, ErrGuarded):
		return "Cannot delete: dependent records still exist"
	case errors.Is(err, ErrForbidden):
		return "You are not authorized to perform this action"
	case errors.Is(err, ErrUnauthenticated):
		return "Please sign in to continue"
	case errors.Is(err, ErrValidation):
		return "Please correct the highlighted fields"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	default:
		return "Something went wrong, please try again"
	}
}
