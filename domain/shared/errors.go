/*
Package shared - domain-layer building blocks shared across subdomains.

Error design:
1. The domain layer defines sentinel errors for type-safe errors.Is() checks
2. DomainError captures its stack at creation time but formats it lazily
3. Domain errors carry no HTTP status codes or other transport concepts
4. Built on the standard library errors package, no third-party dependency
*/
package shared

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ============================================================================
// Sentinel errors
// Used with errors.Is() to classify failures; they carry no context themselves
// ============================================================================

var (
	// ErrNotFound resource not found
	ErrNotFound = errors.New("not found")

	// ErrConflict resource conflict (duplicate slug, unique constraint)
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput input failed validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized caller identity missing or wrong
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden authenticated but not permitted
	ErrForbidden = errors.New("forbidden")
)

// ============================================================================
// DomainError
// Structured error carrying business context and the creation-point stack,
// compatible with errors.Is() and errors.As()
// ============================================================================

// DomainError is a domain-rule violation with context and a captured stack.
type DomainError struct {
	// Err underlying sentinel, for errors.Is() checks
	Err error

	// Entity name of the entity the error concerns (e.g. "post", "comment")
	Entity string

	// Message human-readable description
	Message string

	// Field optional: the field that failed validation
	Field string

	// stack creation-point frames, formatted on demand
	stack []uintptr
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the sentinel for errors.Is() and errors.As()
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Stack formats the captured stack on demand (only when logging)
func (e *DomainError) Stack() []string {
	return FormatStack(e.stack)
}

// ============================================================================
// Stack capture helpers
// ============================================================================

// CaptureStack captures the current call stack (exported for subdomain packages).
// skip is the number of frames to drop, usually 3: Callers, CaptureStack, NewXxxError.
func CaptureStack(skip int) []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(skip, pcs[:])
	return pcs[:n]
}

// FormatStack renders stack frames as strings, filtering runtime internals,
// at most 10 frames.
func FormatStack(stack []uintptr) []string {
	if len(stack) == 0 {
		return nil
	}

	frames := runtime.CallersFrames(stack)
	var result []string
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			result = append(result, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more || len(result) > 10 {
			break
		}
	}
	return result
}

// ============================================================================
// Constructors
// Capture the stack at creation time and tag the sentinel
// ============================================================================

// NewNotFoundError creates a "not found" domain error
func NewNotFoundError(entity string) error {
	return &DomainError{
		Err:     ErrNotFound,
		Entity:  entity,
		Message: entity + " not found",
		stack:   CaptureStack(3),
	}
}

// NewConflictError creates a "conflict" domain error
func NewConflictError(entity, message string) error {
	return &DomainError{
		Err:     ErrConflict,
		Entity:  entity,
		Message: message,
		stack:   CaptureStack(3),
	}
}

// NewValidationError creates a "validation failed" domain error
func NewValidationError(entity, field, reason string) error {
	return &DomainError{
		Err:     ErrInvalidInput,
		Entity:  entity,
		Field:   field,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// NewForbiddenError creates a "forbidden" domain error
func NewForbiddenError(entity, reason string) error {
	return &DomainError{
		Err:     ErrForbidden,
		Entity:  entity,
		Message: reason,
		stack:   CaptureStack(3),
	}
}

// ============================================================================
// Stacker
// Lets the API layer extract stacks uniformly
// ============================================================================

// Stacker is an error that can provide its creation-point stack.
type Stacker interface {
	Stack() []string
}
