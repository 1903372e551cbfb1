// Package errors - application error codes with HTTP mapping.
// Used only at the API boundary; the domain layer keeps its own sentinel
// errors and this package translates them (via errors.Is) into client-facing
// codes.
package errors

import (
	"errors"
	"net/http"

	"blog/domain/blog"
	"blog/domain/shared"
)

// ErrorCode client-facing error code
type ErrorCode string

const (
	// Generic codes
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeTooManyRequest ErrorCode = "TOO_MANY_REQUESTS"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"

	// Blog domain codes
	CodePostNotFound      ErrorCode = "POST_NOT_FOUND"
	CodeAlreadyPublished  ErrorCode = "ALREADY_PUBLISHED"
	CodePostArchived      ErrorCode = "POST_ARCHIVED"
	CodeContentTooShort   ErrorCode = "CONTENT_TOO_SHORT"
	CodeCommentNotAllowed ErrorCode = "COMMENT_NOT_ALLOWED"
	CodeCommentNotFound   ErrorCode = "COMMENT_NOT_FOUND"
	CodeDuplicateSlug     ErrorCode = "DUPLICATE_SLUG"
)

// AppError application-level error with a stable code
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return string(e.Code) + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the code to its HTTP status
func (e *AppError) HTTPStatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodePostNotFound, CodeCommentNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateSlug:
		return http.StatusConflict
	case CodeTooManyRequest:
		return http.StatusTooManyRequests
	case CodeAlreadyPublished, CodePostArchived, CodeContentTooShort, CodeCommentNotAllowed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// New creates an application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap attaches a cause to an application error
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common constructors

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequest, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Is reports whether err carries the given application code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// AsAppError converts any error into an AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, "internal server error")
}

// MapDomainError translates domain sentinel errors into application errors.
// Unrecognized errors become internal errors so domain details never leak.
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, blog.ErrPostNotFound):
		return Wrap(err, CodePostNotFound, "post not found")
	case errors.Is(err, blog.ErrCommentNotFound):
		return Wrap(err, CodeCommentNotFound, "comment not found")
	case errors.Is(err, blog.ErrAlreadyPublished):
		return Wrap(err, CodeAlreadyPublished, "post is already published")
	case errors.Is(err, blog.ErrPostArchived):
		return Wrap(err, CodePostArchived, "post is archived")
	case errors.Is(err, blog.ErrContentTooShort):
		return Wrap(err, CodeContentTooShort, err.Error())
	case errors.Is(err, blog.ErrCommentNotAllowed):
		return Wrap(err, CodeCommentNotAllowed, "commenting is not allowed on this post")
	case errors.Is(err, blog.ErrDuplicateSlug):
		return Wrap(err, CodeDuplicateSlug, "a post with this slug already exists")
	case errors.Is(err, blog.ErrUnauthorizedPostAction):
		return Wrap(err, CodeForbidden, "you are not allowed to perform this action")
	case errors.Is(err, shared.ErrNotFound):
		return Wrap(err, CodeNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		return Wrap(err, CodeConflict, err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		return Wrap(err, CodeValidation, err.Error())
	case errors.Is(err, shared.ErrUnauthorized):
		return Wrap(err, CodeUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		return Wrap(err, CodeForbidden, err.Error())
	default:
		return Wrap(err, CodeInternal, "internal server error")
	}
}
