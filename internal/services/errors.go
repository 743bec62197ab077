package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies a service failure so handlers can map it to an HTTP
// status without inspecting message text.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"   // malformed or missing input
	KindPermission   ErrorKind = "permission"   // actor's role may not perform this
	KindPrecondition ErrorKind = "precondition" // entity state forbids the transition
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict" // duplicate or concurrent modification
)

// Error is the typed error returned by all services
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad input
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewPermissionError reports a role that may not act
func NewPermissionError(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Message: fmt.Sprintf(format, args...)}
}

// NewPreconditionError reports an entity state that forbids the operation
func NewPreconditionError(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports a missing record
func NewNotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError reports a duplicate or concurrent modification
func NewConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the error's kind, or "" for untyped errors
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return ""
}

// wrapFindErr converts a gorm lookup failure into a typed not-found where
// applicable; other database errors pass through untyped.
func wrapFindErr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewNotFoundError(format, args...)
	}
	return err
}
