package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error for callers that only care about the category.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindValidation        ErrorKind = "VALIDATION"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindInvalidQuantity   ErrorKind = "INVALID_QUANTITY"
	KindConflict          ErrorKind = "CONFLICT"
	KindInternal          ErrorKind = "INTERNAL"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError by code, or by kind when the target is a kind sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code == string(t.Kind) {
		return e.Kind == t.Kind
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError builds a NOT_FOUND error for an entity and identifier.
func NewNotFoundError(entity string, id any) *DomainError {
	return NewDomainError(KindNotFound, string(KindNotFound), fmt.Sprintf("%s %v not found", entity, id))
}

// NewValidationError builds a VALIDATION error with a specific code.
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewConflictError builds a CONFLICT error with a specific code.
func NewConflictError(code, message string) *DomainError {
	return NewDomainError(KindConflict, code, message)
}

// NewInvalidTransitionError reports a state machine violation.
func NewInvalidTransitionError(entity, from, action string) *DomainError {
	return NewDomainError(KindValidation, "INVALID_STATE",
		fmt.Sprintf("cannot %s %s in status %s", action, entity, from))
}

// KindOf classifies any error. Errors that are not domain errors are INTERNAL.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Kind sentinels match every error of the kind.
var (
	ErrNotFound          = NewDomainError(KindNotFound, string(KindNotFound), "Resource not found")
	ErrValidation        = NewDomainError(KindValidation, string(KindValidation), "Validation failed")
	ErrInsufficientStock = NewDomainError(KindInsufficientStock, string(KindInsufficientStock), "Insufficient stock available")
	ErrInvalidQuantity   = NewDomainError(KindInvalidQuantity, string(KindInvalidQuantity), "Quantity invariant violated")
	ErrConflict          = NewDomainError(KindConflict, string(KindConflict), "Conflicting change")
)

// Specific errors shared across modules
var (
	ErrOptimisticLock = NewDomainError(KindConflict, "OPTIMISTIC_LOCK_FAILED", "Resource was modified by another process")
	ErrAlreadyExists  = NewDomainError(KindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidState   = NewDomainError(KindValidation, "INVALID_STATE", "Operation not allowed in current status")
)
