package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced to callers.
const (
	CodeValidation             = "VALIDATION_FAILED"
	CodeIllegalTransition      = "ILLEGAL_TRANSITION"
	CodeForbidden              = "FORBIDDEN"
	CodeAlreadyEvaluated       = "ALREADY_EVALUATED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeNotFound               = "NOT_FOUND"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeInternal               = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so sentinels work with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation             = &DomainError{Code: CodeValidation}
	ErrIllegalTransition      = &DomainError{Code: CodeIllegalTransition}
	ErrForbidden              = &DomainError{Code: CodeForbidden}
	ErrAlreadyEvaluated       = &DomainError{Code: CodeAlreadyEvaluated}
	ErrConcurrentModification = &DomainError{Code: CodeConcurrentModification}
	ErrNotFound               = &DomainError{Code: CodeNotFound}
	ErrUnauthorized           = &DomainError{Code: CodeUnauthorized}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewIllegalTransition(message string, details map[string]any) error {
	return NewDomainError(CodeIllegalTransition, message, http.StatusConflict, details)
}

// NewRoleForbidden is an illegal transition caused by the caller's role rather than the ticket state.
func NewRoleForbidden(message string, details map[string]any) error {
	return NewDomainError(CodeIllegalTransition, message, http.StatusForbidden, details)
}

// NewForbidden rejects access to a ticket the caller does not own.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewAlreadyEvaluated(ticketID int64, cycle int) error {
	return NewDomainError(CodeAlreadyEvaluated, "ticket already evaluated for this cycle", http.StatusConflict,
		map[string]any{"ticket_id": ticketID, "cycle": cycle})
}

func NewConcurrentModification(ticketID int64) error {
	return NewDomainError(CodeConcurrentModification, "ticket was modified concurrently; refetch and retry", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

// MapError converts err into a DomainError while keeping nil as nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
