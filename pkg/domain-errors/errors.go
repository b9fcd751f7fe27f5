// Package domainerrors defines code-carrying domain errors. Services create and
// wrap errors with a Code; transports translate the Code into a status line
// without inspecting error strings. Conventionally imported as dErrors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. Codes are part of the API surface: they
// are returned verbatim in error envelopes, so renaming one is a breaking change.
type Code string

const (
	CodeNotFound               Code = "not_found"
	CodeValidation             Code = "validation_error"
	CodeInvalidStageTransition Code = "invalid_stage_transition"
	CodePreconditionFailed     Code = "precondition_failed"
	CodeCollaboratorTimeout    Code = "collaborator_timeout"
	CodeCollaboratorRejected   Code = "collaborator_rejected"
	CodeBadRequest             Code = "bad_request"
	CodeConflict               Code = "conflict"
	CodeInternal               Code = "internal"
)

// DomainError pairs a machine-readable Code with a human-readable detail.
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// New creates a DomainError with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is a convenience alias for HasCode, reading naturally at call sites:
// dErrors.Is(err, dErrors.CodeNotFound).
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// GetCode extracts the outermost code, defaulting to CodeInternal for plain
// errors so transports always have something to report.
func GetCode(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Detail extracts the outermost message, falling back to err.Error().
func Detail(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// ToHTTPStatus maps a code to its HTTP status. Unknown codes map to 500 so a
// missing entry fails loudly in responses rather than silently succeeding.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidStageTransition, CodeConflict:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case CodeCollaboratorTimeout:
		return http.StatusGatewayTimeout
	case CodeCollaboratorRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
