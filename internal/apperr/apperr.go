// Package apperr defines the error kinds esfake surfaces to clients, and
// the envelope shape Elasticsearch itself uses to report them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for each Elasticsearch-compatible error kind. Handlers
// match these with errors.Is/errors.As.
var (
	ErrSecurity                = errors.New("security_exception")
	ErrIndexNotFound           = errors.New("index_not_found_exception")
	ErrResourceAlreadyExists   = errors.New("resource_already_exists_exception")
	ErrMapperParsing           = errors.New("mapper_parsing_exception")
	ErrIllegalArgument         = errors.New("illegal_argument_exception")
	ErrDocumentMissing         = errors.New("document_missing_exception")
	ErrParseException          = errors.New("parse_exception")
	ErrActionRequestValidation = errors.New("action_request_validation_exception")
)

// statusByKind maps each sentinel to its HTTP status per the error table.
var statusByKind = map[error]int{
	ErrSecurity:                http.StatusUnauthorized,
	ErrIndexNotFound:           http.StatusNotFound,
	ErrResourceAlreadyExists:   http.StatusBadRequest,
	ErrMapperParsing:           http.StatusBadRequest,
	ErrIllegalArgument:         http.StatusBadRequest,
	ErrDocumentMissing:         http.StatusNotFound,
	ErrParseException:          http.StatusBadRequest,
	ErrActionRequestValidation: http.StatusBadRequest,
}

// Error is a structured Elasticsearch-shaped error, wrapping one of the
// sentinels above with the extra fields the wire envelope carries.
type Error struct {
	sentinel  error
	Reason    string
	Index     string
	IndexUUID string
}

// New creates an Error wrapping sentinel with a human-readable reason.
func New(sentinel error, reason string) *Error {
	return &Error{sentinel: sentinel, Reason: reason}
}

// WithIndex attaches index/index_uuid fields to the error.
func (e *Error) WithIndex(index, uuid string) *Error {
	e.Index = index
	e.IndexUUID = uuid
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type(), e.Reason)
}

// Unwrap lets errors.Is/errors.As see through to the sentinel.
func (e *Error) Unwrap() error { return e.sentinel }

// Type returns the snake_case Elasticsearch error type.
func (e *Error) Type() string { return e.sentinel.Error() }

// Status returns the HTTP status code for this error's kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.sentinel]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// StatusFor returns the HTTP status for a bare sentinel (used before an
// *Error has been constructed, e.g. by errors.Is chains in tests).
func StatusFor(err error) int {
	for sentinel, status := range statusByKind {
		if errors.Is(err, sentinel) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// Securityf builds a security_exception.
func Securityf(format string, args ...any) *Error {
	return New(ErrSecurity, fmt.Sprintf(format, args...))
}

// IndexNotFoundf builds an index_not_found_exception.
func IndexNotFoundf(index string) *Error {
	return New(ErrIndexNotFound, fmt.Sprintf("no such index [%s]", index)).WithIndex(index, "_na_")
}

// ResourceAlreadyExistsf builds a resource_already_exists_exception.
func ResourceAlreadyExistsf(index string) *Error {
	return New(ErrResourceAlreadyExists,
		fmt.Sprintf("index [%s] already exists", index)).WithIndex(index, "_na_")
}

// MapperParsingf builds a mapper_parsing_exception.
func MapperParsingf(format string, args ...any) *Error {
	return New(ErrMapperParsing, fmt.Sprintf(format, args...))
}

// IllegalArgumentf builds an illegal_argument_exception.
func IllegalArgumentf(format string, args ...any) *Error {
	return New(ErrIllegalArgument, fmt.Sprintf(format, args...))
}

// DocumentMissingf builds a document_missing_exception.
func DocumentMissingf(index, id string) *Error {
	return New(ErrDocumentMissing, fmt.Sprintf("document missing: [%s]/[%s]", index, id)).WithIndex(index, "_na_")
}

// ParseExceptionf builds a parse_exception.
func ParseExceptionf(format string, args ...any) *Error {
	return New(ErrParseException, fmt.Sprintf(format, args...))
}

// ActionRequestValidationf builds an action_request_validation_exception.
func ActionRequestValidationf(format string, args ...any) *Error {
	return New(ErrActionRequestValidation, fmt.Sprintf(format, args...))
}
