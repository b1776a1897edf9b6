package apperr

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code identifies the kind of failure independent of transport.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Metadata describes how a code is surfaced to HTTP clients.
type Metadata struct {
	HTTPStatus    int
	PublicMessage string
	// ShowMessage allows the error's own message to replace the public one.
	ShowMessage bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", ShowMessage: true},
	CodeNotFound:   {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found", ShowMessage: true},
	CodeConflict:   {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected", ShowMessage: true},
	CodeInternal:   {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error"},
}

// MetadataFor returns the metadata for code, falling back to internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a typed application error.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func Validation(format string, args ...any) *Error { return Newf(CodeValidation, format, args...) }
func NotFound(format string, args ...any) *Error   { return Newf(CodeNotFound, format, args...) }
func Conflict(format string, args ...any) *Error   { return Newf(CodeConflict, format, args...) }

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the outermost *Error from err's chain.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
