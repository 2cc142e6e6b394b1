// Package qrerrors defines the error taxonomy shared by the render pipeline
// and the HTTP layer. Every failure that crosses a package boundary carries a
// Code so transports can map it to a status without string matching.
package qrerrors

import (
	"errors"
	"fmt"
)

// Code classifies a pipeline failure.
type Code int

const (
	// CodeUnknown is the zero value; errors without a code map to it.
	CodeUnknown Code = iota
	// CodeInvalidInput covers empty content, bad EC tokens and malformed colors.
	CodeInvalidInput
	// CodeInvalidUpload covers disallowed extensions and undecodable logo bytes.
	CodeInvalidUpload
	// CodeLogoProcessing marks a logo that decoded but failed during
	// resize/mask/composite. The pipeline recovers from it locally.
	CodeLogoProcessing
	// CodeNotFound marks a malformed, missing or already-swept artifact id.
	CodeNotFound
	// CodeInternal marks unexpected encoding or IO failures.
	CodeInternal
)

func (c Code) String() string {
	switch c {
	case CodeInvalidInput:
		return "invalid_input"
	case CodeInvalidUpload:
		return "invalid_upload"
	case CodeLogoProcessing:
		return "logo_processing_failed"
	case CodeNotFound:
		return "not_found"
	case CodeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// E builds a coded error from a format string.
func E(code Code, format string, args ...any) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...), err: err}
}

// CodeOf extracts the code from err. Nil errors return CodeUnknown, as do
// errors that never passed through this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsNotFound reports whether err carries CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }
