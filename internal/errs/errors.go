// Package errs defines the error taxonomy shared by the gather engine and
// the browser driver. Errors carry a stable code, a user-facing message, and
// a fatality flag that controls whether a failure aborts the remaining run.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure independent of its message text.
type Code string

const (
	// NoDocumentRequest means the page never issued a request for the
	// target document.
	NoDocumentRequest Code = "NO_DOCUMENT_REQUEST"

	// FailedDocumentRequest means the document request was issued but the
	// browser reported it as failed.
	FailedDocumentRequest Code = "FAILED_DOCUMENT_REQUEST"

	// MissingArtifact means a gatherer completed all phases without
	// producing a value or an error. This is a programming defect.
	MissingArtifact Code = "MISSING_ARTIFACT"

	// ProtocolFailure covers browser protocol calls that returned an
	// unexpected error.
	ProtocolFailure Code = "PROTOCOL_FAILURE"
)

// Error is a classified failure.
type Error struct {
	Code    Code
	Fatal   bool
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns a recoverable classified error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap returns a recoverable classified error with a cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// Fatal marks an arbitrary error as run-aborting. Classified errors keep
// their code; everything else is wrapped as a protocol failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return &Error{Code: ce.Code, Fatal: true, Message: ce.Message, Cause: ce.Cause}
	}
	return &Error{Code: ProtocolFailure, Fatal: true, Message: err.Error(), Cause: err}
}

// IsFatal reports whether err carries the fatal flag.
func IsFatal(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Fatal
}

// IsPageLoadError reports whether err indicates the target document failed
// to load, as opposed to a gatherer-local or protocol fault.
func IsPageLoadError(err error) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == NoDocumentRequest || ce.Code == FailedDocumentRequest
}
