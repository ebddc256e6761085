package extract

import (
	"errors"

	"mediarelay/internal/media"
)

// ErrorKind classifies a relay failure.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindProtected
	KindExtraction
	KindStream
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProtected:
		return "protected_content"
	case KindExtraction:
		return "extraction_failed"
	case KindStream:
		return "stream_failed"
	default:
		return "unknown"
	}
}

// Client-facing messages. Extractor diagnostics never cross the relay boundary.
const (
	msgURLRequired = "URL required"
	msgInvalidURL  = "Invalid URL"
	msgProtected   = "This content is protected or private. Only public links are supported."
	msgProbeFailed = "Failed to probe media"
	msgStreamFail  = "Failed to stream media"
)

// Error is a classified relay failure. Message is safe to show to clients;
// Err carries the internal cause for logging.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors of the same kind, so errors.Is(err, ErrProtected) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrProtected  = &Error{Kind: KindProtected}
	ErrExtraction = &Error{Kind: KindExtraction}
	ErrStream     = &Error{Kind: KindStream}
)

// KindOf returns the classification of err, or 0 if err is not a relay error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// PublicMessage returns the client-safe message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal Server Error"
}

// StatusOf classifies a failed operation for the activity journal.
func StatusOf(err error, aborted bool) media.Status {
	switch {
	case err == nil:
		return media.StatusOK
	case aborted:
		return media.StatusAborted
	}
	switch KindOf(err) {
	case KindValidation:
		return media.StatusInvalid
	case KindProtected:
		return media.StatusProtected
	default:
		return media.StatusFailed
	}
}

func validationError(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: cause}
}

func protectedError(cause error) *Error {
	return &Error{Kind: KindProtected, Message: msgProtected, Err: cause}
}

func extractionError(cause error) *Error {
	return &Error{Kind: KindExtraction, Message: msgProbeFailed, Err: cause}
}

func streamError(cause error) *Error {
	return &Error{Kind: KindStream, Message: msgStreamFail, Err: cause}
}
