package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies failures for callers that map them onto transports.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindAlreadyExists Kind = "ALREADY_EXISTS"
	KindTransport     Kind = "TRANSPORT"
	KindInternal      Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error with the same kind and message, so a sentinel still
// matches after it was re-created with a cause attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(msg string) error { return New(KindValidation, msg) }

func NotFound(msg string) error { return New(KindNotFound, msg) }

func AlreadyExists(msg string) error { return New(KindAlreadyExists, msg) }

// Transport describes a failed outbound call to a peer.
func Transport(peer, operation string, cause error) error {
	return Wrap(KindTransport, fmt.Sprintf("peer call %s to %s failed", operation, peer), cause)
}

// KindOf returns the kind of err, INTERNAL when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// WithCause re-creates a sentinel with an underlying cause.
func WithCause(sentinel error, cause error) error {
	var appErr *Error
	if !errors.As(sentinel, &appErr) {
		return sentinel
	}
	return Wrap(appErr.Kind, appErr.Message, cause)
}

// MessageOf returns the message of the outermost *Error in err's chain without
// its cause, so callers can show it to clients.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}
