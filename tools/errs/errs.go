package errs

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by where it came from and how the relay
// reacts to it: auth errors refuse the connection, validation errors
// reply without a remote call, remote errors become the command reply,
// broadcast errors are logged only.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindValidation
	KindRemote
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindRemote:
		return "remote"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Error carries a kind and a user-visible message. The cause, if any,
// stays internal and is only surfaced in logs.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind { return e.kind }

// Message is what gets written into a command reply.
func (e *Error) Message() string { return e.msg }

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{kind: kind, msg: msg, cause: errors.WithStack(cause)}
}

func Auth(msg string) *Error       { return New(KindAuth, msg) }
func Validation(msg string) *Error { return New(KindValidation, msg) }
func Remote(msg string) *Error     { return New(KindRemote, msg) }

func Remotef(format string, args ...any) *Error {
	return New(KindRemote, fmt.Sprintf(format, args...))
}

func Broadcast(cause error, msg string) *Error {
	return Wrap(KindBroadcast, cause, msg)
}

// KindOf reports the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// UserMessage extracts the reply-safe message from err. Foreign errors
// collapse to a generic string so internals never leak to clients.
func UserMessage(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.msg != "" {
		return e.msg
	}
	return "Something went wrong"
}

func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
