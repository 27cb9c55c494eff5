package debate

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure surfaced by the controller.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindState         Kind = "state"
)

// Sentinels for errors.Is matching on the kind of an *Error.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAuthorization = errors.New("not authorized")
	ErrConflict      = errors.New("conflict")
	ErrState         = errors.New("invalid state")
)

// Store adapters return these; the controller translates them.
var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrConcurrentUpdate  = errors.New("concurrent update")
	ErrDuplicateDebateID = errors.New("debate already exists")
)

// Error is the typed failure returned by every controller operation.
type Error struct {
	Kind        Kind
	Message     string
	Suggestions []string
}

func (e *Error) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Message
	}
	return e.Message + " Suggestions: " + strings.Join(e.Suggestions, "; ")
}

// Is lets errors.Is(err, ErrConflict) and friends match on kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrAuthorization:
		return e.Kind == KindAuthorization
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrState:
		return e.Kind == KindState
	}
	return false
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func authorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func conflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func stateError(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a controller error, or "" for infrastructure failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
