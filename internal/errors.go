package internal

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a store or service either wraps one of
// these or is treated as internal.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrSlugExists  = kindError(ErrConflict, "short url already exists")
	ErrEmailExists = kindError(ErrConflict, "user already exists")

	ErrLinkNotFound = kindError(ErrNotFound, "url not found")
	ErrUserNotFound = kindError(ErrNotFound, "user not found")

	ErrInvalidCredentials = kindError(ErrUnauthorized, "invalid email or password")
	ErrNoIdentity         = kindError(ErrUnauthorized, "login required")

	ErrMissingURL = kindError(ErrValidation, "url is required")
	ErrInvalidURL = kindError(ErrValidation, "url must be an absolute http or https url")
)

// KindError is an error that belongs to one of the kinds above. Its message is
// safe to show to API clients.
type KindError struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) *KindError {
	return &KindError{kind: kind, msg: msg}
}

// Validationf builds a validation error with a client-facing message.
func Validationf(format string, args ...any) error {
	return kindError(ErrValidation, fmt.Sprintf(format, args...))
}

func (e *KindError) Error() string { return e.msg }

func (e *KindError) Unwrap() error { return e.kind }

// Message returns the client-facing message of the first KindError in err's
// chain.
func Message(err error) (string, bool) {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.msg, true
	}
	return "", false
}
