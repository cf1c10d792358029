// Package apperrors defines the typed failures the transactional core returns.
// Every rejected operation leaves all stores unchanged; the HTTP layer maps
// each kind to a status code in one place.
package apperrors

import "errors"

// Kind classifies an application error.
type Kind int

const (
	// Validation is malformed or out-of-range input.
	Validation Kind = iota + 1
	// NotFound means the referenced listing/bid id has no record.
	NotFound
	// Unauthorized means the caller is not the owning seller/bidder.
	Unauthorized
	// InvalidTransition means the operation was attempted outside the
	// required source state (e.g. editing a sold listing).
	InvalidTransition
	// Conflict means a conditional write lost a race and the diagnostic
	// re-read could not attribute a specific cause. Never swallowed.
	Conflict
	// Internal is an underlying store failure unrelated to business rules.
	Internal
)

// Error is a typed application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a typed error with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a typed error around an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or Internal for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

func IsValidation(err error) bool        { return KindOf(err) == Validation }
func IsNotFound(err error) bool          { return KindOf(err) == NotFound }
func IsUnauthorized(err error) bool      { return KindOf(err) == Unauthorized }
func IsInvalidTransition(err error) bool { return KindOf(err) == InvalidTransition }
func IsConflict(err error) bool          { return KindOf(err) == Conflict }
