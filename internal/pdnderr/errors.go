// Package pdnderr defines the single error type returned by the client
// packages. Every failure carries a Kind, a human readable message and,
// for configuration problems, a stable numeric code.
package pdnderr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	ConfigurationMissing  Kind = "configuration_missing"
	ConfigurationNotFound Kind = "configuration_not_found"
	URLUnreachable        Kind = "url_unreachable"
	SigningFailure        Kind = "signing_failure"
	TokenExchangeFailure  Kind = "token_exchange_failure"
	TransportFailure      Kind = "transport_failure"
	InvalidStatusResponse Kind = "invalid_status_response"
)

// Stable codes. Kinds without a dedicated code report zero.
const (
	CodeConfigurationMissing = 1001
	CodeURLUnreachable       = 1002
)

var codes = map[Kind]int{
	ConfigurationMissing: CodeConfigurationMissing,
	URLUnreachable:       CodeURLUnreachable,
}

type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind. The code is assigned from the kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Code:    codes[kind],
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an error of the given kind that wraps cause.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	e := New(kind, format, args...)
	e.Err = cause
	return e
}

// Is reports whether the first pdnderr.Error in err's chain has the given
// kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// CodeOf returns the numeric code of the first pdnderr.Error in err's chain,
// or zero.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// KindOf returns the kind of the first pdnderr.Error in err's chain, or the
// empty kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
