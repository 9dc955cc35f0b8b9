package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so callers can decide between retrying,
// restarting the onboarding flow, or surfacing a terminal error.
type ErrorKind string

const (
	KindAuthorizationUnavailable    ErrorKind = "authorization_unavailable"
	KindExternalAuthorizationDenied ErrorKind = "external_authorization_denied"
	KindCsrfValidationFailed        ErrorKind = "csrf_validation_failed"
	KindSessionAlreadyConsumed      ErrorKind = "session_already_consumed"
	KindUpstreamUnavailable         ErrorKind = "upstream_unavailable"
	KindVerificationLinkUnavailable ErrorKind = "verification_link_unavailable"
	KindDashboardLinkUnavailable    ErrorKind = "dashboard_link_unavailable"
	KindProviderNotOnboarded        ErrorKind = "provider_not_onboarded"
	KindPayoutRejected              ErrorKind = "payout_rejected"
	KindFeeExceedsAmount            ErrorKind = "fee_exceeds_amount"
	KindNotFound                    ErrorKind = "not_found"
	KindInvalidInput                ErrorKind = "invalid_input"
)

// Retryable reports whether the same call may be repeated with identical
// arguments. Only upstream availability failures qualify: no local state
// changes before the remote round trip succeeds.
func (k ErrorKind) Retryable() bool {
	return k == KindUpstreamUnavailable
}

// Error is the structured failure type used across the onboarding and
// settlement components: a kind for dispatch plus the offending field.
type Error struct {
	Kind  ErrorKind
	Field string
	Msg   string
	cause error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two *Errors by kind, so errors.Is(err, &Error{Kind: k})
// works regardless of field or message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// E builds a structured error.
func E(kind ErrorKind, field, msg string) *Error {
	return &Error{Kind: kind, Field: field, Msg: msg}
}

// Wrap attaches a cause to a structured error.
func Wrap(kind ErrorKind, field, msg string, cause error) *Error {
	return &Error{Kind: kind, Field: field, Msg: msg, cause: cause}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
