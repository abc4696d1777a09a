// Package common defines shared constants and sentinel errors used across
// the server and client layers. Callers should use errors.Is to match these
// values; producers wrap them with fmt.Errorf("...: %w", ...).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Token errors raised by the codec.
	ErrMalformedToken = errors.New("malformed token")
	ErrExpiredToken   = errors.New("token expired")

	// Session errors raised by the session manager.
	ErrWrongTokenType        = errors.New("wrong token type")
	ErrRevokedOrUnknownToken = errors.New("token revoked or unknown")
	ErrSubjectMismatch       = errors.New("token subject mismatch")

	// ErrStoreUnavailable marks a token store that could not be reached in
	// time. It is the only retryable kind and must never be reported as an
	// authentication failure.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// IsAuthFailure reports whether err is one of the token errors that end in
// an "unauthorized" answer to the caller.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrWrongTokenType) ||
		errors.Is(err, ErrRevokedOrUnknownToken) ||
		errors.Is(err, ErrSubjectMismatch)
}

// ErrorKind returns a short stable label for a session error, suitable for
// logs and metric labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrMalformedToken):
		return "malformed_token"
	case errors.Is(err, ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, ErrWrongTokenType):
		return "wrong_token_type"
	case errors.Is(err, ErrRevokedOrUnknownToken):
		return "revoked_or_unknown_token"
	case errors.Is(err, ErrSubjectMismatch):
		return "subject_mismatch"
	default:
		return "internal"
	}
}
