package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeEmailTaken          = "email_taken"
	TextCodeInvalidCredentials  = "invalid_credentials"
	TextCodeAccountUnverified   = "account_unverified"
	TextCodeTokenInvalid        = "token_invalid_or_expired"
	TextCodeWeakPassword        = "weak_password"
	TextCodeForbidden           = "forbidden"
	TextCodeSessionSignature    = "session_signature_invalid"
	TextCodeSessionExpired      = "session_expired"
	TextCodeSessionMalformed    = "session_malformed"
	TextCodeStoreUnavailable    = "store_unavailable"
	TextCodeAccountNotFound     = "account_not_found"
	TextCodeProviderNotFound    = "federation_provider_not_found"
	TextCodeAssertionRejected   = "federation_assertion_rejected"
	TextCodeCredentialsRequired = "credentials_required"
)

// ErrEmailTaken is returned when registering an email that already exists.
// Registration is the one place where duplicate emails are disclosed to
// the caller; every other flow answers generically.
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrInvalidCredentials covers both unknown email and wrong password so
// callers cannot tell which factor failed.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeBadRequest)

// ErrAccountUnverified is returned for correct credentials on an account
// that has not confirmed its email. Deliberately distinct from
// ErrInvalidCredentials so clients can prompt re-verification.
var ErrAccountUnverified = errors.New("please verify your email before logging in", errors.CategoryAuth).
	WithTextCode(TextCodeAccountUnverified).
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalidOrExpired covers unknown, consumed, and expired
// verification/reset tokens; all three fail identically.
var ErrTokenInvalidOrExpired = errors.New("invalid or expired token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeBadRequest)

// ErrWeakPassword is returned when a new password fails the length policy.
var ErrWeakPassword = errors.New("password must be at least 6 characters", errors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(errors.CodeBadRequest)

// ErrForbidden is returned when a verified session lacks a required role.
var ErrForbidden = errors.New("forbidden: insufficient permissions", errors.CategoryAuth).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrSessionSignature is returned when a session assertion fails integrity
// checks. Exposed to guards for logging, never to clients.
var ErrSessionSignature = errors.New("session signature invalid", errors.CategoryAuth).
	WithTextCode(TextCodeSessionSignature).
	WithCode(errors.CodeUnauthorized)

// ErrSessionExpired is returned for a well-formed assertion past its expiry.
var ErrSessionExpired = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(errors.CodeUnauthorized)

// ErrSessionMalformed is returned for assertions that cannot be parsed.
var ErrSessionMalformed = errors.New("session malformed", errors.CategoryAuth).
	WithTextCode(TextCodeSessionMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrStoreUnavailable wraps dependency failures; fatal to the request,
// never retried here.
var ErrStoreUnavailable = errors.New("store unavailable", errors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable)

// ErrAccountNotFound is the internal not-found for account lookups.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(errors.CodeNotFound)

// ErrProviderNotFound is returned when no AssertionVerifier is registered
// for the requested federation provider.
var ErrProviderNotFound = errors.New("federation provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrAssertionRejected is returned when a provider assertion fails
// verification.
var ErrAssertionRejected = errors.New("provider assertion rejected", errors.CategoryAuth).
	WithTextCode(TextCodeAssertionRejected).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialsRequired guards the Account invariant: an account needs a
// password hash or a federated id.
var ErrCredentialsRequired = errors.New("account requires a password or a federated identity", errors.CategoryValidation).
	WithTextCode(TextCodeCredentialsRequired).
	WithCode(errors.CodeBadRequest)

// IsSessionExpiredError will check for expired session assertions
func IsSessionExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsSessionSignatureError will check for tampered session assertions
func IsSessionSignatureError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionSignature) {
		return true
	}
	return strings.Contains(err.Error(), "signature is invalid")
}

// IsUniqueViolation reports whether a store error is a unique-constraint
// failure. Checked per dialect message since bun surfaces driver errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
