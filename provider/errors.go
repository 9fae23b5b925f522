package provider

import "fmt"

// ErrorKind categorizes a failed token exchange.
type ErrorKind string

const (
	// KindNetwork covers transport failures before a provider response
	// was received.
	KindNetwork ErrorKind = "network"
	// KindInvalidGrant means the provider rejected the authorization
	// code. Retrying the same exchange cannot succeed.
	KindInvalidGrant ErrorKind = "invalid_grant"
	// KindProviderError covers any other provider-side rejection.
	KindProviderError ErrorKind = "provider_error"
	// KindMalformed means the provider response could not be decoded.
	KindMalformed ErrorKind = "malformed_response"
)

// ExchangeError is a categorized token exchange failure. Error() is safe
// to surface to end users; Detail holds the raw upstream information and
// belongs in server-side logs only.
type ExchangeError struct {
	Kind   ErrorKind
	Status int
	Detail string
	cause  error
}

func (e *ExchangeError) Error() string {
	switch e.Kind {
	case KindInvalidGrant:
		return "token exchange failed: the authorization code was rejected, retry the login"
	case KindNetwork:
		return "token exchange failed: could not reach the provider"
	case KindMalformed:
		return "token exchange failed: unexpected provider response"
	default:
		return fmt.Sprintf("token exchange failed: provider error (HTTP %d)", e.Status)
	}
}

func (e *ExchangeError) Unwrap() error {
	return e.cause
}
