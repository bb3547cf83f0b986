package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownClient indicates a client_id that was never registered.
	ErrUnknownClient = errors.New("unknown client")

	// ErrInvalidRequest indicates a malformed or incomplete request.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidState indicates a callback state that is unknown, already
	// consumed, or expired.
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrInvalidGrant indicates an authorization code that is unknown,
	// expired, already redeemed, or presented by the wrong client.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrInvalidSession indicates a session token that is unknown, expired
	// beyond recovery, or revoked.
	ErrInvalidSession = errors.New("invalid session token")

	// ErrUnsupportedGrant indicates a grant type the bridge does not
	// implement, such as refresh_token at the client-facing token endpoint.
	ErrUnsupportedGrant = errors.New("unsupported grant type")
)

// UpstreamError reports a failed token operation against the identity
// provider. The provider's error payload, when present, is preserved so
// callers can surface it.
type UpstreamError struct {
	// Operation is "exchange" or "refresh".
	Operation string
	// StatusCode is the HTTP status returned by the IdP token endpoint,
	// or zero when the request never completed.
	StatusCode int
	// Body is the raw response body from the IdP, if any.
	Body []byte
	// Err is the underlying transport or protocol error.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
