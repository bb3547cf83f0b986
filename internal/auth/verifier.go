package auth

import (
	"context"
	"errors"
	"fmt"

	"mcp-pagoda/internal/bridge"
	"mcp-pagoda/pkg/logging"
)

var (
	// ErrInvalidToken indicates a token that failed verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNotAuthenticated indicates a request that carries no identity.
	ErrNotAuthenticated = errors.New("request is not authenticated")

	// ErrNoUpstreamCredential indicates a valid session with no upstream
	// token mapped to it.
	ErrNoUpstreamCredential = errors.New("no upstream credential for session")
)

// Verifier validates a bearer token and returns the identity behind it.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*bridge.Identity, error)
}

// TokenIntrospector checks a Pagoda API token against the backend.
type TokenIntrospector interface {
	IntrospectToken(ctx context.Context, token string) (bool, error)
}

// BearerVerifier validates raw Pagoda API tokens by asking the backend.
// The backend owns the token's lifetime, so the returned identity carries
// no expiry.
type BearerVerifier struct {
	introspector TokenIntrospector
}

// NewBearerVerifier creates a verifier over the given introspector.
func NewBearerVerifier(introspector TokenIntrospector) *BearerVerifier {
	return &BearerVerifier{introspector: introspector}
}

func (v *BearerVerifier) VerifyToken(ctx context.Context, token string) (*bridge.Identity, error) {
	valid, err := v.introspector.IntrospectToken(ctx, token)
	if err != nil {
		// A backend that cannot be reached cannot vouch for the token.
		// Callers see the same invalid-token error either way.
		logging.Warn("Auth", "Token introspection failed: %v", err)
		return nil, fmt.Errorf("%w: introspection failed: %v", ErrInvalidToken, err)
	}
	if !valid {
		logging.Debug("Auth", "Rejected bearer token %s", logging.TruncateToken(token))
		return nil, ErrInvalidToken
	}
	return &bridge.Identity{
		Token:  token,
		Scopes: []string{"user"},
	}, nil
}

// BridgeVerifier validates session tokens minted by the bridge, including
// the bridge's transparent refresh of expired sessions.
type BridgeVerifier struct {
	bridge *bridge.Bridge
}

// NewBridgeVerifier creates a verifier over the given bridge.
func NewBridgeVerifier(b *bridge.Bridge) *BridgeVerifier {
	return &BridgeVerifier{bridge: b}
}

func (v *BridgeVerifier) VerifyToken(ctx context.Context, token string) (*bridge.Identity, error) {
	id, err := v.bridge.LoadToken(ctx, token)
	if err != nil {
		if errors.Is(err, bridge.ErrInvalidSession) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err)
		}
		return nil, err
	}
	return id, nil
}
