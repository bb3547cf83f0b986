package auth

import (
	"context"

	"mcp-pagoda/pkg/logging"
)

// Mode selects the authentication strategy for MCP requests.
type Mode string

const (
	// ModeBearer treats the presented token as a Pagoda API token and
	// passes it through to the backend.
	ModeBearer Mode = "bearer"
	// ModeBridge treats the presented token as a bridge session token and
	// uses the upstream token mapped to it.
	ModeBridge Mode = "bridge"
)

// UpstreamSource maps a session token to its current upstream credential.
type UpstreamSource interface {
	UpstreamCredential(token string) (string, bool)
}

// Resolver turns the identity on a request context into the credential to
// present to the Pagoda backend. Its Credential method satisfies
// pagoda.CredentialFunc.
type Resolver struct {
	mode   Mode
	source UpstreamSource
}

// NewResolver creates a resolver for the given mode. The source is only
// consulted in bridge mode and may be nil otherwise.
func NewResolver(mode Mode, source UpstreamSource) *Resolver {
	return &Resolver{mode: mode, source: source}
}

// Credential returns the backend token for the identity on ctx.
func (r *Resolver) Credential(ctx context.Context) (string, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	if r.mode == ModeBridge {
		tok, ok := r.source.UpstreamCredential(id.Token)
		if !ok {
			// A verified session with no upstream mapping means the store
			// lost the link; this should never happen.
			logging.Error("Auth", ErrNoUpstreamCredential, "Session %s has no upstream credential", logging.TruncateToken(id.Token))
			return "", ErrNoUpstreamCredential
		}
		return tok, nil
	}
	return id.Token, nil
}
