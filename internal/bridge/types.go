package bridge

import "time"

// ClientInfo describes a registered MCP client. It mirrors the subset of
// RFC 7591 client metadata the bridge cares about.
type ClientInfo struct {
	ClientID                string   `json:"client_id"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`

	RegisteredAt time.Time `json:"-"`
}

// RedirectURIFor returns the redirect URI to use for an authorization
// request. A supplied URI must exactly match one of the registered ones;
// when none is supplied the first registered URI is used. Returns "" when
// no acceptable URI exists.
func (c *ClientInfo) RedirectURIFor(requested string) string {
	if requested == "" {
		if len(c.RedirectURIs) > 0 {
			return c.RedirectURIs[0]
		}
		return ""
	}
	for _, u := range c.RedirectURIs {
		if u == requested {
			return requested
		}
	}
	return ""
}

// PendingAuthorization tracks an authorization request between the redirect
// to the identity provider and the IdP calling back. It is keyed by the
// state parameter and consumed exactly once.
type PendingAuthorization struct {
	State         string
	ClientID      string
	RedirectURI   string
	ClientState   bool // state was supplied by the client, echo it back
	CodeChallenge string
	Scopes        []string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// AuthorizationCode is a single-use code issued to a client after a
// successful IdP callback.
type AuthorizationCode struct {
	Code          string
	ClientID      string
	RedirectURI   string
	CodeChallenge string
	Scopes        []string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// SessionToken is the opaque bearer credential the bridge hands to MCP
// clients. It stands in for the upstream token, which stays server-side.
type SessionToken struct {
	Token     string
	ClientID  string
	Scopes    []string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Identity is the authenticated principal attached to a request after its
// session token has been verified.
type Identity struct {
	Token     string
	ClientID  string
	Scopes    []string
	ExpiresAt time.Time
}

// TokenResponse is the JSON body returned by the token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}
