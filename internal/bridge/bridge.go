package bridge

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"mcp-pagoda/pkg/logging"
)

const (
	// tokenPrefix marks all credentials minted by the bridge, so they can
	// never be mistaken for upstream tokens in logs or bug reports.
	tokenPrefix = "mcp_"

	codeByteLen    = 16
	sessionByteLen = 32
	stateByteLen   = 16
)

// Config carries the bridge's tunables. Zero values select the defaults.
type Config struct {
	// CodeTTL is the lifetime of authorization codes. Default 5 minutes.
	CodeTTL time.Duration
	// SessionTTL is the lifetime of session tokens. Default 1 hour.
	SessionTTL time.Duration
	// PendingTTL is how long an authorization may sit between the redirect
	// to the IdP and the callback. Default 10 minutes.
	PendingTTL time.Duration
	// DefaultScopes is assigned to sessions whose authorization request
	// carried no scope parameter.
	DefaultScopes []string
}

func (c *Config) applyDefaults() {
	if c.CodeTTL == 0 {
		c.CodeTTL = 5 * time.Minute
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = time.Hour
	}
	if c.PendingTTL == 0 {
		c.PendingTTL = 10 * time.Minute
	}
	if len(c.DefaultScopes) == 0 {
		c.DefaultScopes = []string{"user"}
	}
}

// Bridge implements the delegated-authorization flow: an authorization
// server toward MCP clients, an OAuth client toward the identity provider.
type Bridge struct {
	store *Store
	idp   IdP
	cfg   Config

	// refreshGroup collapses concurrent refresh attempts for the same
	// session token into a single upstream call.
	refreshGroup singleflight.Group
}

// New creates a Bridge over the given store and identity provider.
func New(store *Store, idp IdP, cfg Config) *Bridge {
	cfg.applyDefaults()
	return &Bridge{
		store: store,
		idp:   idp,
		cfg:   cfg,
	}
}

// RegisterClient registers a new MCP client from its metadata and returns
// the completed record, including the generated client ID.
func (b *Bridge) RegisterClient(meta *ClientInfo) (*ClientInfo, error) {
	if len(meta.RedirectURIs) == 0 {
		return nil, fmt.Errorf("%w: redirect_uris is required", ErrInvalidRequest)
	}
	for _, u := range meta.RedirectURIs {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Scheme == "" {
			return nil, fmt.Errorf("%w: invalid redirect_uri %q", ErrInvalidRequest, u)
		}
	}

	info := *meta
	info.ClientID = uuid.NewString()
	info.RegisteredAt = time.Now()
	if len(info.GrantTypes) == 0 {
		info.GrantTypes = []string{"authorization_code"}
	}
	if len(info.ResponseTypes) == 0 {
		info.ResponseTypes = []string{"code"}
	}
	if info.TokenEndpointAuthMethod == "" {
		info.TokenEndpointAuthMethod = "none"
	}

	b.store.PutClient(&info)
	logging.Info("Bridge", "Registered client %s (%s)", info.ClientID, info.ClientName)
	return &info, nil
}

// Authorize handles an authorization request from a registered client. It
// records a pending authorization keyed by the state parameter and returns
// the identity-provider URL the user agent should be redirected to.
//
// When the client supplies no state, one is generated; a client-supplied
// state is echoed back on the final redirect.
func (b *Bridge) Authorize(clientID, redirectURI, state, codeChallenge, scope string) (string, error) {
	client, ok := b.store.GetClient(clientID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownClient, clientID)
	}

	uri := client.RedirectURIFor(redirectURI)
	if uri == "" {
		return "", fmt.Errorf("%w: redirect_uri is not registered for client %s", ErrInvalidRequest, clientID)
	}

	clientState := state != ""
	if !clientState {
		s, err := randomHex(stateByteLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate state: %w", err)
		}
		state = s
	}

	now := time.Now()
	b.store.PutPending(&PendingAuthorization{
		State:         state,
		ClientID:      clientID,
		RedirectURI:   uri,
		ClientState:   clientState,
		CodeChallenge: codeChallenge,
		Scopes:        parseScopes(scope, b.cfg.DefaultScopes),
		CreatedAt:     now,
		ExpiresAt:     now.Add(b.cfg.PendingTTL),
	})

	logging.Debug("Bridge", "Authorization started for client=%s state=%s", clientID, logging.TruncateToken(state))
	return b.idp.AuthCodeURL(state), nil
}

// CompleteCallback processes the identity provider's callback. It redeems
// the IdP code, stores the upstream token, mints a single-use
// authorization code for the original client, and returns the redirect URL
// to send the user agent back to.
func (b *Bridge) CompleteCallback(ctx context.Context, idpCode, state string) (string, error) {
	pending, ok := b.store.ConsumePending(state)
	if !ok {
		return "", ErrInvalidState
	}

	tok, err := b.idp.Exchange(ctx, idpCode)
	if err != nil {
		return "", err
	}
	b.store.PutUpstream(pending.ClientID, tok)

	codeValue, err := randomHex(codeByteLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}
	now := time.Now()
	code := &AuthorizationCode{
		Code:          tokenPrefix + codeValue,
		ClientID:      pending.ClientID,
		RedirectURI:   pending.RedirectURI,
		CodeChallenge: pending.CodeChallenge,
		Scopes:        pending.Scopes,
		CreatedAt:     now,
		ExpiresAt:     now.Add(b.cfg.CodeTTL),
	}
	b.store.PutCode(code)

	redirect, err := url.Parse(pending.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect_uri %q: %w", pending.RedirectURI, err)
	}
	q := redirect.Query()
	q.Set("code", code.Code)
	if pending.ClientState {
		q.Set("state", state)
	}
	redirect.RawQuery = q.Encode()

	logging.Info("Bridge", "Issued authorization code for client=%s", pending.ClientID)
	return redirect.String(), nil
}

// ExchangeCode redeems an authorization code for a session token. Codes
// are strictly single use; redemption by a client other than the issuing
// one burns the code and fails. When the authorization carried a PKCE
// challenge, the verifier must match it.
func (b *Bridge) ExchangeCode(clientID, code, codeVerifier string) (*TokenResponse, error) {
	rec, ok := b.store.ConsumeCode(code)
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired authorization code", ErrInvalidGrant)
	}
	if clientID != rec.ClientID {
		logging.Warn("Bridge", "Authorization code for client=%s redeemed by client=%q", rec.ClientID, clientID)
		return nil, fmt.Errorf("%w: authorization code was issued to a different client", ErrInvalidGrant)
	}
	if rec.CodeChallenge != "" && !verifyPKCE(rec.CodeChallenge, codeVerifier) {
		logging.Warn("Bridge", "PKCE verification failed for client=%s", rec.ClientID)
		return nil, fmt.Errorf("%w: code_verifier does not match the code_challenge", ErrInvalidGrant)
	}

	value, err := randomHex(sessionByteLen)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	now := time.Now()
	session := &SessionToken{
		Token:     tokenPrefix + value,
		ClientID:  rec.ClientID,
		Scopes:    rec.Scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(b.cfg.SessionTTL),
	}
	b.store.PutSession(session)

	if !b.store.LinkSessionToLatest(session.Token, rec.ClientID) {
		logging.Warn("Bridge", "No upstream token available for client=%s at code exchange", rec.ClientID)
	}

	logging.Info("Bridge", "Issued session token %s for client=%s", logging.TruncateToken(session.Token), rec.ClientID)
	return &TokenResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
		ExpiresIn:   int(b.cfg.SessionTTL / time.Second),
		Scope:       strings.Join(session.Scopes, " "),
	}, nil
}

// ExchangeRefreshToken is intentionally unimplemented: session tokens are
// renewed server-side through the upstream refresh token, never through a
// client-facing refresh grant.
func (b *Bridge) ExchangeRefreshToken(refreshToken string) (*TokenResponse, error) {
	return nil, ErrUnsupportedGrant
}

// LoadToken verifies a session token and returns its identity. An expired
// session gets exactly one recovery attempt: if an upstream refresh token
// is available and the refresh succeeds, the upstream mapping is replaced
// and the session's lifetime is extended; otherwise the session is
// deleted. Concurrent calls for the same expired token share a single
// refresh attempt.
func (b *Bridge) LoadToken(ctx context.Context, token string) (*Identity, error) {
	session, ok := b.store.GetSession(token)
	if !ok {
		return nil, ErrInvalidSession
	}
	if time.Now().Before(session.ExpiresAt) {
		return identityFor(session), nil
	}

	v, err, _ := b.refreshGroup.Do(token, func() (interface{}, error) {
		return b.recoverSession(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Identity), nil
}

// recoverSession attempts the single refresh allowed for an expired
// session. It runs inside the singleflight group keyed by token.
func (b *Bridge) recoverSession(ctx context.Context, token string) (*Identity, error) {
	session, ok := b.store.GetSession(token)
	if !ok {
		return nil, ErrInvalidSession
	}
	if time.Now().Before(session.ExpiresAt) {
		// Another caller already recovered it.
		return identityFor(session), nil
	}

	upstream, ok := b.store.UpstreamForSession(token)
	if !ok || upstream.RefreshToken == "" {
		logging.Debug("Bridge", "Session %s expired with no refresh token, deleting", logging.TruncateToken(token))
		b.store.DeleteSession(token)
		return nil, ErrInvalidSession
	}

	fresh, err := b.idp.Refresh(ctx, upstream.RefreshToken)
	if err != nil {
		logging.Warn("Bridge", "Upstream refresh failed for session %s: %v", logging.TruncateToken(token), err)
		b.store.DeleteSession(token)
		return nil, fmt.Errorf("%w: upstream refresh failed", ErrInvalidSession)
	}

	b.store.ReplaceSessionUpstream(token, fresh)
	until := time.Now().Add(b.cfg.SessionTTL)
	if !b.store.ExtendSession(token, until) {
		return nil, ErrInvalidSession
	}
	session.ExpiresAt = until

	logging.Info("Bridge", "Recovered session %s via upstream refresh", logging.TruncateToken(token))
	return identityFor(session), nil
}

// Revoke invalidates a session token. Revoking an unknown or already
// revoked token succeeds, per RFC 7009.
func (b *Bridge) Revoke(token string) error {
	b.store.DeleteSession(token)
	logging.Debug("Bridge", "Revoked session token %s", logging.TruncateToken(token))
	return nil
}

// UpstreamCredential returns the upstream access token currently mapped to
// a session, for callers that talk to the backend on the session's behalf.
func (b *Bridge) UpstreamCredential(token string) (string, bool) {
	upstream, ok := b.store.UpstreamForSession(token)
	if !ok || upstream.AccessToken == "" {
		return "", false
	}
	return upstream.AccessToken, true
}

func identityFor(s *SessionToken) *Identity {
	return &Identity{
		Token:     s.Token,
		ClientID:  s.ClientID,
		Scopes:    s.Scopes,
		ExpiresAt: s.ExpiresAt,
	}
}

func parseScopes(scope string, defaults []string) []string {
	fields := strings.Fields(scope)
	if len(fields) == 0 {
		return append([]string(nil), defaults...)
	}
	return fields
}

// verifyPKCE checks an S256 code_verifier against the stored challenge.
func verifyPKCE(challenge, verifier string) bool {
	if verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
