package bridge

import (
	"sync"
	"time"

	"golang.org/x/oauth2"

	"mcp-pagoda/pkg/logging"
)

// upstreamRecord holds an identity-provider token. The same record is
// shared between the sessions it was minted for and the per-client
// "latest" slot, so an in-place refresh is visible everywhere at once.
type upstreamRecord struct {
	tok      *oauth2.Token
	clientID string
	issuedAt time.Time
}

// Store is the in-memory state of the bridge: registered clients, pending
// authorizations, authorization codes, session tokens, and the mapping
// from sessions to upstream tokens.
//
// A single mutex guards all maps so that compound operations (look up,
// validate, delete) are atomic. Single-use entities are removed inside the
// same critical section that reads them, which is what makes concurrent
// redemption of the same code or state yield exactly one winner.
type Store struct {
	mu sync.Mutex

	clients         map[string]*ClientInfo
	pending         map[string]*PendingAuthorization
	codes           map[string]*AuthorizationCode
	sessions        map[string]*SessionToken
	sessionUpstream map[string]*upstreamRecord
	latestUpstream  map[string]*upstreamRecord
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		clients:         make(map[string]*ClientInfo),
		pending:         make(map[string]*PendingAuthorization),
		codes:           make(map[string]*AuthorizationCode),
		sessions:        make(map[string]*SessionToken),
		sessionUpstream: make(map[string]*upstreamRecord),
		latestUpstream:  make(map[string]*upstreamRecord),
	}
}

// PutClient registers or overwrites a client record.
func (s *Store) PutClient(info *ClientInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[info.ClientID] = info
}

// GetClient returns the registration for a client ID.
func (s *Store) GetClient(clientID string) (*ClientInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.clients[clientID]
	if !ok {
		return nil, false
	}
	cp := *info
	return &cp, true
}

// PutPending stores a pending authorization keyed by its state value.
func (s *Store) PutPending(p *PendingAuthorization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.State] = p
}

// ConsumePending atomically removes and returns the pending authorization
// for a state value. Expired entries are discarded on access. Exactly one
// caller wins when the same state arrives concurrently.
func (s *Store) ConsumePending(state string) (*PendingAuthorization, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[state]
	if !ok {
		return nil, false
	}
	delete(s.pending, state)
	if time.Now().After(p.ExpiresAt) {
		logging.Debug("Bridge", "Discarding expired pending authorization for client=%s", p.ClientID)
		return nil, false
	}
	return p, true
}

// PutCode stores an authorization code.
func (s *Store) PutCode(c *AuthorizationCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.Code] = c
}

// ConsumeCode atomically removes and returns an authorization code. The
// code is deleted whether or not it is still fresh, so a second redemption
// attempt always misses. Expired codes report !ok.
func (s *Store) ConsumeCode(code string) (*AuthorizationCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[code]
	if !ok {
		return nil, false
	}
	delete(s.codes, code)
	if time.Now().After(c.ExpiresAt) {
		logging.Debug("Bridge", "Discarding expired authorization code for client=%s", c.ClientID)
		return nil, false
	}
	return c, true
}

// PutSession stores a session token.
func (s *Store) PutSession(t *SessionToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[t.Token] = t
}

// GetSession returns a copy of the session record for a token. Expired
// sessions are still returned; the caller decides whether an expired
// session can be recovered by an upstream refresh or must be deleted.
func (s *Store) GetSession(token string) (*SessionToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// ExtendSession moves a session's expiry forward. It reports whether the
// session still existed.
func (s *Store) ExtendSession(token string, until time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.sessions[token]
	if !ok {
		return false
	}
	t.ExpiresAt = until
	return true
}

// DeleteSession removes a session token and its upstream mapping. Deleting
// an unknown token is a no-op, which keeps revocation idempotent.
func (s *Store) DeleteSession(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	delete(s.sessionUpstream, token)
}

// PutUpstream records a freshly obtained identity-provider token for a
// client and marks it as that client's most recent one.
func (s *Store) PutUpstream(clientID string, tok *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestUpstream[clientID] = &upstreamRecord{
		tok:      tok,
		clientID: clientID,
		issuedAt: time.Now(),
	}
}

// LinkSessionToLatest binds a session token to the client's most recent
// upstream token. It reports whether such a token existed.
func (s *Store) LinkSessionToLatest(sessionToken, clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.latestUpstream[clientID]
	if !ok {
		return false
	}
	s.sessionUpstream[sessionToken] = rec
	return true
}

// UpstreamForSession returns a snapshot of the upstream token mapped to a
// session.
func (s *Store) UpstreamForSession(sessionToken string) (oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessionUpstream[sessionToken]
	if !ok {
		return oauth2.Token{}, false
	}
	return *rec.tok, true
}

// ReplaceSessionUpstream swaps the upstream token behind a session for a
// refreshed one. The shared record is updated in place, so every session
// bound to the same upstream token sees the new one.
func (s *Store) ReplaceSessionUpstream(sessionToken string, tok *oauth2.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessionUpstream[sessionToken]
	if !ok {
		return false
	}
	rec.tok = tok
	rec.issuedAt = time.Now()
	return true
}

// Counts returns the number of live entries per map. Used by the status
// endpoint and by tests.
func (s *Store) Counts() (clients, pending, codes, sessions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients), len(s.pending), len(s.codes), len(s.sessions)
}
