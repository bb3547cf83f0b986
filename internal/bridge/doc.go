// Package bridge implements the OAuth 2.0 authorization-code bridge that
// sits between MCP clients and the upstream identity provider.
//
// Toward MCP clients the bridge acts as a small authorization server: it
// registers clients, issues short-lived authorization codes and opaque
// session tokens, and serves the standard metadata, token, and revocation
// endpoints. Toward the identity provider it acts as a confidential OAuth
// client, exchanging and refreshing Azure AD tokens on behalf of those
// sessions. Session tokens never leave the process as upstream
// credentials; the mapping between the two lives in Store.
//
// All stored entities expire lazily: expiry is checked (and the entity
// discarded) on access rather than by a background sweeper.
package bridge
