// Package pagoda is a read-only client for the Pagoda CMDB REST API.
//
// The client does not hold a credential itself: every request asks a
// CredentialFunc for the token to present, so the same client serves both
// the passthrough mode (the caller's own Pagoda API token) and the bridge
// mode (the upstream token mapped to the caller's session).
package pagoda
