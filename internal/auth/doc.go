// Package auth authenticates MCP requests and resolves the backend
// credential to use on their behalf.
//
// Two verification strategies exist: bearer passthrough, where the
// presented token is a Pagoda API token validated against backend
// introspection and then used directly, and bridge mode, where the
// presented token is a session token minted by the authorization bridge
// and the backend credential is the upstream token mapped to it.
package auth
