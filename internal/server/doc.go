// Package server assembles the HTTP surface: the MCP transport behind
// authentication middleware, the authorization bridge endpoints when
// bridge mode is enabled, and the health endpoint.
package server
