// Package logging provides a structured logging system for mcp-pagoda with
// unified log handling and level filtering.
//
// This package is built on Go's standard slog package. All log entries carry a
// subsystem tag (e.g. "Bridge", "Pagoda", "Server") so that log output can be
// filtered per component, plus a printf-style message and an optional error.
//
// The logger is initialized once at startup via Init. The stdio MCP transport
// logs to stderr so that stdout stays clean for protocol traffic.
package logging
