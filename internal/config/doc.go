// Package config loads the server configuration from a YAML file and the
// MCP_PAGODA_* environment, with the environment taking precedence.
package config
