package config

import (
	"time"

	"mcp-pagoda/internal/auth"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Pagoda PagodaConfig `yaml:"pagoda"`
	IdP    IdPConfig    `yaml:"idp"`
	Bridge BridgeConfig `yaml:"bridge"`
}

// ServerConfig configures the HTTP surface and transports.
type ServerConfig struct {
	Host      string `yaml:"host,omitempty"`      // Host to bind to (default: localhost)
	Port      int    `yaml:"port,omitempty"`      // Port to listen on (default: 8080)
	BaseURL   string `yaml:"baseUrl,omitempty"`   // Externally visible base URL (default: http://host:port)
	Transport string `yaml:"transport,omitempty"` // streamable-http or sse (default: streamable-http)
	AuthMode  string `yaml:"authMode,omitempty"`  // bearer or bridge (default: bearer)
	LogLevel  string `yaml:"logLevel,omitempty"`  // debug, info, warn, error (default: info)
}

// PagodaConfig configures the CMDB backend.
type PagodaConfig struct {
	Endpoint string `yaml:"endpoint"` // Base URL of the Pagoda API
}

// IdPConfig configures the upstream identity provider. Only required in
// bridge mode.
type IdPConfig struct {
	TenantID     string   `yaml:"tenantId,omitempty"`
	ClientID     string   `yaml:"clientId,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// BridgeConfig tunes the authorization bridge.
type BridgeConfig struct {
	CodeTTL    time.Duration `yaml:"codeTtl,omitempty"`    // Authorization code lifetime (default: 5m)
	SessionTTL time.Duration `yaml:"sessionTtl,omitempty"` // Session token lifetime (default: 1h)
}

// Transport names.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// Default creates a configuration with all defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8080,
			Transport: TransportStreamableHTTP,
			AuthMode:  string(auth.ModeBearer),
			LogLevel:  "info",
		},
		IdP: IdPConfig{
			Scopes: []string{"openid", "offline_access"},
		},
		Bridge: BridgeConfig{
			CodeTTL:    5 * time.Minute,
			SessionTTL: time.Hour,
		},
	}
}
