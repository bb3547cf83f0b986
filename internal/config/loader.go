package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mcp-pagoda/internal/auth"
	"mcp-pagoda/pkg/logging"
)

// Load reads the configuration file at path, applies MCP_PAGODA_*
// environment overrides, and validates the result. A missing file is not
// an error; defaults plus the environment still apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("Config", "No config file at %s, using defaults", path)
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		logging.Info("Config", "Loaded configuration from %s", path)
	}

	applyEnv(&cfg)

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides configuration fields from MCP_PAGODA_* variables.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("MCP_PAGODA_HOST", &cfg.Server.Host)
	if v, ok := os.LookupEnv("MCP_PAGODA_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			logging.Warn("Config", "Ignoring non-numeric MCP_PAGODA_PORT=%q", v)
		}
	}
	setString("MCP_PAGODA_BASE_URL", &cfg.Server.BaseURL)
	setString("MCP_PAGODA_TRANSPORT", &cfg.Server.Transport)
	setString("MCP_PAGODA_AUTH_MODE", &cfg.Server.AuthMode)
	setString("MCP_PAGODA_LOG_LEVEL", &cfg.Server.LogLevel)

	setString("MCP_PAGODA_ENDPOINT", &cfg.Pagoda.Endpoint)

	setString("MCP_PAGODA_TENANT_ID", &cfg.IdP.TenantID)
	setString("MCP_PAGODA_CLIENT_ID", &cfg.IdP.ClientID)
	setString("MCP_PAGODA_CLIENT_SECRET", &cfg.IdP.ClientSecret)

	if v, ok := os.LookupEnv("MCP_PAGODA_SESSION_TTL"); ok {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Bridge.SessionTTL = ttl
		} else {
			logging.Warn("Config", "Ignoring malformed MCP_PAGODA_SESSION_TTL=%q", v)
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Pagoda.Endpoint == "" {
		return fmt.Errorf("pagoda.endpoint is required (or set MCP_PAGODA_ENDPOINT)")
	}

	switch c.Server.Transport {
	case TransportStreamableHTTP, TransportSSE:
	default:
		return fmt.Errorf("unknown transport %q, expected %s or %s",
			c.Server.Transport, TransportStreamableHTTP, TransportSSE)
	}

	switch auth.Mode(c.Server.AuthMode) {
	case auth.ModeBearer:
	case auth.ModeBridge:
		if c.IdP.TenantID == "" || c.IdP.ClientID == "" || c.IdP.ClientSecret == "" {
			return fmt.Errorf("bridge mode requires idp.tenantId, idp.clientId, and idp.clientSecret")
		}
	default:
		return fmt.Errorf("unknown authMode %q, expected %s or %s",
			c.Server.AuthMode, auth.ModeBearer, auth.ModeBridge)
	}
	return nil
}
