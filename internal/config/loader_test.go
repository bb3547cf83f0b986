package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithMissingFile(t *testing.T) {
	t.Setenv("MCP_PAGODA_ENDPOINT", "https://pagoda.example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, "bearer", cfg.Server.AuthMode)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, time.Hour, cfg.Bridge.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Bridge.CodeTTL)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
  transport: sse
pagoda:
  endpoint: https://pagoda.example.com
bridge:
  sessionTtl: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, TransportSSE, cfg.Server.Transport)
	assert.Equal(t, "https://pagoda.example.com", cfg.Pagoda.Endpoint)
	assert.Equal(t, 30*time.Minute, cfg.Bridge.SessionTTL)
	assert.Equal(t, "http://0.0.0.0:9000", cfg.Server.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
pagoda:
  endpoint: https://file.example.com
`)
	t.Setenv("MCP_PAGODA_PORT", "9100")
	t.Setenv("MCP_PAGODA_ENDPOINT", "https://env.example.com")
	t.Setenv("MCP_PAGODA_SESSION_TTL", "15m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "https://env.example.com", cfg.Pagoda.Endpoint)
	assert.Equal(t, 15*time.Minute, cfg.Bridge.SessionTTL)
}

func TestLoadRequiresEndpoint(t *testing.T) {
	t.Setenv("MCP_PAGODA_ENDPOINT", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pagoda.endpoint")
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	path := writeConfig(t, `
server:
  transport: websocket
pagoda:
  endpoint: https://pagoda.example.com
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport")
}

func TestBridgeModeRequiresIdPConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  authMode: bridge
pagoda:
  endpoint: https://pagoda.example.com
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge mode requires")
}

func TestBridgeModeWithIdPConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  authMode: bridge
pagoda:
  endpoint: https://pagoda.example.com
idp:
  tenantId: my-tenant
  clientId: app-id
  clientSecret: app-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bridge", cfg.Server.AuthMode)
	assert.Equal(t, []string{"openid", "offline_access"}, cfg.IdP.Scopes)
}

func TestMalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")

	_, err := Load(path)
	require.Error(t, err)
}
