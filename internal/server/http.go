package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mcp-pagoda/internal/auth"
	"mcp-pagoda/internal/bridge"
	"mcp-pagoda/internal/config"
	"mcp-pagoda/internal/mcpserver"
	"mcp-pagoda/internal/pagoda"
	"mcp-pagoda/pkg/logging"
)

// Server is the composed HTTP server.
type Server struct {
	cfg        config.Config
	handler    http.Handler
	httpServer *http.Server
}

// New wires the Pagoda client, the authentication strategy, the MCP
// transport, and (in bridge mode) the authorization bridge into one HTTP
// handler.
func New(cfg config.Config, version string) (*Server, error) {
	mode := auth.Mode(cfg.Server.AuthMode)

	var b *bridge.Bridge
	var upstreams auth.UpstreamSource
	if mode == auth.ModeBridge {
		idp := bridge.NewIdPClient(bridge.IdPConfig{
			TenantID:     cfg.IdP.TenantID,
			ClientID:     cfg.IdP.ClientID,
			ClientSecret: cfg.IdP.ClientSecret,
			RedirectURL:  cfg.Server.BaseURL + "/pagoda/callback",
			Scopes:       cfg.IdP.Scopes,
		})
		b = bridge.New(bridge.NewStore(), idp, bridge.Config{
			CodeTTL:    cfg.Bridge.CodeTTL,
			SessionTTL: cfg.Bridge.SessionTTL,
		})
		upstreams = b
	}

	resolver := auth.NewResolver(mode, upstreams)
	pagodaClient := pagoda.NewClient(cfg.Pagoda.Endpoint, resolver.Credential)

	var verifier auth.Verifier
	if mode == auth.ModeBridge {
		verifier = auth.NewBridgeVerifier(b)
	} else {
		verifier = auth.NewBearerVerifier(pagodaClient)
	}

	mcpSrv := mcpserver.New(version, pagodaClient)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	if b != nil {
		bridge.NewHandler(b, cfg.Server.BaseURL).Register(mux)
	}

	requireAuth := auth.Middleware(verifier)
	switch cfg.Server.Transport {
	case config.TransportSSE:
		sse := requireAuth(mcpSrv.SSEHandler(cfg.Server.BaseURL))
		mux.Handle("/sse", sse)
		mux.Handle("/message", sse)
	default:
		mux.Handle("/mcp", requireAuth(mcpSrv.StreamableHTTPHandler()))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return &Server{
		cfg:     cfg,
		handler: mux,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler returns the composed handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	logging.Info("Server", "Listening on %s (transport=%s, authMode=%s)",
		s.httpServer.Addr, s.cfg.Server.Transport, s.cfg.Server.AuthMode)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Server", "Shutting down")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
