package mcpserver

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"mcp-pagoda/internal/pagoda"
	"mcp-pagoda/pkg/logging"
)

const serverName = "mcp-pagoda"

// Server wraps the MCP protocol server around a Pagoda client.
type Server struct {
	mcp    *server.MCPServer
	pagoda *pagoda.Client
}

// New creates the MCP server and registers all tools and prompts.
func New(version string, pagodaClient *pagoda.Client) *Server {
	s := &Server{
		pagoda: pagodaClient,
	}
	s.mcp = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithPromptCapabilities(true),
		server.WithLogging(),
	)
	s.registerTools()
	s.registerPrompts()
	return s
}

// StreamableHTTPHandler returns the streamable-http transport handler,
// serving the MCP endpoint at /mcp.
func (s *Server) StreamableHTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithEndpointPath("/mcp"),
	)
}

// SSEHandler returns the SSE transport handler, serving /sse and /message.
func (s *Server) SSEHandler(baseURL string) http.Handler {
	return server.NewSSEServer(
		s.mcp,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)
}

// ServeStdio serves MCP over stdin/stdout until the context is cancelled.
// Logging must go to stderr in this mode; stdout belongs to the protocol.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("MCP", "Starting MCP server with stdio transport")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}
