// Package mcpserver exposes Graphium connections and graphs as MCP tools so
// agents can browse versions and query segments and routes.
package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
)

// Server is the MCP server for Graphium.
type Server struct {
	mcp    *server.MCPServer
	store  *connection.Store
	client *rest.Client
	logger grip.Journaler

	defaultConnection string
}

// Deps holds what the CLI layer passes to the MCP server.
type Deps struct {
	Store  *connection.Store
	Client *rest.Client
	Logger grip.Journaler

	// DefaultConnection is used when a tool call names no connection.
	DefaultConnection string
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	s := &Server{
		store:             deps.Store,
		client:            deps.Client,
		logger:            deps.Logger,
		defaultConnection: deps.DefaultConnection,
	}
	if s.client == nil {
		s.client = rest.New()
	}
	if s.logger == nil {
		s.logger = logging.MakeGrip(grip.GetSender())
	}

	s.mcp = server.NewMCPServer(
		"graphium-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerConnectionTools()
	s.registerGraphTools()
	s.registerUtilityTools()
	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// bind returns a client bound to the named connection, or the default one.
func (s *Server) bind(req mcp.CallToolRequest) (*rest.Client, error) {
	name := req.GetString("connection", "")
	if name == "" {
		name = s.defaultConnection
	}
	if name == "" {
		return nil, fmt.Errorf("no connection given and no default_server configured")
	}
	conn, err := s.store.SelectByName(name, nil)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, fmt.Errorf("connection %q not found", name)
	}
	c := s.client.Clone()
	c.Bind(*conn)
	return c, nil
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// errorResult reports server-side failures to the agent as a tool error
// carrying the {"error":{"msg":...}} envelope.
func (s *Server) errorResult(tool string, err error) (*mcp.CallToolResult, error) {
	var restErr *rest.Error
	if !errors.As(err, &restErr) {
		return nil, err
	}
	s.logger.Warning(message.WrapError(err, message.Fields{
		"message": "tool call failed",
		"tool":    tool,
		"kind":    restErr.Kind.String(),
	}))
	res := textResult(string(rest.EnvelopeJSON(err)))
	res.IsError = true
	return res, nil
}
