package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/graphium/internal/graphdata"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/mark3labs/mcp-go/mcp"
)

type connectionInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	URL      string `json:"url"`
	ReadOnly bool   `json:"readOnly"`
}

func (s *Server) registerConnectionTools() {
	// ── list_connections ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List the configured Graphium server connections"),
	), s.handleListConnections)
}

func (s *Server) registerGraphTools() {
	// ── list_graphs ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_graphs",
		mcp.WithDescription("List graph names on a Graphium server"),
		mcp.WithString("connection", mcp.Description("Connection name (defaults to default_server)")),
	), s.handleListGraphs)

	// ── list_versions ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List the versions of a graph with their metadata"),
		mcp.WithString("connection", mcp.Description("Connection name (defaults to default_server)")),
		mcp.WithString("graph", mcp.Description("Graph name"), mcp.Required()),
		mcp.WithString("state",
			mcp.Description("Only return versions in this state"),
			mcp.Enum(graphs.StateInitial, graphs.StateActive, graphs.StateDeleted),
		),
	), s.handleListVersions)

	// ── get_segments ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_segments",
		mcp.WithDescription("Fetch segments of a graph version by ID"),
		mcp.WithString("connection", mcp.Description("Connection name (defaults to default_server)")),
		mcp.WithString("graph", mcp.Description("Graph name"), mcp.Required()),
		mcp.WithString("version", mcp.Description("Graph version"), mcp.Required()),
		mcp.WithString("ids", mcp.Description("Comma separated segment IDs"), mcp.Required()),
		mcp.WithBoolean("hd", mcp.Description("Query HD segments")),
	), s.handleGetSegments)

	// ── set_version_state ──────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_version_state",
		mcp.WithDescription("Activate a graph version or mark it deleted. Refused on read-only connections."),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithString("connection", mcp.Description("Connection name (defaults to default_server)")),
		mcp.WithString("graph", mcp.Description("Graph name"), mcp.Required()),
		mcp.WithString("version", mcp.Description("Graph version"), mcp.Required()),
		mcp.WithString("state",
			mcp.Description("Target state"),
			mcp.Enum(graphs.StateActive, graphs.StateDeleted),
			mcp.Required(),
		),
	), s.handleSetVersionState)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.store.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	out := make([]connectionInfo, 0, len(conns))
	for _, c := range conns {
		out = append(out, connectionInfo{Name: c.Name, Kind: string(c.Kind), URL: c.URL(), ReadOnly: c.ReadOnly})
	}
	return jsonResult(out)
}

func (s *Server) handleListGraphs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := s.bind(req)
	if err != nil {
		return nil, err
	}
	names, err := graphs.NewAPI(c).GraphNames(ctx)
	if err != nil {
		return s.errorResult("list_graphs", err)
	}
	return jsonResult(names)
}

func (s *Server) handleListVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graph := req.GetString("graph", "")
	if graph == "" {
		return nil, fmt.Errorf("graph is required")
	}
	c, err := s.bind(req)
	if err != nil {
		return nil, err
	}
	versions, err := graphs.NewAPI(c).Versions(ctx, graph, req.GetString("state", ""))
	if err != nil {
		return s.errorResult("list_versions", err)
	}
	return jsonResult(versions)
}

func (s *Server) handleGetSegments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graph := req.GetString("graph", "")
	version := req.GetString("version", "")
	ids := splitIDs(req.GetString("ids", ""))
	if graph == "" || version == "" || len(ids) == 0 {
		return nil, fmt.Errorf("graph, version and ids are required")
	}
	c, err := s.bind(req)
	if err != nil {
		return nil, err
	}
	export, err := graphdata.NewAPI(c).Segments(ctx, graph, version, ids, req.GetBool("hd", false))
	if err != nil {
		return s.errorResult("get_segments", err)
	}
	return jsonResult(export)
}

func (s *Server) handleSetVersionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graph := req.GetString("graph", "")
	version := req.GetString("version", "")
	state := req.GetString("state", "")
	if graph == "" || version == "" {
		return nil, fmt.Errorf("graph and version are required")
	}
	c, err := s.bind(req)
	if err != nil {
		return nil, err
	}
	api := graphs.NewAPI(c)
	switch state {
	case graphs.StateActive:
		_, err = api.Activate(ctx, graph, version)
	case graphs.StateDeleted:
		_, err = api.MarkDeleted(ctx, graph, version)
	default:
		return nil, fmt.Errorf("state must be %s or %s", graphs.StateActive, graphs.StateDeleted)
	}
	if err != nil {
		return s.errorResult("set_version_state", err)
	}
	return textResult(fmt.Sprintf("%s/%s set to %s", graph, version, state)), nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
