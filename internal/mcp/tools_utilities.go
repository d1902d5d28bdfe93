package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/graphium/internal/utilities"
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerUtilityTools() {
	// ── route ──────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("route",
		mcp.WithDescription("Compute a route between two WGS84 points on a graph"),
		mcp.WithString("connection", mcp.Description("Connection name (defaults to default_server)")),
		mcp.WithString("graph", mcp.Description("Graph name"), mcp.Required()),
		mcp.WithString("version", mcp.Description("Graph version (defaults to current)")),
		mcp.WithNumber("startX", mcp.Description("Start longitude"), mcp.Required()),
		mcp.WithNumber("startY", mcp.Description("Start latitude"), mcp.Required()),
		mcp.WithNumber("endX", mcp.Description("End longitude"), mcp.Required()),
		mcp.WithNumber("endY", mcp.Description("End latitude"), mcp.Required()),
		mcp.WithString("time", mcp.Description("Departure time, RFC 3339 (defaults to now)")),
		mcp.WithString("mode", mcp.Description("Routing mode"), mcp.Enum("CAR", "BIKE", "PEDESTRIAN")),
		mcp.WithString("criteria", mcp.Description("Cost criteria"), mcp.Enum("LENGTH", "MIN_DURATION", "CURRENT_DURATION")),
	), s.handleRoute)
}

func (s *Server) handleRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graph := req.GetString("graph", "")
	if graph == "" {
		return nil, fmt.Errorf("graph is required")
	}
	rr := utilities.RouteRequest{
		Graph:    graph,
		Version:  req.GetString("version", ""),
		StartX:   req.GetFloat("startX", 0),
		StartY:   req.GetFloat("startY", 0),
		EndX:     req.GetFloat("endX", 0),
		EndY:     req.GetFloat("endY", 0),
		Mode:     req.GetString("mode", ""),
		Criteria: req.GetString("criteria", ""),
	}
	if ts := req.GetString("time", ""); ts != "" {
		when, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("time: %w", err)
		}
		rr.When = when
	}

	c, err := s.bind(req)
	if err != nil {
		return nil, err
	}
	route, err := utilities.NewAPI(c).Route(ctx, rr)
	if err != nil {
		return s.errorResult("route", err)
	}
	return jsonResult(route)
}
