package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/dukerupert/graphium/internal/config"
	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/graphiumtest"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, conns ...connection.Connection) *Server {
	t.Helper()
	db, err := config.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := connection.NewStore(db)
	for _, c := range conns {
		require.NoError(t, store.Add(c))
	}
	def := ""
	if len(conns) > 0 {
		def = conns[0].Name
	}
	return New(Deps{Store: store, Client: rest.New(), DefaultConnection: def})
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListConnections(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	ro := srv.Conn("prod")
	ro.ReadOnly = true
	s := newServer(t, srv.Conn("local"), ro)

	res, err := s.handleListConnections(context.Background(), call(nil))
	require.NoError(t, err)

	var got []connectionInfo
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "local", got[0].Name)
	assert.True(t, got[1].ReadOnly)
	assert.Equal(t, srv.URL+"/graphium/api", got[0].URL)
}

func TestListVersionsUsesDefaultConnection(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.AddVersion("vienna", "v1", map[string]any{"state": graphs.StateActive})
	srv.AddVersion("vienna", "v2", nil)
	s := newServer(t, srv.Conn("local"))

	res, err := s.handleListVersions(context.Background(), call(map[string]any{"graph": "vienna", "state": graphs.StateActive}))
	require.NoError(t, err)

	var got []graphs.Version
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].Version)
}

func TestGetSegments(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.AddVersion("vienna", "v1", nil)
	srv.AddSegments("vienna", "v1", map[string]any{"id": 1, "name": "Ring"}, map[string]any{"id": 2})
	s := newServer(t, srv.Conn("local"))

	res, err := s.handleGetSegments(context.Background(), call(map[string]any{
		"connection": "local", "graph": "vienna", "version": "v1", "ids": "1, 2",
	}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"Ring"`)
	assert.Equal(t, "ids=1%2C2", srv.Requests()[0].Query)

	_, err = s.handleGetSegments(context.Background(), call(map[string]any{"graph": "vienna", "version": "v1"}))
	assert.Error(t, err)
}

func TestSetVersionStateReadOnly(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.AddVersion("vienna", "v1", nil)
	ro := srv.Conn("prod")
	ro.ReadOnly = true
	s := newServer(t, ro)

	res, err := s.handleSetVersionState(context.Background(), call(map[string]any{
		"graph": "vienna", "version": "v1", "state": graphs.StateActive,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"error":{"msg":"Graphium connection is set to read-only!"}}`, text(t, res))
	assert.Empty(t, srv.Requests())
}

func TestSetVersionState(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.AddVersion("vienna", "v1", nil)
	s := newServer(t, srv.Conn("local"))

	res, err := s.handleSetVersionState(context.Background(), call(map[string]any{
		"graph": "vienna", "version": "v1", "state": graphs.StateActive,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, graphs.StateActive, srv.Version("vienna", "v1")["state"])

	_, err = s.handleSetVersionState(context.Background(), call(map[string]any{
		"graph": "vienna", "version": "v1", "state": "PUBLISH",
	}))
	assert.Error(t, err)
}

func TestRouteTool(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.SetRoute(map[string]any{"route": map[string]any{"length": 42.0}})
	s := newServer(t, srv.Conn("local"))

	res, err := s.handleRoute(context.Background(), call(map[string]any{
		"graph": "vienna", "startX": 16.37, "startY": 48.2, "endX": 16.4, "endY": 48.21,
		"time": "2021-03-01T10:00:00Z",
	}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"length": 42`)
}

func TestUnknownConnection(t *testing.T) {
	s := newServer(t)
	_, err := s.handleListGraphs(context.Background(), call(map[string]any{"connection": "nope"}))
	assert.ErrorContains(t, err, `connection "nope" not found`)

	_, err = s.handleListGraphs(context.Background(), call(nil))
	assert.ErrorContains(t, err, "no connection given")
}
