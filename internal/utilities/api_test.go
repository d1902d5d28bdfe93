package utilities

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dukerupert/graphium/internal/graphiumtest"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/dukerupert/graphium/internal/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) (*API, *graphiumtest.Server) {
	t.Helper()
	srv := graphiumtest.New("stub")
	t.Cleanup(srv.Close)
	c := rest.New()
	c.Bind(srv.Conn("local"))
	return NewAPI(c), srv
}

func sampleTrack() *track.Track {
	tr := &track.Track{ID: 5, TrackPoints: []track.Point{
		{Timestamp: 1000, X: 16.37, Y: 48.2},
		{Timestamp: 2000, X: 16.372, Y: 48.201},
	}}
	tr.Summarize()
	return tr
}

func TestMapMatch(t *testing.T) {
	api, srv := newAPI(t)
	srv.SetCapabilities(map[string]any{CapabilityMapMatching: true})
	srv.SetMatchResult(map[string]any{
		"trackId":  5,
		"length":   180.2,
		"segments": []any{map[string]any{"segmentId": 11, "startPointIndex": 0, "endPointIndex": 1}},
	})

	res, err := api.MapMatch(context.Background(), sampleTrack(), "vienna", "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.TrackID)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, int64(11), res.Segments[0].SegmentID)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/capabilities", reqs[0].Path)
	assert.Equal(t, "/graphs/vienna/matchtrack", reqs[1].Path)
	q, err := url.ParseQuery(reqs[1].Query)
	require.NoError(t, err)
	assert.Equal(t, "true", q.Get("outputVerbose"))
	assert.Equal(t, "600000", q.Get("timeoutMs"))
	assert.Contains(t, reqs[1].Body, `"trackPoints"`)
}

func TestMapMatchCurrentVersion(t *testing.T) {
	api, srv := newAPI(t)
	srv.SetMatchResult(map[string]any{"trackId": 5})

	_, err := api.MapMatch(context.Background(), sampleTrack(), "vienna", VersionCurrentlyValid)
	require.NoError(t, err)
	reqs := srv.Requests()
	assert.Equal(t, "/graphs/vienna/versions/current/matchtrack", reqs[len(reqs)-1].Path)
}

func TestMapMatchUnsupported(t *testing.T) {
	api, srv := newAPI(t)
	srv.SetCapabilities(map[string]any{CapabilityRouting: true})

	_, err := api.MapMatch(context.Background(), sampleTrack(), "vienna", "")
	require.Error(t, err)
	assert.True(t, rest.IsKind(err, rest.KindPolicy))
	assert.Equal(t, "Server 'local' does not support map-matching!", err.Error())
	assert.Len(t, srv.Requests(), 1)
}

func TestMapMatchDomainError(t *testing.T) {
	api, _ := newAPI(t)
	_, err := api.MapMatch(context.Background(), sampleTrack(), "vienna", "")
	assert.True(t, rest.IsKind(err, rest.KindDomain))
	assert.Contains(t, err.Error(), "no match configured")
}

func TestMapMatchReadOnlyAllowed(t *testing.T) {
	srv := graphiumtest.New("stub")
	defer srv.Close()
	srv.SetMatchResult(map[string]any{"trackId": 5})
	conn := srv.Conn("ro")
	conn.ReadOnly = true
	c := rest.New()
	c.Bind(conn)

	_, err := NewAPI(c).MapMatch(context.Background(), sampleTrack(), "vienna", "")
	assert.NoError(t, err)
}

func TestRoute(t *testing.T) {
	api, srv := newAPI(t)
	srv.SetCapabilities([]any{CapabilityRouting})
	srv.SetRoute(map[string]any{"route": map[string]any{
		"length":       1520.5,
		"graphName":    "vienna",
		"graphVersion": "v1",
		"segments":     []any{map[string]any{"id": 3, "linkDirectionForward": true}},
	}})

	when := time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	route, err := api.Route(context.Background(), RouteRequest{
		Graph: "vienna", StartX: 16.37, StartY: 48.2, EndX: 16.4, EndY: 48.21, When: when,
	})
	require.NoError(t, err)
	assert.Equal(t, 1520.5, route.Length)
	require.Len(t, route.Segments, 1)
	assert.True(t, route.Segments[0].LinkDirectionForward)

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	assert.Equal(t, "/routing/graphs/vienna/versions/current/route.do", last.Path)
	q, err := url.ParseQuery(last.Query)
	require.NoError(t, err)
	assert.Equal(t, "16.37,48.2;16.4,48.21", q.Get("coords"))
	assert.Equal(t, "2021-03-01T10:00:00", q.Get("time"))
	assert.Equal(t, "CAR", q.Get("mode"))
	assert.Equal(t, "LENGTH", q.Get("criteria"))
	assert.Equal(t, "path", q.Get("output"))
}

func TestRouteNotFound(t *testing.T) {
	api, _ := newAPI(t)
	_, err := api.Route(context.Background(), RouteRequest{Graph: "vienna", Version: "v1"})
	assert.True(t, rest.IsKind(err, rest.KindNotFound))
}

func TestRouteZeroLength(t *testing.T) {
	api, srv := newAPI(t)
	srv.SetRoute(map[string]any{"route": map[string]any{"length": 0, "graphName": "vienna"}})

	route, err := api.Route(context.Background(), RouteRequest{Graph: "vienna"})
	assert.Nil(t, route)
	assert.True(t, rest.IsKind(err, rest.KindNotFound))
	assert.Equal(t, MsgNoRoute, err.Error())
}

func TestNotConnected(t *testing.T) {
	api := NewAPI(rest.New())
	_, err := api.Route(context.Background(), RouteRequest{Graph: "vienna"})
	assert.True(t, rest.IsKind(err, rest.KindNotConnected))
}
