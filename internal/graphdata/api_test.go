package graphdata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukerupert/graphium/internal/graphiumtest"
	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dukerupert/graphium/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) (*API, *graphiumtest.Server) {
	t.Helper()
	srv := graphiumtest.New("stub")
	t.Cleanup(srv.Close)
	c := rest.New()
	c.Bind(srv.Conn("stub"))
	return NewAPI(c), srv
}

func seg(id int) map[string]any {
	return map[string]any{
		"id":       id,
		"name":     fmt.Sprintf("street %d", id),
		"frc":      id % 5,
		"length":   12.5,
		"geometry": "LINESTRING (16.37 48.20, 16.38 48.21)",
		"tunnel":   false,
	}
}

func TestExport(t *testing.T) {
	api, srv := newAPI(t)
	srv.AddVersion("vienna", "v1", map[string]any{"state": graphs.StateActive})
	srv.AddSegments("vienna", "v1", seg(1), seg(2))

	e, err := api.Export(context.Background(), "vienna", "v1", false)
	require.NoError(t, err)
	assert.Equal(t, "vienna", e.Metadata.GraphName)
	assert.Equal(t, 2, e.Metadata.SegmentsCount)
	require.Len(t, e.Segments, 2)
	assert.Equal(t, int64(2), e.Segments[1].ID)
	assert.True(t, strings.HasPrefix(e.Segments[0].Geometry, "LINESTRING"))
	assert.NoError(t, SummaryCheck(e))
}

func TestSegmentsByID(t *testing.T) {
	api, srv := newAPI(t)
	srv.AddVersion("vienna", "v1", nil)
	srv.AddSegments("vienna", "v1", seg(1), seg(2), seg(3))

	e, err := api.Segments(context.Background(), "vienna", "v1", []string{"1", "3"}, false)
	require.NoError(t, err)
	require.Len(t, e.Segments, 2)
	assert.Equal(t, "street 3", e.Segments[1].Name)
	assert.Equal(t, "ids=1%2C3", srv.Requests()[0].Query)
}

func TestSummaryCheck(t *testing.T) {
	assert.Error(t, SummaryCheck(&Export{Metadata: graphs.Version{State: graphs.StateActive}}))
	assert.Error(t, SummaryCheck(&Export{Metadata: graphs.Version{State: graphs.StateDeleted, SegmentsCount: 4}}))
	assert.NoError(t, SummaryCheck(&Export{Metadata: graphs.Version{State: graphs.StateInitial, SegmentsCount: 4}}))
}

func TestSegmentAttributesBatches(t *testing.T) {
	api, srv := newAPI(t)
	srv.AddVersion("vienna", "v1", nil)
	var ids []string
	for i := 1; i <= 120; i++ {
		srv.AddSegments("vienna", "v1", seg(i))
		ids = append(ids, fmt.Sprint(i))
	}

	attrs, err := api.SegmentAttributes(context.Background(), "vienna", "v1", ids, "frc", false, 0)
	require.NoError(t, err)
	assert.Len(t, attrs, 120)
	assert.Equal(t, "2", fmt.Sprint(attrs["7"]))
	assert.Len(t, srv.Requests(), 3)
}

func TestSegmentAttributesStopsOnError(t *testing.T) {
	api, srv := newAPI(t)
	srv.AddVersion("vienna", "v1", nil)
	srv.AddSegments("vienna", "v1", seg(1))

	attrs, err := api.SegmentAttributes(context.Background(), "vienna", "v9", []string{"1", "2"}, "frc", false, 1)
	assert.True(t, rest.IsKind(err, rest.KindNotFound))
	assert.Empty(t, attrs)
	assert.Len(t, srv.Requests(), 1)
}

func TestWriteExportRoundTrip(t *testing.T) {
	e := &Export{
		Metadata: graphs.Version{GraphName: "vienna", Version: "v1", Type: "waysegment", SegmentsCount: 1},
		Segments: []Segment{{ID: 9, Geometry: "LINESTRING (0 0, 1 1)", Length: 157.2}},
	}
	for _, name := range []string{"vienna_v1.json", "vienna_v1.json.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			size, err := WriteExport(path, e)
			require.NoError(t, err)
			assert.Positive(t, size)

			got, err := ReadExport(path)
			require.NoError(t, err)
			assert.Equal(t, e, got)
		})
	}
}
