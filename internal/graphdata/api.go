// Package graphdata reads segment data of graph versions.
package graphdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dukerupert/graphium/internal/graphs"
	"github.com/dukerupert/graphium/internal/rest"
)

// DefaultBatchSize is how many segment ids go into one lookup request.
const DefaultBatchSize = 50

const defaultSegmentType = "waysegment"

// Segment is one directed road segment. Geometries are WKT.
type Segment struct {
	ID                     int64             `json:"id"`
	Name                   string            `json:"name,omitempty"`
	StartNodeIndex         int               `json:"startNodeIndex"`
	StartNodeID            int64             `json:"startNodeId"`
	EndNodeIndex           int               `json:"endNodeIndex"`
	EndNodeID              int64             `json:"endNodeId"`
	MaxSpeedTow            int               `json:"maxSpeedTow,omitempty"`
	MaxSpeedBkw            int               `json:"maxSpeedBkw,omitempty"`
	CalcSpeedTow           float64           `json:"calcSpeedTow,omitempty"`
	CalcSpeedBkw           float64           `json:"calcSpeedBkw,omitempty"`
	LanesTow               int               `json:"lanesTow,omitempty"`
	LanesBkw               int               `json:"lanesBkw,omitempty"`
	FRC                    int               `json:"frc"`
	FormOfWay              string            `json:"formOfWay,omitempty"`
	AccessTow              []string          `json:"accessTow,omitempty"`
	AccessBkw              []string          `json:"accessBkw,omitempty"`
	Tunnel                 bool              `json:"tunnel"`
	Bridge                 bool              `json:"bridge"`
	Urban                  bool              `json:"urban"`
	Length                 float64           `json:"length"`
	Tags                   map[string]string `json:"tags,omitempty"`
	Geometry               string            `json:"geometry"`
	LeftBorderGeometry     string            `json:"leftBorderGeometry,omitempty"`
	RightBorderGeometry    string            `json:"rightBorderGeometry,omitempty"`
	LeftBorderStartNodeID  int64             `json:"leftBorderStartNodeId,omitempty"`
	LeftBorderEndNodeID    int64             `json:"leftBorderEndNodeId,omitempty"`
	RightBorderStartNodeID int64             `json:"rightBorderStartNodeId,omitempty"`
	RightBorderEndNodeID   int64             `json:"rightBorderEndNodeId,omitempty"`
}

// Export is a graph version's metadata and segments.
type Export struct {
	Metadata graphs.Version `json:"graphVersionMetadata"`
	Segments []Segment      `json:"-"`
}

// MarshalJSON writes the server layout: segments keyed by the metadata type.
func (e *Export) MarshalJSON() ([]byte, error) {
	typ := e.Metadata.Type
	if typ == "" {
		typ = defaultSegmentType
	}
	segs := e.Segments
	if segs == nil {
		segs = []Segment{}
	}
	return json.Marshal(map[string]any{
		"graphVersionMetadata": e.Metadata,
		typ:                    segs,
	})
}

type API struct {
	client *rest.Client
}

func NewAPI(c *rest.Client) *API {
	return &API{client: c}
}

// Segments fetches the segments with the given ids.
func (a *API) Segments(ctx context.Context, graph, version string, ids []string, hd bool) (*Export, error) {
	meta, raw, err := a.fetch(ctx, graph, version, ids, hd)
	if err != nil {
		return nil, err
	}
	return toExport(meta, raw)
}

// Export fetches every segment of a graph version.
func (a *API) Export(ctx context.Context, graph, version string, hd bool) (*Export, error) {
	return a.Segments(ctx, graph, version, nil, hd)
}

// SummaryCheck rejects exports that cannot be turned into a layer.
func SummaryCheck(e *Export) error {
	if e.Metadata.State == graphs.StateDeleted {
		return fmt.Errorf("graph version %s/%s is deleted", e.Metadata.GraphName, e.Metadata.Version)
	}
	if e.Metadata.SegmentsCount == 0 && len(e.Segments) == 0 {
		return fmt.Errorf("graph version %s/%s has no segments", e.Metadata.GraphName, e.Metadata.Version)
	}
	return nil
}

// SegmentAttributes looks up attr for each id, batchSize ids per request.
// The first failing batch stops the lookup; values found so far are returned
// with the error.
func (a *API) SegmentAttributes(ctx context.Context, graph, version string, ids []string, attr string, hd bool, batchSize int) (map[string]any, error) {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	out := make(map[string]any, len(ids))
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		_, raw, err := a.fetch(ctx, graph, version, ids[start:end], hd)
		if err != nil {
			return out, err
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var segs []map[string]any
		if err := dec.Decode(&segs); err != nil {
			return out, fmt.Errorf("decoding segments: %w", err)
		}
		for _, seg := range segs {
			id := fmt.Sprint(seg["id"])
			out[id] = seg[attr]
		}
	}
	return out, nil
}

func (a *API) fetch(ctx context.Context, graph, version string, ids []string, hd bool) (graphs.Version, json.RawMessage, error) {
	var q url.Values
	if len(ids) > 0 {
		q = url.Values{"ids": {strings.Join(ids, ",")}}
	}
	doc, err := rest.As[map[string]json.RawMessage](a.client.Get(ctx, graphs.VersionPath(graph, version, hd), q))
	if err != nil {
		return graphs.Version{}, nil, err
	}

	var meta graphs.Version
	if raw, ok := doc["graphVersionMetadata"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return meta, nil, fmt.Errorf("decoding graph version metadata: %w", err)
		}
	}
	typ := meta.Type
	if typ == "" {
		typ = defaultSegmentType
	}
	raw, ok := doc[typ]
	if !ok {
		raw = json.RawMessage("[]")
	}
	return meta, raw, nil
}

func toExport(meta graphs.Version, raw json.RawMessage) (*Export, error) {
	e := &Export{Metadata: meta}
	if err := json.Unmarshal(raw, &e.Segments); err != nil {
		return nil, fmt.Errorf("decoding segments: %w", err)
	}
	return e, nil
}
