// Package utilities wraps the server-side map-matching and routing endpoints.
package utilities

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dukerupert/graphium/internal/rest"
	"github.com/dukerupert/graphium/internal/track"
)

const (
	CapabilityMapMatching = "mapMatching"
	CapabilityRouting     = "routing"

	// VersionCurrentlyValid matches against the version valid at request time.
	VersionCurrentlyValid = "CURRENTLY_VALID"

	// MsgNoRoute is reported when the server returns a route of length 0.
	MsgNoRoute = "No route found"

	matchTimeoutMs = 600000
	routeTimeFmt   = "2006-01-02T15:04:05"
)

// MatchedSegment is one segment of a map-matching result.
type MatchedSegment struct {
	SegmentID                int64   `json:"segmentId"`
	StartPointIndex          int     `json:"startPointIndex"`
	EndPointIndex            int     `json:"endPointIndex"`
	EnteringThroughStartNode bool    `json:"enteringThroughStartNode"`
	LeavingThroughStartNode  bool    `json:"leavingThroughStartNode"`
	EnteringThroughEndNode   bool    `json:"enteringThroughEndNode"`
	LeavingThroughEndNode    bool    `json:"leavingThroughEndNode"`
	StartSegment             bool    `json:"startSegment"`
	FromPathSearch           bool    `json:"fromPathSearch"`
	UTurnSegment             bool    `json:"uTurnSegment"`
	Weight                   float64 `json:"weight"`
	MatchedFactor            float64 `json:"matchedFactor"`
	Geometry                 string  `json:"geometry,omitempty"`
}

type MatchResult struct {
	TrackID                  int64            `json:"trackId"`
	Segments                 []MatchedSegment `json:"segments"`
	NrOfUTurns               int              `json:"nrOfUTurns"`
	NrOfShortestPathSearches int              `json:"nrOfShortestPathSearches"`
	Length                   float64          `json:"length"`
	MatchedFactor            float64          `json:"matchedFactor"`
	MatchedPoints            int              `json:"matchedPoints"`
	CertainPathEndSegmentID  int64            `json:"certainPathEndSegmentId"`
}

// RouteRequest describes one routing query. Coordinates are WGS84 lon/lat.
type RouteRequest struct {
	Graph    string
	Version  string
	StartX   float64
	StartY   float64
	EndX     float64
	EndY     float64
	When     time.Time
	Mode     string
	Criteria string
}

type RouteSegment struct {
	ID                   int64 `json:"id"`
	LinkDirectionForward bool  `json:"linkDirectionForward"`
}

type Route struct {
	Length       float64        `json:"length"`
	Duration     float64        `json:"duration"`
	RuntimeInMs  int64          `json:"runtimeInMs"`
	GraphName    string         `json:"graphName"`
	GraphVersion string         `json:"graphVersion"`
	Geometry     string         `json:"geometry"`
	Segments     []RouteSegment `json:"segments"`
}

type API struct {
	client *rest.Client
}

func NewAPI(c *rest.Client) *API {
	return &API{client: c}
}

func (a *API) require(ctx context.Context, capability, feature string) error {
	conn := a.client.Connection()
	if conn == nil {
		return &rest.Error{Kind: rest.KindNotConnected, Msg: rest.MsgNotConnected}
	}
	ok, err := a.client.CheckCapability(ctx, capability)
	if err != nil {
		return err
	}
	if !ok {
		return rest.Unsupported(conn.Name, feature)
	}
	return nil
}

// MapMatch matches t onto graph. versionMode VersionCurrentlyValid matches
// against the currently valid version instead of the graph default.
func (a *API) MapMatch(ctx context.Context, t *track.Track, graph, versionMode string) (*MatchResult, error) {
	if err := a.require(ctx, CapabilityMapMatching, "map-matching"); err != nil {
		return nil, err
	}
	path := "graphs/" + url.PathEscape(graph)
	if versionMode == VersionCurrentlyValid {
		path += "/versions/current"
	}
	path += "/matchtrack"
	q := url.Values{
		"outputVerbose": {"true"},
		"timeoutMs":     {strconv.Itoa(matchTimeoutMs)},
	}
	res, err := rest.As[MatchResult](a.client.Post(ctx, path, q, t, false))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Route computes a route between two points.
func (a *API) Route(ctx context.Context, req RouteRequest) (*Route, error) {
	if err := a.require(ctx, CapabilityRouting, "routing"); err != nil {
		return nil, err
	}
	if req.Version == "" {
		req.Version = "current"
	}
	if req.Mode == "" {
		req.Mode = "CAR"
	}
	if req.Criteria == "" {
		req.Criteria = "LENGTH"
	}
	if req.When.IsZero() {
		req.When = time.Now()
	}

	q := url.Values{
		"time":     {req.When.Format(routeTimeFmt)},
		"coords":   {fmt.Sprintf("%s,%s;%s,%s", ftoa(req.StartX), ftoa(req.StartY), ftoa(req.EndX), ftoa(req.EndY))},
		"output":   {"path"},
		"mode":     {req.Mode},
		"criteria": {req.Criteria},
	}
	path := fmt.Sprintf("routing/graphs/%s/versions/%s/route.do", url.PathEscape(req.Graph), url.PathEscape(req.Version))

	doc, err := rest.As[struct {
		Route Route `json:"route"`
	}](a.client.Get(ctx, path, q))
	if err != nil {
		return nil, err
	}
	if doc.Route.Length == 0 {
		return nil, &rest.Error{Kind: rest.KindNotFound, Msg: MsgNoRoute}
	}
	return &doc.Route, nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
