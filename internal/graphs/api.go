// Package graphs manages graph metadata and graph versions on a Graphium server.
package graphs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/dukerupert/graphium/internal/rest"
)

// Version states as reported by the server.
const (
	StateInitial = "INITIAL"
	StateActive  = "ACTIVE"
	StateDeleted = "DELETED"
)

// Version is the metadata of one graph version.
type Version struct {
	GraphName         string            `json:"graphName"`
	Version           string            `json:"version"`
	OriginGraphName   string            `json:"originGraphName,omitempty"`
	OriginVersion     string            `json:"originVersion,omitempty"`
	State             string            `json:"state"`
	ValidFrom         int64             `json:"validFrom,omitempty"`
	ValidTo           int64             `json:"validTo,omitempty"`
	CreationTimestamp int64             `json:"creationTimestamp,omitempty"`
	StorageTimestamp  int64             `json:"storageTimestamp,omitempty"`
	SegmentsCount     int               `json:"segmentsCount"`
	Type              string            `json:"type,omitempty"`
	Description       string            `json:"description,omitempty"`
	Source            string            `json:"source,omitempty"`
	Creator           string            `json:"creator,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}

// API is the graph metadata and version facade.
type API struct {
	client *rest.Client
}

func NewAPI(c *rest.Client) *API {
	return &API{client: c}
}

func (a *API) Client() *rest.Client {
	return a.client
}

// SegmentsPrefix is the data endpoint root for regular or HD graphs.
func SegmentsPrefix(hd bool) string {
	if hd {
		return "hdwaysegments"
	}
	return "segments"
}

// VersionPath is the data path of one graph version.
func VersionPath(graph, version string, hd bool) string {
	return fmt.Sprintf("%s/graphs/%s/versions/%s", SegmentsPrefix(hd), url.PathEscape(graph), url.PathEscape(version))
}

func (a *API) GraphNames(ctx context.Context) ([]string, error) {
	return rest.As[[]string](a.client.Get(ctx, "metadata/graphs", nil))
}

// Versions lists the versions of graph. A non-empty state keeps only versions in that state.
func (a *API) Versions(ctx context.Context, graph, state string) ([]Version, error) {
	all, err := rest.As[[]Version](a.client.Get(ctx, fmt.Sprintf("metadata/graphs/%s/versions", url.PathEscape(graph)), nil))
	if err != nil || state == "" {
		return all, err
	}
	var kept []Version
	for _, v := range all {
		if v.State == state {
			kept = append(kept, v)
		}
	}
	return kept, nil
}

func (a *API) Version(ctx context.Context, graph, version string) (*Version, error) {
	v, err := rest.As[Version](a.client.Get(ctx, fmt.Sprintf("metadata/graphs/%s/versions/%s", url.PathEscape(graph), url.PathEscape(version)), nil))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// AddVersion uploads a Graphium JSON graph file as a new version.
func (a *API) AddVersion(ctx context.Context, file io.Reader, filename, graph, version string, hd, override bool) (map[string]any, error) {
	resp, err := a.client.Upload(ctx, VersionPath(graph, version, hd), nil, "file", filename, file,
		map[string]string{"overrideIfExists": strconv.FormatBool(override)})
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

func (a *API) RemoveVersion(ctx context.Context, graph, version string, hd, keepMetadata bool) (map[string]any, error) {
	q := url.Values{"keepMetadata": {strconv.FormatBool(keepMetadata)}}
	resp, err := a.client.Delete(ctx, VersionPath(graph, version, hd), q)
	if err != nil {
		return nil, err
	}
	return resp.Object(), nil
}

// SetAttribute sets one metadata attribute (state, validFrom, validTo,
// description, type, ...). The server decides whether the change is legal.
func (a *API) SetAttribute(ctx context.Context, graph, version, attr, value string) (map[string]any, error) {
	path := fmt.Sprintf("metadata/graphs/%s/versions/%s/%s/%s",
		url.PathEscape(graph), url.PathEscape(version), url.PathEscape(attr), url.PathEscape(value))
	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %s value: %w", attr, err)
	}
	resp, err := a.client.Put(ctx, path, body)
	if err != nil {
		return nil, err
	}
	if obj := resp.Object(); obj != nil {
		return obj, nil
	}
	return map[string]any{attr: resp.Value}, nil
}

func (a *API) Activate(ctx context.Context, graph, version string) (map[string]any, error) {
	return a.SetAttribute(ctx, graph, version, "state", StateActive)
}

func (a *API) MarkDeleted(ctx context.Context, graph, version string) (map[string]any, error) {
	return a.SetAttribute(ctx, graph, version, "state", StateDeleted)
}

func (a *API) DetectChanges(ctx context.Context, graph, from, to string) (any, error) {
	resp, err := a.client.Get(ctx, changesPath(graph, from, to)+"/dodetect", nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (a *API) Changesets(ctx context.Context, graph string) ([]map[string]any, error) {
	return rest.As[[]map[string]any](a.client.Get(ctx, "changes/graphs/"+url.PathEscape(graph), nil))
}

func (a *API) Changes(ctx context.Context, graph, from, to string) (any, error) {
	resp, err := a.client.Get(ctx, changesPath(graph, from, to), nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func changesPath(graph, from, to string) string {
	return fmt.Sprintf("changes/graphs/%s/from/%s/to/%s", url.PathEscape(graph), url.PathEscape(from), url.PathEscape(to))
}
