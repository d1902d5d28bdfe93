// Package track converts GPS recordings into Graphium track documents.
package track

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

type Point struct {
	Timestamp int64   `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

type Metadata struct {
	ID             int64   `json:"id"`
	Duration       int64   `json:"duration"`
	StartDate      int64   `json:"startDate"`
	EndDate        int64   `json:"endDate"`
	Length         float64 `json:"length"`
	NumberOfPoints int     `json:"numberOfPoints"`
}

// Track is the document the map-matching endpoint accepts. Timestamps are
// epoch milliseconds, X is longitude and Y latitude.
type Track struct {
	ID          int64    `json:"id"`
	Metadata    Metadata `json:"metadata"`
	TrackPoints []Point  `json:"trackPoints"`
}

// Summarize recomputes Metadata from the track points.
func (t *Track) Summarize() {
	t.Metadata.ID = t.ID
	t.Metadata.NumberOfPoints = len(t.TrackPoints)
	t.Metadata.Length = 0
	if len(t.TrackPoints) == 0 {
		t.Metadata.StartDate, t.Metadata.EndDate, t.Metadata.Duration = 0, 0, 0
		return
	}
	first, last := t.TrackPoints[0], t.TrackPoints[len(t.TrackPoints)-1]
	t.Metadata.StartDate = first.Timestamp
	t.Metadata.EndDate = last.Timestamp
	t.Metadata.Duration = last.Timestamp - first.Timestamp
	for i := 1; i < len(t.TrackPoints); i++ {
		p, q := t.TrackPoints[i-1], t.TrackPoints[i]
		t.Metadata.Length += haversine(p.Y, p.X, q.Y, q.X)
	}
}

const earthRadius = 6371008.8

// haversine returns the great-circle distance in meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a)))
}

// --- GPX ---

type gpxDoc struct {
	Tracks []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Number   string       `xml:"number"`
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Ele  string `xml:"ele"`
	Time string `xml:"time"`
}

var timeFormats = []string{
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
}

// ParseTime parses a GPX timestamp.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

// FromGPX reads the first track of a GPX document. Segments are concatenated.
func FromGPX(r io.Reader) (*Track, error) {
	var doc gpxDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing gpx: %w", err)
	}
	if len(doc.Tracks) == 0 {
		return nil, fmt.Errorf("gpx contains no track")
	}
	trk := doc.Tracks[0]

	t := &Track{}
	if n := strings.TrimSpace(trk.Number); n != "" {
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("track number %q: %w", n, err)
		}
		t.ID = id
	}

	for _, seg := range trk.Segments {
		for i, pt := range seg.Points {
			p, err := convertPoint(pt)
			if err != nil {
				return nil, fmt.Errorf("track point %d: %w", i, err)
			}
			t.TrackPoints = append(t.TrackPoints, p)
		}
	}
	t.Summarize()
	return t, nil
}

func convertPoint(pt gpxPoint) (Point, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(pt.Lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("lat %q: %w", pt.Lat, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(pt.Lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("lon %q: %w", pt.Lon, err)
	}
	if strings.TrimSpace(pt.Time) == "" {
		return Point{}, fmt.Errorf("missing time")
	}
	ts, err := ParseTime(pt.Time)
	if err != nil {
		return Point{}, err
	}
	p := Point{Timestamp: ts.UnixMilli(), X: lon, Y: lat}
	if e := strings.TrimSpace(pt.Ele); e != "" {
		if z, err := strconv.ParseFloat(e, 64); err == nil {
			p.Z = z
		}
	}
	return p, nil
}

// Read decodes a Graphium track document.
func Read(r io.Reader) (*Track, error) {
	var t Track
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("parsing track: %w", err)
	}
	if len(t.TrackPoints) == 0 {
		return nil, fmt.Errorf("track has no trackPoints")
	}
	return &t, nil
}

func (t *Track) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(t)
}
