package track

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <number>17</number>
    <trkseg>
      <trkpt lat="48.2000" lon="16.3700"><time>2021-03-01T10:00:00Z</time></trkpt>
      <trkpt lat="48.2010" lon="16.3700"><ele>180.5</ele><time>2021-03-01T10:00:10.500+00:00</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="48.2020" lon="16.3700"><time>2021-03-01T11:00:20+01:00</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestFromGPX(t *testing.T) {
	tr, err := FromGPX(strings.NewReader(sampleGPX))
	require.NoError(t, err)

	assert.Equal(t, int64(17), tr.ID)
	assert.Equal(t, int64(17), tr.Metadata.ID)
	require.Len(t, tr.TrackPoints, 3)
	assert.Equal(t, 3, tr.Metadata.NumberOfPoints)

	assert.Equal(t, int64(1614592800000), tr.TrackPoints[0].Timestamp)
	assert.Equal(t, int64(1614592810500), tr.TrackPoints[1].Timestamp)
	assert.Equal(t, int64(1614592820000), tr.TrackPoints[2].Timestamp)
	assert.Equal(t, 16.37, tr.TrackPoints[0].X)
	assert.Equal(t, 48.2, tr.TrackPoints[0].Y)
	assert.Equal(t, 180.5, tr.TrackPoints[1].Z)

	assert.Equal(t, int64(20000), tr.Metadata.Duration)
	assert.InDelta(t, 222.4, tr.Metadata.Length, 0.5)
}

func TestFromGPXWithoutNumber(t *testing.T) {
	doc := `<gpx><trk><trkseg><trkpt lat="1" lon="2"><time>2021-03-01T10:00:00Z</time></trkpt></trkseg></trk></gpx>`
	tr, err := FromGPX(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, int64(0), tr.ID)
	assert.Equal(t, int64(0), tr.Metadata.Duration)
}

func TestFromGPXErrors(t *testing.T) {
	tests := map[string]string{
		"no track":   `<gpx></gpx>`,
		"bad time":   `<gpx><trk><trkseg><trkpt lat="1" lon="2"><time>yesterday</time></trkpt></trkseg></trk></gpx>`,
		"no time":    `<gpx><trk><trkseg><trkpt lat="1" lon="2"></trkpt></trkseg></trk></gpx>`,
		"bad lat":    `<gpx><trk><trkseg><trkpt lat="x" lon="2"><time>2021-03-01T10:00:00Z</time></trkpt></trkseg></trk></gpx>`,
		"not xml":    `{"id": 1}`,
		"bad number": `<gpx><trk><number>seven</number></trk></gpx>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromGPX(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestReadWrite(t *testing.T) {
	tr := &Track{ID: 3, TrackPoints: []Point{{Timestamp: 1000, X: 16, Y: 48}, {Timestamp: 4000, X: 16, Y: 48.001}}}
	tr.Summarize()

	var buf bytes.Buffer
	require.NoError(t, tr.Write(&buf))
	assert.Contains(t, buf.String(), `"trackPoints"`)

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, tr, got)

	_, err = Read(strings.NewReader(`{"id": 1, "trackPoints": []}`))
	assert.Error(t, err)
}
