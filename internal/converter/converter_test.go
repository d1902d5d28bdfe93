package converter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func common() Common {
	return Common{
		JavaOpts:  `-Xmx2g -Dfile.encoding="UTF-8"`,
		Jar:       "/opt/osm2graphium.jar",
		Input:     "austria.pbf",
		OutputDir: "/tmp/out",
		Name:      "osm_at",
		Version:   "200603",
	}
}

func TestOSMArgs(t *testing.T) {
	o := OSMOptions{Common: common(), HighwayTypes: []HighwayType{"primary", "secondary"}}
	o.ValidFrom = time.Date(2020, 6, 3, 8, 30, 0, 0, time.Local)

	args, err := o.Args()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"java", "-Xmx2g", "-Dfile.encoding=UTF-8",
		"-jar", "/opt/osm2graphium.jar",
		"-i", "austria.pbf", "-o", "/tmp/out", "-n", "osm_at", "-v", "200603",
		"-vf", "2020-06-03 08:30",
		"--highwayTypes", "primary, secondary",
		"--tags", "none",
		"--keepConvertedFile", "false",
	}, args)
}

func TestGIPArgsWithImport(t *testing.T) {
	c := common()
	c.Java = "/usr/bin/java"
	c.JavaOpts = ""
	c.KeepConvertedFile = true
	c.OverrideIfExists = true
	conn := connection.New("local")
	conn.Port = connection.IntPtr(8080)
	c.Import = &conn

	o := GIPOptions{
		Common:       c,
		FRCs:         []FRC{0, 1},
		AccessTypes:  []Access{3, 10},
		SkipPixelCut: true,
	}
	args, err := o.Args()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/java", args[0])
	assert.Equal(t, "-jar", args[1])
	assert.Contains(t, args, "0,1")
	assert.Contains(t, args, "PRIVATE_CAR,TRUCK")
	assert.Contains(t, args, "--skip-pixel-cut")
	assert.Equal(t, "http://localhost:8080/graphium/api/segments/graphs/osm_at/versions/200603?overrideIfExists=true", args[len(args)-1])
	assert.Equal(t, "--importUrl", args[len(args)-2])
}

func TestArgsValidation(t *testing.T) {
	tests := map[string]func(*Common){
		"no jar":     func(c *Common) { c.Jar = "" },
		"no input":   func(c *Common) { c.Input = "" },
		"no outdir":  func(c *Common) { c.OutputDir = "" },
		"no version": func(c *Common) { c.Version = "" },
		"bad opts":   func(c *Common) { c.JavaOpts = `-D"unterminated` },
		"bad range": func(c *Common) {
			c.ValidFrom = time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
			c.ValidTo = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := common()
			mutate(&c)
			_, err := OSMOptions{Common: c}.Args()
			assert.Error(t, err)
		})
	}
}

func TestOutputFile(t *testing.T) {
	assert.Equal(t, "/tmp/out/osm_at_200603.json", common().OutputFile())
}

func TestEnums(t *testing.T) {
	h, err := ParseHighwayType(" Residential ")
	require.NoError(t, err)
	assert.Equal(t, HighwayType("residential"), h)
	_, err = ParseHighwayType("autobahn")
	assert.Error(t, err)

	f, err := ParseFRC("SECONDARY_ROAD")
	require.NoError(t, err)
	assert.Equal(t, FRC(3), f)
	f, err = ParseFRC("108")
	require.NoError(t, err)
	assert.Equal(t, "GUETERWEG", f.String())
	_, err = ParseFRC("9")
	assert.Error(t, err)

	a, err := ParseAccess("bike")
	require.NoError(t, err)
	assert.Equal(t, Access(2), a)
	a, err = ParseAccess("23")
	require.NoError(t, err)
	assert.Equal(t, "ELECTRIC_CAR", a.String())
	_, err = ParseAccess("HOVERCRAFT")
	assert.Error(t, err)
}

func TestParseValidity(t *testing.T) {
	v, err := ParseValidity("2020-06-03 08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, v.Hour())

	v, err = ParseValidity("")
	require.NoError(t, err)
	assert.True(t, v.IsZero())

	_, err = ParseValidity("03.06.2020")
	assert.Error(t, err)
}

type shell []string

func (s shell) Args() ([]string, error) { return append([]string{"sh", "-c"}, s...), nil }

func TestRunnerSuccess(t *testing.T) {
	out := filepath.Join(t.TempDir(), "g_v1.json")
	var buf bytes.Buffer
	r := NewRunner(&buf, nil)

	got, err := r.Run(context.Background(), "fake", shell{"echo converting; echo '{}' > " + out}, out)
	require.NoError(t, err)
	assert.Equal(t, out, got)
	assert.Equal(t, "converting\n", buf.String())
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRunnerFailureIncludesOutput(t *testing.T) {
	r := NewRunner(nil, nil)
	_, err := r.Run(context.Background(), "fake", shell{"echo first; echo 'out of memory' >&2; exit 3"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running fake")
	assert.Contains(t, err.Error(), "out of memory")
}

func TestRunnerMissingOutput(t *testing.T) {
	r := NewRunner(nil, nil)
	_, err := r.Run(context.Background(), "fake", shell{"true"}, filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "produced no output file")
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, nil).Run(ctx, "fake", shell{"sleep 5"}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTailWriter(t *testing.T) {
	tw := &tailWriter{max: 2}
	_, _ = tw.Write([]byte("a\nb\n"))
	_, _ = tw.Write([]byte("c\npart"))
	assert.Equal(t, "b\nc\npart", tw.String())
}
