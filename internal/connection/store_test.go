package connection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	values map[string]string
	writes int
	err    error
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (m *memSettings) GetSetting(key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[key], nil
}

func (m *memSettings) SetSetting(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.values[key] = value
	return nil
}

func TestSaveLoadRoundTrip(t *testing.T) {
	settings := newMemSettings()
	s := NewStore(settings)

	prod := Connection{Name: "prod", Kind: KindPostgres, Host: "https://graphs.example.org", Port: IntPtr(8443), BasePath: "graphium/api", AuthRef: "prod-auth", ReadOnly: true}
	dev := Connection{Name: "dev", Kind: KindNeo4j, Host: "localhost", BasePath: "graphium/api"}
	require.NoError(t, s.Add(prod))
	require.NoError(t, s.Add(dev))

	loaded, err := NewStore(settings).Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []Connection{prod, dev}, loaded)
}

func TestLoadLegacyAndKeyed(t *testing.T) {
	settings := newMemSettings()
	settings.values[SettingsKey] = `[
		["old", "POSTGRES", "http://legacy", 8080, "graphium/api", false],
		["older", 1, "http://ancient", null],
		{"name": "new", "kind": "NEO4J", "host": "http://modern", "port": null, "basePath": "api", "authRef": "a", "readOnly": false}
	]`

	conns, err := NewStore(settings).Load(nil)
	require.NoError(t, err)
	require.Len(t, conns, 3)

	assert.Equal(t, "old", conns[0].Name)
	assert.Equal(t, 8080, *conns[0].Port)
	assert.False(t, conns[0].ReadOnly)

	assert.Equal(t, "older", conns[1].Name)
	assert.Equal(t, KindPostgres, conns[1].Kind)
	assert.Nil(t, conns[1].Port)
	assert.Equal(t, "", conns[1].BasePath)
	assert.True(t, conns[1].ReadOnly)

	assert.Equal(t, Connection{Name: "new", Kind: KindNeo4j, Host: "http://modern", BasePath: "api", AuthRef: "a"}, conns[2])
}

func TestLoadToleratesMalformedEntries(t *testing.T) {
	settings := newMemSettings()
	settings.values[SettingsKey] = `[42, {"name": "ok", "port": "not-a-port", "readOnly": "yes"}, "junk"]`

	conns, err := NewStore(settings).Load(nil)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "ok", conns[0].Name)
	assert.Nil(t, conns[0].Port)
	assert.Equal(t, DefaultHost, conns[0].Host)
	assert.False(t, conns[0].ReadOnly)
}

func TestLoadFilter(t *testing.T) {
	settings := newMemSettings()
	s := NewStore(settings)
	require.NoError(t, s.Add(Connection{Name: "pg", Kind: KindPostgres, Host: "h"}))
	require.NoError(t, s.Add(Connection{Name: "neo", Kind: KindNeo4j, Host: "h"}))

	neo := KindNeo4j
	conns, err := s.Load(&neo)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "neo", conns[0].Name)
}

func TestSelectByName(t *testing.T) {
	s := NewStore(newMemSettings())
	require.NoError(t, s.Add(Connection{Name: "prod", Host: "prod.example.org"}))
	require.NoError(t, s.Add(Connection{Name: "dev", Host: "dev.example.org"}))

	c, err := s.SelectByName("prod", nil)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "prod.example.org", c.Host)

	c, err = s.SelectByName("missing", nil)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestUpdateAndRemove(t *testing.T) {
	settings := newMemSettings()
	s := NewStore(settings)
	require.NoError(t, s.Add(Connection{Name: "prod", Host: "a"}))

	require.NoError(t, s.Update("prod", Connection{Name: "prod", Host: "b", ReadOnly: true}))
	c, err := s.SelectByName("prod", nil)
	require.NoError(t, err)
	assert.Equal(t, "b", c.Host)
	assert.True(t, c.ReadOnly)

	assert.Error(t, s.Update("nope", Connection{Name: "nope", Host: "x"}))

	require.NoError(t, s.Remove("prod"))
	assert.Empty(t, s.All())
	assert.Error(t, s.Remove("prod"))
}

func TestAddRejectsInvalid(t *testing.T) {
	settings := newMemSettings()
	s := NewStore(settings)
	assert.Error(t, s.Add(Connection{Host: "x"}))
	assert.Equal(t, 0, settings.writes)
}

func TestSettingsError(t *testing.T) {
	settings := newMemSettings()
	settings.err = errors.New("disk gone")
	_, err := NewStore(settings).Load(nil)
	assert.ErrorContains(t, err, "disk gone")
}
