package connection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want string
	}{
		{
			name: "defaults",
			conn: New("local"),
			want: "http://localhost/graphium/api",
		},
		{
			name: "no scheme",
			conn: Connection{Host: "graphs.example.org", BasePath: "graphium/api"},
			want: "http://graphs.example.org/graphium/api",
		},
		{
			name: "https kept",
			conn: Connection{Host: "https://graphs.example.org", BasePath: "graphium/api"},
			want: "https://graphs.example.org/graphium/api",
		},
		{
			name: "with port",
			conn: Connection{Host: "http://localhost", Port: IntPtr(8080), BasePath: "graphium/api"},
			want: "http://localhost:8080/graphium/api",
		},
		{
			name: "api suffix added",
			conn: Connection{Host: "localhost", BasePath: "graphium"},
			want: "http://localhost/graphium/api",
		},
		{
			name: "api suffix after slash",
			conn: Connection{Host: "localhost/", BasePath: "/graphium/"},
			want: "http://localhost/graphium/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conn.URL())
		})
	}
}

func TestURLSchemeAndPortProperties(t *testing.T) {
	hosts := []string{"localhost", "10.0.0.1", "graphs.example.org", "https://secure.example.org",
		"httpbin.local", "https-gw.example.org", "http://plain.example.org"}
	for _, h := range hosts {
		without := Connection{Host: h, BasePath: "graphium/api"}
		with := Connection{Host: h, Port: IntPtr(9000), BasePath: "graphium/api"}

		if strings.HasPrefix(h, "https://") {
			assert.True(t, strings.HasPrefix(without.URL(), "https://"), h)
		} else {
			assert.True(t, strings.HasPrefix(without.URL(), "http://"), h)
		}
		assert.NotContains(t, strings.TrimPrefix(strings.TrimPrefix(without.URL(), "https://"), "http://"), ":", h)
		assert.Contains(t, with.URL(), ":9000/", h)
	}
}

func TestURLHostStartingWithHTTP(t *testing.T) {
	c := New("p")
	c.Host = "httpbin.local"
	assert.Equal(t, "http://httpbin.local/graphium/api", c.URL())
	c.Host = "https-gw.example.org"
	assert.Equal(t, "http://https-gw.example.org/graphium/api", c.URL())
	c.Host = "HTTPS://Secure.example.org"
	assert.Equal(t, "HTTPS://Secure.example.org/graphium/api", c.URL())
}

func TestSimpleURL(t *testing.T) {
	c := Connection{Host: "localhost", Port: IntPtr(8080), BasePath: "graphium/api"}
	assert.Equal(t, "localhost:8080/graphium/api", c.SimpleURL())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New("prod").Validate())
	assert.Error(t, New("").Validate())
	assert.Error(t, Connection{Name: "x"}.Validate())
	assert.Error(t, Connection{Name: "x", Host: "h", Port: IntPtr(70000)}.Validate())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("neo4j")
	assert.NoError(t, err)
	assert.Equal(t, KindNeo4j, k)

	k, err = ParseKind("1")
	assert.NoError(t, err)
	assert.Equal(t, KindPostgres, k)

	_, err = ParseKind("oracle")
	assert.Error(t, err)
}
