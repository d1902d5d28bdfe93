package connection

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the backend flavor of a Graphium server.
type Kind string

const (
	KindPostgres Kind = "POSTGRES"
	KindNeo4j    Kind = "NEO4J"
)

// ParseKind accepts the stored name of a kind as well as the numeric values
// written by older configurations.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "POSTGRES", "1":
		return KindPostgres, nil
	case "NEO4J", "2":
		return KindNeo4j, nil
	}
	return "", fmt.Errorf("unknown server kind %q", s)
}

const (
	DefaultHost     = "http://localhost"
	DefaultBasePath = "graphium/api"
)

// Connection describes one Graphium server endpoint.
type Connection struct {
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Host     string `json:"host" yaml:"host"`
	Port     *int   `json:"port" yaml:"port,omitempty"`
	BasePath string `json:"basePath" yaml:"base_path"`
	AuthRef  string `json:"authRef" yaml:"auth_ref,omitempty"`
	ReadOnly bool   `json:"readOnly" yaml:"read_only"`
}

// New returns a connection with default values.
func New(name string) Connection {
	return Connection{
		Name:     name,
		Kind:     KindPostgres,
		Host:     DefaultHost,
		BasePath: DefaultBasePath,
	}
}

// URL returns the base URL all API paths are resolved against.
func (c Connection) URL() string {
	host := c.Host
	if !hasScheme(host) {
		host = "http://" + host
	}
	host = strings.TrimRight(host, "/")
	if c.Port != nil {
		host += ":" + strconv.Itoa(*c.Port)
	}

	base := strings.TrimLeft(c.BasePath, "/")
	switch {
	case strings.HasSuffix(base, "api"):
	case base == "" || strings.HasSuffix(base, "/"):
		base += "api"
	default:
		base += "/api"
	}
	return host + "/" + base
}

func hasScheme(host string) bool {
	h := strings.ToLower(host)
	return strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://")
}

// SimpleURL is the host, port and base path as entered, for display.
func (c Connection) SimpleURL() string {
	s := c.Host
	if c.Port != nil {
		s += ":" + strconv.Itoa(*c.Port)
	}
	return s + "/" + c.BasePath
}

func (c Connection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("connection name is required")
	}
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("connection %s: host is required", c.Name)
	}
	if c.Port != nil && (*c.Port < 1 || *c.Port > 65535) {
		return fmt.Errorf("connection %s: port %d out of range", c.Name, *c.Port)
	}
	return nil
}

// IntPtr is a helper for setting Port.
func IntPtr(v int) *int {
	return &v
}
