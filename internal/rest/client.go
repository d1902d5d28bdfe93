// Package rest is the HTTP client for the Graphium REST API. Every expected
// failure (policy, transport, status, decoding, server-reported) is returned
// as a *Error; callers switch on its Kind.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/google/uuid"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
)

const (
	DefaultTimeout = 60 * time.Second

	// maxAnsweredChallenges is how many Basic auth challenges one request answers.
	maxAnsweredChallenges = 2

	maxBodyBytes = 512 << 20
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// CredentialSource resolves a connection's auth reference.
type CredentialSource interface {
	Credentials(authRef string) (username, password string, err error)
}

// Option configures a Client.
type Option func(*Client)

func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithCredentials(src CredentialSource) Option {
	return func(c *Client) { c.creds = src }
}

func WithLogger(l grip.Journaler) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to one bound Graphium connection at a time.
type Client struct {
	doer    Doer
	timeout time.Duration
	creds   CredentialSource
	logger  grip.Journaler

	mu   sync.RWMutex
	conn *connection.Connection
}

func New(opts ...Option) *Client {
	c := &Client{
		doer:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.MakeGrip(grip.GetSender())
	}
	return c
}

// Clone returns an unbound client sharing transport, timeout, credentials and logger.
func (c *Client) Clone() *Client {
	return &Client{doer: c.doer, timeout: c.timeout, creds: c.creds, logger: c.logger}
}

// Connect probes conn's /status endpoint and binds the client when the server
// reports a serverName. On failure the client is left unbound.
func (c *Client) Connect(ctx context.Context, conn connection.Connection) error {
	c.Disconnect()
	status, err := c.status(ctx, &conn)
	if err != nil {
		return err
	}
	name, _ := status["serverName"].(string)
	if name == "" {
		return newError(KindNotConnected, fmt.Sprintf("%s did not report a serverName", conn.URL()))
	}
	c.Bind(conn)
	c.logger.Info(message.Fields{
		"message":    "connected to graphium server",
		"connection": conn.Name,
		"server":     name,
		"url":        conn.URL(),
	})
	return nil
}

// Bind attaches conn without probing it.
func (c *Client) Bind(conn connection.Connection) {
	c.mu.Lock()
	c.conn = &conn
	c.mu.Unlock()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

func (c *Client) Connected() bool {
	return c.Connection() != nil
}

// Connection returns a copy of the bound connection, or nil.
func (c *Client) Connection() *connection.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil
	}
	conn := *c.conn
	return &conn
}

// Status returns the decoded /status document of the bound server.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	conn := c.Connection()
	if conn == nil {
		return nil, newError(KindNotConnected, MsgNotConnected)
	}
	return c.status(ctx, conn)
}

func (c *Client) status(ctx context.Context, conn *connection.Connection) (map[string]any, error) {
	resp, err := c.send(ctx, conn, &request{method: http.MethodGet, path: "status"})
	if err != nil {
		return nil, err
	}
	obj := resp.Object()
	if obj == nil {
		return nil, newError(KindDecode, "status response is not a JSON object")
	}
	return obj, nil
}

// Capabilities returns the decoded /capabilities document.
func (c *Client) Capabilities(ctx context.Context) (any, error) {
	resp, err := c.Get(ctx, "capabilities", nil)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// CheckCapability reports whether the server offers name. Servers without a
// capabilities endpoint are assumed to support everything.
func (c *Client) CheckCapability(ctx context.Context, name string) (bool, error) {
	caps, err := c.Capabilities(ctx)
	if IsKind(err, KindNotFound) {
		c.logger.Info(message.Fields{
			"message":    "Check capability not available on this server. Proceed with request...",
			"capability": name,
		})
		return true, nil
	}
	if err != nil {
		return false, err
	}
	switch v := caps.(type) {
	case map[string]any:
		_, ok := v[name]
		return ok, nil
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == name {
				return true, nil
			}
		}
	case string:
		return strings.Contains(v, name), nil
	}
	return false, nil
}

// --- Verbs ---

func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, &request{method: http.MethodGet, path: path, query: query})
}

// Post sends body as JSON. Only mutating posts are refused on read-only connections.
func (c *Client) Post(ctx context.Context, path string, query url.Values, body any, mutating bool) (*Response, error) {
	data, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        path,
		query:       query,
		body:        data,
		contentType: "application/json",
		mutating:    mutating,
	})
}

// Put sends body as JSON, or verbatim when it is a string or []byte.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	data, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, &request{
		method:      http.MethodPut,
		path:        path,
		body:        data,
		contentType: "application/json",
		mutating:    true,
		preemptive:  true,
	})
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, &request{
		method:     http.MethodDelete,
		path:       path,
		query:      query,
		mutating:   true,
		preemptive: true,
	})
}

// Upload posts r as a multipart file field alongside form values.
func (c *Client) Upload(ctx context.Context, path string, query url.Values, field, filename string, r io.Reader, form map[string]string) (*Response, error) {
	if err := c.policy(true); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	for k, v := range form {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	return c.do(ctx, &request{
		method:      http.MethodPost,
		path:        path,
		query:       query,
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
		mutating:    true,
	})
}

// --- Transport ---

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	mutating    bool
	preemptive  bool
}

func jsonBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}
	return data, nil
}

// policy applies the checks that need no I/O.
func (c *Client) policy(mutating bool) error {
	conn := c.Connection()
	if conn == nil {
		return newError(KindNotConnected, MsgNotConnected)
	}
	if mutating && conn.ReadOnly {
		return newError(KindPolicy, MsgReadOnly)
	}
	return nil
}

func (c *Client) do(ctx context.Context, req *request) (*Response, error) {
	if err := c.policy(req.mutating); err != nil {
		return nil, err
	}
	return c.send(ctx, c.Connection(), req)
}

// Resolve joins path and query onto the connection URL.
func Resolve(conn connection.Connection, path string, query url.Values) string {
	u := conn.URL() + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) send(ctx context.Context, conn *connection.Connection, req *request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := Resolve(*conn, req.path, req.query)
	requestID := uuid.NewString()
	start := time.Now()

	var user, pass string
	haveCreds := false
	if conn.AuthRef != "" && c.creds != nil {
		u, p, err := c.creds.Credentials(conn.AuthRef)
		if err != nil {
			return nil, newError(KindAuth, fmt.Sprintf("%s: %v", MsgAuthRequired, err))
		}
		user, pass, haveCreds = u, p, true
	}

	// Preemptive credentials are not an answered challenge.
	answered := 0
	useAuth := req.preemptive && haveCreds

	for {
		httpReq, err := http.NewRequestWithContext(ctx, req.method, target, bytes.NewReader(req.body))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("X-Request-Id", requestID)
		if req.contentType != "" && req.body != nil {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		if useAuth {
			httpReq.SetBasicAuth(user, pass)
		}

		resp, err := c.doer.Do(httpReq)
		if err != nil {
			terr := transportError(ctx, err)
			c.logger.Warning(message.WrapError(err, message.Fields{
				"message":    "graphium request failed",
				"method":     req.method,
				"url":        target,
				"request_id": requestID,
				"kind":       terr.Kind.String(),
			}))
			return nil, terr
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, transportError(ctx, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && haveCreds && isBasicChallenge(resp.Header) {
			if answered >= maxAnsweredChallenges {
				c.logger.Warning(message.Fields{
					"message":    "authentication aborted after repeated challenges",
					"url":        target,
					"request_id": requestID,
				})
				return nil, &Error{Kind: KindAuth, Msg: MsgAuthRequired, Status: resp.StatusCode}
			}
			answered++
			useAuth = true
			continue
		}

		c.logger.Debug(message.Fields{
			"message":     "graphium request",
			"method":      req.method,
			"url":         target,
			"status":      resp.StatusCode,
			"bytes":       len(body),
			"request_id":  requestID,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return interpret(resp.StatusCode, resp.Header, body)
	}
}

func isBasicChallenge(h http.Header) bool {
	for _, v := range h.Values("WWW-Authenticate") {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(v)), "basic") {
			return true
		}
	}
	return false
}

func transportError(ctx context.Context, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, MsgTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, MsgTimeout)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return newError(KindNetwork, err.Error())
}
