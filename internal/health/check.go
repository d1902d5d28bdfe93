// Package health checks that a configured connection reaches a working
// Graphium server.
package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/rest"
)

// CheckStatus represents the outcome of a check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusFail CheckStatus = "FAIL"
	StatusWarn CheckStatus = "WARN"
	StatusSkip CheckStatus = "SKIP"
)

// StatusResult holds the /status probe details.
type StatusResult struct {
	ServerName    string
	ServerVersion string
	Latency       time.Duration
	Status        CheckStatus
	Error         string
}

// CapabilityResult holds the advertised capabilities.
type CapabilityResult struct {
	Names  []string
	Status CheckStatus
	Error  string
}

// CheckResult is the full structured result of a connection check.
type CheckResult struct {
	Connection   string
	URL          string
	Server       StatusResult
	Capabilities CapabilityResult
	ReadOnly     CheckStatus
	Summary      CheckStatus
}

// Check probes conn with a clone of client. The caller's binding is untouched.
func Check(ctx context.Context, client *rest.Client, conn connection.Connection) (*CheckResult, error) {
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection: %w", err)
	}
	c := client.Clone()
	c.Bind(conn)

	result := &CheckResult{
		Connection: conn.Name,
		URL:        conn.URL(),
		ReadOnly:   StatusPass,
	}
	if conn.ReadOnly {
		result.ReadOnly = StatusWarn
	}

	result.Server = probe(ctx, c)
	if result.Server.Status == StatusPass {
		result.Capabilities = capabilities(ctx, c)
	} else {
		result.Capabilities = CapabilityResult{Status: StatusSkip}
	}

	result.Summary = computeSummary(result)
	return result, nil
}

func probe(ctx context.Context, c *rest.Client) StatusResult {
	r := StatusResult{Status: StatusFail}
	start := time.Now()
	status, err := c.Status(ctx)
	r.Latency = time.Since(start)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ServerName, _ = status["serverName"].(string)
	r.ServerVersion, _ = status["serverVersion"].(string)
	if r.ServerName == "" {
		r.Error = "server did not report a serverName"
		return r
	}
	r.Status = StatusPass
	return r
}

func capabilities(ctx context.Context, c *rest.Client) CapabilityResult {
	r := CapabilityResult{Status: StatusPass}
	caps, err := c.Capabilities(ctx)
	if rest.IsKind(err, rest.KindNotFound) {
		// older servers have no capabilities endpoint
		r.Status = StatusSkip
		return r
	}
	if err != nil {
		r.Status = StatusWarn
		r.Error = err.Error()
		return r
	}
	switch v := caps.(type) {
	case map[string]any:
		for name := range v {
			r.Names = append(r.Names, name)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				r.Names = append(r.Names, s)
			}
		}
	case string:
		r.Names = []string{v}
	}
	sort.Strings(r.Names)
	if len(r.Names) == 0 {
		r.Status = StatusWarn
	}
	return r
}

// computeSummary derives the overall status from individual check results.
func computeSummary(r *CheckResult) CheckStatus {
	if r.Server.Status == StatusFail {
		return StatusFail
	}
	if r.Capabilities.Status == StatusWarn || r.ReadOnly == StatusWarn {
		return StatusWarn
	}
	return StatusPass
}
