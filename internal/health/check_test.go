package health

import (
	"context"
	"testing"

	"github.com/dukerupert/graphium/internal/connection"
	"github.com/dukerupert/graphium/internal/graphiumtest"
	"github.com/dukerupert/graphium/internal/rest"
)

func TestCheck_Pass(t *testing.T) {
	srv := graphiumtest.New("stub-server")
	defer srv.Close()
	srv.SetCapabilities(map[string]any{"routing": true, "mapMatching": true})

	client := rest.New()
	result, err := Check(context.Background(), client, srv.Conn("local"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Server.Status != StatusPass {
		t.Errorf("server status = %q, want %q (%s)", result.Server.Status, StatusPass, result.Server.Error)
	}
	if result.Server.ServerName != "stub-server" {
		t.Errorf("server name = %q, want %q", result.Server.ServerName, "stub-server")
	}
	if len(result.Capabilities.Names) != 2 || result.Capabilities.Names[0] != "mapMatching" {
		t.Errorf("capabilities = %v, want [mapMatching routing]", result.Capabilities.Names)
	}
	if result.Summary != StatusPass {
		t.Errorf("summary = %q, want %q", result.Summary, StatusPass)
	}
	if client.Connected() {
		t.Error("Check must not bind the caller's client")
	}
}

func TestCheck_NoCapabilitiesEndpoint(t *testing.T) {
	srv := graphiumtest.New("stub-server")
	defer srv.Close()

	result, err := Check(context.Background(), rest.New(), srv.Conn("local"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Capabilities.Status != StatusSkip {
		t.Errorf("capabilities status = %q, want %q", result.Capabilities.Status, StatusSkip)
	}
	if result.Summary != StatusPass {
		t.Errorf("summary = %q, want %q", result.Summary, StatusPass)
	}
}

func TestCheck_Unreachable(t *testing.T) {
	srv := graphiumtest.New("stub-server")
	conn := srv.Conn("gone")
	srv.Close()

	result, err := Check(context.Background(), rest.New(), conn)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Server.Status != StatusFail {
		t.Errorf("server status = %q, want %q", result.Server.Status, StatusFail)
	}
	if result.Server.Error == "" {
		t.Error("expected an error message for an unreachable server")
	}
	if result.Capabilities.Status != StatusSkip {
		t.Errorf("capabilities status = %q, want %q", result.Capabilities.Status, StatusSkip)
	}
	if result.Summary != StatusFail {
		t.Errorf("summary = %q, want %q", result.Summary, StatusFail)
	}
}

func TestCheck_InvalidConnection(t *testing.T) {
	conn := connection.New("")
	if _, err := Check(context.Background(), rest.New(), conn); err == nil {
		t.Error("expected error for a connection without a name")
	}
}

func TestComputeSummary(t *testing.T) {
	tests := []struct {
		name   string
		result CheckResult
		want   CheckStatus
	}{
		{
			name: "server fail",
			result: CheckResult{
				Server:       StatusResult{Status: StatusFail},
				Capabilities: CapabilityResult{Status: StatusSkip},
				ReadOnly:     StatusPass,
			},
			want: StatusFail,
		},
		{
			name: "read-only connection",
			result: CheckResult{
				Server:       StatusResult{Status: StatusPass},
				Capabilities: CapabilityResult{Status: StatusPass},
				ReadOnly:     StatusWarn,
			},
			want: StatusWarn,
		},
		{
			name: "capabilities unreadable",
			result: CheckResult{
				Server:       StatusResult{Status: StatusPass},
				Capabilities: CapabilityResult{Status: StatusWarn},
				ReadOnly:     StatusPass,
			},
			want: StatusWarn,
		},
		{
			name: "capabilities endpoint missing",
			result: CheckResult{
				Server:       StatusResult{Status: StatusPass},
				Capabilities: CapabilityResult{Status: StatusSkip},
				ReadOnly:     StatusPass,
			},
			want: StatusPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := computeSummary(&tt.result)
			if got != tt.want {
				t.Errorf("computeSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}
