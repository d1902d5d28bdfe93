package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPreferencesDefaults(t *testing.T) {
	p, err := NewPreferences(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewPreferences: %v", err)
	}
	if got := p.Timeout(); got != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", got)
	}
	if got := p.String(KeyJavaExe); got != "java" {
		t.Errorf("java_exe = %q, want java", got)
	}
	if p.Bool(KeyHDEnabled) {
		t.Error("hd_enabled should default to false")
	}
}

func TestPreferencesFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout_sec: 5\ndefault_graph: vienna\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := NewPreferences(path)
	if err != nil {
		t.Fatalf("NewPreferences: %v", err)
	}
	if got := p.Timeout(); got != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", got)
	}

	if err := p.Set(KeyDefaultGraph, "graz"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := p.String(KeyDefaultGraph); got != "graz" {
		t.Errorf("default_graph = %q, want graz", got)
	}

	if err := p.Set("nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestPreferencesEnv(t *testing.T) {
	t.Setenv("GRAPHIUM_TIMEOUT_SEC", "7")
	p, err := NewPreferences(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewPreferences: %v", err)
	}
	if got := p.Timeout(); got != 7*time.Second {
		t.Errorf("timeout = %v, want 7s", got)
	}
}
