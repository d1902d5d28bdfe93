package config

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore(:memory:): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSettingRoundTrip(t *testing.T) {
	s := newTestStore(t)

	val, err := s.GetSetting("selected_graph")
	if err != nil {
		t.Fatalf("GetSetting unset: %v", err)
	}
	if val != "" {
		t.Errorf("unset setting = %q, want empty", val)
	}

	if err := s.SetSetting("selected_graph", "vienna"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting("selected_graph", "graz"); err != nil {
		t.Fatalf("SetSetting (upsert): %v", err)
	}
	val, err = s.GetSetting("selected_graph")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if val != "graz" {
		t.Errorf("got %q, want %q", val, "graz")
	}
}

func TestListAndDeleteSettings(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting("b", "2")
	s.SetSetting("a", "1")

	settings, err := s.ListSettings()
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(settings) != 2 || settings[0].Key != "a" {
		t.Fatalf("got %+v, want a then b", settings)
	}

	if err := s.DeleteSetting("a"); err != nil {
		t.Fatalf("DeleteSetting: %v", err)
	}
	settings, _ = s.ListSettings()
	if len(settings) != 1 {
		t.Errorf("got %d settings after delete, want 1", len(settings))
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetCredential("graphium", "prod", "username", "alice"); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	val, err := s.GetCredential("graphium", "prod", "username")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if val != "alice" {
		t.Errorf("got %q, want %q", val, "alice")
	}

	if err := s.SetCredential("graphium", "prod", "username", "bob"); err != nil {
		t.Fatalf("SetCredential (upsert): %v", err)
	}
	val, _ = s.GetCredential("graphium", "prod", "username")
	if val != "bob" {
		t.Errorf("got %q, want %q", val, "bob")
	}
}

func TestCredentialNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCredential("graphium", "prod", "password")
	if err == nil {
		t.Fatal("expected error for missing credential")
	}
}

func TestListAndDeleteCredentials(t *testing.T) {
	s := newTestStore(t)

	s.SetCredential("graphium", "prod", "username", "u1")
	s.SetCredential("graphium", "prod", "password", "p1")
	s.SetCredential("graphium", "dev", "username", "u2")
	s.SetCredential("other", "default", "token", "t")

	creds, err := s.ListCredentials("graphium")
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(creds) != 3 {
		t.Fatalf("got %d credentials, want 3", len(creds))
	}

	if err := s.DeleteCredential("graphium", "prod"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	creds, _ = s.ListCredentials("graphium")
	if len(creds) != 1 {
		t.Errorf("got %d credentials after delete, want 1", len(creds))
	}
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graphium.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.SetSetting("connections", "[]"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	val, err := s.GetSetting("connections")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if val != "[]" {
		t.Errorf("got %q after reopen, want %q", val, "[]")
	}
}
