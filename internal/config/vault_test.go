package config

import (
	"errors"
	"strings"
	"testing"
)

func TestVaultPlain(t *testing.T) {
	s := newTestStore(t)
	v, err := NewVault(s, "")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if v.Sealing() {
		t.Fatal("expected plain vault")
	}
	if err := v.Set("prod", "alice", "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	user, pass, err := v.Credentials("prod")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if user != "alice" || pass != "secret" {
		t.Errorf("got %q/%q, want alice/secret", user, pass)
	}
}

func TestVaultSealed(t *testing.T) {
	s := newTestStore(t)
	v, err := NewVault(s, "master")
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if err := v.Set("prod", "alice", "secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	stored, _ := s.GetCredential(CredentialService, "prod", "password")
	if !strings.HasPrefix(stored, sealedPrefix) || strings.Contains(stored, "secret") {
		t.Fatalf("password stored unsealed: %q", stored)
	}

	// Same master password, same salt from settings.
	again, err := NewVault(s, "master")
	if err != nil {
		t.Fatalf("NewVault again: %v", err)
	}
	_, pass, err := again.Credentials("prod")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if pass != "secret" {
		t.Errorf("got %q, want %q", pass, "secret")
	}

	wrong, _ := NewVault(s, "guess")
	if _, _, err := wrong.Credentials("prod"); err == nil {
		t.Error("expected error with wrong master password")
	}

	locked, _ := NewVault(s, "")
	if _, _, err := locked.Credentials("prod"); !errors.Is(err, ErrLocked) {
		t.Errorf("got %v, want ErrLocked", err)
	}
}

func TestVaultRefsAndDelete(t *testing.T) {
	s := newTestStore(t)
	v, _ := NewVault(s, "")
	v.Set("prod", "a", "b")
	v.Set("dev", "c", "d")

	refs, err := v.Refs()
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	if len(refs) != 2 || refs[0] != "dev" {
		t.Fatalf("got %v, want [dev prod]", refs)
	}

	if err := v.Delete("prod"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := v.Credentials("prod"); err == nil {
		t.Error("expected error after delete")
	}
}
