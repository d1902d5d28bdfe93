package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	// CredentialService is the credentials table service for connection auth.
	CredentialService = "graphium"

	saltSetting  = "credential_salt"
	sealedPrefix = "sealed:"
)

// ErrLocked is returned when a sealed credential is read without a master password.
var ErrLocked = errors.New("credential is sealed: set GRAPHIUM_MASTER_PASSWORD or enter the master password")

// Vault stores connection credentials (username and password under an auth
// reference). Passwords are sealed with a key derived from the master
// password when one is given, and stored as plain text otherwise.
type Vault struct {
	store Store
	key   *[32]byte
}

// NewVault returns a vault over store. An empty master password disables sealing.
func NewVault(store Store, masterPassword string) (*Vault, error) {
	v := &Vault{store: store}
	if masterPassword == "" {
		return v, nil
	}
	salt, err := v.salt()
	if err != nil {
		return nil, err
	}
	derived, err := scrypt.Key([]byte(masterPassword), salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("deriving credential key: %w", err)
	}
	v.key = new([32]byte)
	copy(v.key[:], derived)
	return v, nil
}

func (v *Vault) salt() ([]byte, error) {
	encoded, err := v.store.GetSetting(saltSetting)
	if err != nil {
		return nil, err
	}
	if encoded != "" {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decoding credential salt: %w", err)
		}
		return salt, nil
	}
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generating credential salt: %w", err)
	}
	if err := v.store.SetSetting(saltSetting, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

// Sealing reports whether new passwords are stored sealed.
func (v *Vault) Sealing() bool {
	return v.key != nil
}

// Set stores username and password under authRef.
func (v *Vault) Set(authRef, username, password string) error {
	sealed, err := v.seal(password)
	if err != nil {
		return err
	}
	if err := v.store.SetCredential(CredentialService, authRef, "username", username); err != nil {
		return err
	}
	return v.store.SetCredential(CredentialService, authRef, "password", sealed)
}

// Credentials resolves an auth reference into a username and password.
func (v *Vault) Credentials(authRef string) (string, string, error) {
	user, err := v.store.GetCredential(CredentialService, authRef, "username")
	if err != nil {
		return "", "", err
	}
	stored, err := v.store.GetCredential(CredentialService, authRef, "password")
	if err != nil {
		return "", "", err
	}
	pass, err := v.open(stored)
	if err != nil {
		return "", "", fmt.Errorf("credential %s: %w", authRef, err)
	}
	return user, pass, nil
}

// Refs lists the stored auth references.
func (v *Vault) Refs() ([]string, error) {
	creds, err := v.store.ListCredentials(CredentialService)
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, c := range creds {
		if c.Key == "username" {
			refs = append(refs, c.Name)
		}
	}
	return refs, nil
}

func (v *Vault) Delete(authRef string) error {
	return v.store.DeleteCredential(CredentialService, authRef)
}

func (v *Vault) seal(plain string) (string, error) {
	if v.key == nil {
		return plain, nil
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, v.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

func (v *Vault) open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if v.key == nil {
		return "", ErrLocked
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil || len(box) < 24 {
		return "", fmt.Errorf("corrupt sealed credential")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, v.key)
	if !ok {
		return "", fmt.Errorf("wrong master password")
	}
	return string(plain), nil
}
