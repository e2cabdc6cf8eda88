package secrets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/99designs/keyring"
)

// wincredMaxBlob is CRED_MAX_CREDENTIAL_BLOB_SIZE on Windows.
const wincredMaxBlob = 5 * 512

// KeyringStore implements the Store interface using the OS keyring.
type KeyringStore struct {
	ring    keyring.Keyring
	service string
}

// NewKeyringStore creates a new keyring-backed credential store.
// Returns an error if the keyring is unavailable on this platform.
func NewKeyringStore(serviceName, dataDir string) (*KeyringStore, error) {
	if serviceName == "" {
		serviceName = ServiceName
	}

	cfg := keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true, // macOS: don't prompt every access
		FileDir:                  filepath.Join(dataDir, "keyring"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return newKeyringStore(ring, serviceName), nil
}

func newKeyringStore(ring keyring.Keyring, service string) *KeyringStore {
	return &KeyringStore{ring: ring, service: service}
}

// Get retrieves a credential by key from the keyring.
func (s *KeyringStore) Get(_ context.Context, key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("keyring get failed: %w", err)
	}
	return string(item.Data), nil
}

// Set stores a credential in the keyring.
func (s *KeyringStore) Set(_ context.Context, key, value string) error {
	item := keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: s.service + ": " + key,
	}
	if err := s.ring.Set(item); err != nil {
		return fmt.Errorf("keyring set failed: %w", err)
	}
	return nil
}

// Delete removes a credential from the keyring.
func (s *KeyringStore) Delete(_ context.Context, key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// List returns all credential keys stored in the keyring.
func (s *KeyringStore) List(_ context.Context) ([]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("keyring list failed: %w", err)
	}
	return keys, nil
}

// MaxValueSize reports the platform ceiling for a single item, or 0 when the
// platform does not impose one.
func (s *KeyringStore) MaxValueSize() int {
	if runtime.GOOS == "windows" {
		return wincredMaxBlob
	}
	return 0
}

// AvailableKeyrings lists the keyring backends usable on this platform.
func AvailableKeyrings() []string {
	types := keyring.AvailableBackends()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	return names
}
