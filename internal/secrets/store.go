package secrets

import (
	"context"
	"errors"
)

// Store is the platform secure-storage primitive. Implementations must be
// safe for concurrent use; each call is atomic per key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// SizeLimiter is implemented by backends that cap the size of a single value.
type SizeLimiter interface {
	MaxValueSize() int
}

// ErrNotFound is returned when a key is not found in the store
var ErrNotFound = errors.New("key not found")

// ServiceName is the default service identifier for keyring storage
const ServiceName = "skv"

// Backend names accepted by NewStore and the backend config key.
const (
	BackendAuto    = "auto"
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Backends lists the selectable backend names.
var Backends = []string{BackendAuto, BackendKeyring, BackendFile, BackendMemory}
