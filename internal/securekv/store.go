// Package securekv persists string and structured values in a secure backend.
//
// Structured values are encoded as JSON and written through the same path as
// plain strings, so every stored byte passes one write contract. Failures are
// always returned as *Error with a Kind; nothing is retried or swallowed.
//
// A Store is safe for concurrent use. Writes to one key are last-write-wins;
// a read followed by a write is not atomic.
package securekv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/semmy-space/skv/internal/secrets"
)

// DefaultMaxValueSize caps a single value unless overridden.
const DefaultMaxValueSize = 1 << 20

// Store is an explicit handle over a secrets backend.
type Store struct {
	backend secrets.Store
	prefix  string
	maxSize int
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key, so callers sharing a backend do not collide.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxValueSize sets the value ceiling in bytes. Zero or negative leaves
// only the backend's own ceiling in place.
func WithMaxValueSize(n int) Option {
	return func(s *Store) { s.maxSize = n }
}

// WithTimeout bounds each operation. The backend call is not interrupted;
// the caller simply stops waiting for it.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// WithLogger sets the logger for debug output. Values are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New wraps backend. The effective size ceiling is the smaller of the
// configured one and the backend's, when the backend reports one.
func New(backend secrets.Store, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		maxSize: DefaultMaxValueSize,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	if l, ok := backend.(secrets.SizeLimiter); ok {
		if n := l.MaxValueSize(); n > 0 && (s.maxSize <= 0 || n < s.maxSize) {
			s.maxSize = n
		}
	}
	s.logger = s.logger.With("component", "securekv")

	return s
}

// Backend returns the underlying secrets store.
func (s *Store) Backend() secrets.Store {
	return s.backend
}

// MaxValueSize returns the effective ceiling, or 0 when unlimited.
func (s *Store) MaxValueSize() int {
	if s.maxSize < 0 {
		return 0
	}
	return s.maxSize
}

// call runs fn directly when there is nothing to wait on, otherwise races it
// against the context.
func (s *Store) call(ctx context.Context, fn func(context.Context) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if ctx.Done() == nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StoreValue creates or overwrites the entry for key.
func (s *Store) StoreValue(ctx context.Context, key, value string) error {
	return s.storeValue(ctx, "store_value", key, value)
}

func (s *Store) storeValue(ctx context.Context, op, key, value string) error {
	if key == "" {
		return newError(KindInvalidKey, op, key, errors.New("key must not be empty"))
	}
	if s.maxSize > 0 && len(value) > s.maxSize {
		return newError(KindStorageWrite, op, key,
			fmt.Errorf("%w: %d bytes, limit %d", ErrValueTooLarge, len(value), s.maxSize))
	}

	err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Set(ctx, s.prefix+key, value)
	})
	if err != nil {
		s.logger.Debug("write failed", "op", op, "key", key, "error", err)
		return newError(KindStorageWrite, op, key, err)
	}

	s.logger.Debug("stored", "op", op, "key", key, "bytes", len(value))
	return nil
}

// GetStoredValue returns the current value for key. An absent key fails with
// ErrNotFound; an empty string is a present value.
func (s *Store) GetStoredValue(ctx context.Context, key string) (string, error) {
	return s.getValue(ctx, "get_value", key)
}

func (s *Store) getValue(ctx context.Context, op, key string) (string, error) {
	if key == "" {
		return "", newError(KindInvalidKey, op, key, errors.New("key must not be empty"))
	}

	var value string
	err := s.call(ctx, func(ctx context.Context) error {
		v, err := s.backend.Get(ctx, s.prefix+key)
		value = v
		return err
	})
	if err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return "", newError(KindNotFound, op, key, err)
		}
		s.logger.Debug("read failed", "op", op, "key", key, "error", err)
		return "", newError(KindStorageRead, op, key, err)
	}

	s.logger.Debug("read", "op", op, "key", key, "bytes", len(value))
	return value, nil
}

// StoreObject encodes v as JSON and stores it under key.
func (s *Store) StoreObject(ctx context.Context, key string, v any) error {
	const op = "store_object"
	if key == "" {
		return newError(KindInvalidKey, op, key, errors.New("key must not be empty"))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return newError(KindSerialization, op, key, err)
	}
	return s.storeValue(ctx, op, key, string(data))
}

// GetStoredObject decodes the value under key into out, which must be a
// non-nil pointer. out is left untouched unless decoding succeeds.
func (s *Store) GetStoredObject(ctx context.Context, key string, out any) error {
	const op = "get_object"

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return newError(KindDeserialization, op, key, fmt.Errorf("destination must be a non-nil pointer, got %T", out))
	}

	raw, err := s.getValue(ctx, op, key)
	if err != nil {
		return err
	}

	fresh := reflect.New(rv.Elem().Type())
	if err := DecodeJSON([]byte(raw), fresh.Interface()); err != nil {
		return newError(KindDeserialization, op, key, err)
	}
	rv.Elem().Set(fresh.Elem())

	return nil
}

// DecodeJSON decodes exactly one JSON value from data into v. Numbers landing
// in interface values become json.Number, so integers beyond 2^53 and every
// decimal keep their exact text. Anything after the value is an error.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("invalid character after top-level value")
	}
	return nil
}

// GetObject is the typed form of GetStoredObject.
func GetObject[T any](ctx context.Context, s *Store, key string) (T, error) {
	var v T
	if err := s.GetStoredObject(ctx, key, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// RemoveValue deletes the entry for key. Removing a missing key succeeds.
func (s *Store) RemoveValue(ctx context.Context, key string) error {
	const op = "remove_value"
	if key == "" {
		return newError(KindInvalidKey, op, key, errors.New("key must not be empty"))
	}

	err := s.call(ctx, func(ctx context.Context) error {
		return s.backend.Delete(ctx, s.prefix+key)
	})
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		return newError(KindStorageWrite, op, key, err)
	}

	s.logger.Debug("removed", "key", key)
	return nil
}

// Keys lists the keys under this handle's prefix, prefix stripped, sorted.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	const op = "keys"

	var all []string
	err := s.call(ctx, func(ctx context.Context) error {
		keys, err := s.backend.List(ctx)
		all = keys
		return err
	})
	if err != nil {
		return nil, newError(KindStorageRead, op, "", err)
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if !strings.HasPrefix(k, s.prefix) {
			continue
		}
		if k = strings.TrimPrefix(k, s.prefix); k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return keys, nil
}
