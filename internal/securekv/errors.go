package securekv

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can branch on it.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidKey
	KindStorageRead
	KindStorageWrite
	KindSerialization
	KindDeserialization
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidKey      = errors.New("invalid key")
	ErrStorageRead     = errors.New("storage read failed")
	ErrStorageWrite    = errors.New("storage write failed")
	ErrSerialization   = errors.New("serialization failed")
	ErrDeserialization = errors.New("deserialization failed")

	// ErrValueTooLarge is wrapped by a storage write error when a value exceeds the size ceiling.
	ErrValueTooLarge = errors.New("value exceeds size limit")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindInvalidKey:
		return ErrInvalidKey
	case KindStorageRead:
		return ErrStorageRead
	case KindStorageWrite:
		return ErrStorageWrite
	case KindSerialization:
		return ErrSerialization
	case KindDeserialization:
		return ErrDeserialization
	default:
		return nil
	}
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every Store operation that fails.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "get_value"
	Key  string // caller-visible key, without prefix
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %q: %s", e.Op, e.Key, e.Kind)
	if e.Err != nil && e.Kind != KindNotFound {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of err, or 0 if err is not a store error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}
