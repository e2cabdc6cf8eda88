package secrets

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	DefaultKDFMemoryKiB  uint32 = 64 * 1024
	DefaultKDFIterations uint32 = 3
	DefaultKDFSaltLen           = 16
	MinKDFMemoryKiB      uint32 = 8 * 1024

	fileKeyLen uint32 = 32 // AES-256
)

var ErrInvalidKDFParams = errors.New("invalid key derivation parameters")

// KDFParams configures the Argon2id derivation of the file store key.
type KDFParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     int
}

func DefaultKDFParams() KDFParams {
	parallelism := runtime.NumCPU()
	if parallelism > 4 {
		parallelism = 4
	}
	if parallelism < 1 {
		parallelism = 1
	}

	return KDFParams{
		Memory:      DefaultKDFMemoryKiB,
		Iterations:  DefaultKDFIterations,
		Parallelism: uint8(parallelism),
		SaltLen:     DefaultKDFSaltLen,
	}
}

func (p KDFParams) Validate() error {
	switch {
	case p.Memory < MinKDFMemoryKiB:
		return fmt.Errorf("%w: memory must be >= %d KiB", ErrInvalidKDFParams, MinKDFMemoryKiB)
	case p.Iterations == 0:
		return fmt.Errorf("%w: iterations must be > 0", ErrInvalidKDFParams)
	case p.Parallelism == 0:
		return fmt.Errorf("%w: parallelism must be > 0", ErrInvalidKDFParams)
	case p.SaltLen < 16 || p.SaltLen > 255:
		return fmt.Errorf("%w: salt length must be within [16, 255]", ErrInvalidKDFParams)
	default:
		return nil
	}
}

func deriveFileKey(password, salt []byte, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password must not be empty", ErrInvalidKDFParams)
	}
	if len(salt) < 16 {
		return nil, fmt.Errorf("%w: salt must be at least 16 bytes", ErrInvalidKDFParams)
	}

	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, fileKeyLen), nil
}
