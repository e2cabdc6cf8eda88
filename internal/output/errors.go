package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/securekv"
	"github.com/semmy-space/skv/internal/session"
)

// Exit codes following sysexits.h convention
const (
	ExitOK          = 0  // Success
	ExitGeneral     = 1  // General error
	ExitUsage       = 2  // Invalid usage / bad arguments
	ExitAuth        = 3  // No stored session, re-authentication needed
	ExitNotFound    = 4  // Key not found
	ExitTimeout     = 8  // Operation timed out
	ExitStorage     = 9  // Secure storage backend failure
	ExitConfigError = 10 // Configuration error
	ExitDataError   = 65 // Value could not be encoded or decoded (EX_DATAERR)
)

// CLIError represents a structured error with exit code and optional hint
type CLIError struct {
	ExitCode int
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *CLIError) Error() string {
	return e.Message
}

// NewCLIError creates a new CLIError
func NewCLIError(code int, msg string) *CLIError {
	return &CLIError{
		ExitCode: code,
		Message:  msg,
	}
}

// WithHint adds a user-facing hint to the error
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// FromError converts an error into a CLIError with the matching exit code.
// CLIErrors pass through unchanged.
func FromError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	switch {
	case errors.Is(err, session.ErrNoSession):
		return NewCLIError(ExitAuth, err.Error()).WithHint("Sign in again to store a new session")
	case errors.Is(err, context.DeadlineExceeded):
		return NewCLIError(ExitTimeout, err.Error()).WithHint("Raise the limit with: skv config set timeout 30s")
	case errors.Is(err, config.ErrInvalidConfig):
		return NewCLIError(ExitConfigError, err.Error())
	}

	switch securekv.KindOf(err) {
	case securekv.KindNotFound:
		return NewCLIError(ExitNotFound, err.Error())
	case securekv.KindInvalidKey:
		return NewCLIError(ExitUsage, err.Error())
	case securekv.KindSerialization, securekv.KindDeserialization:
		return NewCLIError(ExitDataError, err.Error())
	case securekv.KindStorageWrite:
		if errors.Is(err, securekv.ErrValueTooLarge) {
			return NewCLIError(ExitStorage, err.Error()).WithHint("The backend caps value size; see: skv backend")
		}
		return NewCLIError(ExitStorage, err.Error())
	case securekv.KindStorageRead:
		return NewCLIError(ExitStorage, err.Error())
	}

	return NewCLIError(ExitGeneral, err.Error())
}

// ExitWithError prints the error via the formatter and returns the exit code
func ExitWithError(formatter Formatter, err error) int {
	cliErr := FromError(err)
	if cliErr == nil {
		return ExitOK
	}

	formatter.PrintError(fmt.Errorf("%s", cliErr.Message))
	if cliErr.Hint != "" {
		formatter.PrintHint(cliErr.Hint)
	}
	// Note: the actual os.Exit call belongs in main.go
	return cliErr.ExitCode
}
