package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
)

const warningMarker = ".file-store-warning-shown"

// Options selects and configures the backend built by NewStore.
type Options struct {
	Backend     string // auto, keyring, file or memory; empty means auto
	ServiceName string
	DataDir     string // empty means the XDG data directory
	Password    string // file backend password; empty means machine-specific
	Logger      *slog.Logger
	FileOptions []FileOption
}

// warningShown checks if the file-store warning has already been shown.
// Uses a marker file in the data directory to avoid repeating on every command.
func warningShown(dir string) bool {
	return fileExists(filepath.Join(dir, warningMarker))
}

// quietMode returns true if the user has suppressed warnings via SKV_QUIET.
func quietMode() bool {
	return os.Getenv("SKV_QUIET") == "1" || os.Getenv("SKV_QUIET") == "true"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// warnOnce logs a warning, but only until the marker file exists.
// Set SKV_QUIET=1 to suppress entirely.
func warnOnce(logger *slog.Logger, dir, msg string, args ...any) {
	if quietMode() || warningShown(dir) {
		return
	}
	logger.Warn(msg, args...)
}

// markWarningsDone persists the marker so future commands stay quiet.
func markWarningsDone(dir string) {
	if !warningShown(dir) {
		_ = os.WriteFile(filepath.Join(dir, warningMarker), []byte("1"), 0600)
	}
}

// DefaultDataDir is where file-backed data lives when no directory is configured.
func DefaultDataDir(service string) string {
	if service == "" {
		service = ServiceName
	}
	return filepath.Join(xdg.DataHome, service)
}

// NewStore creates a Store instance using the requested or platform-appropriate backend.
// In auto mode it tries the OS keyring first and falls back to the encrypted file if unavailable.
// WSL and headless environments go straight to the file backend.
func NewStore(opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = ServiceName
	}
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir(opts.ServiceName)
	}
	fileOpts := append([]FileOption{WithFileLogger(opts.Logger)}, opts.FileOptions...)

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.DataDir, opts.Password, fileOpts...)
	case BackendKeyring:
		return NewKeyringStore(opts.ServiceName, opts.DataDir)
	case "", BackendAuto:
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: %s)", opts.Backend, strings.Join(Backends, ", "))
	}

	// WSL and headless environments can't use keyring reliably
	if IsWSL() || IsHeadless() {
		if err := os.MkdirAll(opts.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		warnOnce(opts.Logger, opts.DataDir, "detected WSL/headless environment, using encrypted file storage")
		store, err := NewFileStore(opts.DataDir, opts.Password, fileOpts...)
		if err != nil {
			return nil, err
		}
		markWarningsDone(opts.DataDir)
		return store, nil
	}

	// Try keyring first
	store, err := NewKeyringStore(opts.ServiceName, opts.DataDir)
	if err != nil {
		if mkErr := os.MkdirAll(opts.DataDir, 0700); mkErr != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", mkErr)
		}
		warnOnce(opts.Logger, opts.DataDir, "keyring unavailable, falling back to encrypted file", "error", err)
		fstore, ferr := NewFileStore(opts.DataDir, opts.Password, fileOpts...)
		if ferr != nil {
			return nil, ferr
		}
		markWarningsDone(opts.DataDir)
		return fstore, nil
	}

	return store, nil
}

// Describe names the backend behind a Store for status output.
func Describe(s Store) string {
	switch st := s.(type) {
	case *KeyringStore:
		return "keyring"
	case *FileStore:
		return "encrypted file (" + st.Path() + ")"
	case *MemoryStore:
		return "memory"
	default:
		return fmt.Sprintf("%T", s)
	}
}

// IsWSL returns true if running under Windows Subsystem for Linux.
func IsWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}

	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// IsHeadless returns true if running in a headless environment (no display server).
// Only applicable on Linux; macOS and Windows are assumed to have GUI.
func IsHeadless() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	// Check for X11 or Wayland display
	return os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == ""
}
