package cli

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/output"
	"github.com/semmy-space/skv/internal/secrets"
	"github.com/semmy-space/skv/internal/securekv"
)

// PasswordEnv holds the file backend password.
const PasswordEnv = "SKV_STORE_PASSWORD"

// StoreProvider lazily opens and caches the secure store for one invocation.
// Commands that never touch the store (config, version) never open a backend.
type StoreProvider struct {
	cfg     *config.Config
	globals *Globals
	logger  *slog.Logger

	once  sync.Once
	store *securekv.Store
	err   error
}

// NewStoreProvider creates a StoreProvider; global flags take precedence over config.
func NewStoreProvider(cfg *config.Config, globals *Globals, logger *slog.Logger) *StoreProvider {
	if globals == nil {
		globals = &Globals{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreProvider{cfg: cfg, globals: globals, logger: logger}
}

// Backend returns the requested backend name
func (sp *StoreProvider) Backend() string {
	if sp.globals.Backend != "" {
		return sp.globals.Backend
	}
	return sp.cfg.ResolvedBackend()
}

// Prefix returns the key namespace prefix
func (sp *StoreProvider) Prefix() string {
	if sp.globals.Prefix != "" {
		return sp.globals.Prefix
	}
	return sp.cfg.KeyPrefix
}

// Store returns the secure store, creating it on first call.
func (sp *StoreProvider) Store() (*securekv.Store, error) {
	sp.once.Do(func() {
		sp.store, sp.err = sp.open()
	})
	return sp.store, sp.err
}

func (sp *StoreProvider) open() (*securekv.Store, error) {
	maxSize, err := sp.cfg.MaxValueBytes()
	if err != nil {
		return nil, output.FromError(err)
	}
	timeout, err := sp.cfg.OpTimeout()
	if err != nil {
		return nil, output.FromError(err)
	}

	backend, err := secrets.NewStore(secrets.Options{
		Backend:     sp.Backend(),
		ServiceName: sp.cfg.ServiceName,
		DataDir:     sp.cfg.ResolvedDataDir(),
		Password:    os.Getenv(PasswordEnv),
		Logger:      sp.logger,
	})
	if err != nil {
		return nil, &output.CLIError{
			ExitCode: output.ExitStorage,
			Message:  fmt.Sprintf("Failed to initialize secrets store: %v", err),
		}
	}
	sp.logger.Debug("opened store", "backend", secrets.Describe(backend), "prefix", sp.Prefix())

	opts := []securekv.Option{
		securekv.WithPrefix(sp.Prefix()),
		securekv.WithLogger(sp.logger),
	}
	if maxSize > 0 {
		opts = append(opts, securekv.WithMaxValueSize(maxSize))
	}
	if timeout > 0 {
		opts = append(opts, securekv.WithTimeout(timeout))
	}

	return securekv.New(backend, opts...), nil
}
