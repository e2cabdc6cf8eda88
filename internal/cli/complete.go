package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/posener/complete"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/secrets"
)

const completionTimeout = 2 * time.Second

// KeyPredictor completes stored key names from the config at $SKV_CONFIG or
// the default path. Any failure yields no suggestions.
func KeyPredictor() complete.Predictor {
	return complete.PredictFunc(func(complete.Args) []string {
		path := os.Getenv("SKV_CONFIG")
		if path == "" {
			path = config.ConfigPath()
		}
		return storedKeys(path, os.Getenv("SKV_PREFIX"))
	})
}

// storedKeys lists keys quietly; completion must never prompt or print
func storedKeys(cfgPath, prefix string) []string {
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil || cfg.Validate() != nil {
		return nil
	}
	if cfg.ResolvedBackend() == secrets.BackendMemory {
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv, err := NewStoreProvider(cfg, &Globals{Prefix: prefix}, logger).Store()
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()
	keys, err := kv.Keys(ctx)
	if err != nil {
		return nil
	}
	return keys
}
