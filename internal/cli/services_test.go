package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/output"
	"github.com/semmy-space/skv/internal/secrets"
)

func TestStoreProviderPrecedence(t *testing.T) {
	cfg := &config.Config{Backend: "file", KeyPrefix: "cfg."}

	tests := []struct {
		name          string
		globals       *Globals
		expectBackend string
		expectPrefix  string
	}{
		{name: "config only", globals: nil, expectBackend: "file", expectPrefix: "cfg."},
		{name: "flags win", globals: &Globals{Backend: "memory", Prefix: "flag."}, expectBackend: "memory", expectPrefix: "flag."},
		{name: "partial flags", globals: &Globals{Prefix: "flag."}, expectBackend: "file", expectPrefix: "flag."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := NewStoreProvider(cfg, tt.globals, nil)
			assert.Equal(t, tt.expectBackend, sp.Backend())
			assert.Equal(t, tt.expectPrefix, sp.Prefix())
		})
	}
}

func TestStoreProviderOpensOnce(t *testing.T) {
	sp := NewStoreProvider(&config.Config{}, &Globals{Backend: "memory", Prefix: "p."}, nil)

	first, err := sp.Store()
	require.NoError(t, err)
	second, err := sp.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.StoreValue(context.Background(), "k", "v"))
	keys, err := first.Backend().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p.k"}, keys)
}

func TestStoreProviderAppliesLimits(t *testing.T) {
	cfg := &config.Config{MaxValueSize: "16", Timeout: "1s"}
	sp := NewStoreProvider(cfg, &Globals{Backend: "memory"}, nil)

	kv, err := sp.Store()
	require.NoError(t, err)
	assert.Equal(t, 16, kv.MaxValueSize())
}

func TestStoreProviderInvalidConfig(t *testing.T) {
	sp := NewStoreProvider(&config.Config{Timeout: "later"}, &Globals{Backend: "memory"}, nil)

	_, err := sp.Store()
	var cliErr *output.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, output.ExitConfigError, cliErr.ExitCode)
}

func TestStoredKeys(t *testing.T) {
	t.Setenv(PasswordEnv, "pw")
	t.Setenv("SKV_QUIET", "1")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json5")
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{backend: "file", data_dir: "`+filepath.ToSlash(dataDir)+`"}`), 0600))

	fs, err := secrets.NewFileStore(dataDir, "pw")
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, fs.Set(ctx, "app.token", "x"))
	require.NoError(t, fs.Set(ctx, "app.user", "y"))
	require.NoError(t, fs.Set(ctx, "other", "z"))

	assert.Equal(t, []string{"app.token", "app.user", "other"}, storedKeys(cfgPath, ""))
	assert.Equal(t, []string{"token", "user"}, storedKeys(cfgPath, "app."))

	badPath := filepath.Join(dir, "bad.json5")
	require.NoError(t, os.WriteFile(badPath, []byte(`{backend: "floppy"}`), 0600))
	assert.Nil(t, storedKeys(badPath, ""))

	memPath := filepath.Join(dir, "memory.json5")
	require.NoError(t, os.WriteFile(memPath, []byte(`{backend: "memory"}`), 0600))
	assert.Nil(t, storedKeys(memPath, ""))
}
