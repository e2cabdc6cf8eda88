package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logSingleField(t *testing.T, key, value string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("test", key, value)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestRedactsSensitiveFields(t *testing.T) {
	for _, key := range []string{"value", "secret", "token", "access_token", "refresh_token", "password", "passphrase", "private_key", "Value"} {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			out := logSingleField(t, key, "s3cr3t")
			assert.Equal(t, redacted, out[key])
		})
	}
}

func TestKeepsOrdinaryFields(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "key", "session")
	assert.Equal(t, "session", out["key"])
}

func TestRedactsGroupsAndWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil))).
		With("token", "abc")
	logger.Info("nested", slog.Group("entry", slog.String("key", "k"), slog.String("value", "v")))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, redacted, out["token"])

	entry, ok := out["entry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "k", entry["key"])
	assert.Equal(t, redacted, entry["value"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "skv.log")

	logger, closer, err := New(Options{Level: "info", File: path, JSON: true})
	require.NoError(t, err)
	logger.Info("stored", "key", "k", "value", "hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"key":"k"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewRotatingWriterRequiresPath(t *testing.T) {
	_, err := NewRotatingWriter("", 0, 0)
	assert.Error(t, err)
}
