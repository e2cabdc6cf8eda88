package secrets

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKDFParams = KDFParams{
	Memory:      MinKDFMemoryKiB,
	Iterations:  1,
	Parallelism: 1,
	SaltLen:     DefaultKDFSaltLen,
}

func newTestFileStore(t *testing.T, dir, password string) *FileStore {
	t.Helper()
	s, err := NewFileStore(dir, password, WithKDFParams(testKDFParams))
	require.NoError(t, err)
	return s
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestFileStore(t, dir, "correct horse")

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "refresh_token", "r-123"))
	require.NoError(t, s.Set(ctx, "empty", ""))

	v, err := s.Get(ctx, "refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "r-123", v)

	v, err = s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "refresh_token"}, keys)

	require.NoError(t, s.Delete(ctx, "empty"))
	assert.ErrorIs(t, s.Delete(ctx, "empty"), ErrNotFound)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := newTestFileStore(t, dir, "pw")
	require.NoError(t, first.Set(ctx, "k", "v"))

	second := newTestFileStore(t, dir, "pw")
	v, err := second.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileStoreDoesNotLeakPlaintext(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestFileStore(t, dir, "pw")
	require.NoError(t, s.Set(ctx, "secret-key", "plaintext-value"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, fileMagic, string(data[:len(fileMagic)]))
	assert.NotContains(t, string(data), "plaintext-value")
	assert.NotContains(t, string(data), "secret-key")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestFileStoreWrongPassword(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, newTestFileStore(t, dir, "right").Set(ctx, "k", "v"))

	wrong := newTestFileStore(t, dir, "wrong")
	_, err := wrong.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decrypt credentials")

	// A failed read must not clobber the existing file.
	assert.Error(t, wrong.Set(ctx, "k", "other"))
	v, err := newTestFileStore(t, dir, "right").Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestFileStore(t, dir, "pw")

	tests := []struct {
		name string
		data []byte
	}{
		{name: "bad magic", data: []byte("garbage data")},
		{name: "truncated salt", data: append([]byte(fileMagic), 32, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, credentialsFile), tt.data, 0600))
			_, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrCorruptFile)
		})
	}

	t.Run("tampered ciphertext", func(t *testing.T) {
		require.NoError(t, os.Remove(s.Path()))
		require.NoError(t, s.Set(ctx, "k", "v"))
		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		data[len(data)-1] ^= 0xff
		require.NoError(t, os.WriteFile(s.Path(), data, 0600))

		_, err = s.Get(ctx, "k")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decryption failed")
	})
}

func TestFileStoreEmptyFileIsEmptyStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, credentialsFile), nil, 0600))

	s := newTestFileStore(t, dir, "pw")
	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestFileStoreConcurrentSets(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t, t.TempDir(), "pw")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, fmt.Sprintf("key-%d", i), fmt.Sprintf("value-%d", i)))
		}(i)
	}
	wg.Wait()

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 10)
}

func TestFileStoreCanceledContext(t *testing.T) {
	s := newTestFileStore(t, t.TempDir(), "pw")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Set(ctx, "k", "v")
	assert.Error(t, err)
}

func TestKDFParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultKDFParams().Validate())
	assert.NoError(t, testKDFParams.Validate())

	bad := testKDFParams
	bad.Memory = 1024
	assert.ErrorIs(t, bad.Validate(), ErrInvalidKDFParams)

	bad = testKDFParams
	bad.Iterations = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidKDFParams)

	bad = testKDFParams
	bad.SaltLen = 8
	assert.ErrorIs(t, bad.Validate(), ErrInvalidKDFParams)

	_, err := NewFileStore(t.TempDir(), "pw", WithKDFParams(bad))
	assert.ErrorIs(t, err, ErrInvalidKDFParams)
}

func TestFileStoreKeepsBytesExact(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestFileStore(t, dir, "pw")

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "invalid utf-8 value", key: "k", value: "a\xffb\xc3"},
		{name: "invalid utf-8 key", key: "k\xfe", value: "v"},
		{name: "nul and control bytes", key: "ctl", value: "\x00\x01\r\n\t"},
		{name: "trailing newline", key: "nl", value: "line\n"},
		{name: "empty value", key: "empty", value: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, tt.key, tt.value))

			// A fresh instance reads from disk rather than any cached state
			got, err := newTestFileStore(t, dir, "pw").Get(ctx, tt.key)
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.value), []byte(got))
		})
	}

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, "k\xfe")
}

func TestFileStoreReadsLegacyFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, credentialsFile)

	// Build an "SKV1" file: a JSON string map under the same header scheme
	salt := bytes.Repeat([]byte{7}, testKDFParams.SaltLen)
	header := append([]byte(legacyFileMagic), byte(len(salt)))
	header = append(header, salt...)
	key, err := deriveFileKey([]byte("pw"), salt, testKDFParams)
	require.NoError(t, err)
	sealed, err := encrypt(key, []byte(`{"old":"value"}`), header)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(header, sealed...), 0600))

	s := newTestFileStore(t, dir, "pw")
	v, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	// The next write upgrades the file
	require.NoError(t, s.Set(ctx, "new", "a\xff"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fileMagic, string(data[:len(fileMagic)]))

	reopened := newTestFileStore(t, dir, "pw")
	v, err = reopened.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	v, err = reopened.Get(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "a\xff", v)
}
