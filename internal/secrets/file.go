package secrets

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

const (
	fileMagic       = "SKV2"
	legacyFileMagic = "SKV1" // values as a JSON string map; read only
	credentialsFile = "credentials.enc"

	defaultLockTimeout = 10 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// ErrCorruptFile is returned when the credentials file has an unknown layout.
var ErrCorruptFile = errors.New("credentials file is corrupt or has an unknown format")

// FileStore implements the Store interface using an AES-256-GCM encrypted file.
// This is a fallback for environments where OS keyring is unavailable (WSL, headless, Docker).
//
// On-disk layout: "SKV2" | salt length (1 byte) | salt | nonce | ciphertext.
// The header is authenticated as additional data. The key is derived from the
// password with Argon2id and the salt stored in the header. The plaintext is a
// JSON list of entries with base64 key and value bytes, so values that are not
// valid UTF-8 survive unchanged. "SKV1" files are read and rewritten as "SKV2".
type FileStore struct {
	path        string
	lockPath    string
	password    []byte
	params      KDFParams
	lockTimeout time.Duration
	logger      *slog.Logger

	mu   sync.Mutex
	salt []byte // salt the cached key was derived from
	key  []byte
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithKDFParams overrides the Argon2id parameters.
func WithKDFParams(p KDFParams) FileOption {
	return func(s *FileStore) { s.params = p }
}

// WithLockTimeout bounds how long a write waits for the cross-process lock.
func WithLockTimeout(d time.Duration) FileOption {
	return func(s *FileStore) { s.lockTimeout = d }
}

// WithFileLogger sets the logger used for warnings.
func WithFileLogger(l *slog.Logger) FileOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore creates a new file-backed credential store in dir.
// If dir is empty, the XDG data directory is used.
// If password is empty, uses a machine-specific default (less secure, logs a warning once).
func NewFileStore(dir, password string, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(xdg.DataHome, ServiceName)
	}

	s := &FileStore{
		path:        filepath.Join(dir, credentialsFile),
		lockPath:    filepath.Join(dir, credentialsFile+".lock"),
		params:      DefaultKDFParams(),
		lockTimeout: defaultLockTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}

	// Create parent directory with 0700 permissions
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	if password == "" {
		password = machinePassword()
		warnOnce(s.logger, dir, "using machine-specific encryption key; set SKV_STORE_PASSWORD for better security")
		markWarningsDone(dir)
	}
	s.password = []byte(password)

	return s, nil
}

// machinePassword is derived from user and host so the file is at least bound to the account.
func machinePassword() string {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME") // Windows fallback
	}
	return fmt.Sprintf("%s@%s", username, hostname)
}

// Path returns the credentials file location.
func (s *FileStore) Path() string {
	return s.path
}

// keyFor returns the AES key for salt, deriving it on first use. Callers hold s.mu.
func (s *FileStore) keyFor(salt []byte) ([]byte, error) {
	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key, nil
	}

	key, err := deriveFileKey(s.password, salt, s.params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	s.salt = append([]byte(nil), salt...)
	s.key = key
	return key, nil
}

// encrypt encrypts plaintext using AES-256-GCM with a random nonce.
// The nonce is prepended to the ciphertext.
func encrypt(key, plaintext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// decrypt reverses encrypt.
func decrypt(key, ciphertext, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// readStore decrypts and parses the credential file. Callers hold s.mu.
// Returns an empty map and a nil salt if the file doesn't exist.
func (s *FileStore) readStore() (map[string]string, []byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if len(data) == 0 {
		return make(map[string]string), nil, nil
	}

	headerLen := len(fileMagic) + 1
	if len(data) < headerLen {
		return nil, nil, ErrCorruptFile
	}
	magic := string(data[:len(fileMagic)])
	if magic != fileMagic && magic != legacyFileMagic {
		return nil, nil, ErrCorruptFile
	}
	saltLen := int(data[len(fileMagic)])
	if len(data) < headerLen+saltLen {
		return nil, nil, ErrCorruptFile
	}
	header := data[:headerLen+saltLen]
	salt := header[headerLen:]

	key, err := s.keyFor(salt)
	if err != nil {
		return nil, nil, err
	}

	plaintext, err := decrypt(key, data[len(header):], header)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	store, err := decodeEntries(magic, plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return store, salt, nil
}

// fileEntry is one stored pair. []byte fields encode as base64.
type fileEntry struct {
	Key   []byte `json:"k"`
	Value []byte `json:"v"`
}

func encodeEntries(store map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]fileEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, fileEntry{Key: []byte(k), Value: []byte(store[k])})
	}
	return json.Marshal(entries)
}

func decodeEntries(magic string, plaintext []byte) (map[string]string, error) {
	store := make(map[string]string)

	if magic == legacyFileMagic {
		if err := json.Unmarshal(plaintext, &store); err != nil {
			return nil, err
		}
		if store == nil {
			store = make(map[string]string)
		}
		return store, nil
	}

	var entries []fileEntry
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		store[string(e.Key)] = string(e.Value)
	}
	return store, nil
}

// writeStore encrypts and atomically replaces the credential file. Callers hold s.mu.
// A nil salt starts a new file with a fresh one.
func (s *FileStore) writeStore(store map[string]string, salt []byte) error {
	if salt == nil {
		salt = make([]byte, s.params.SaltLen)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	key, err := s.keyFor(salt)
	if err != nil {
		return err
	}

	plaintext, err := encodeEntries(store)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	header := make([]byte, 0, len(fileMagic)+1+len(salt))
	header = append(header, fileMagic...)
	header = append(header, byte(len(salt)))
	header = append(header, salt...)

	sealed, err := encrypt(key, plaintext, header)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path, append(header, sealed...)); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// update runs a read-modify-write cycle under the in-process mutex and the
// cross-process file lock.
func (s *FileStore) update(ctx context.Context, fn func(store map[string]string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout")
	}
	defer lock.Unlock()

	store, salt, err := s.readStore()
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return s.writeStore(store, salt)
}

// Get retrieves a credential by key from the encrypted file.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, _, err := s.readStore()
	if err != nil {
		return "", err
	}

	value, ok := store[key]
	if !ok {
		return "", ErrNotFound
	}

	return value, nil
}

// Set stores a credential in the encrypted file.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, func(store map[string]string) error {
		store[key] = value
		return nil
	})
}

// Delete removes a credential from the encrypted file.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(store map[string]string) error {
		if _, ok := store[key]; !ok {
			return ErrNotFound
		}
		delete(store, key)
		return nil
	})
}

// List returns all credential keys from the encrypted file.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, _, err := s.readStore()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}
