package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	validBackends = []string{"auto", "keyring", "file", "memory"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	validOutputs  = []string{"json", "plain", "rich", "auto"}
)

// Config holds the CLI configuration.
// All fields are strings so they can be edited with `skv config set`; use the
// typed accessors to read numeric and duration values.
type Config struct {
	Backend       string `json:"backend,omitempty"`
	ServiceName   string `json:"service_name,omitempty"`
	DataDir       string `json:"data_dir,omitempty"`
	KeyPrefix     string `json:"key_prefix,omitempty"`
	MaxValueSize  string `json:"max_value_size,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
	LogFile       string `json:"log_file,omitempty"`
	DefaultOutput string `json:"default_output,omitempty"`

	path string
}

// Load reads config from XDG path, returns defaults if file doesn't exist
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path, returns defaults if the file doesn't exist
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Empty fields mean "not set"; accessors resolve defaults
			return &Config{path: path}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.path = path

	return &cfg, nil
}

// Path returns the file this config is loaded from and saved to
func (c *Config) Path() string {
	if c.path == "" {
		return ConfigPath()
	}
	return c.path
}

// Save writes the config to its path
func (c *Config) Save() error {
	path := c.Path()

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal to JSON (not JSON5 for writing - JSON is valid JSON5)
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// field finds the struct field whose json tag names key
func (c *Config) field(key string) (reflect.Value, bool) {
	v := reflect.ValueOf(c).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		jsonTag := t.Field(i).Tag.Get("json")
		if jsonTag == key || jsonTag == key+",omitempty" {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Keys returns the config key names in declaration order
func Keys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys = append(keys, name)
		}
	}
	return keys
}

// Get retrieves a config value by key name
func (c *Config) Get(key string) (string, error) {
	f, ok := c.field(key)
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return f.String(), nil
}

// Set validates and sets a config value by key name, then saves
func (c *Config) Set(key, value string) error {
	f, ok := c.field(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	prev := f.String()
	f.SetString(value)
	if err := c.Validate(); err != nil {
		f.SetString(prev)
		return err
	}
	return c.Save()
}

// Unset sets a config value to its zero value and saves
func (c *Config) Unset(key string) error {
	f, ok := c.field(key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	f.SetString("")
	return c.Save()
}

// Validate checks enumerated and typed fields
func (c *Config) Validate() error {
	if c.Backend != "" && !contains(validBackends, c.Backend) {
		return fmt.Errorf("%w: backend must be one of %s", ErrInvalidConfig, strings.Join(validBackends, ", "))
	}
	if c.LogLevel != "" && !contains(validLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: log_level must be one of %s", ErrInvalidConfig, strings.Join(validLevels, ", "))
	}
	if c.DefaultOutput != "" && !contains(validOutputs, c.DefaultOutput) {
		return fmt.Errorf("%w: default_output must be one of %s", ErrInvalidConfig, strings.Join(validOutputs, ", "))
	}
	if _, err := c.MaxValueBytes(); err != nil {
		return err
	}
	if _, err := c.OpTimeout(); err != nil {
		return err
	}
	return nil
}

// ResolvedBackend returns the backend name, defaulting to "auto"
func (c *Config) ResolvedBackend() string {
	if c.Backend == "" {
		return "auto"
	}
	return c.Backend
}

// ResolvedDataDir returns the data directory, defaulting to the XDG data dir
func (c *Config) ResolvedDataDir() string {
	if c.DataDir == "" {
		return DataDir()
	}
	return c.DataDir
}

// ResolvedLogFile returns the log file path. Relative paths live in the XDG
// state directory; empty means log to stderr.
func (c *Config) ResolvedLogFile() string {
	if c.LogFile == "" || filepath.IsAbs(c.LogFile) {
		return c.LogFile
	}
	return filepath.Join(StateDir(), c.LogFile)
}

// MaxValueBytes parses max_value_size. Zero means the store default.
func (c *Config) MaxValueBytes() (int, error) {
	if c.MaxValueSize == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(c.MaxValueSize)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: max_value_size must be a non-negative integer, got %q", ErrInvalidConfig, c.MaxValueSize)
	}
	return n, nil
}

// OpTimeout parses timeout. Zero means no timeout.
func (c *Config) OpTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: timeout must be a non-negative duration such as 5s, got %q", ErrInvalidConfig, c.Timeout)
	}
	return d, nil
}

// ValidBackends returns a sorted list of backend names
func ValidBackends() []string {
	out := append([]string(nil), validBackends...)
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
