package cli

import (
	"strings"

	"github.com/semmy-space/skv/internal/secrets"
)

// BackendCmd implements the backend command
type BackendCmd struct{}

type backendInfo struct {
	Requested    string `json:"requested"`
	Backend      string `json:"backend"`
	Prefix       string `json:"prefix"`
	MaxValueSize string `json:"maxValueSize"`
	Keyrings     string `json:"availableKeyrings"`
	Headless     string `json:"headless"`
}

// Run executes the backend command
func (cmd *BackendCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	prefix := sp.Prefix()
	if prefix == "" {
		prefix = "(none)"
	}

	info := backendInfo{
		Requested:    sp.Backend(),
		Backend:      secrets.Describe(kv.Backend()),
		Prefix:       prefix,
		MaxValueSize: formatBytes(int64(kv.MaxValueSize())),
		Keyrings:     strings.Join(secrets.AvailableKeyrings(), ", "),
		Headless:     formatBool(secrets.IsWSL() || secrets.IsHeadless()),
	}

	return fp.Formatter.Print(info)
}
