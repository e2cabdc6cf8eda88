package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/output"
	"github.com/semmy-space/skv/internal/secrets"
)

// setupProbeKey is written and removed again to prove the backend works
const setupProbeKey = ".skv-setup-probe"

// SetupCmd implements the interactive setup wizard
type SetupCmd struct{}

// Run executes the setup wizard
func (cmd *SetupCmd) Run(cfg *config.Config, fp *FormatterProvider, globals *Globals, logger *slog.Logger, in io.Reader) error {
	if globals.NoInput {
		return output.NewCLIError(output.ExitUsage, "setup is interactive but --no-input is set").
			WithHint("Use: skv config set <key> <value>")
	}

	reader := bufio.NewReader(in)
	w := fp.Err

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  skv - Secure Store Setup\n")
	fmt.Fprintf(w, "  ========================\n\n")

	// Step 1: Backend
	fmt.Fprintf(w, "  Step 1: Choose a storage backend\n\n")
	fmt.Fprintf(w, "    auto     keyring when available, encrypted file otherwise\n")
	fmt.Fprintf(w, "    keyring  OS keyring only\n")
	fmt.Fprintf(w, "    file     encrypted file only\n\n")
	if keyrings := secrets.AvailableKeyrings(); len(keyrings) > 0 {
		fmt.Fprintf(w, "    Keyrings on this system: %s\n", strings.Join(keyrings, ", "))
	}
	if secrets.IsWSL() || secrets.IsHeadless() {
		fmt.Fprintf(w, "    Headless or WSL session detected: auto will use the encrypted file\n")
	}
	fmt.Fprintf(w, "\n")

	backend := prompt(reader, w, fmt.Sprintf("  Backend [%s]: ", cfg.ResolvedBackend()))
	if backend == "" {
		backend = cfg.ResolvedBackend()
	}

	// Step 2: Data directory
	fmt.Fprintf(w, "\n  Step 2: Where should file-backed data live?\n\n")
	dataDir := prompt(reader, w, fmt.Sprintf("  Data directory [%s]: ", cfg.ResolvedDataDir()))
	if dataDir == "" {
		dataDir = cfg.DataDir
	}

	// Step 3: Prefix
	fmt.Fprintf(w, "\n  Step 3: Optional key prefix, to keep this app's keys apart\n\n")
	prefix := prompt(reader, w, fmt.Sprintf("  Prefix [%s]: ", cfg.KeyPrefix))
	if prefix == "" {
		prefix = cfg.KeyPrefix
	}

	prev := *cfg
	cfg.Backend = backend
	cfg.DataDir = dataDir
	cfg.KeyPrefix = prefix
	if err := cfg.Validate(); err != nil {
		*cfg = prev
		return output.FromError(err)
	}

	// Step 4: Verify before saving
	kv, err := NewStoreProvider(cfg, &Globals{}, logger).Store()
	if err != nil {
		*cfg = prev
		return err
	}
	ctx := context.Background()
	if err := kv.StoreValue(ctx, setupProbeKey, "ok"); err != nil {
		*cfg = prev
		return output.FromError(err)
	}
	if _, err := kv.GetStoredValue(ctx, setupProbeKey); err != nil {
		*cfg = prev
		return output.FromError(err)
	}
	if err := kv.RemoveValue(ctx, setupProbeKey); err != nil {
		*cfg = prev
		return output.FromError(err)
	}

	if err := cfg.Save(); err != nil {
		return &output.CLIError{
			Message:  fmt.Sprintf("Failed to save config: %v", err),
			ExitCode: output.ExitConfigError,
		}
	}

	fmt.Fprintf(w, "\n  Setup complete!\n\n")
	fmt.Fprintf(w, "    Backend: %s\n", secrets.Describe(kv.Backend()))
	fmt.Fprintf(w, "    Config:  %s\n\n", cfg.Path())
	fmt.Fprintf(w, "  Try it out:\n\n")
	fmt.Fprintf(w, "    skv set greeting hello\n")
	fmt.Fprintf(w, "    skv get greeting\n\n")

	return nil
}

// prompt prints a prompt and reads a line of input
func prompt(reader *bufio.Reader, w io.Writer, text string) string {
	fmt.Fprint(w, text)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
