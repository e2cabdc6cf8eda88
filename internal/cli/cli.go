package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/skv/internal/config"
	"github.com/semmy-space/skv/internal/logging"
	"github.com/semmy-space/skv/internal/output"
)

// FormatterProvider wraps the formatter interface for Kong binding
type FormatterProvider struct {
	Formatter output.Formatter
	Out       io.Writer // raw values go here, unformatted
	Err       io.Writer // prompts
}

// CLI is the root command structure
type CLI struct {
	Globals

	Set     SetCmd     `cmd:"" help:"Store a string value"`
	Get     GetCmd     `cmd:"" help:"Print a stored string value"`
	Rm      RmCmd      `cmd:"" help:"Remove a stored value (missing keys are not an error)"`
	List    ListCmd    `cmd:"" aliases:"ls" help:"List stored keys"`
	Object  ObjectCmd  `cmd:"" help:"Structured (JSON) values"`
	Session SessionCmd `cmd:"" help:"Stored sign-in session"`
	Backend BackendCmd `cmd:"" help:"Show the storage backend in use"`
	Config  ConfigCmd  `cmd:"" help:"Configuration commands"`
	Setup   SetupCmd   `cmd:"" help:"Interactive first-run setup"`
	Version VersionCmd `cmd:"" help:"Show version information"`
	Schema  SchemaCmd  `cmd:"" help:"Print the command tree as JSON"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	closer io.Closer
}

// AfterApply runs once flags are parsed and before any command executes.
// It loads config, builds the logger and formatter, and binds dependencies.
func (c *CLI) AfterApply(ctx *kong.Context) error {
	if c.stdin == nil {
		c.stdin = os.Stdin
	}
	if c.stdout == nil {
		c.stdout = os.Stdout
	}
	if c.stderr == nil {
		c.stderr = os.Stderr
	}

	cfgPath := c.ConfigFile
	if cfgPath == "" {
		cfgPath = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return &output.CLIError{Message: err.Error(), ExitCode: output.ExitConfigError}
	}
	if err := cfg.Validate(); err != nil {
		return output.FromError(fmt.Errorf("%s: %w", cfg.Path(), err))
	}

	level := cfg.LogLevel
	if c.Verbose {
		level = "debug"
	}
	logger, closer, err := logging.New(logging.Options{
		Level:  level,
		File:   cfg.ResolvedLogFile(),
		Writer: c.stderr,
	})
	if err != nil {
		return &output.CLIError{Message: fmt.Sprintf("Failed to set up logging: %v", err), ExitCode: output.ExitConfigError}
	}
	c.closer = closer
	slog.SetDefault(logger)

	mode := c.Output
	if mode == "auto" && cfg.DefaultOutput != "" {
		mode = cfg.DefaultOutput
	}
	formatter := &FormatterProvider{
		Formatter: output.NewTo(c.Globals.resolveOutput(mode), c.stdout, c.stderr),
		Out:       c.stdout,
		Err:       c.stderr,
	}

	// Bind dependencies to kong context
	ctx.Bind(cfg)
	ctx.Bind(formatter)
	ctx.Bind(logger)
	ctx.Bind(&c.Globals)
	ctx.Bind(NewStoreProvider(cfg, &c.Globals, logger))
	ctx.BindTo(c.stdin, (*io.Reader)(nil))

	return nil
}

// Close releases the log file, if any
func (c *CLI) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ObjectCmd holds structured value subcommands
type ObjectCmd struct {
	Set ObjectSetCmd `cmd:"" help:"Store a JSON document"`
	Get ObjectGetCmd `cmd:"" help:"Print a stored JSON document"`
}

// SessionCmd holds session subcommands
type SessionCmd struct {
	Show  SessionShowCmd  `cmd:"" help:"Show the stored session"`
	Save  SessionSaveCmd  `cmd:"" help:"Store a session"`
	Clear SessionClearCmd `cmd:"" help:"Remove the stored session"`
}

// ConfigCmd holds configuration subcommands
type ConfigCmd struct {
	Get   ConfigGetCmd        `cmd:"" help:"Get a configuration value"`
	Set   ConfigSetCmd        `cmd:"" help:"Set a configuration value"`
	Unset ConfigUnsetCmd      `cmd:"" help:"Remove a configuration value"`
	List  ConfigListConfigCmd `cmd:"" name:"list" help:"List all configuration values"`
	Path  ConfigPathCmd       `cmd:"" help:"Show config file path"`
}

// VersionCmd shows version information
type VersionCmd struct{}

func (cmd *VersionCmd) Run(ctx *kong.Context, fp *FormatterProvider) error {
	version := ctx.Model.Vars()["version"]
	fmt.Fprintln(fp.Out, "skv version "+version)
	return nil
}
