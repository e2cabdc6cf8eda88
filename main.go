package main

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/skv/internal/cli"
	"github.com/semmy-space/skv/internal/output"
)

var (
	version = "dev"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cliInstance := &cli.CLI{}
	parser := kong.Must(cliInstance,
		kong.Name("skv"),
		kong.Description("Secure key-value store backed by the OS keyring or an encrypted file"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	// Handles shell completion requests and exits when one is in progress
	kongplete.Complete(parser,
		kongplete.WithPredictor("key", cli.KeyPredictor()),
	)

	ctx, err := parser.Parse(args)
	defer cliInstance.Close()
	if err != nil {
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			return output.ExitWithError(output.New("plain"), cliErr)
		}
		parser.Errorf("%s", err)
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			_ = parseErr.Context.PrintUsage(true)
		}
		return output.ExitUsage
	}

	// Run command with bound dependencies
	if err := ctx.Run(); err != nil {
		return output.ExitWithError(output.New("plain"), err)
	}
	return output.ExitOK
}
