package cli

import (
	"os"

	"golang.org/x/term"
)

// Globals holds global flags available to all commands
type Globals struct {
	ConfigFile string `help:"Config file path" name:"config" type:"path" env:"SKV_CONFIG"`
	Backend    string `help:"Storage backend" default:"" enum:"auto,keyring,file,memory," env:"SKV_BACKEND"`
	Prefix     string `help:"Key namespace prefix" env:"SKV_PREFIX"`
	Output     string `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"SKV_OUTPUT"`
	Verbose    bool   `help:"Verbose output" short:"v" env:"SKV_VERBOSE"`
	NoInput    bool   `help:"Disable interactive prompts (fail instead)" env:"SKV_NO_INPUT"`
}

// ResolvedOutput returns the effective output mode
// "auto" detects TTY: if stdout is TTY -> rich, else -> plain
func (g *Globals) ResolvedOutput() string {
	return g.resolveOutput(g.Output)
}

func (g *Globals) resolveOutput(mode string) string {
	if mode != "auto" {
		return mode
	}

	// Detect if stdout is a TTY
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "rich"
	}

	return "plain"
}
