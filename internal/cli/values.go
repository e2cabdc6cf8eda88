package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/semmy-space/skv/internal/output"
)

// SetCmd implements the set command
type SetCmd struct {
	Key    string `arg:"" help:"Key to store under" predictor:"key"`
	Value  string `arg:"" optional:"" help:"Value to store; an explicit \"\" stores the empty string (omitted: prompt on a terminal, stdin otherwise)"`
	Stdin  bool   `help:"Read the value from stdin (one trailing newline is dropped unless --raw)"`
	Raw    bool   `help:"Store stdin byte for byte, keeping any trailing newline"`
	Prompt bool   `help:"Prompt for the value without echo"`

	valueGiven bool
}

// Run executes the set command
func (cmd *SetCmd) Run(ctx *kong.Context, sp *StoreProvider, fp *FormatterProvider, globals *Globals, in io.Reader) error {
	cmd.valueGiven = positionalGiven(ctx, "value")

	value, err := cmd.resolveValue(globals, fp, in)
	if err != nil {
		return err
	}

	kv, err := sp.Store()
	if err != nil {
		return err
	}

	if err := kv.StoreValue(context.Background(), cmd.Key, value); err != nil {
		return output.FromError(err)
	}

	fp.Formatter.PrintHint(fmt.Sprintf("stored %s (%s)", cmd.Key, formatBytes(int64(len(value)))))
	return nil
}

// positionalGiven reports whether the named argument appeared on the command
// line, which tells an explicit "" apart from an omitted argument.
func positionalGiven(ctx *kong.Context, name string) bool {
	if ctx == nil {
		return false
	}
	for _, p := range ctx.Path {
		if p.Positional != nil && p.Positional.Name == name {
			return true
		}
	}
	return false
}

// resolveValue picks the value source. With no argument and no flag, a
// terminal gets a hidden prompt and anything else is read as stdin.
func (cmd *SetCmd) resolveValue(globals *Globals, fp *FormatterProvider, in io.Reader) (string, error) {
	if cmd.Stdin && cmd.Prompt {
		return "", output.NewCLIError(output.ExitUsage, "--stdin and --prompt are mutually exclusive")
	}
	if cmd.valueGiven || cmd.Value != "" {
		if cmd.Stdin || cmd.Prompt || cmd.Raw {
			return "", output.NewCLIError(output.ExitUsage, "give either a value argument or --stdin/--prompt, not both")
		}
		return cmd.Value, nil
	}
	if cmd.Raw && cmd.Prompt {
		return "", output.NewCLIError(output.ExitUsage, "--raw applies to stdin, not --prompt")
	}

	fd := int(os.Stdin.Fd())
	switch {
	case cmd.Stdin || cmd.Raw:
		return readValue(in, cmd.Raw)
	case cmd.Prompt:
		if globals.NoInput {
			return "", output.NewCLIError(output.ExitUsage, "--prompt needs input but --no-input is set")
		}
		if !term.IsTerminal(fd) {
			return "", output.NewCLIError(output.ExitUsage, "--prompt needs a terminal").
				WithHint("Pipe the value with --stdin instead")
		}
		return promptValue(fd, fp.Err, cmd.Key)
	case !globals.NoInput && term.IsTerminal(fd):
		return promptValue(fd, fp.Err, cmd.Key)
	default:
		return readValue(in, false)
	}
}

// readValue reads all of in. Unless raw, one trailing "\n" or "\r\n" is dropped.
func readValue(in io.Reader, raw bool) (string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return "", output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to read stdin: %v", err))
	}
	value := string(data)
	if raw {
		return value, nil
	}
	if v, ok := strings.CutSuffix(value, "\r\n"); ok {
		return v, nil
	}
	return strings.TrimSuffix(value, "\n"), nil
}

func promptValue(fd int, w io.Writer, key string) (string, error) {
	fmt.Fprintf(w, "Value for %s: ", key)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to read value: %v", err))
	}
	return string(data), nil
}

// GetCmd implements the get command
type GetCmd struct {
	Key       string `arg:"" help:"Key to read" predictor:"key"`
	NoNewline bool   `help:"Do not print a trailing newline" short:"n"`
}

// Run executes the get command
func (cmd *GetCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	value, err := kv.GetStoredValue(context.Background(), cmd.Key)
	if err != nil {
		return output.FromError(err)
	}

	if cmd.NoNewline {
		fmt.Fprint(fp.Out, value)
	} else {
		fmt.Fprintln(fp.Out, value)
	}
	return nil
}

// RmCmd implements the rm command
type RmCmd struct {
	Keys []string `arg:"" help:"Keys to remove" predictor:"key"`
}

// Run executes the rm command
func (cmd *RmCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	for _, key := range cmd.Keys {
		if err := kv.RemoveValue(context.Background(), key); err != nil {
			return output.FromError(err)
		}
	}

	fp.Formatter.PrintHint(fmt.Sprintf("removed %d key(s)", len(cmd.Keys)))
	return nil
}

// ListCmd implements the list command
type ListCmd struct {
	Sizes bool `help:"Also read each value and show its size" short:"s"`
}

// Run executes the list command
func (cmd *ListCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	ctx := context.Background()
	keys, err := kv.Keys(ctx)
	if err != nil {
		return output.FromError(err)
	}

	if len(keys) == 0 {
		fp.Formatter.PrintHint("no stored keys")
		return nil
	}

	type entryRow struct {
		Key  string
		Size string
	}

	rows := make([]entryRow, 0, len(keys))
	for _, key := range keys {
		row := entryRow{Key: key}
		if cmd.Sizes {
			value, err := kv.GetStoredValue(ctx, key)
			if err != nil {
				return output.FromError(err)
			}
			row.Size = formatBytes(int64(len(value)))
		}
		rows = append(rows, row)
	}

	cols := []output.Column{{Name: "Key", Key: "Key"}}
	if cmd.Sizes {
		cols = append(cols, output.Column{Name: "Size", Key: "Size"})
	}

	return fp.Formatter.PrintList(rows, cols)
}
