package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/semmy-space/skv/internal/output"
	"github.com/semmy-space/skv/internal/securekv"
)

// ObjectSetCmd implements the object set command
type ObjectSetCmd struct {
	Key   string `arg:"" help:"Key to store under" predictor:"key"`
	JSON  string `arg:"" optional:"" name:"json" help:"JSON document (omit with --stdin)"`
	Stdin bool   `help:"Read the JSON document from stdin"`
}

// Run executes the object set command
func (cmd *ObjectSetCmd) Run(sp *StoreProvider, fp *FormatterProvider, in io.Reader) error {
	raw := []byte(cmd.JSON)
	if cmd.Stdin {
		if cmd.JSON != "" {
			return output.NewCLIError(output.ExitUsage, "give either a JSON argument or --stdin, not both")
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return output.NewCLIError(output.ExitGeneral, fmt.Sprintf("Failed to read stdin: %v", err))
		}
		raw = data
	}

	var doc any
	if err := securekv.DecodeJSON(raw, &doc); err != nil {
		return output.NewCLIError(output.ExitDataError, fmt.Sprintf("Invalid JSON: %v", err))
	}

	kv, err := sp.Store()
	if err != nil {
		return err
	}

	if err := kv.StoreObject(context.Background(), cmd.Key, doc); err != nil {
		return output.FromError(err)
	}

	fp.Formatter.PrintHint(fmt.Sprintf("stored %s", cmd.Key))
	return nil
}

// ObjectGetCmd implements the object get command
type ObjectGetCmd struct {
	Key     string `arg:"" help:"Key to read" predictor:"key"`
	Compact bool   `help:"Print on one line"`
}

// Run executes the object get command
func (cmd *ObjectGetCmd) Run(sp *StoreProvider, fp *FormatterProvider) error {
	kv, err := sp.Store()
	if err != nil {
		return err
	}

	var doc any
	if err := kv.GetStoredObject(context.Background(), cmd.Key, &doc); err != nil {
		return output.FromError(err)
	}

	enc := json.NewEncoder(fp.Out)
	if !cmd.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
