package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/semmy-space/skv/internal/output"
)

// SchemaCmd outputs machine-readable command tree as JSON
type SchemaCmd struct {
	Command []string `arg:"" optional:"" help:"Command path to show schema for (e.g., 'session save')"`
}

// SchemaNode describes one command
type SchemaNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Type     string        `json:"type"` // "application" or "command"
	Help     string        `json:"help,omitempty"`
	Aliases  []string      `json:"aliases,omitempty"`
	Flags    []*SchemaFlag `json:"flags,omitempty"`
	Args     []*SchemaArg  `json:"args,omitempty"`
	Children []*SchemaNode `json:"commands,omitempty"`
}

// SchemaFlag describes a flag
type SchemaFlag struct {
	Name     string   `json:"name"`
	Short    string   `json:"short,omitempty"`
	Help     string   `json:"help,omitempty"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Default  string   `json:"default,omitempty"`
	Enum     []string `json:"enum,omitempty"`
	Env      []string `json:"env,omitempty"`
}

// SchemaArg describes a positional argument
type SchemaArg struct {
	Name     string `json:"name"`
	Help     string `json:"help,omitempty"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
}

// Run executes the schema command
func (cmd *SchemaCmd) Run(ctx *kong.Context, fp *FormatterProvider) error {
	// Accept both `schema session save` and `schema "session save"`
	path := strings.Fields(strings.Join(cmd.Command, " "))

	node, err := lookupCommand(ctx.Model.Node, path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(fp.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(describeNode(node))
}

// lookupCommand follows names or aliases from root
func lookupCommand(root *kong.Node, path []string) (*kong.Node, error) {
	node := root
	for _, name := range path {
		next := childNamed(node, name)
		if next == nil {
			return nil, output.NewCLIError(output.ExitUsage, fmt.Sprintf("command not found: %s", strings.Join(path, " "))).
				WithHint("Run: skv schema")
		}
		node = next
	}
	return node, nil
}

func childNamed(node *kong.Node, name string) *kong.Node {
	for _, child := range node.Children {
		if child.Type != kong.CommandNode {
			continue
		}
		if child.Name == name {
			return child
		}
		for _, alias := range child.Aliases {
			if alias == name {
				return child
			}
		}
	}
	return nil
}

// describeNode converts a kong node and its visible subcommands
func describeNode(node *kong.Node) *SchemaNode {
	out := &SchemaNode{
		Name:    node.Name,
		Path:    node.FullPath(),
		Type:    "command",
		Help:    node.Help,
		Aliases: node.Aliases,
	}
	if node.Type == kong.ApplicationNode {
		out.Type = "application"
	}

	for _, flag := range node.Flags {
		if flag.Hidden || flag.Name == "help" {
			continue
		}
		sf := &SchemaFlag{
			Name:     flag.Name,
			Help:     flag.Help,
			Type:     valueType(flag.Value),
			Required: flag.Required,
			Default:  flag.Default,
			Env:      flag.Envs,
		}
		if flag.Short != 0 {
			sf.Short = string(flag.Short)
		}
		if flag.Enum != "" {
			sf.Enum = strings.Split(flag.Enum, ",")
		}
		out.Flags = append(out.Flags, sf)
	}

	for _, arg := range node.Positional {
		out.Args = append(out.Args, &SchemaArg{
			Name:     arg.Name,
			Help:     arg.Help,
			Type:     valueType(arg),
			Required: arg.Required,
		})
	}

	for _, child := range node.Children {
		if child.Hidden || child.Type != kong.CommandNode {
			continue
		}
		out.Children = append(out.Children, describeNode(child))
	}

	return out
}

// valueType names the Go type behind a flag or argument
func valueType(v *kong.Value) string {
	if v == nil || !v.Target.IsValid() {
		return "string"
	}
	return v.Target.Type().String()
}
