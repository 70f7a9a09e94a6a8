package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func enableCmd(g *globalOptions, enabled bool) *cobra.Command {
	use, short := "enable", "Enable an installed plugin"
	if !enabled {
		use, short = "disable", "Disable an installed plugin"
	}
	line := "marketplace " + use + " <namespace/name>"

	return &cobra.Command{
		Use:   use + " <namespace/name>",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(cmd, args, line)
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			res, err := a.installer.SetEnabled(cmd.Context(), id.Namespace, id.Name, enabled)
			if err != nil {
				return err
			}
			defer fmt.Fprintln(cmd.OutOrStdout())
			return report(cmd, res)
		},
	}
}

func setCmd(g *globalOptions) *cobra.Command {
	const line = "marketplace set <namespace/name> key=value..."

	return &cobra.Command{
		Use:   "set <namespace/name> key=value...",
		Short: "Set plugin settings",
		Long: `Set one or more settings of an installed plugin.

Values are parsed as JSON when they are valid JSON (numbers, true/false,
arrays, objects) and kept as strings otherwise. When the plugin declares
a settings schema, keys and value types are checked against it.

Examples:
  marketplace set anthropics/claude-code maxTurns=20 autoCommit=true
  marketplace set anthropics/claude-code model=opus
  marketplace set anthropics/claude-code 'enabledTools=["Read","Edit"]'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usage(cmd.ErrOrStderr(), line)
			}
			id, err := parseIdentity(cmd, args[:1], line)
			if err != nil {
				return err
			}

			type assignment struct {
				key   string
				value any
			}
			var edits []assignment
			for _, arg := range args[1:] {
				key, raw, ok := strings.Cut(arg, "=")
				if !ok || key == "" {
					return usage(cmd.ErrOrStderr(), line)
				}
				edits = append(edits, assignment{key: key, value: parseValue(raw)})
			}

			a, err := g.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			defer fmt.Fprintln(cmd.OutOrStdout())
			for _, e := range edits {
				res, err := a.installer.SetSetting(cmd.Context(), id.Namespace, id.Name, e.key, e.value)
				if err != nil {
					return err
				}
				if err := report(cmd, res); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func unsetCmd(g *globalOptions) *cobra.Command {
	const line = "marketplace unset <namespace/name> key..."

	return &cobra.Command{
		Use:   "unset <namespace/name> key...",
		Short: "Remove plugin settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usage(cmd.ErrOrStderr(), line)
			}
			id, err := parseIdentity(cmd, args[:1], line)
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			defer fmt.Fprintln(cmd.OutOrStdout())
			for _, key := range args[1:] {
				res, err := a.installer.UnsetSetting(cmd.Context(), id.Namespace, id.Name, key)
				if err != nil {
					return err
				}
				if err := report(cmd, res); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// parseValue decodes raw as JSON, falling back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
