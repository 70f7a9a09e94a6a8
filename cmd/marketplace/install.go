package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/marketplace/internal/registry"
)

func installCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install <namespace/name[@version]>",
		Short: "Install a plugin",
		Long: `Install a plugin from the catalog.

Without @version the catalog's latest version is installed.

Examples:
  marketplace install anthropics/claude-code
  marketplace install anthropics/claude-code@0.9.0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(cmd, args, "marketplace install <namespace/name>")
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			return a.install(cmd, ref)
		},
	}
}

func (a *app) install(cmd *cobra.Command, ref registry.Ref) error {
	fmt.Fprintf(cmd.OutOrStdout(), "\n  Installing %s...\n", ref)
	res, err := a.installer.Install(cmd.Context(), ref.Namespace, ref.Name, ref.Version)
	if err != nil {
		return err
	}
	defer fmt.Fprintln(cmd.OutOrStdout())
	return report(cmd, res)
}

func removeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <namespace/name>",
		Aliases: []string{"uninstall"},
		Short:   "Remove a plugin",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(cmd, args, "marketplace remove <namespace/name>")
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  Removing %s...\n", id)
			res, err := a.installer.Remove(cmd.Context(), id.Namespace, id.Name)
			if err != nil {
				return err
			}
			defer fmt.Fprintln(cmd.OutOrStdout())
			return report(cmd, res)
		},
	}
}

func updateCmd(g *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "update <namespace/name> | --all",
		Short: "Update a plugin to the latest version",
		Long: `Update an installed plugin to the catalog's latest version.

Examples:
  marketplace update anthropics/claude-code
  marketplace update --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if len(args) > 0 {
					return usage(cmd.ErrOrStderr(), "marketplace update <namespace/name> | --all")
				}
				a, err := g.open(cmd)
				if err != nil {
					return err
				}
				return a.updateAll(cmd)
			}

			id, err := parseIdentity(cmd, args, "marketplace update <namespace/name>")
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  Updating %s...\n", id)
			res, err := a.installer.Update(cmd.Context(), id.Namespace, id.Name)
			if err != nil {
				return err
			}
			defer fmt.Fprintln(cmd.OutOrStdout())
			return report(cmd, res)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Update every installed plugin")

	return cmd
}

func (a *app) updateAll(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if a.installer.Len() == 0 {
		fmt.Fprintln(out, "\n  No plugins installed yet.")
		fmt.Fprintf(out, "  Run: marketplace install %s\n\n", defaultPlugin)
		return nil
	}

	fmt.Fprintf(out, "\n  Updating %d plugin(s)...\n", a.installer.Len())
	results, err := a.installer.UpdateAll(cmd.Context())
	if err != nil {
		return err
	}

	var failed error
	for _, res := range results {
		if err := report(cmd, res); err != nil {
			failed = err
		}
	}
	fmt.Fprintln(out)
	return failed
}
