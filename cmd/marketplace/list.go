package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func listCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed plugins",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			heading(out, "Installed Plugins")
			plugins := a.installer.List()
			if len(plugins) == 0 {
				fmt.Fprintln(out, "  No plugins installed yet.")
				fmt.Fprintf(out, "  Run: marketplace install %s\n\n", defaultPlugin)
				return nil
			}

			for _, p := range plugins {
				fmt.Fprintf(out, "  %s@%s\n", p.Key(), p.Version())
				fmt.Fprintf(out, "    %s\n", p.Metadata.Description)
				fmt.Fprintf(out, "    Installed: %s  |  Enabled: %t", formatDate(p.InstalledAt), p.Config.Enabled)
				if n := len(p.Config.Settings); n > 0 {
					fmt.Fprintf(out, "  |  Settings: %d", n)
				}
				fmt.Fprint(out, "\n\n")
			}
			footer(out)
			return nil
		},
	}
}

func outdatedCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outdated",
		Short: "List installed plugins with a newer catalog version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			heading(out, "Outdated Plugins")
			outdated := a.installer.Outdated()
			if len(outdated) == 0 {
				fmt.Fprintln(out, "  All installed plugins are up to date.")
				fmt.Fprintln(out)
				return nil
			}

			for _, o := range outdated {
				fmt.Fprintf(out, "  %-40s %s → %s\n", o.Plugin, o.Installed, green(o.Latest))
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  Run: marketplace update --all")
			footer(out)
			return nil
		},
	}
}
