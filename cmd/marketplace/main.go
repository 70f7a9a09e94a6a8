package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/marketplace/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultPlugin is installed when the CLI runs without arguments.
const defaultPlugin = "anthropics/claude-code"

// errFailed reports a failure that has already been printed.
var errFailed = stderrors.New("command failed")

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	home     string
	catalogs []string
	verbose  bool
	noColor  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !stderrors.Is(err, errFailed) {
			errors.PrintError(err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "marketplace",
		Short: "Discover, install and manage plugins",
		Long: `Plugin Marketplace CLI.

Search the plugin catalog, install plugins into your home directory
and manage their configuration. Running without a command installs
the featured plugin ` + defaultPlugin + `.

Examples:
  marketplace search claude
  marketplace install anthropics/claude-code
  marketplace info anthropics/claude-code
  marketplace list
  marketplace featured`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				errors.DisableColors()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWelcome(cmd, g)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.home, "home", "", "Marketplace home directory (default $MARKETPLACE_HOME or ~/.marketplace)")
	flags.StringArrayVar(&g.catalogs, "catalog", nil, "Additional catalog source: file, http(s):// or s3:// URL (repeatable)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		searchCmd(g),
		featuredCmd(g),
		infoCmd(g),
		installCmd(g),
		removeCmd(g),
		updateCmd(g),
		listCmd(g),
		outdatedCmd(g),
		enableCmd(g, true),
		enableCmd(g, false),
		setCmd(g),
		unsetCmd(g),
		serveCmd(g),
		versionCmd(),
	)

	return rootCmd
}

// runWelcome installs the default plugin and shows its details.
func runWelcome(cmd *cobra.Command, g *globalOptions) error {
	a, err := g.open(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n  Welcome to the Claude Plugin Marketplace!")
	fmt.Fprintf(out, "\n  Installing featured plugin: %s...\n", defaultPlugin)

	ref, _ := parseRef(cmd, []string{defaultPlugin}, "")
	installErr := a.install(cmd, ref)
	if err := a.info(cmd, ref.Identity); err != nil {
		return err
	}
	return installErr
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// failure prints a failure message.
func failure(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s %s\n", red("✗"), fmt.Sprintf(format, args...))
}

// usage prints a usage line and returns errFailed.
func usage(w io.Writer, line string) error {
	fmt.Fprintf(w, "\n  Usage: %s\n\n", line)
	return errFailed
}

func green(s string) string { return colorize("\033[32m", s) }
func red(s string) string   { return colorize("\033[31m", s) }
func dim(s string) string   { return colorize("\033[90m", s) }

func colorize(code, s string) string {
	if !errors.ColorsEnabled() {
		return s
	}
	return code + s + "\033[0m"
}
