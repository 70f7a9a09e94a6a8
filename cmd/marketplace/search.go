package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/marketplace/internal/registry"
)

// defaultQuery is searched when no query is given.
const defaultQuery = "claude"

func searchCmd(g *globalOptions) *cobra.Command {
	var (
		page     int
		perPage  int
		category string
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search for plugins",
		Long: `Search the catalog by name, description, keyword and namespace.

Matching is case-insensitive. Without a query, searches for "claude".

Examples:
  marketplace search claude
  marketplace search test generation --per-page 5
  marketplace search ai --category testing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if strings.TrimSpace(query) == "" {
				query = defaultQuery
			}
			var cat registry.Category
			if category != "" {
				c, err := registry.ParseCategory(category)
				if err != nil {
					return err
				}
				cat = c
			}

			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			a.search(cmd, query, cat, page, perPage)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().IntVar(&perPage, "per-page", registry.DefaultPerPage, "Results per page")
	cmd.Flags().StringVar(&category, "category", "", "Only show plugins in this category")

	return cmd
}

func (a *app) search(cmd *cobra.Command, query string, category registry.Category, page, perPage int) {
	out := cmd.OutOrStdout()

	var result registry.SearchResult
	if category == "" {
		result = a.registry.Search(query, page, perPage)
	} else {
		// Filter the full match list so totals and paging reflect the category.
		all := a.registry.Search(query, 1, a.registry.Len()+1).Entries
		var matched []*registry.Entry
		for _, e := range all {
			if e.Metadata.Category == category {
				matched = append(matched, e)
			}
		}
		result = pageOf(matched, page, perPage)
	}

	heading(out, fmt.Sprintf("Plugin Marketplace - Search: %q", query))
	if result.Total == 0 {
		fmt.Fprintf(out, "  No plugins found matching %q\n\n", query)
		return
	}

	fmt.Fprintf(out, "  Found %d plugin(s)", result.Total)
	if pages := result.Pages(); pages > 1 {
		fmt.Fprintf(out, ", page %d of %d", result.Page, pages)
	}
	fmt.Fprint(out, ":\n\n")

	for _, e := range result.Entries {
		m := e.Metadata
		badges := ""
		if m.Featured {
			badges += " [FEATURED]"
		}
		if a.installer.IsInstalled(m.Namespace, m.Name) {
			badges += " [INSTALLED]"
		}
		fmt.Fprintf(out, "  %s@%s%s\n", e.Identity(), e.LatestVersion, badges)
		fmt.Fprintf(out, "    %s\n", m.Description)
		fmt.Fprintf(out, "    %s (%s)  |  %s downloads  |  %s\n\n",
			formatRating(m.Rating), formatScore(m.Rating), formatDownloads(m.Downloads), m.Category)
	}
	footer(out)
}

func pageOf(entries []*registry.Entry, page, perPage int) registry.SearchResult {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = registry.DefaultPerPage
	}
	result := registry.SearchResult{Total: len(entries), Page: page, PerPage: perPage}
	start := (page - 1) * perPage
	if start >= len(entries) {
		return result
	}
	end := min(start+perPage, len(entries))
	result.Entries = entries[start:end]
	return result
}

func featuredCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "featured",
		Short: "Show featured plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			heading(out, "Featured Plugins")
			for _, e := range a.registry.Featured() {
				m := e.Metadata
				tag := ""
				if a.installer.IsInstalled(m.Namespace, m.Name) {
					tag = " [INSTALLED]"
				}
				fmt.Fprintf(out, "  ★ %s@%s%s\n", e.Identity(), e.LatestVersion, tag)
				fmt.Fprintf(out, "    %s\n", m.Description)
				fmt.Fprintf(out, "    %s (%s)  |  %s downloads\n\n",
					formatRating(m.Rating), formatScore(m.Rating), formatDownloads(m.Downloads))
			}
			footer(out)
			return nil
		},
	}
}

func infoCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <namespace/name>",
		Short: "Show plugin details",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseIdentity(cmd, args, "marketplace info <namespace/name>")
			if err != nil {
				return err
			}
			a, err := g.open(cmd)
			if err != nil {
				return err
			}
			return a.info(cmd, id)
		},
	}
}

// info prints the catalog entry for id along with its installed state.
func (a *app) info(cmd *cobra.Command, id registry.Identity) error {
	entry, ok := a.registry.FindByIdentity(id.Namespace, id.Name)
	if !ok {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n  Plugin %s not found in registry.\n\n", id)
		return errFailed
	}

	out := cmd.OutOrStdout()
	m := entry.Metadata

	fmt.Fprintf(out, "\n  %s\n", divider)
	fmt.Fprintf(out, "  %s", id)
	if entry.DisplayName != "" {
		fmt.Fprintf(out, "  %s", dim(entry.DisplayName))
	}
	fmt.Fprintf(out, "\n  %s\n", divider)

	field(out, "Description", m.Description)
	field(out, "Version", entry.LatestVersion)
	field(out, "Author", m.Author)
	field(out, "License", m.License)
	field(out, "Category", string(m.Category))
	field(out, "Rating", fmt.Sprintf("%s (%s/5)", formatRating(m.Rating), formatScore(m.Rating)))
	field(out, "Downloads", formatDownloads(m.Downloads))
	field(out, "Homepage", m.Homepage)
	field(out, "Repository", m.Repository)
	field(out, "Keywords", strings.Join(m.Keywords, ", "))
	field(out, "Versions", strings.Join(entry.Versions, ", "))
	field(out, "Published", formatDate(entry.PublishedAt))

	if p, installed := a.installer.Get(id.Namespace, id.Name); installed {
		state := "enabled"
		if !p.Config.Enabled {
			state = "disabled"
		}
		field(out, "Installed", fmt.Sprintf("Yes (%s, %s)", p.Version(), state))
	} else {
		field(out, "Installed", "No")
	}
	if m.Featured {
		field(out, "Featured", "Yes")
	}
	if len(entry.Capabilities) > 0 {
		field(out, "Capabilities", strings.Join(entry.Capabilities, ", "))
	}

	if len(entry.Settings) > 0 {
		fmt.Fprintf(out, "\n  Settings:\n")
		names := make([]string, 0, len(entry.Settings))
		for name := range entry.Settings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			spec := entry.Settings[name]
			fmt.Fprintf(out, "    %-18s %-8s %s\n", name, spec.Type, spec.Description)
		}
	}

	if len(entry.Commands) > 0 {
		fmt.Fprintf(out, "\n  Commands:\n")
		for _, c := range entry.Commands {
			fmt.Fprintf(out, "    %-18s %s\n", c.Name, c.Description)
		}
	}

	fmt.Fprintf(out, "  %s\n\n", divider)
	return nil
}
