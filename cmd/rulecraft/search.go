package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/rulecraft/internal/highlight"
	"github.com/jeanpaul/rulecraft/internal/output"
	"github.com/jeanpaul/rulecraft/internal/routes"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Print search suggestions for a query",
	Long: `Ask the site for suggestions the way the search box does and print them.

Matches of the query are bracketed in titles and excerpts. Marked rules are
shown with a filled star.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		query := strings.TrimSpace(strings.Join(args, " "))
		if utf8.RuneCountInString(query) < cfg.Search.MinQuery {
			return fmt.Errorf("query must be at least %d characters", cfg.Search.MinQuery)
		}

		e, err := openEnv(logger)
		if err != nil {
			return err
		}
		defer e.Close()

		items, err := e.source.Suggest(cmd.Context(), query)
		if err != nil {
			logger.Debug("suggest failed", "query", query, "err", err)
			return fmt.Errorf("search failed: %s", suggest.Friendly(err))
		}
		if limit > 0 && len(items) > limit {
			items = items[:limit]
		}

		if jsonOutput {
			if items == nil {
				items = []suggest.Suggestion{}
			}
			enc := json.NewEncoder(printer.Out())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		if len(items) == 0 {
			printer.Info("No rules found")
			return nil
		}

		table := output.NewTable(printer.Out(), []string{"", "ID", "Title", "Category", "Excerpt"})
		for _, it := range items {
			table.AddRow(
				printer.MarkBadge(e.store.IsMarked(it.ID)),
				it.ID,
				highlight.Mark(it.Title, query, "[", "]"),
				it.Category,
				highlight.Mark(clip(it.Excerpt, 60), query, "[", "]"),
			)
		}
		if err := table.Render(); err != nil {
			return err
		}
		printer.Print("View all results: %s", routes.Resolve(cfg.Site.BaseURL, routes.Search(query)))
		return nil
	},
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("json", false, "output as JSON")
	searchCmd.Flags().Int("limit", 0, "show at most this many suggestions (0 for all)")
}
