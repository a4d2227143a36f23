package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/output"
	"github.com/jeanpaul/rulecraft/internal/routes"
)

const (
	emptyMarksNotice = "No marks yet. Click the mark button on any rule to save it."
	clearPrompt      = "Art thou certain thou wish to clear all marks?"
)

var marksCmd = &cobra.Command{
	Use:   "marks",
	Short: "Manage saved marks",
	Long: `List, toggle, remove, export and import the rules you have marked.

The marks live in the same storage the interactive client uses.`,
}

// withStore opens the storage for the duration of fn.
func withStore(fn func(*bookmarks.Store) error) error {
	e, err := openEnv(logger)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e.store)
}

type markJSON struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	AddedAt string `json:"addedAt"`
	URL     string `json:"url"`
}

var marksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved marks by title",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		return withStore(func(s *bookmarks.Store) error {
			entries := s.Entries()
			if jsonOutput {
				out := make([]markJSON, 0, len(entries))
				for _, e := range entries {
					out = append(out, markJSON{
						ID:      e.ID,
						Title:   e.Title,
						AddedAt: e.AddedAt.UTC().Format(bookmarks.TimeLayout),
						URL:     routes.Resolve(cfg.Site.BaseURL, routes.Rule(e.ID)),
					})
				}
				enc := json.NewEncoder(printer.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			if len(entries) == 0 {
				printer.Info(emptyMarksNotice)
				return nil
			}
			table := output.NewTable(printer.Out(), []string{"ID", "Title", "Added"})
			for _, e := range entries {
				table.AddRow(e.ID, e.Title, e.AddedAt.Local().Format("2006-01-02 15:04"))
			}
			if err := table.Render(); err != nil {
				return err
			}
			printer.Print("%d marks", len(entries))
			return nil
		})
	},
}

var marksToggleCmd = &cobra.Command{
	Use:   "toggle <id> [title]",
	Short: "Mark a rule, or unmark it if already marked",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		title := id
		if len(args) > 1 {
			title = args[1]
		}
		return withStore(func(s *bookmarks.Store) error {
			was := s.IsMarked(id)
			now := s.Toggle(id, title)
			switch {
			case now == was:
				return fmt.Errorf("could not save marks (see log for details)")
			case now:
				printer.Success("%s %s marked", printer.MarkBadge(true), id)
			default:
				printer.Success("%s %s unmarked", printer.MarkBadge(false), id)
			}
			return nil
		})
	},
}

var marksRemoveCmd = &cobra.Command{
	Use:     "remove <id>...",
	Aliases: []string{"rm"},
	Short:   "Remove marks by rule id",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(s *bookmarks.Store) error {
			for _, id := range args {
				if !s.IsMarked(id) {
					printer.Warning("%s is not marked", id)
					continue
				}
				s.Remove(id)
				if s.IsMarked(id) {
					return fmt.Errorf("could not remove %s (see log for details)", id)
				}
				printer.Success("Removed %s", id)
			}
			return nil
		})
	},
}

var marksClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every mark",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		return withStore(func(s *bookmarks.Store) error {
			n := len(s.Entries())
			if n == 0 {
				printer.Info(emptyMarksNotice)
				return nil
			}
			if !yes && !confirm(cmd.InOrStdin(), printer.Out(), clearPrompt) {
				printer.Info("Nothing cleared")
				return nil
			}
			s.Clear()
			if len(s.Entries()) != 0 {
				return errors.New("could not clear marks (see log for details)")
			}
			printer.Success("Cleared %d marks", n)
			return nil
		})
	},
}

// confirm asks a y/N question on in and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

var marksExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the marks to a JSON or spreadsheet file",
	Long: `Write the marks to <product>-bookmarks.json (or .xlsx with --format xlsx)
in the current directory. Use --output - to print the JSON to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		path, _ := cmd.Flags().GetString("output")

		return withStore(func(s *bookmarks.Store) error {
			switch format {
			case "json":
				data, err := s.Export()
				if err != nil {
					return err
				}
				if path == "-" {
					_, err := printer.Out().Write(append(data, '\n'))
					return err
				}
				if path == "" {
					path = s.ExportFileName()
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
			case "xlsx":
				if path == "" || path == "-" {
					path = s.XLSXFileName()
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating %s: %w", path, err)
				}
				if err := s.ExportXLSX(f, cfg.Site.BaseURL); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}
			default:
				return fmt.Errorf("unknown format %q (must be json or xlsx)", format)
			}
			printer.Success("Exported %d marks to %s", len(s.Entries()), path)
			return nil
		})
	},
}

var marksImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge marks from an exported JSON file",
	Long: `Merge marks from a JSON file written by export. Imported marks replace
saved ones with the same id; the rest are kept. With --dry-run the change is
shown as a diff and nothing is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		return withStore(func(s *bookmarks.Store) error {
			if dryRun {
				diff, err := s.PreviewImport(f)
				if err != nil {
					return importError(err)
				}
				if diff == "" {
					printer.Info("Import would change nothing")
					return nil
				}
				printer.Print("%s", strings.TrimRight(diff, "\n"))
				return nil
			}
			n, err := s.Import(f)
			if err != nil {
				return importError(err)
			}
			printer.Success("Imported %d marks", n)
			return nil
		})
	},
}

func importError(err error) error {
	if errors.Is(err, bookmarks.ErrInvalidImport) {
		logger.Debug("import rejected", "err", err)
		return fmt.Errorf("importing bookmarks: invalid JSON file: %w", err)
	}
	return fmt.Errorf("importing bookmarks: %w", err)
}

func init() {
	rootCmd.AddCommand(marksCmd)
	marksCmd.AddCommand(marksListCmd, marksToggleCmd, marksRemoveCmd, marksClearCmd, marksExportCmd, marksImportCmd)

	marksListCmd.Flags().Bool("json", false, "output as JSON")
	marksClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	marksExportCmd.Flags().String("format", "json", "output format: json or xlsx")
	marksExportCmd.Flags().StringP("output", "o", "", "output file (default <product>-bookmarks.<format>)")
	marksImportCmd.Flags().Bool("dry-run", false, "show what would change without saving")
}
