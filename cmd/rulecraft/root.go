package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeanpaul/rulecraft/internal/autocomplete"
	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/config"
	"github.com/jeanpaul/rulecraft/internal/kv"
	"github.com/jeanpaul/rulecraft/internal/logging"
	"github.com/jeanpaul/rulecraft/internal/output"
	"github.com/jeanpaul/rulecraft/internal/page"
	"github.com/jeanpaul/rulecraft/internal/suggest"
	"github.com/jeanpaul/rulecraft/internal/tui"
)

var (
	cfgFile  string
	verbose  bool
	noColor  bool
	openPath string
	cfg      *config.Config
	logger   *slog.Logger
	printer  *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "rulecraft [query]",
	Short: "Search and bookmark Rulecraft rules from the terminal",
	Long: `rulecraft is a terminal client for a Rulecraft rules site.

Without a subcommand it starts the interactive client: type in the search box
for live suggestions, open rule pages and mark the rules you want to keep.

Example usage:
  rulecraft                     # Start the interactive client
  rulecraft grapple             # Start with a query in the search box
  rulecraft search dash         # Print suggestions for a query
  rulecraft marks list          # List saved marks
  rulecraft doctor              # Check the site and local storage`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	Args: cobra.ArbitraryArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/rulecraft/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.Flags().StringVar(&openPath, "open", "", "site path to open on start, e.g. /rules/grapple")
}

// initConfig loads the configuration and sets up the CLI logger and printer.
func initConfig(cmd *cobra.Command) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger = logging.New(cmd.ErrOrStderr(), level)

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger = logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	printer = output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noColor && output.UseColors())

	logger.Debug("configuration loaded",
		"base_url", cfg.Site.BaseURL,
		"storage", cfg.Storage.Backend,
		"storage_path", cfg.Storage.Path,
	)
	return nil
}

// env holds the long-lived pieces a command works with.
type env struct {
	kv     kv.Store
	store  *bookmarks.Store
	client *suggest.Client
	source suggest.Source
	pages  *page.Fetcher
	http   *http.Client
}

func openEnv(log *slog.Logger) (*env, error) {
	backing, err := kv.Open(cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	hc := &http.Client{Timeout: cfg.Site.Timeout}
	client := suggest.NewClient(cfg.Site.BaseURL,
		suggest.WithHTTPClient(hc),
		suggest.WithRateLimit(cfg.Search.RatePerSec, cfg.Search.Burst),
		suggest.WithClientLogger(log),
	)
	return &env{
		kv: backing,
		store: bookmarks.New(backing,
			bookmarks.WithKey(cfg.Storage.Key),
			bookmarks.WithProduct(cfg.Site.Product),
			bookmarks.WithLogger(log),
		),
		client: client,
		source: suggest.NewCached(client, cfg.Search.CacheSize, cfg.Search.CacheTTL),
		pages:  page.NewFetcher(cfg.Site.BaseURL, hc, log),
		http:   hc,
	}, nil
}

func (e *env) Close() error { return e.kv.Close() }

func runTUI(cmd *cobra.Command, args []string) error {
	log, closer, err := logging.OpenFile(cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	e, err := openEnv(log)
	if err != nil {
		return err
	}
	defer e.Close()

	m := tui.New(tui.Options{
		Store:  e.store,
		Source: e.source,
		Pages:  e.pages,
		Search: autocomplete.Options{
			Debounce:    cfg.Search.Debounce,
			MinQueryLen: cfg.Search.MinQuery,
			BlurGrace:   cfg.Search.BlurGrace,
			Logger:      log,
		},
		Theme:   cfg.Theme,
		BaseURL: cfg.Site.BaseURL,
		Logger:  log,
		Query:   strings.Join(args, " "),
		Path:    openPath,
	})
	defer m.Close()

	log.Info("starting", "version", version, "base_url", cfg.Site.BaseURL)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running interface: %w", err)
	}
	return nil
}
