package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/rulecraft/internal/config"
	"github.com/jeanpaul/rulecraft/internal/health"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the site, the search endpoint and local storage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		check := func(ok bool, pass, fail string) {
			if ok {
				printer.Success("%s", pass)
				return
			}
			printer.Error("%s", fail)
			failed++
		}

		printer.Header("Configuration")
		if cfgFile != "" {
			printer.Print("config file: %s", cfgFile)
		} else {
			printer.Print("config file: %s", describePath(config.DefaultPath()))
		}
		printer.Print("site:        %s", cfg.Site.BaseURL)
		printer.Print("storage:     %s (%s)", cfg.Storage.Path, cfg.Storage.Backend)
		printer.Print("log file:    %s", cfg.Log.File)

		printer.Header("Storage")
		e, err := openEnv(logger)
		if err != nil {
			check(false, "", err.Error())
		} else {
			defer e.Close()
			check(true, fmt.Sprintf("%d marks readable under %q", len(e.store.Entries()), cfg.Storage.Key), "")
		}

		printer.Header("Site")
		var hc *http.Client
		if e != nil {
			hc = e.http
		}
		st := health.Check(cmd.Context(), hc, cfg.Site.BaseURL)
		check(st.Reachable,
			fmt.Sprintf("%s is up (%s)", st.BaseURL, st.Latency.Round(time.Millisecond)),
			st.Error)
		if e != nil && st.Reachable {
			err := health.CheckSuggest(cmd.Context(), e.client)
			errText := ""
			if err != nil {
				errText = err.Error()
			}
			check(err == nil, "search endpoint answers", errText)
		}

		if failed > 0 {
			return fmt.Errorf("%d checks failed", failed)
		}
		return nil
	},
}

func describePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path + " (not found, using defaults)"
	}
	return path
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
