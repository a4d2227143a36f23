package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/rulecraft/internal/suggest"
)

var siteRules = []suggest.Suggestion{
	{ID: "dash", Title: "Dash", Category: "Actions", Excerpt: "Double your speed until the end of the turn."},
	{ID: "dashing-strike", Title: "Dashing Strike", Category: "Feats", Excerpt: "Dash then attack."},
	{ID: "grapple", Title: "Grapple", Category: "Actions", Excerpt: "Seize a creature."},
}

// newSite serves the suggestion and health endpoints. healthStatus is the
// code /health answers with.
func newSite(t *testing.T, healthStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(healthStatus)
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		out := []suggest.Suggestion{}
		for _, s := range siteRules {
			if strings.Contains(strings.ToLower(s.Title), q) {
				out = append(out, s)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// setup isolates the XDG directories and the working directory and writes
// a config pointing at baseURL. It returns the config path.
func setup(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Setenv("NO_COLOR", "1")
	t.Chdir(dir)

	path := filepath.Join(dir, "rulecraft.yaml")
	doc := "site:\n  base_url: " + baseURL + "\n  timeout: 2s\nsearch:\n  rate_per_sec: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

type result struct {
	out, err string
}

// run executes the CLI with args against the config at cfgPath, feeding
// stdin to prompts.
func run(t *testing.T, cfgPath, stdin string, args ...string) (result, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return result{out: out.String(), err: errb.String()}, err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	res, err := run(t, cfgPath, "", args...)
	require.NoError(t, err, "rulecraft %s\nstderr: %s", strings.Join(args, " "), res.err)
	return res.out
}
