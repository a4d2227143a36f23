package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/rulecraft/internal/suggest"
)

func TestSearchPrintsSuggestions(t *testing.T) {
	site := newSite(t, http.StatusOK)
	cfgPath := setup(t, site.URL)
	mustRun(t, cfgPath, "marks", "toggle", "dash", "Dash")

	out := mustRun(t, cfgPath, "search", "da")

	assert.Contains(t, out, "[Da]sh")
	assert.Contains(t, out, "[Da]shing Strike")
	assert.Contains(t, out, "★")
	assert.Contains(t, out, "☆")
	assert.NotContains(t, out, "Grapple")
	assert.Contains(t, out, "View all results: "+site.URL+"/search?q=da")
}

func TestSearchJSON(t *testing.T) {
	site := newSite(t, http.StatusOK)
	cfgPath := setup(t, site.URL)

	out := mustRun(t, cfgPath, "search", "--json", "--limit", "1", "da")

	var got []suggest.Suggestion
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "dash", got[0].ID)

	out = mustRun(t, cfgPath, "search", "--json", "zz")
	assert.JSONEq(t, "[]", out)
}

func TestSearchNoResults(t *testing.T) {
	site := newSite(t, http.StatusOK)
	cfgPath := setup(t, site.URL)

	out := mustRun(t, cfgPath, "search", "zz")

	assert.Contains(t, out, "No rules found")
}

func TestSearchRejectsShortQuery(t *testing.T) {
	cfgPath := setup(t, "http://rules.test")

	_, err := run(t, cfgPath, "", "search", "d")

	assert.ErrorContains(t, err, "at least 2 characters")
}

func TestSearchReportsUnreachableSite(t *testing.T) {
	site := newSite(t, http.StatusOK)
	site.Close()
	cfgPath := setup(t, site.URL)

	_, err := run(t, cfgPath, "", "search", "dash")

	assert.ErrorContains(t, err, "search failed")
}
