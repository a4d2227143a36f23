// Package routes builds the site paths the client talks to.
package routes

import (
	"net/url"
	"strings"
)

const (
	SuggestPath = "/api/search"
	HealthPath  = "/health"
)

// Rule returns the detail page path for a rule id.
func Rule(id string) string {
	return "/rules/" + url.PathEscape(id)
}

// Search returns the full results page path for a query.
func Search(query string) string {
	return "/search?q=" + url.QueryEscape(query)
}

// Suggest returns the suggestion endpoint path for a query.
func Suggest(query string) string {
	return SuggestPath + "?q=" + url.QueryEscape(query)
}

// Resolve joins a site base URL and a path produced by this package.
func Resolve(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
