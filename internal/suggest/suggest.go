// Package suggest talks to the site's suggestion endpoint.
package suggest

import "context"

// Suggestion is one autocomplete candidate returned by GET /api/search.
type Suggestion struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Excerpt  string `json:"excerpt"`
}

// Source returns suggestions for a query.
type Source interface {
	Suggest(ctx context.Context, query string) ([]Suggestion, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, query string) ([]Suggestion, error)

func (f SourceFunc) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	return f(ctx, query)
}
