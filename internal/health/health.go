package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jeanpaul/rulecraft/internal/routes"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

type Status struct {
	BaseURL    string
	Reachable  bool
	StatusCode int
	Error      string
	Latency    time.Duration
}

// Check verifies that the site answers GET /health with 200.
func Check(ctx context.Context, hc *http.Client, baseURL string) Status {
	s := Status{BaseURL: baseURL}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, routes.Resolve(baseURL, routes.HealthPath), nil)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		s.Error = fmt.Sprintf("cannot reach %s: %s", baseURL, suggest.Friendly(err))
		s.Latency = time.Since(start)
		return s
	}
	defer resp.Body.Close()

	s.StatusCode = resp.StatusCode
	s.Latency = time.Since(start)
	if resp.StatusCode != http.StatusOK {
		s.Error = fmt.Sprintf("health endpoint returned HTTP %d", resp.StatusCode)
		return s
	}
	s.Reachable = true
	return s
}

// CheckSuggest runs one suggestion query to confirm the search endpoint
// decodes.
func CheckSuggest(ctx context.Context, src suggest.Source) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := src.Suggest(ctx, "ru"); err != nil {
		return fmt.Errorf("search endpoint: %s", suggest.Friendly(err))
	}
	return nil
}
