// Package page fetches site pages (rule details and full search results)
// and reduces them to Markdown for the terminal.
package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/jeanpaul/rulecraft/internal/routes"
)

const maxBody = 4 << 20

// Rule is a markable rule found on a page: every element carrying
// data-rule-id becomes one mark button.
type Rule struct {
	ID    string
	Title string
}

// Link is a rule link, typically one full search result.
type Link struct {
	Path  string
	Title string
}

type Page struct {
	Path     string
	URL      string
	Title    string
	Markdown string
	Rules    []Rule
	Links    []Link
}

type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	maxRetries int
	baseDelay  time.Duration
}

func NewFetcher(baseURL string, hc *http.Client, log *slog.Logger) *Fetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{baseURL: baseURL, httpClient: hc, log: log, maxRetries: 2, baseDelay: 250 * time.Millisecond}
}

// URL resolves a site path against the base URL.
func (f *Fetcher) URL(path string) string { return routes.Resolve(f.baseURL, path) }

// Fetch downloads path and converts its main content. Transient failures
// are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, path string) (*Page, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		p, err := f.fetch(ctx, path)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !retryable(err) || attempt == f.maxRetries {
			break
		}
		f.log.Debug("page fetch failed, retrying", "path", path, "attempt", attempt+1, "err", err)
		if err := f.backoff(ctx, attempt); err != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetch(ctx context.Context, path string) (*Page, error) {
	target := f.URL(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "rulecraft-tui/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: %w", path, &StatusError{Code: resp.StatusCode})
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	p, err := Parse(body, target)
	if err != nil {
		return nil, err
	}
	p.Path = path
	f.log.Debug("page fetched", "path", path, "rules", len(p.Rules), "links", len(p.Links))
	return p, nil
}

// Parse reduces an HTML document fetched from rawURL.
func Parse(body []byte, rawURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	p := &Page{URL: rawURL, Title: pageTitle(doc)}
	p.Rules = markableRules(doc, p.Title)
	p.Links = ruleLinks(doc)

	u, _ := url.Parse(rawURL)
	content := ""
	if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
		content = article.Content
	} else {
		content, _ = doc.Find("body").Html()
	}

	domain := ""
	if u != nil {
		domain = u.Scheme + "://" + u.Host
	}
	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(content)
	if err != nil {
		markdown = strings.TrimSpace(doc.Find("body").Text())
	}
	p.Markdown = strings.TrimSpace(markdown)
	if p.Title != "" && !strings.HasPrefix(p.Markdown, "# ") {
		p.Markdown = "# " + p.Title + "\n\n" + p.Markdown
	}
	return p, nil
}

func pageTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func markableRules(doc *goquery.Document, fallback string) []Rule {
	var out []Rule
	doc.Find("[data-rule-id]").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("data-rule-id", ""))
		if id == "" {
			return
		}
		title := strings.TrimSpace(s.AttrOr("data-rule-title", ""))
		if title == "" {
			title = fallback
		}
		out = append(out, Rule{ID: id, Title: title})
	})
	return out
}

func ruleLinks(doc *goquery.Document) []Link {
	var out []Link
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		u, err := url.Parse(href)
		if err != nil || !strings.HasPrefix(u.Path, "/rules/") || seen[u.Path] {
			return
		}
		seen[u.Path] = true
		out = append(out, Link{Path: u.Path, Title: strings.TrimSpace(s.Text())})
	})
	return out
}
