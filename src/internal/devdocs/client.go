// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package devdocs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/helper/gc"
)

const (
	maxMatches      = 20
	maxContentChars = 10000
	maxPopular      = 15
	maxPerCategory  = 5
	maxBodyBytes    = 64 << 20
	publicBaseURL   = "https://devdocs.io"
)

// FallbackSlugs is returned by [Client.Available] when the instance cannot be reached.
var FallbackSlugs = []string{"python~3.12", "javascript", "node~20_lts", "go", "rust", "java~21"}

var popularPrefixes = []string{"python", "javascript", "node", "go", "rust", "java", "php", "ruby"}

// Config holds HTTP client configuration for DevDocs requests.
type Config struct {
	BaseURL   string        // e.g. http://localhost:9292
	Timeout   time.Duration // per request
	UserAgent string        // if empty, derived from Version
	Version   string
}

// Client talks to a DevDocs instance.
type Client struct {
	cfg   Config
	http  *http.Client
	cache *Cache
}

// New returns a client. cache may be nil to disable caching.
func New(cfg Config, cache *Cache) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: cache,
	}
}

// BaseURL returns the configured instance URL.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Cache returns the index cache, or nil.
func (c *Client) Cache() *Cache { return c.cache }

func (c *Client) userAgent() string {
	if c.cfg.UserAgent != "" {
		return c.cfg.UserAgent
	}
	v := c.cfg.Version
	if v == "" {
		v = "dev"
	}
	return "mcp-dev-sandbox/" + v + " (DevDocs API Client)"
}

// fetch GETs u, consulting the cache when cached is true.
func (c *Client) fetch(ctx context.Context, u, accept string, cached bool) ([]byte, error) {
	if cached && c.cache != nil {
		if data, ok := c.cache.Get(u); ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("devdocs at "+c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.NotFound("%s", u)
	case resp.StatusCode != http.StatusOK:
		return nil, apperr.Unavailable("devdocs", fmt.Errorf("%s returned status %d", u, resp.StatusCode))
	}

	data, err := gc.ReadAll(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	if cached && c.cache != nil {
		c.cache.Set(u, data)
	}
	return data, nil
}

func (c *Client) docURL(slug string, parts ...string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, "/?#") || strings.Contains(slug, "..") {
		return "", apperr.InvalidInput("invalid doc slug %q", slug)
	}
	p := strings.Join(append([]string{"docs", slug}, parts...), "/")
	return c.cfg.BaseURL + "/" + p, nil
}

// Entry is one item of a documentation index.
type Entry struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// SearchResult is returned by [Client.Search].
type SearchResult struct {
	DocSlug      string  `json:"doc_slug"`
	Query        string  `json:"query"`
	TotalMatches int     `json:"total_matches"`
	Matches      []Entry `json:"matches"`
}

// Search matches query case-insensitively against entry names and paths.
// At most 20 matches are returned; TotalMatches counts all of them.
func (c *Client) Search(ctx context.Context, slug, query string) (SearchResult, error) {
	u, err := c.docURL(slug, "index.json")
	if err != nil {
		return SearchResult{}, err
	}
	data, err := c.fetch(ctx, u, "application/json", true)
	if err != nil {
		return SearchResult{}, err
	}

	var index struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return SearchResult{}, fmt.Errorf("decode index for %s: %w", slug, err)
	}

	res := SearchResult{DocSlug: slug, Query: query, Matches: []Entry{}}
	q := strings.ToLower(query)
	for _, e := range index.Entries {
		if !strings.Contains(strings.ToLower(e.Name), q) && !strings.Contains(strings.ToLower(e.Path), q) {
			continue
		}
		res.TotalMatches++
		if len(res.Matches) < maxMatches {
			e.URL = publicBaseURL + "/" + slug + "/" + e.Path
			res.Matches = append(res.Matches, e)
		}
	}
	return res, nil
}

// Content is returned by [Client.Content].
type Content struct {
	DocSlug       string `json:"doc_slug"`
	Path          string `json:"path"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	ContentLength int    `json:"content_length"`
	Truncated     bool   `json:"truncated"`
}

// Content fetches one page and returns its visible text, truncated to 10000 characters.
func (c *Client) Content(ctx context.Context, slug, path string) (Content, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return Content{}, apperr.InvalidInput("invalid doc path %q", path)
	}
	escaped := make([]string, 0, 4)
	for _, seg := range strings.Split(strings.TrimSuffix(path, ".html"), "/") {
		escaped = append(escaped, url.PathEscape(seg))
	}
	escaped[len(escaped)-1] += ".html"

	u, err := c.docURL(slug, escaped...)
	if err != nil {
		return Content{}, err
	}
	data, err := c.fetch(ctx, u, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8", false)
	if err != nil {
		return Content{}, err
	}

	text, err := visibleText(bytes.NewReader(data))
	if err != nil {
		return Content{}, fmt.Errorf("parse %s: %w", u, err)
	}
	runes := []rune(text)
	out := Content{
		DocSlug:       slug,
		Path:          path,
		URL:           u,
		ContentLength: len(runes),
		Truncated:     len(runes) > maxContentChars,
	}
	if out.Truncated {
		runes = runes[:maxContentChars]
	}
	out.Content = string(runes)
	return out, nil
}

// Doc describes one documentation set.
type Doc struct {
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// Available is returned by [Client.Available].
type Available struct {
	TotalDocs  int              `json:"total_docs"`
	Popular    []Doc            `json:"popular_languages"`
	Categories map[string][]Doc `json:"categories"`
	Fallback   bool             `json:"fallback,omitempty"`
	Slugs      []string         `json:"popular_slugs,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Available lists documentation sets. When the instance cannot be reached it
// returns the built-in fallback list and no error.
func (c *Client) Available(ctx context.Context) Available {
	data, err := c.fetch(ctx, c.cfg.BaseURL+"/docs.json", "application/json", true)
	if err == nil {
		var docs []Doc
		if err = json.Unmarshal(data, &docs); err == nil {
			return summarize(docs)
		}
	}
	return Available{
		Fallback:   true,
		Slugs:      append([]string(nil), FallbackSlugs...),
		Popular:    []Doc{},
		Categories: map[string][]Doc{},
		Error:      err.Error(),
	}
}

func summarize(docs []Doc) Available {
	title := cases.Title(language.English)
	out := Available{
		TotalDocs:  len(docs),
		Popular:    []Doc{},
		Categories: make(map[string][]Doc),
	}
	for _, d := range docs {
		slug := strings.ToLower(d.Slug)
		for _, p := range popularPrefixes {
			if strings.Contains(slug, p) {
				if len(out.Popular) < maxPopular {
					out.Popular = append(out.Popular, d)
				}
				break
			}
		}

		category := "Other"
		if fields := strings.Fields(d.Name); len(fields) > 0 {
			category = title.String(fields[0])
		}
		if len(out.Categories[category]) < maxPerCategory {
			out.Categories[category] = append(out.Categories[category], d)
		}
	}
	return out
}
