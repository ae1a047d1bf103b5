// Package fetch retrieves candidate pages and reduces them to readable
// text. Fetches are rate-limited per host and cached in Redis so that
// repeated requests across searches do not hammer the same origins.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scour-ai/scour/internal/metrics"
	"github.com/scour-ai/scour/internal/tracing"
)

// Reason classifies why a fetch failed; it decides whether a retry can
// help.
type Reason string

const (
	ReasonNetwork    Reason = "network"
	ReasonHTTPStatus Reason = "http_status"
	ReasonNotHTML    Reason = "not_html"
	ReasonEmptyBody  Reason = "empty_body"
	ReasonBadURL     Reason = "bad_url"
)

// Error is a typed fetch failure. Status is set only for ReasonHTTPStatus.
type Error struct {
	URL    string
	Reason Reason
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s: HTTP %d", e.URL, e.Reason, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
// Client errors and non-HTML bodies are permanent.
func (e *Error) Retryable() bool {
	switch e.Reason {
	case ReasonNetwork:
		return true
	case ReasonHTTPStatus:
		return e.Status >= 500 || e.Status == http.StatusTooManyRequests
	}
	return false
}

// Page is one fetched and cleaned page.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

const (
	maxBodyBytes    = 4 << 20
	defaultCacheTTL = 15 * time.Minute
	userAgent       = "Mozilla/5.0 (compatible; scour/1.0)"
)

// Fetcher fetches pages with a shared HTTP client, per-host token
// buckets, and an optional Redis page cache.
type Fetcher struct {
	httpClient *http.Client
	cache      redis.UniversalClient
	cacheTTL   time.Duration
	logger     *zap.Logger

	perHostRPS rate.Limit
	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Options tunes a Fetcher; zero values select the defaults.
type Options struct {
	Timeout    time.Duration
	PerHostRPS float64
	Cache      redis.UniversalClient
	CacheTTL   time.Duration
}

func New(opts Options, logger *zap.Logger) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PerHostRPS == 0 {
		opts.PerHostRPS = 1
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		logger:     logger,
		perHostRPS: rate.Limit(opts.PerHostRPS),
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.perHostRPS, 2)
		f.limiters[host] = l
	}
	return l
}

// Fetch retrieves a page, serving from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Page{}, &Error{URL: rawURL, Reason: ReasonBadURL, Err: err}
	}

	if cached, ok := f.cacheGet(ctx, rawURL); ok {
		metrics.PageCacheHits.Inc()
		return cached, nil
	}
	metrics.PageCacheMisses.Inc()

	if err := f.limiter(u.Hostname()).Wait(ctx); err != nil {
		return Page{}, &Error{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}

	ctx, span := tracing.StartHTTPSpan(ctx, http.MethodGet, rawURL)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Page{}, &Error{URL: rawURL, Reason: ReasonBadURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Page{}, &Error{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, &Error{URL: rawURL, Reason: ReasonHTTPStatus, Status: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text/plain") {
		return Page{}, &Error{URL: rawURL, Reason: ReasonNotHTML, Err: errors.New(ct)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &Error{URL: rawURL, Reason: ReasonNetwork, Err: err}
	}

	page, err := Extract(rawURL, string(body))
	if err != nil {
		return Page{}, err
	}

	f.cacheSet(ctx, page)
	return page, nil
}

// blacklistedTags hold no readable content; they are stripped before
// text extraction.
var blacklistedTags = []string{
	"script", "style", "noscript", "iframe", "svg",
	"nav", "header", "footer", "aside", "form", "button",
}

var collapseWS = regexp.MustCompile(`[ \t]{2,}`)
var collapseNL = regexp.MustCompile(`\n{3,}`)

// Extract reduces an HTML document to its title and readable text.
func Extract(rawURL, html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, &Error{URL: rawURL, Reason: ReasonNotHTML, Err: err}
	}
	doc.Find(strings.Join(blacklistedTags, ", ")).Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	text := normalizeText(root.Text())
	if text == "" {
		return Page{}, &Error{URL: rawURL, Reason: ReasonEmptyBody}
	}
	return Page{URL: rawURL, Title: title, Text: text}, nil
}

func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(collapseWS.ReplaceAllString(ln, " "))
	}
	out := strings.Join(lines, "\n")
	out = collapseNL.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func cacheKey(rawURL string) string { return "scour:page:" + rawURL }

func (f *Fetcher) cacheGet(ctx context.Context, rawURL string) (Page, bool) {
	if f.cache == nil {
		return Page{}, false
	}
	vals, err := f.cache.HGetAll(ctx, cacheKey(rawURL)).Result()
	if err != nil || len(vals) == 0 {
		return Page{}, false
	}
	text, ok := vals["text"]
	if !ok || text == "" {
		return Page{}, false
	}
	return Page{URL: rawURL, Title: vals["title"], Text: text}, true
}

func (f *Fetcher) cacheSet(ctx context.Context, p Page) {
	if f.cache == nil {
		return
	}
	key := cacheKey(p.URL)
	if err := f.cache.HSet(ctx, key, "title", p.Title, "text", p.Text).Err(); err != nil {
		f.logger.Debug("page cache write failed", zap.String("url", p.URL), zap.Error(err))
		return
	}
	f.cache.Expire(ctx, key, f.cacheTTL)
}
