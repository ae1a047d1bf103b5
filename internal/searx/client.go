// Package searx is the search backend adapter: a client for a SearxNG
// instance that turns a query string into a ranked list of result URLs.
package searx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/tracing"
)

// ErrSearchUnavailable means the search backend could not serve the
// query at all. This is the only search failure mode the engine
// surfaces to callers.
var ErrSearchUnavailable = errors.New("search backend unavailable")

// ResultsPerPage is how many results one searx page yields with the
// engine configuration we use; page fan-out is derived from it.
const ResultsPerPage = 8

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type searxResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

type searxResponse struct {
	Query   string        `json:"query"`
	Results []searxResult `json:"results"`
}

// Search returns up to maxResults ranked results, fetching as many
// result pages as needed.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	if maxResults < 1 {
		maxResults = models.DefaultMaxResultsToVisit
	}
	numPages := (maxResults + ResultsPerPage - 1) / ResultsPerPage

	var all []models.SearchResult
	for pageno := 1; pageno <= numPages && len(all) < maxResults; pageno++ {
		page, err := c.searchPage(ctx, query, pageno)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			if len(all) >= maxResults {
				break
			}
			all = append(all, r)
		}
		if len(page) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) searchPage(ctx context.Context, query string, pageno int) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("language", "en")
	q.Set("engines", "google")
	q.Set("pageno", strconv.Itoa(pageno))

	ctx, span := tracing.StartHTTPSpan(ctx, http.MethodGet, c.baseURL+"/search")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	tracing.InjectTraceparent(ctx, req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrSearchUnavailable, resp.StatusCode)
	}
	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchUnavailable, err)
	}

	results := make([]models.SearchResult, 0, len(sr.Results))
	for _, r := range sr.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}
	return results, nil
}

// BuildSiteQuery augments a query with site:/-site: operators so the
// backend already biases toward the whitelist and away from the
// blacklist. The engine still filters candidates itself; this just
// avoids wasting result slots.
func BuildSiteQuery(query string, whitelist, blacklist []string) string {
	parts := []string{query}
	if len(whitelist) > 0 {
		sites := make([]string, 0, len(whitelist))
		for _, base := range whitelist {
			sites = append(sites, "site:"+base)
		}
		parts = append(parts, strings.Join(sites, " OR "))
	}
	for _, base := range blacklist {
		parts = append(parts, "-site:"+base)
	}
	return strings.Join(parts, " ")
}
