package models

import (
	"fmt"
	"net/url"
	"strings"
)

// SearchStrategy selects the traversal policy for visiting search results.
type SearchStrategy string

const (
	StrategyHuman        SearchStrategy = "human"
	StrategyParallel     SearchStrategy = "parallel"
	StrategySequential   SearchStrategy = "sequential"
	StrategyParallelTree SearchStrategy = "parallel_tree"
)

// QueryStrategy selects how search queries are synthesized from the
// user's query before hitting the search backend.
type QueryStrategy string

const (
	QueryVerbatim   QueryStrategy = "verbatim"
	QuerySingle     QueryStrategy = "single"
	QueryParallel   QueryStrategy = "parallel"
	QuerySequential QueryStrategy = "sequential"
)

// ResultFormat selects the shape of the final aggregated answer.
type ResultFormat string

const (
	FormatAnswer          ResultFormat = "answer"
	FormatResearchSummary ResultFormat = "research_summary"
	FormatFAQArticle      ResultFormat = "faq_article"
	FormatNewsArticle     ResultFormat = "news_article"
	FormatWebpage         ResultFormat = "webpage"
	FormatCustom          ResultFormat = "custom"
)

// DefaultMaxResultsToVisit bounds page visits when the caller does not
// specify a limit.
const DefaultMaxResultsToVisit = 10

// SearchRequest is the single operation input of the engine.
type SearchRequest struct {
	Query                         string         `json:"query"`
	SearchStrategy                SearchStrategy `json:"search_strategy,omitempty"`
	QueryStrategy                 QueryStrategy  `json:"query_strategy,omitempty"`
	MaxResultsToVisit             int            `json:"max_results_to_visit,omitempty"`
	WhitelistedBaseURLs           []string       `json:"whitelisted_base_urls,omitempty"`
	BlacklistedBaseURLs           []string       `json:"blacklisted_base_urls,omitempty"`
	ResultFormat                  ResultFormat   `json:"result_format,omitempty"`
	CustomResultFormatDescription string         `json:"custom_result_format_description,omitempty"`
}

// ApplyDefaults fills omitted optional fields with their documented defaults.
func (r *SearchRequest) ApplyDefaults() {
	if r.SearchStrategy == "" {
		r.SearchStrategy = StrategyHuman
	}
	if r.QueryStrategy == "" {
		r.QueryStrategy = QueryVerbatim
	}
	if r.MaxResultsToVisit == 0 {
		r.MaxResultsToVisit = DefaultMaxResultsToVisit
	}
	if r.ResultFormat == "" {
		r.ResultFormat = FormatAnswer
	}
}

// Validate checks the request before any work is scheduled. It returns a
// *ValidationError so callers can distinguish bad input from runtime
// failures.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return &ValidationError{Field: "query", Reason: "must not be empty"}
	}
	switch r.SearchStrategy {
	case StrategyHuman, StrategyParallel, StrategySequential, StrategyParallelTree:
	default:
		return &ValidationError{Field: "search_strategy", Reason: fmt.Sprintf("unknown strategy %q", r.SearchStrategy)}
	}
	switch r.QueryStrategy {
	case QueryVerbatim, QuerySingle, QueryParallel, QuerySequential:
	default:
		return &ValidationError{Field: "query_strategy", Reason: fmt.Sprintf("unknown strategy %q", r.QueryStrategy)}
	}
	switch r.ResultFormat {
	case FormatAnswer, FormatResearchSummary, FormatFAQArticle, FormatNewsArticle, FormatWebpage:
	case FormatCustom:
		if strings.TrimSpace(r.CustomResultFormatDescription) == "" {
			return &ValidationError{Field: "custom_result_format_description", Reason: "required when result_format is custom"}
		}
	default:
		return &ValidationError{Field: "result_format", Reason: fmt.Sprintf("unknown format %q", r.ResultFormat)}
	}
	if r.MaxResultsToVisit < 1 {
		return &ValidationError{Field: "max_results_to_visit", Reason: "must be a positive integer"}
	}
	return nil
}

// ValidationError describes a malformed request, rejected before any
// scheduling begins.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// SearchResult is one ranked candidate returned by the search backend.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Query   string `json:"query,omitempty"` // synthesized query that produced this result
}

// AllowedByFilters reports whether a candidate URL survives the
// whitelist/blacklist. The whitelist narrows the candidate set first;
// the blacklist then removes from what remains. A domain entry matches
// itself and its subdomains.
func AllowedByFilters(rawURL string, whitelist, blacklist []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	if len(whitelist) > 0 {
		ok := false
		for _, base := range whitelist {
			if matchesBase(host, base) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, base := range blacklist {
		if matchesBase(host, base) {
			return false
		}
	}
	return true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func matchesBase(host, base string) bool {
	base = strings.ToLower(strings.TrimSpace(base))
	base = strings.TrimPrefix(base, "www.")
	host = strings.TrimPrefix(host, "www.")
	if base == "" {
		return false
	}
	return host == base || strings.HasSuffix(host, "."+base)
}
