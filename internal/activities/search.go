package activities

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/metrics"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
	"github.com/scour-ai/scour/internal/searx"
)

// SynthesizeQueries produces the search queries for a request. The
// verbatim strategy never consults the oracle; the others do, and fall
// back to the verbatim query if the oracle cannot help, so query
// synthesis alone never fails a search.
func (a *Activities) SynthesizeQueries(ctx context.Context, in SynthesizeQueriesInput) (SynthesizeQueriesResult, error) {
	if in.QueryStrategy == models.QueryVerbatim {
		return SynthesizeQueriesResult{Queries: []string{in.Query}}, nil
	}

	start := time.Now()
	out, err := a.oracle.SynthesizeQueries(ctx, oracle.SynthesizeInput{
		Query:    in.Query,
		Strategy: string(in.QueryStrategy),
	})
	metrics.OracleRequestDuration.WithLabelValues(oracle.OpSynthesizeQueries).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(oracle.OpSynthesizeQueries, "error").Inc()
		a.logger.Warn("Query synthesis failed, using query verbatim",
			zap.String("strategy", string(in.QueryStrategy)),
			zap.Error(err),
		)
		return SynthesizeQueriesResult{Queries: []string{in.Query}}, nil
	}
	metrics.OracleRequests.WithLabelValues(oracle.OpSynthesizeQueries, "ok").Inc()

	queries := out.Queries
	if in.QueryStrategy == models.QuerySingle && len(queries) > 1 {
		queries = queries[:1]
	}
	return SynthesizeQueriesResult{Queries: queries, Reasoning: out.Reasoning}, nil
}

// Search runs one query against the search backend and filters the
// candidates through the URL whitelist and blacklist.
func (a *Activities) Search(ctx context.Context, in SearchInput) (SearchOutput, error) {
	query := searx.BuildSiteQuery(in.Query, in.Whitelist, in.Blacklist)

	results, err := a.searx.Search(ctx, query, in.MaxResults)
	if err != nil {
		metrics.SearchBackendRequests.WithLabelValues("error").Inc()
		return SearchOutput{}, err
	}
	metrics.SearchBackendRequests.WithLabelValues("ok").Inc()

	// The site: operators bias the backend, but filtering is enforced
	// here regardless of what the backend returned.
	filtered := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if !models.AllowedByFilters(r.URL, in.Whitelist, in.Blacklist) {
			continue
		}
		r.Query = in.Query
		filtered = append(filtered, r)
	}

	a.logger.Debug("Search completed",
		zap.String("query", in.Query),
		zap.Int("results", len(results)),
		zap.Int("after_filters", len(filtered)),
	)
	return SearchOutput{Results: filtered}, nil
}
