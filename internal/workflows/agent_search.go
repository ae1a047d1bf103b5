package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/scour-ai/scour/internal/activities"
	"github.com/scour-ai/scour/internal/config"
	"github.com/scour-ai/scour/internal/graph"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
	"github.com/scour-ai/scour/internal/workflows/strategies"
)

// AgentSearch is the engine's single entry point: it turns a natural
// language query into search queries, searches, traverses the results
// under the requested strategy, and folds the findings into one
// aggregated answer. Partial results are still aggregated when the
// deadline passes or individual visits fail; only invalid requests and
// an unreachable search backend abort the workflow.
func AgentSearch(ctx workflow.Context, req models.SearchRequest) (SearchOutput, error) {
	logger := workflow.GetLogger(ctx)
	startedAt := workflow.Now(ctx)

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return SearchOutput{}, temporal.NewNonRetryableApplicationError(
			err.Error(), ErrTypeRequestValidation, err)
	}

	logger.Info("Starting agent search",
		"query", req.Query,
		"search_strategy", req.SearchStrategy,
		"query_strategy", req.QueryStrategy,
		"max_results_to_visit", req.MaxResultsToVisit,
	)

	// Scheduler tuning is read through an activity so the values land
	// in history and replay deterministically.
	cfgCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	var schedCfg config.SchedulerConfig
	if err := workflow.ExecuteActivity(cfgCtx, activities.ActivityGetSchedulerConfig).Get(ctx, &schedCfg); err != nil {
		return SearchOutput{}, err
	}
	deadline := startedAt.Add(schedCfg.RequestTimeout)

	octx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 2},
	})

	var synth activities.SynthesizeQueriesResult
	if err := workflow.ExecuteActivity(octx, activities.ActivitySynthesizeQueries, activities.SynthesizeQueriesInput{
		Query:         req.Query,
		QueryStrategy: req.QueryStrategy,
	}).Get(ctx, &synth); err != nil {
		return SearchOutput{}, err
	}

	sctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 90 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	byQuery := make([][]models.SearchResult, 0, len(synth.Queries))
	for _, q := range synth.Queries {
		var out activities.SearchOutput
		if err := workflow.ExecuteActivity(sctx, activities.ActivitySearch, activities.SearchInput{
			Query:      q,
			MaxResults: req.MaxResultsToVisit,
			Whitelist:  req.WhitelistedBaseURLs,
			Blacklist:  req.BlacklistedBaseURLs,
		}).Get(ctx, &out); err != nil {
			return SearchOutput{}, temporal.NewApplicationError(
				"search backend unavailable", ErrTypeBackendUnavailable, err)
		}
		byQuery = append(byQuery, out.Results)
	}
	candidates := assembleCandidates(req.QueryStrategy, byQuery, req.MaxResultsToVisit)
	logger.Info("Candidate pool assembled",
		"queries", len(synth.Queries),
		"candidates", len(candidates),
	)

	var deps [][]int
	if req.SearchStrategy == models.StrategyParallelTree && len(candidates) > 1 {
		var depRes activities.BuildDependencyGraphResult
		err := workflow.ExecuteActivity(octx, activities.ActivityBuildDependencyGraph, activities.BuildDependencyGraphInput{
			Query:      req.Query,
			Candidates: candidateRefs(candidates),
		}).Get(ctx, &depRes)
		if err != nil {
			logger.Warn("Dependency inference unavailable, running candidates independently", "error", err)
		} else {
			deps = depRes.Edges
		}
	}

	// A cyclic or malformed dependency relation is rejected before any
	// visit runs, same as a malformed request.
	g, err := graph.Build(candidates, deps)
	if err != nil {
		return SearchOutput{}, temporal.NewNonRetryableApplicationError(
			err.Error(), ErrTypeRequestValidation, err)
	}

	env := &strategies.Env{
		Request:  req,
		Cfg:      schedCfg,
		Deadline: deadline,
		Graph:    g,
	}
	if err := strategies.ForStrategy(req.SearchStrategy)(ctx, env); err != nil {
		return SearchOutput{}, err
	}

	insufficient := !env.Sufficient
	var formatted activities.FormatResultOutput
	if err := workflow.ExecuteActivity(octx, activities.ActivityFormatResult, activities.FormatResultInput{
		Query:                req.Query,
		Format:               req.ResultFormat,
		CustomDescription:    req.CustomResultFormatDescription,
		Findings:             env.Findings,
		InsufficientEvidence: insufficient,
	}).Get(ctx, &formatted); err != nil {
		return SearchOutput{}, temporal.NewApplicationError(
			"result formatting failed", ErrTypeTaskFailure, err)
	}

	answer := models.AggregatedAnswer{
		Format:               req.ResultFormat,
		Title:                formatted.Title,
		Content:              formatted.Content,
		Sources:              sourcesFrom(env.Findings),
		QueriesExecuted:      synth.Queries,
		VisitedCount:         g.VisitedCount(),
		InsufficientEvidence: insufficient,
		TimedOut:             env.TimedOut,
	}
	status := StatusCompleted
	if env.TimedOut {
		status = StatusTimedOut
	}

	// Persist the finished search without holding up the result.
	detachedCtx, _ := workflow.NewDisconnectedContext(ctx)
	dctx := workflow.WithActivityOptions(detachedCtx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 3},
	})
	workflow.ExecuteActivity(dctx, activities.ActivityRecordSearch, activities.RecordSearchInput{
		WorkflowID:      workflow.GetInfo(ctx).WorkflowExecution.ID,
		Request:         req,
		Answer:          &answer,
		Status:          status,
		StartedAtUnixMs: startedAt.UnixMilli(),
		EndedAtUnixMs:   workflow.Now(ctx).UnixMilli(),
	})

	logger.Info("Agent search completed",
		"status", status,
		"visited", answer.VisitedCount,
		"findings", len(env.Findings),
	)
	return SearchOutput{Answer: answer, Status: status}, nil
}

// assembleCandidates merges per-query result lists into one capped,
// deduplicated candidate pool. Parallel query synthesis interleaves the
// lists rank by rank so every query keeps its top results; the other
// strategies concatenate in query order.
func assembleCandidates(qs models.QueryStrategy, byQuery [][]models.SearchResult, max int) []models.SearchResult {
	if qs == models.QueryParallel {
		return graph.CapBreadthFirst(byQuery, max)
	}
	var out []models.SearchResult
	seen := make(map[string]bool)
	for _, results := range byQuery {
		for _, r := range results {
			if len(out) == max {
				return out
			}
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
		}
	}
	return out
}

func candidateRefs(candidates []models.SearchResult) []oracle.ResultRef {
	refs := make([]oracle.ResultRef, len(candidates))
	for i, c := range candidates {
		refs[i] = oracle.ResultRef{Index: i, Title: c.Title, URL: c.URL, Snippet: c.Snippet}
	}
	return refs
}

// sourcesFrom lists the distinct source URLs behind the findings, in
// first-contribution order.
func sourcesFrom(findings []models.Finding) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range findings {
		if f.SourceURL == "" || seen[f.SourceURL] {
			continue
		}
		seen[f.SourceURL] = true
		out = append(out, f.SourceURL)
	}
	return out
}
