package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/scour-ai/scour/internal/activities"
	"github.com/scour-ai/scour/internal/config"
	"github.com/scour-ai/scour/internal/fetch"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
)

// stubBackends provides deterministic activity stubs and records what
// the workflow asked of them.
type stubBackends struct {
	mu      sync.Mutex
	fetched []string

	results        []models.SearchResult
	deps           [][]int
	failURLs       map[string]bool
	retryURLs      map[string]bool
	formatFindings []models.Finding
	verdict        func(url string) oracle.Verdict
	selectNext     func(in activities.SelectNextInput) (oracle.SelectOutput, error)
	schedCfg       config.SchedulerConfig
}

func newStubBackends(numResults int) *stubBackends {
	s := &stubBackends{
		failURLs:  map[string]bool{},
		retryURLs: map[string]bool{},
		schedCfg: config.SchedulerConfig{
			MaxConcurrentVisits: 2,
			RequestTimeout:      5 * time.Minute,
			GracePeriod:         5 * time.Second,
			VisitAttempts:       1,
		},
	}
	for i := 0; i < numResults; i++ {
		s.results = append(s.results, models.SearchResult{
			Title:   fmt.Sprintf("Result %d", i),
			URL:     fmt.Sprintf("https://example.org/page-%d", i),
			Snippet: fmt.Sprintf("snippet %d", i),
		})
	}
	return s
}

func (s *stubBackends) url(i int) string { return s.results[i].URL }

func (s *stubBackends) fetchedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

func (s *stubBackends) register(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterWorkflow(AgentSearch)

	env.RegisterActivityWithOptions(
		func(ctx context.Context) (*config.SchedulerConfig, error) {
			cfg := s.schedCfg
			return &cfg, nil
		},
		activity.RegisterOptions{Name: activities.ActivityGetSchedulerConfig})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.SynthesizeQueriesInput) (activities.SynthesizeQueriesResult, error) {
			return activities.SynthesizeQueriesResult{Queries: []string{in.Query}}, nil
		},
		activity.RegisterOptions{Name: activities.ActivitySynthesizeQueries})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.SearchInput) (activities.SearchOutput, error) {
			return activities.SearchOutput{Results: s.results}, nil
		},
		activity.RegisterOptions{Name: activities.ActivitySearch})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.FetchPageInput) (activities.FetchPageResult, error) {
			s.mu.Lock()
			s.fetched = append(s.fetched, in.URL)
			s.mu.Unlock()
			if s.failURLs[in.URL] {
				return activities.FetchPageResult{}, temporal.NewNonRetryableApplicationError(
					"fetch failed", "http_status", nil)
			}
			if s.retryURLs[in.URL] {
				return activities.FetchPageResult{}, errors.New("fetch temporarily unavailable")
			}
			return activities.FetchPageResult{Page: fetch.Page{
				URL:   in.URL,
				Title: "Page",
				Text:  "body of " + in.URL,
			}}, nil
		},
		activity.RegisterOptions{Name: activities.ActivityFetchPage})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.JudgeRelevanceInput) (oracle.Verdict, error) {
			if s.verdict != nil {
				return s.verdict(in.Page.URL), nil
			}
			return oracle.Verdict{Relevant: true, Facts: []string{"fact from " + in.Page.URL}}, nil
		},
		activity.RegisterOptions{Name: activities.ActivityJudgeRelevance})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.SelectNextInput) (oracle.SelectOutput, error) {
			if s.selectNext != nil {
				return s.selectNext(in)
			}
			return oracle.SelectOutput{Index: 0}, nil
		},
		activity.RegisterOptions{Name: activities.ActivitySelectNextResult})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.BuildDependencyGraphInput) (activities.BuildDependencyGraphResult, error) {
			return activities.BuildDependencyGraphResult{Edges: s.deps}, nil
		},
		activity.RegisterOptions{Name: activities.ActivityBuildDependencyGraph})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.FormatResultInput) (activities.FormatResultOutput, error) {
			s.mu.Lock()
			s.formatFindings = append([]models.Finding(nil), in.Findings...)
			s.mu.Unlock()
			if len(in.Findings) == 0 {
				return activities.FormatResultOutput{Content: "No relevant information was found."}, nil
			}
			var facts []string
			for _, f := range in.Findings {
				facts = append(facts, f.Content)
			}
			return activities.FormatResultOutput{Title: "Answer", Content: strings.Join(facts, "\n")}, nil
		},
		activity.RegisterOptions{Name: activities.ActivityFormatResult})

	env.RegisterActivityWithOptions(
		func(ctx context.Context, in activities.RecordSearchInput) error {
			return nil
		},
		activity.RegisterOptions{Name: activities.ActivityRecordSearch})
}

func runSearch(t *testing.T, s *stubBackends, req models.SearchRequest) (SearchOutput, error) {
	t.Helper()
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()
	s.register(env)

	env.ExecuteWorkflow(AgentSearch, req)
	require.True(t, env.IsWorkflowCompleted())
	if err := env.GetWorkflowError(); err != nil {
		return SearchOutput{}, err
	}
	var out SearchOutput
	require.NoError(t, env.GetWorkflowResult(&out))
	return out, nil
}

func TestSequentialVisitsInRankOrder(t *testing.T) {
	s := newStubBackends(5)
	out, err := runSearch(t, s, models.SearchRequest{
		Query:             "what is the airspeed of an unladen swallow",
		SearchStrategy:    models.StrategySequential,
		MaxResultsToVisit: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{s.url(0), s.url(1), s.url(2)}, s.fetchedURLs())
	assert.Equal(t, 3, out.Answer.VisitedCount)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, []string{"what is the airspeed of an unladen swallow"}, out.Answer.QueriesExecuted)
	assert.True(t, out.Answer.InsufficientEvidence)
	assert.NotEmpty(t, out.Answer.Content)
	assert.Equal(t, []string{s.url(0), s.url(1), s.url(2)}, out.Answer.Sources)
}

func TestSequentialStopsOnSufficiency(t *testing.T) {
	s := newStubBackends(5)
	s.verdict = func(url string) oracle.Verdict {
		return oracle.Verdict{Relevant: true, Facts: []string{"the answer"}, Sufficient: true}
	}
	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategySequential,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{s.url(0)}, s.fetchedURLs())
	assert.Equal(t, 1, out.Answer.VisitedCount)
	assert.False(t, out.Answer.InsufficientEvidence)
}

func TestHumanFollowsOracleSelection(t *testing.T) {
	s := newStubBackends(5)
	calls := 0
	s.selectNext = func(in activities.SelectNextInput) (oracle.SelectOutput, error) {
		calls++
		if calls == 1 {
			return oracle.SelectOutput{Index: 1}, nil
		}
		return oracle.SelectOutput{Sufficient: true}, nil
	}
	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategyHuman,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{s.url(1)}, s.fetchedURLs())
	assert.Equal(t, 1, out.Answer.VisitedCount)
	assert.False(t, out.Answer.InsufficientEvidence)
	assert.Equal(t, 2, calls)
}

func TestParallelVisitsEveryCandidate(t *testing.T) {
	s := newStubBackends(4)
	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategyParallel,
	})
	require.NoError(t, err)

	assert.Len(t, s.fetchedURLs(), 4)
	assert.Equal(t, 4, out.Answer.VisitedCount)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Len(t, out.Answer.Sources, 4)
}

func TestValidationRejectsEmptyQuery(t *testing.T) {
	s := newStubBackends(2)
	_, err := runSearch(t, s, models.SearchRequest{Query: "   "})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeRequestValidation, appErr.Type())
	assert.Empty(t, s.fetchedURLs())
}

func TestParallelTreeRejectsCyclicDependencies(t *testing.T) {
	s := newStubBackends(2)
	s.deps = [][]int{{1}, {0}}
	_, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategyParallelTree,
	})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeRequestValidation, appErr.Type())
	assert.Empty(t, s.fetchedURLs(), "no page may be visited when the graph is rejected")
}

func TestParallelTreeSkipsDependentsOfFailure(t *testing.T) {
	s := newStubBackends(3)
	// page-1 depends on page-0; page-2 is independent
	s.deps = [][]int{nil, {0}, nil}
	s.failURLs[s.url(0)] = true

	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategyParallelTree,
	})
	require.NoError(t, err, "failed visits must not fail the search")

	fetched := s.fetchedURLs()
	assert.Contains(t, fetched, s.url(0))
	assert.Contains(t, fetched, s.url(2))
	assert.NotContains(t, fetched, s.url(1), "dependent of a failed task must be skipped, not visited")
	assert.Equal(t, 2, out.Answer.VisitedCount, "skipped tasks do not consume visit budget")
	assert.Equal(t, []string{s.url(2)}, out.Answer.Sources)
}

func TestParallelDeadlineCancelsInFlightVisits(t *testing.T) {
	s := newStubBackends(5)
	s.schedCfg = config.SchedulerConfig{
		MaxConcurrentVisits: 2,
		RequestTimeout:      5 * time.Second,
		GracePeriod:         1500 * time.Millisecond,
		VisitAttempts:       5,
	}
	// The last three candidates never fetch successfully: every attempt
	// fails retryably, so their visits sit in retry backoff until the
	// grace timer fires and cancels them.
	for i := 2; i < 5; i++ {
		s.retryURLs[s.url(i)] = true
	}

	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategyParallel,
	})
	require.NoError(t, err, "a timed out traversal still aggregates")

	assert.Equal(t, StatusTimedOut, out.Status)
	assert.True(t, out.Answer.TimedOut)
	assert.Equal(t, 2, out.Answer.VisitedCount, "abandoned in-flight visits consume no budget")
	assert.Equal(t, []string{s.url(0), s.url(1)}, out.Answer.Sources)
	assert.NotContains(t, s.fetchedURLs(), s.url(4), "no visit starts after the deadline")

	s.mu.Lock()
	formatted := append([]models.Finding(nil), s.formatFindings...)
	s.mu.Unlock()
	require.Len(t, formatted, 2, "aggregation sees exactly the findings gathered before the deadline")
	assert.Equal(t, s.url(0), formatted[0].SourceURL)
	assert.Equal(t, s.url(1), formatted[1].SourceURL)
}

func TestExpiredDeadlineStillAggregates(t *testing.T) {
	s := newStubBackends(3)
	s.schedCfg.RequestTimeout = 0

	out, err := runSearch(t, s, models.SearchRequest{
		Query:          "q",
		SearchStrategy: models.StrategySequential,
	})
	require.NoError(t, err)

	assert.Empty(t, s.fetchedURLs(), "no visit may start after the deadline")
	assert.True(t, out.Answer.TimedOut)
	assert.Equal(t, StatusTimedOut, out.Status)
	assert.Equal(t, 0, out.Answer.VisitedCount)
	assert.NotEmpty(t, out.Answer.Content, "a timed out search still produces an answer")
}
