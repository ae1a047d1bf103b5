package activities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
	"github.com/scour-ai/scour/internal/searx"
)

// unreachableOracle is a client whose every call fails; tests use it to
// prove an activity never needed the oracle.
func unreachableOracle(t *testing.T) *oracle.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	return oracle.NewClient(srv.URL, time.Second, zap.NewNop())
}

func searxReturning(t *testing.T, urls []string) *searx.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := make([]map[string]string, 0, len(urls))
		if r.URL.Query().Get("pageno") == "1" {
			for _, u := range urls {
				results = append(results, map[string]string{"title": "t", "url": u, "content": "s"})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	}))
	t.Cleanup(srv.Close)
	return searx.NewClient(srv.URL, time.Second, zap.NewNop())
}

func TestSearchEnforcesWhitelist(t *testing.T) {
	sx := searxReturning(t, []string{
		"https://github.com/torvalds/linux",
		"https://gitlab.com/other/repo",
		"https://docs.github.com/en/actions",
		"https://example.org/a",
	})
	a := NewActivities(unreachableOracle(t), sx, nil, nil, zap.NewNop())

	out, err := a.Search(context.Background(), SearchInput{
		Query:      "kernel source",
		MaxResults: 8,
		Whitelist:  []string{"github.com"},
	})
	require.NoError(t, err)

	urls := make([]string, len(out.Results))
	for i, r := range out.Results {
		urls[i] = r.URL
	}
	assert.Equal(t, []string{
		"https://github.com/torvalds/linux",
		"https://docs.github.com/en/actions",
	}, urls, "only whitelisted domains may become candidates")
	for _, r := range out.Results {
		assert.Equal(t, "kernel source", r.Query, "results carry the query that produced them")
	}
}

func TestSearchEnforcesBlacklist(t *testing.T) {
	sx := searxReturning(t, []string{
		"https://spam.net/x",
		"https://ham.org/y",
	})
	a := NewActivities(unreachableOracle(t), sx, nil, nil, zap.NewNop())

	out, err := a.Search(context.Background(), SearchInput{
		Query:      "q",
		MaxResults: 8,
		Blacklist:  []string{"spam.net"},
	})
	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "https://ham.org/y", out.Results[0].URL)
}

func TestSynthesizeQueriesVerbatimSkipsOracle(t *testing.T) {
	a := NewActivities(unreachableOracle(t), nil, nil, nil, zap.NewNop())

	out, err := a.SynthesizeQueries(context.Background(), SynthesizeQueriesInput{
		Query:         "the question",
		QueryStrategy: models.QueryVerbatim,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"the question"}, out.Queries)
}

func TestSynthesizeQueriesFallsBackOnOracleFailure(t *testing.T) {
	a := NewActivities(unreachableOracle(t), nil, nil, nil, zap.NewNop())

	out, err := a.SynthesizeQueries(context.Background(), SynthesizeQueriesInput{
		Query:         "the question",
		QueryStrategy: models.QueryParallel,
	})
	require.NoError(t, err, "synthesis failure must not fail the search")
	assert.Equal(t, []string{"the question"}, out.Queries)
}

func TestBuildDependencyGraphDegradesToNoDeps(t *testing.T) {
	a := NewActivities(unreachableOracle(t), nil, nil, nil, zap.NewNop())

	out, err := a.BuildDependencyGraph(context.Background(), BuildDependencyGraphInput{
		Query:      "q",
		Candidates: []oracle.ResultRef{{Index: 0}, {Index: 1}},
	})
	require.NoError(t, err, "inference failure must not fail the search")
	assert.Nil(t, out.Edges)
}

func TestFormatResultWithoutFindingsSkipsOracle(t *testing.T) {
	a := NewActivities(unreachableOracle(t), nil, nil, nil, zap.NewNop())

	out, err := a.FormatResult(context.Background(), FormatResultInput{
		Query:  "the question",
		Format: models.FormatAnswer,
	})
	require.NoError(t, err)
	assert.Contains(t, out.Content, "No relevant information was found")
	assert.Contains(t, out.Content, "the question")
}
