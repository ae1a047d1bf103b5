package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	r := SearchRequest{Query: "q"}
	r.ApplyDefaults()

	assert.Equal(t, StrategyHuman, r.SearchStrategy)
	assert.Equal(t, QueryVerbatim, r.QueryStrategy)
	assert.Equal(t, DefaultMaxResultsToVisit, r.MaxResultsToVisit)
	assert.Equal(t, FormatAnswer, r.ResultFormat)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	r := SearchRequest{
		Query:             "q",
		SearchStrategy:    StrategyParallel,
		QueryStrategy:     QuerySingle,
		MaxResultsToVisit: 3,
		ResultFormat:      FormatNewsArticle,
	}
	r.ApplyDefaults()

	assert.Equal(t, StrategyParallel, r.SearchStrategy)
	assert.Equal(t, QuerySingle, r.QueryStrategy)
	assert.Equal(t, 3, r.MaxResultsToVisit)
	assert.Equal(t, FormatNewsArticle, r.ResultFormat)
}

func TestValidate(t *testing.T) {
	valid := SearchRequest{Query: "q"}
	valid.ApplyDefaults()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*SearchRequest)
		field  string
	}{
		{"empty query", func(r *SearchRequest) { r.Query = "  " }, "query"},
		{"unknown search strategy", func(r *SearchRequest) { r.SearchStrategy = "bfs" }, "search_strategy"},
		{"unknown query strategy", func(r *SearchRequest) { r.QueryStrategy = "fuzzy" }, "query_strategy"},
		{"unknown result format", func(r *SearchRequest) { r.ResultFormat = "poem" }, "result_format"},
		{"custom format without description", func(r *SearchRequest) { r.ResultFormat = FormatCustom }, "custom_result_format_description"},
		{"non-positive max results", func(r *SearchRequest) { r.MaxResultsToVisit = -1 }, "max_results_to_visit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := valid
			tc.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestCustomFormatWithDescriptionIsValid(t *testing.T) {
	r := SearchRequest{
		Query:                         "q",
		ResultFormat:                  FormatCustom,
		CustomResultFormatDescription: "a haiku per finding",
	}
	r.ApplyDefaults()
	assert.NoError(t, r.Validate())
}

func TestAllowedByFilters(t *testing.T) {
	t.Run("no filters admits everything", func(t *testing.T) {
		assert.True(t, AllowedByFilters("https://example.org/a", nil, nil))
	})

	t.Run("whitelist narrows first", func(t *testing.T) {
		wl := []string{"example.org"}
		assert.True(t, AllowedByFilters("https://example.org/a", wl, nil))
		assert.True(t, AllowedByFilters("https://docs.example.org/a", wl, nil), "subdomains match")
		assert.False(t, AllowedByFilters("https://other.net/a", wl, nil))
	})

	t.Run("blacklist removes from the remainder", func(t *testing.T) {
		wl := []string{"example.org"}
		bl := []string{"ads.example.org"}
		assert.True(t, AllowedByFilters("https://example.org/a", wl, bl))
		assert.False(t, AllowedByFilters("https://ads.example.org/a", wl, bl),
			"blacklist wins over a whitelist match")
	})

	t.Run("blacklist alone", func(t *testing.T) {
		bl := []string{"spam.net"}
		assert.False(t, AllowedByFilters("https://spam.net/x", nil, bl))
		assert.False(t, AllowedByFilters("https://www.spam.net/x", nil, bl))
		assert.True(t, AllowedByFilters("https://ham.net/x", nil, bl))
	})

	t.Run("unparseable url is rejected", func(t *testing.T) {
		assert.False(t, AllowedByFilters("::not-a-url", nil, nil))
	})
}
