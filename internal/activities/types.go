package activities

import (
	"github.com/scour-ai/scour/internal/fetch"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
)

// SynthesizeQueriesInput turns the user query into search queries.
type SynthesizeQueriesInput struct {
	Query         string               `json:"query"`
	QueryStrategy models.QueryStrategy `json:"query_strategy"`
}

type SynthesizeQueriesResult struct {
	Queries   []string `json:"queries"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// SearchInput runs one query against the search backend.
type SearchInput struct {
	Query      string   `json:"query"`
	MaxResults int      `json:"max_results"`
	Whitelist  []string `json:"whitelist,omitempty"`
	Blacklist  []string `json:"blacklist,omitempty"`
}

type SearchOutput struct {
	Results []models.SearchResult `json:"results"`
}

// FetchPageInput fetches and cleans one candidate page.
type FetchPageInput struct {
	URL string `json:"url"`
}

type FetchPageResult struct {
	Page fetch.Page `json:"page"`
}

// JudgeRelevanceInput presents a fetched page for an oracle verdict.
type JudgeRelevanceInput struct {
	Query    string           `json:"query"`
	Page     fetch.Page       `json:"page"`
	Findings []models.Finding `json:"findings,omitempty"`
}

// SelectNextInput asks which unvisited candidate to read next.
type SelectNextInput struct {
	Query     string             `json:"query"`
	Findings  []models.Finding   `json:"findings,omitempty"`
	Visited   []oracle.ResultRef `json:"visited,omitempty"`
	Unvisited []oracle.ResultRef `json:"unvisited"`
}

// BuildDependencyGraphInput asks for a dependency relation over the
// candidate set.
type BuildDependencyGraphInput struct {
	Query      string             `json:"query"`
	Candidates []oracle.ResultRef `json:"candidates"`
}

type BuildDependencyGraphResult struct {
	Edges     [][]int `json:"edges"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// FormatResultInput folds the findings into the requested answer shape.
type FormatResultInput struct {
	Query                string              `json:"query"`
	Format               models.ResultFormat `json:"format"`
	CustomDescription    string              `json:"custom_description,omitempty"`
	Findings             []models.Finding    `json:"findings"`
	InsufficientEvidence bool                `json:"insufficient_evidence,omitempty"`
}

type FormatResultOutput struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// RecordSearchInput persists one finished search.
type RecordSearchInput struct {
	WorkflowID      string                   `json:"workflow_id"`
	Request         models.SearchRequest     `json:"request"`
	Answer          *models.AggregatedAnswer `json:"answer,omitempty"`
	Status          string                   `json:"status"`
	StartedAtUnixMs int64                    `json:"started_at_unix_ms"`
	EndedAtUnixMs   int64                    `json:"ended_at_unix_ms"`
}
