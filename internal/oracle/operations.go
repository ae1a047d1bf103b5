package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/scour-ai/scour/internal/models"
)

// SynthesizeInput asks the oracle to turn one user query into one or
// more search queries.
type SynthesizeInput struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy"` // single, parallel, sequential
}

// SynthesizeOutput carries the synthesized queries and the oracle's
// reasoning (kept for diagnostics, never acted on).
type SynthesizeOutput struct {
	Reasoning string   `json:"reasoning,omitempty"`
	Queries   []string `json:"queries"`
}

// SynthesizeQueries returns at least one non-empty query or an error.
func (c *Client) SynthesizeQueries(ctx context.Context, in SynthesizeInput) (SynthesizeOutput, error) {
	var out SynthesizeOutput
	if err := c.decide(ctx, OpSynthesizeQueries, in, &out); err != nil {
		return SynthesizeOutput{}, err
	}
	var queries []string
	for _, q := range out.Queries {
		if strings.TrimSpace(q) != "" {
			queries = append(queries, strings.TrimSpace(q))
		}
	}
	if len(queries) == 0 {
		return SynthesizeOutput{}, fmt.Errorf("%w: %s: no queries", ErrMalformedOutput, OpSynthesizeQueries)
	}
	out.Queries = queries
	return out, nil
}

// PageInput is one fetched page presented for a relevance judgment.
type PageInput struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

// RelevanceInput asks the oracle to judge a page against the query and
// the findings accumulated so far.
type RelevanceInput struct {
	Query    string           `json:"query"`
	Page     PageInput        `json:"page"`
	Findings []models.Finding `json:"findings,omitempty"`
}

// Verdict is the oracle's judgment on one visited page.
type Verdict struct {
	Relevant   bool     `json:"relevant"`
	Facts      []string `json:"facts,omitempty"`
	Sufficient bool     `json:"sufficient,omitempty"`
}

func (c *Client) JudgeRelevance(ctx context.Context, in RelevanceInput) (Verdict, error) {
	var out Verdict
	if err := c.decide(ctx, OpJudgeRelevance, in, &out); err != nil {
		return Verdict{}, err
	}
	return out, nil
}

// ResultRef is a compact candidate reference shown to the oracle when
// it picks the next page or proposes dependencies.
type ResultRef struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SelectInput asks the oracle, human-style, which unvisited result to
// read next — or whether the findings already suffice.
type SelectInput struct {
	Query     string           `json:"query"`
	Findings  []models.Finding `json:"findings,omitempty"`
	Visited   []ResultRef      `json:"visited,omitempty"`
	Unvisited []ResultRef      `json:"unvisited"`
}

type SelectOutput struct {
	Index      int  `json:"index"`
	Sufficient bool `json:"sufficient,omitempty"`
}

func (c *Client) SelectNext(ctx context.Context, in SelectInput) (SelectOutput, error) {
	var out SelectOutput
	if err := c.decide(ctx, OpSelectNext, in, &out); err != nil {
		return SelectOutput{}, err
	}
	if !out.Sufficient && (out.Index < 0 || out.Index >= len(in.Unvisited)) {
		return SelectOutput{}, fmt.Errorf("%w: %s: index %d out of range [0,%d)", ErrMalformedOutput, OpSelectNext, out.Index, len(in.Unvisited))
	}
	return out, nil
}

// DependencyInput asks the oracle to emit a dependency relation over
// the candidate set for parallel_tree execution.
type DependencyInput struct {
	Query      string      `json:"query"`
	Candidates []ResultRef `json:"candidates"`
}

// DependencyOutput lists, per candidate index, the candidate indices it
// depends on. Missing entries mean no dependencies. Cycle rejection is
// the caller's job; the client only validates the index range.
type DependencyOutput struct {
	Reasoning string  `json:"reasoning,omitempty"`
	Edges     [][]int `json:"edges"`
}

func (c *Client) InferDependencies(ctx context.Context, in DependencyInput) (DependencyOutput, error) {
	var out DependencyOutput
	if err := c.decide(ctx, OpInferDependencies, in, &out); err != nil {
		return DependencyOutput{}, err
	}
	if len(out.Edges) > len(in.Candidates) {
		return DependencyOutput{}, fmt.Errorf("%w: %s: %d edge lists for %d candidates", ErrMalformedOutput, OpInferDependencies, len(out.Edges), len(in.Candidates))
	}
	for i, deps := range out.Edges {
		for _, d := range deps {
			if d < 0 || d >= len(in.Candidates) {
				return DependencyOutput{}, fmt.Errorf("%w: %s: task %d references unknown candidate %d", ErrMalformedOutput, OpInferDependencies, i, d)
			}
		}
	}
	return out, nil
}

// FormatInput asks the oracle to fold the findings into the requested
// output shape. Instruction is the format name, or the caller-provided
// description when the format is custom.
type FormatInput struct {
	Query                string           `json:"query"`
	Format               string           `json:"format"`
	CustomDescription    string           `json:"custom_description,omitempty"`
	Findings             []models.Finding `json:"findings"`
	InsufficientEvidence bool             `json:"insufficient_evidence,omitempty"`
}

type FormatOutput struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

func (c *Client) FormatResult(ctx context.Context, in FormatInput) (FormatOutput, error) {
	var out FormatOutput
	if err := c.decide(ctx, OpFormatResult, in, &out); err != nil {
		return FormatOutput{}, err
	}
	if strings.TrimSpace(out.Content) == "" {
		return FormatOutput{}, fmt.Errorf("%w: %s: empty content", ErrMalformedOutput, OpFormatResult)
	}
	// Article-style formats carry a title; when the oracle folds it into
	// the first line, split it out.
	if out.Title == "" {
		switch models.ResultFormat(in.Format) {
		case models.FormatFAQArticle, models.FormatNewsArticle, models.FormatWebpage:
			parts := strings.SplitN(out.Content, "\n", 2)
			if len(parts) == 2 {
				out.Title = strings.TrimSpace(strings.TrimPrefix(parts[0], "#"))
				out.Content = strings.TrimSpace(parts[1])
			}
		}
	}
	return out, nil
}
