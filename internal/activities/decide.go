package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/metrics"
	"github.com/scour-ai/scour/internal/oracle"
)

// SelectNextResult asks the oracle which unvisited candidate to read
// next, or whether the findings already answer the query.
func (a *Activities) SelectNextResult(ctx context.Context, in SelectNextInput) (oracle.SelectOutput, error) {
	start := time.Now()
	out, err := a.oracle.SelectNext(ctx, oracle.SelectInput{
		Query:     in.Query,
		Findings:  in.Findings,
		Visited:   in.Visited,
		Unvisited: in.Unvisited,
	})
	metrics.OracleRequestDuration.WithLabelValues(oracle.OpSelectNext).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(oracle.OpSelectNext, "error").Inc()
		if errors.Is(err, oracle.ErrMalformedOutput) {
			return oracle.SelectOutput{}, temporal.NewNonRetryableApplicationError(
				err.Error(), "malformed_oracle_output", err)
		}
		return oracle.SelectOutput{}, err
	}
	metrics.OracleRequests.WithLabelValues(oracle.OpSelectNext, "ok").Inc()
	return out, nil
}

// BuildDependencyGraph asks the oracle for a dependency relation over
// the candidates. When the oracle cannot help, the relation degrades to
// no dependencies at all, which the caller runs as plain parallel.
func (a *Activities) BuildDependencyGraph(ctx context.Context, in BuildDependencyGraphInput) (BuildDependencyGraphResult, error) {
	start := time.Now()
	out, err := a.oracle.InferDependencies(ctx, oracle.DependencyInput{
		Query:      in.Query,
		Candidates: in.Candidates,
	})
	metrics.OracleRequestDuration.WithLabelValues(oracle.OpInferDependencies).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(oracle.OpInferDependencies, "error").Inc()
		a.logger.Warn("Dependency inference failed, running candidates independently",
			zap.Int("candidates", len(in.Candidates)),
			zap.Error(err),
		)
		return BuildDependencyGraphResult{Edges: nil}, nil
	}
	metrics.OracleRequests.WithLabelValues(oracle.OpInferDependencies, "ok").Inc()
	return BuildDependencyGraphResult{Edges: out.Edges, Reasoning: out.Reasoning}, nil
}

// FormatResult folds the accumulated findings into the requested answer
// shape. With no findings at all there is nothing to format; the answer
// states that directly without an oracle round-trip.
func (a *Activities) FormatResult(ctx context.Context, in FormatResultInput) (FormatResultOutput, error) {
	if len(in.Findings) == 0 {
		return FormatResultOutput{
			Content: fmt.Sprintf(
				"No relevant information was found for: %s",
				strings.TrimSpace(in.Query),
			),
		}, nil
	}

	start := time.Now()
	out, err := a.oracle.FormatResult(ctx, oracle.FormatInput{
		Query:                in.Query,
		Format:               string(in.Format),
		CustomDescription:    in.CustomDescription,
		Findings:             in.Findings,
		InsufficientEvidence: in.InsufficientEvidence,
	})
	metrics.OracleRequestDuration.WithLabelValues(oracle.OpFormatResult).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(oracle.OpFormatResult, "error").Inc()
		if errors.Is(err, oracle.ErrMalformedOutput) {
			return FormatResultOutput{}, temporal.NewNonRetryableApplicationError(
				err.Error(), "malformed_oracle_output", err)
		}
		return FormatResultOutput{}, err
	}
	metrics.OracleRequests.WithLabelValues(oracle.OpFormatResult, "ok").Inc()
	return FormatResultOutput{Title: out.Title, Content: out.Content}, nil
}
