package activities

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/fetch"
	"github.com/scour-ai/scour/internal/metrics"
	"github.com/scour-ai/scour/internal/oracle"
)

// maxPageChars bounds how much page text is handed to the oracle for a
// relevance judgment.
const maxPageChars = 24000

// truncateText cuts s to at most max bytes without splitting a rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// FetchPage retrieves and cleans one candidate page. Permanent fetch
// failures (4xx, non-HTML content) come back as non-retryable errors so
// the retry policy does not waste attempts on them.
func (a *Activities) FetchPage(ctx context.Context, in FetchPageInput) (FetchPageResult, error) {
	metrics.VisitsStarted.Inc()
	start := time.Now()

	page, err := a.fetcher.Fetch(ctx, in.URL)
	metrics.VisitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VisitsCompleted.WithLabelValues("failed").Inc()
		var fe *fetch.Error
		if errors.As(err, &fe) && !fe.Retryable() {
			return FetchPageResult{}, temporal.NewNonRetryableApplicationError(
				fe.Error(), string(fe.Reason), fe)
		}
		return FetchPageResult{}, err
	}

	metrics.VisitsCompleted.WithLabelValues("succeeded").Inc()
	a.logger.Debug("Fetched page",
		zap.String("url", in.URL),
		zap.Int("chars", len(page.Text)),
	)
	return FetchPageResult{Page: page}, nil
}

// JudgeRelevance asks the oracle whether a fetched page answers the
// query, what facts it contributes, and whether the accumulated
// findings now suffice.
func (a *Activities) JudgeRelevance(ctx context.Context, in JudgeRelevanceInput) (oracle.Verdict, error) {
	page := in.Page
	page.Text = truncateText(page.Text, maxPageChars)

	start := time.Now()
	verdict, err := a.oracle.JudgeRelevance(ctx, oracle.RelevanceInput{
		Query: in.Query,
		Page: oracle.PageInput{
			URL:     page.URL,
			Title:   page.Title,
			Content: page.Text,
		},
		Findings: in.Findings,
	})
	metrics.OracleRequestDuration.WithLabelValues(oracle.OpJudgeRelevance).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OracleRequests.WithLabelValues(oracle.OpJudgeRelevance, "error").Inc()
		if errors.Is(err, oracle.ErrMalformedOutput) {
			return oracle.Verdict{}, temporal.NewNonRetryableApplicationError(
				err.Error(), "malformed_oracle_output", err)
		}
		return oracle.Verdict{}, err
	}
	metrics.OracleRequests.WithLabelValues(oracle.OpJudgeRelevance, "ok").Inc()
	return verdict, nil
}
