package activities

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/db"
)

// RecordSearch persists one finished search. With no store configured
// it is a no-op; persistence never fails the search itself, so the
// caller runs this with a small retry budget and ignores the result.
func (a *Activities) RecordSearch(ctx context.Context, in RecordSearchInput) error {
	if a.store == nil {
		return nil
	}

	var answerJSON, queriesJSON json.RawMessage
	visited := 0
	if in.Answer != nil {
		b, err := json.Marshal(in.Answer)
		if err != nil {
			return err
		}
		answerJSON = b
		if qb, err := json.Marshal(in.Answer.QueriesExecuted); err == nil {
			queriesJSON = qb
		}
		visited = in.Answer.VisitedCount
	}

	rec := &db.SearchRecord{
		Query:           in.Request.Query,
		SearchStrategy:  string(in.Request.SearchStrategy),
		QueryStrategy:   string(in.Request.QueryStrategy),
		ResultFormat:    string(in.Request.ResultFormat),
		Status:          in.Status,
		VisitedCount:    visited,
		QueriesExecuted: queriesJSON,
		Answer:          answerJSON,
		StartedAt:       time.UnixMilli(in.StartedAtUnixMs),
		FinishedAt:      time.UnixMilli(in.EndedAtUnixMs),
	}
	if err := a.store.SaveSearch(ctx, rec); err != nil {
		a.logger.Warn("Failed to persist search record",
			zap.String("workflow_id", in.WorkflowID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
