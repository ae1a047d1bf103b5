package strategies

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/scour-ai/scour/internal/activities"
	"github.com/scour-ai/scour/internal/graph"
	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/oracle"
)

const (
	fetchTimeout = 90 * time.Second
	judgeTimeout = 3 * time.Minute
)

// admit reports whether another visit may start: the findings are not
// yet sufficient, the visit budget has room, and the deadline has not
// passed. Latches TimedOut on deadline expiry.
func admit(ctx workflow.Context, env *Env) bool {
	if env.Sufficient {
		return false
	}
	if env.Graph.VisitedCount()+env.Graph.InFlightCount() >= env.Request.MaxResultsToVisit {
		return false
	}
	if !workflow.Now(ctx).Before(env.Deadline) {
		env.TimedOut = true
		return false
	}
	return true
}

// visitOnce runs one task to a terminal state: fetch the page, ask for
// a verdict, fold the facts into the findings. Returns the verdict and
// whether the visit succeeded. On failure the task's dependents are
// transitively skipped.
func visitOnce(ctx workflow.Context, env *Env, id int) (oracle.Verdict, bool) {
	logger := workflow.GetLogger(ctx)
	g := env.Graph
	candidate := g.Task(id).Result

	g.SetState(id, graph.StateReady)
	g.SetState(id, graph.StateInFlight)
	g.RecordAttempt(id)

	fctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: fetchTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: int32(env.Cfg.VisitAttempts),
		},
	})
	var fetched activities.FetchPageResult
	err := workflow.ExecuteActivity(fctx, activities.ActivityFetchPage, activities.FetchPageInput{
		URL: candidate.URL,
	}).Get(ctx, &fetched)
	if err != nil {
		if abandonOnCancel(ctx, env, id, err) {
			return oracle.Verdict{}, false
		}
		logger.Warn("Page fetch failed",
			"task_id", id,
			"url", candidate.URL,
			"error", err,
		)
		failTask(ctx, env, id)
		return oracle.Verdict{}, false
	}

	jctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: judgeTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	})
	var verdict oracle.Verdict
	err = workflow.ExecuteActivity(jctx, activities.ActivityJudgeRelevance, activities.JudgeRelevanceInput{
		Query:    env.Request.Query,
		Page:     fetched.Page,
		Findings: env.Findings,
	}).Get(ctx, &verdict)
	if err != nil {
		if abandonOnCancel(ctx, env, id, err) {
			return oracle.Verdict{}, false
		}
		logger.Warn("Relevance judgment failed",
			"task_id", id,
			"url", candidate.URL,
			"error", err,
		)
		failTask(ctx, env, id)
		return oracle.Verdict{}, false
	}

	g.SetState(id, graph.StateSucceeded)
	if verdict.Relevant {
		for _, fact := range verdict.Facts {
			env.Findings = append(env.Findings, models.Finding{
				Content:     fact,
				SourceURL:   candidate.URL,
				SourceTitle: candidate.Title,
				Query:       candidate.Query,
			})
		}
	}
	if verdict.Sufficient {
		env.Sufficient = true
	}
	return verdict, true
}

// abandonOnCancel handles a visit cut off by traversal shutdown. An
// abandoned task is Skipped, not Failed: it consumed no visit slot and
// says nothing about its dependents, unlike a genuine fetch failure.
func abandonOnCancel(ctx workflow.Context, env *Env, id int, err error) bool {
	if !temporal.IsCanceledError(err) {
		return false
	}
	env.Graph.SetState(id, graph.StateSkipped)
	workflow.GetLogger(ctx).Info("Visit abandoned at shutdown",
		"task_id", id,
		"url", env.Graph.Task(id).Result.URL,
	)
	return true
}

func failTask(ctx workflow.Context, env *Env, id int) {
	skipped := env.Graph.MarkFailed(id)
	if len(skipped) > 0 {
		workflow.GetLogger(ctx).Info("Skipped dependents of failed task",
			"task_id", id,
			"skipped", skipped,
		)
	}
}

// refs builds oracle candidate references for every task currently in
// one of the given states, in task order.
func refs(env *Env, states ...graph.TaskState) []oracle.ResultRef {
	var out []oracle.ResultRef
	for id := 0; id < env.Graph.Len(); id++ {
		s := env.Graph.State(id)
		for _, want := range states {
			if s == want {
				r := env.Graph.Task(id).Result
				out = append(out, oracle.ResultRef{
					Index:   id,
					Title:   r.Title,
					URL:     r.URL,
					Snippet: r.Snippet,
				})
				break
			}
		}
	}
	return out
}
