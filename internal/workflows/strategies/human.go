package strategies

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/scour-ai/scour/internal/activities"
	"github.com/scour-ai/scour/internal/graph"
	"github.com/scour-ai/scour/internal/oracle"
)

// Human mimics a person working through a results page: look at what
// is known and what is left, pick one result, read it, reconsider. At
// most one visit is in flight at any time, and the oracle may stop the
// traversal outright by declaring the findings sufficient.
func Human(ctx workflow.Context, env *Env) error {
	logger := workflow.GetLogger(ctx)
	sctx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: judgeTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	})

	for admit(ctx, env) {
		unvisited := refs(env, graph.StatePending)
		if len(unvisited) == 0 {
			break
		}

		var sel oracle.SelectOutput
		err := workflow.ExecuteActivity(sctx, activities.ActivitySelectNextResult, activities.SelectNextInput{
			Query:     env.Request.Query,
			Findings:  env.Findings,
			Visited:   refs(env, graph.StateSucceeded, graph.StateFailed),
			Unvisited: unvisited,
		}).Get(ctx, &sel)
		if err != nil {
			logger.Warn("Next-result selection failed, stopping traversal", "error", err)
			break
		}
		if sel.Sufficient {
			env.Sufficient = true
			break
		}

		// sel.Index addresses the unvisited list, not the task graph.
		visitOnce(ctx, env, unvisited[sel.Index].Index)
	}
	return nil
}
