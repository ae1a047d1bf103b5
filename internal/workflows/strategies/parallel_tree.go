package strategies

import (
	"go.temporal.io/sdk/workflow"
)

// ParallelTree runs the dependency-aware traversal: candidates whose
// dependencies have settled run concurrently, candidates whose
// dependencies failed are skipped transitively without consuming visit
// budget. The dependency relation was validated acyclic when the graph
// was built, so every task eventually settles or is pruned.
func ParallelTree(ctx workflow.Context, env *Env) error {
	logger := workflow.GetLogger(ctx)
	n := env.Graph.Len()
	if n == 0 {
		return nil
	}

	semaphore := workflow.NewSemaphore(ctx, int64(env.Cfg.MaxConcurrentVisits))
	resultsChan := workflow.NewChannel(ctx)
	visitCtx, cancelVisits := workflow.WithCancel(ctx)
	defer cancelVisits()

	// Set by the collector when the grace period expires; Await
	// conditions re-evaluate on every workflow state change, so blocked
	// waiters see it without any signalling machinery.
	stopped := false

	for id := 0; id < n; id++ {
		id := id
		workflow.Go(visitCtx, func(gctx workflow.Context) {
			err := workflow.Await(gctx, func() bool {
				return stopped || env.Sufficient ||
					env.Graph.State(id).Terminal() ||
					env.Graph.DepsSettled(id)
			})
			if err != nil || stopped || env.Sufficient || env.Graph.State(id).Terminal() || !env.Graph.DepsSettled(id) {
				resultsChan.Send(gctx, visitOutcome{ID: id})
				return
			}

			if err := semaphore.Acquire(gctx, 1); err != nil {
				resultsChan.Send(gctx, visitOutcome{ID: id})
				return
			}
			defer semaphore.Release(1)

			// Re-check: a dependency may have failed, or the traversal
			// stopped, while this task queued for a slot.
			if stopped || env.Graph.State(id).Terminal() || !admit(gctx, env) {
				resultsChan.Send(gctx, visitOutcome{ID: id})
				return
			}
			_, ok := visitOnce(gctx, env, id)
			resultsChan.Send(gctx, visitOutcome{ID: id, Started: true, OK: ok})
		})
	}

	collectOutcomes(ctx, env, resultsChan, n, func() {
		stopped = true
		cancelVisits()
	})

	logger.Info("Parallel tree traversal finished",
		"visited", env.Graph.VisitedCount(),
		"findings", len(env.Findings),
		"sufficient", env.Sufficient,
		"timed_out", env.TimedOut,
	)
	return nil
}
