package strategies

import (
	"go.temporal.io/sdk/workflow"
)

// visitOutcome is sent through the results channel by each visit
// coroutine, whether or not the visit actually started.
type visitOutcome struct {
	ID      int
	Started bool
	OK      bool
}

// Parallel fans the candidates out to concurrent visits, bounded by the
// configured concurrency. The coroutines share the workflow's single
// cooperative thread, so graph and findings mutation needs no locking
// and replay stays deterministic. Findings land in visit completion
// order. Once a verdict declares the findings sufficient, or the
// deadline passes, no further visit starts; in-flight visits get the
// grace period to finish before they are cancelled.
func Parallel(ctx workflow.Context, env *Env) error {
	logger := workflow.GetLogger(ctx)
	n := env.Graph.Len()
	if n == 0 {
		return nil
	}

	semaphore := workflow.NewSemaphore(ctx, int64(env.Cfg.MaxConcurrentVisits))
	resultsChan := workflow.NewChannel(ctx)
	visitCtx, cancelVisits := workflow.WithCancel(ctx)
	defer cancelVisits()

	for id := 0; id < n; id++ {
		id := id
		workflow.Go(visitCtx, func(gctx workflow.Context) {
			if err := semaphore.Acquire(gctx, 1); err != nil {
				resultsChan.Send(gctx, visitOutcome{ID: id})
				return
			}
			defer semaphore.Release(1)

			if !admit(gctx, env) {
				resultsChan.Send(gctx, visitOutcome{ID: id})
				return
			}
			_, ok := visitOnce(gctx, env, id)
			resultsChan.Send(gctx, visitOutcome{ID: id, Started: true, OK: ok})
		})
	}

	collectOutcomes(ctx, env, resultsChan, n, cancelVisits)

	logger.Info("Parallel traversal finished",
		"visited", env.Graph.VisitedCount(),
		"findings", len(env.Findings),
		"sufficient", env.Sufficient,
		"timed_out", env.TimedOut,
	)
	return nil
}

// collectOutcomes drains the results channel. When the deadline plus
// grace period passes with visits still outstanding, it cancels them
// and keeps draining: every coroutine sends exactly one outcome, so the
// drain always terminates.
func collectOutcomes(ctx workflow.Context, env *Env, resultsChan workflow.Channel, expected int, cancelVisits workflow.CancelFunc) {
	timerCtx, cancelTimer := workflow.WithCancel(ctx)
	defer cancelTimer()

	graceAt := env.Deadline.Add(env.Cfg.GracePeriod)
	graceTimer := workflow.NewTimer(timerCtx, graceAt.Sub(workflow.Now(ctx)))

	collected := 0
	expired := false
	for collected < expected {
		selector := workflow.NewSelector(ctx)
		selector.AddReceive(resultsChan, func(c workflow.ReceiveChannel, more bool) {
			var out visitOutcome
			c.Receive(ctx, &out)
			collected++
		})
		if !expired {
			selector.AddFuture(graceTimer, func(workflow.Future) {
				expired = true
				if env.Graph.InFlightCount() > 0 {
					env.TimedOut = true
					workflow.GetLogger(ctx).Warn("Grace period expired, cancelling in-flight visits",
						"in_flight", env.Graph.InFlightCount(),
					)
				}
				cancelVisits()
			})
		}
		selector.Select(ctx)
	}
}
