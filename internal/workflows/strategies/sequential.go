package strategies

import (
	"go.temporal.io/sdk/workflow"
)

// Sequential visits candidates strictly in rank order, one at a time,
// until the findings are judged sufficient, the budget runs out, or
// the deadline passes. Unlike Human there is no per-step selection
// call: the ranking decides the order.
func Sequential(ctx workflow.Context, env *Env) error {
	for id := 0; id < env.Graph.Len(); id++ {
		if !admit(ctx, env) {
			break
		}
		visitOnce(ctx, env, id)
	}
	return nil
}
