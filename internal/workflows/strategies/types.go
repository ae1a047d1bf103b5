// Package strategies holds the traversal policies that decide which
// search results get visited, in what order, and when to stop. Each
// strategy operates on the shared task graph and appends findings in
// visit completion order; the surrounding workflow owns everything
// before (query synthesis, search, filtering) and after (formatting).
package strategies

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/scour-ai/scour/internal/config"
	"github.com/scour-ai/scour/internal/graph"
	"github.com/scour-ai/scour/internal/models"
)

// Env is the shared state one strategy run operates on. Strategies run
// inside a workflow, so all mutation happens on the single cooperative
// thread and needs no locking.
type Env struct {
	Request  models.SearchRequest
	Cfg      config.SchedulerConfig
	Deadline time.Time

	Graph    *graph.Graph
	Findings []models.Finding

	// Sufficient is latched by the first verdict that declares the
	// findings complete; no new visits are admitted afterwards.
	Sufficient bool
	// TimedOut is latched when the deadline passes before the
	// traversal finishes on its own.
	TimedOut bool
}

// Func is one traversal policy. It returns an error only for failures
// that should abort the whole search; exhausting the budget, running
// out of time, or visiting every candidate are normal terminations.
type Func func(ctx workflow.Context, env *Env) error

// ForStrategy maps a request strategy to its implementation.
func ForStrategy(s models.SearchStrategy) Func {
	switch s {
	case models.StrategyHuman:
		return Human
	case models.StrategyParallel:
		return Parallel
	case models.StrategySequential:
		return Sequential
	case models.StrategyParallelTree:
		return ParallelTree
	}
	return Human
}
