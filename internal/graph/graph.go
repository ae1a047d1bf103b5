package graph

import (
	"fmt"

	"github.com/scour-ai/scour/internal/models"
)

// TaskState is the lifecycle state of one visit task.
type TaskState int

const (
	StatePending TaskState = iota
	StateReady
	StateInFlight
	StateSucceeded
	StateFailed
	StateSkipped
)

func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether the state is one a task never leaves.
func (s TaskState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Task is one scheduled page-visit unit. Tasks are owned by the Graph
// that created them and addressed by index.
type Task struct {
	ID       int
	Result   models.SearchResult
	Deps     []int
	State    TaskState
	Attempts int
}

// Transition records one state change, in the order it happened.
// The trace is what scheduler safety tests inspect.
type Transition struct {
	Task int
	From TaskState
	To   TaskState
}

// Graph is the DAG (or flat set) of visit tasks for one request.
// It is not safe for use from multiple OS threads; inside a workflow the
// cooperative scheduler serializes all access.
type Graph struct {
	tasks      []Task
	dependents [][]int
	trace      []Transition
}

// ErrCycle is returned when a proposed dependency relation contains a
// cycle. Detected at construction, before any task runs.
type ErrCycle struct {
	Remaining int
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("dependency graph contains a cycle (%d unresolvable tasks)", e.Remaining)
}

// Build constructs a graph from ranked candidates and a dependency
// relation (deps[i] lists the task indices task i depends on). It
// rejects out-of-range references and cycles.
func Build(candidates []models.SearchResult, deps [][]int) (*Graph, error) {
	n := len(candidates)
	g := &Graph{
		tasks:      make([]Task, n),
		dependents: make([][]int, n),
	}
	for i, c := range candidates {
		var taskDeps []int
		if i < len(deps) {
			for _, d := range deps[i] {
				if d < 0 || d >= n {
					return nil, fmt.Errorf("task %d depends on unknown task %d", i, d)
				}
				if d == i {
					return nil, &ErrCycle{Remaining: 1}
				}
				taskDeps = append(taskDeps, d)
				g.dependents[d] = append(g.dependents[d], i)
			}
		}
		g.tasks[i] = Task{ID: i, Result: c, Deps: taskDeps, State: StatePending}
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over the dependency edges.
func (g *Graph) checkAcyclic() error {
	n := len(g.tasks)
	indegree := make([]int, n)
	for i := range g.tasks {
		indegree[i] = len(g.tasks[i].Deps)
	}
	queue := make([]int, 0, n)
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	resolved := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved++
		for _, dep := range g.dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if resolved != n {
		return &ErrCycle{Remaining: n - resolved}
	}
	return nil
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.tasks) }

// Task returns a copy of the task with the given ID.
func (g *Graph) Task(id int) Task { return g.tasks[id] }

// State returns the current state of a task.
func (g *Graph) State(id int) TaskState { return g.tasks[id].State }

// SetState transitions a task and records the transition in the trace.
func (g *Graph) SetState(id int, to TaskState) {
	from := g.tasks[id].State
	if from == to {
		return
	}
	g.tasks[id].State = to
	g.trace = append(g.trace, Transition{Task: id, From: from, To: to})
}

// RecordAttempt increments the attempt counter for a task.
func (g *Graph) RecordAttempt(id int) { g.tasks[id].Attempts++ }

// DepsSettled reports whether every dependency of the task is Succeeded
// or Skipped, i.e. the task may become Ready.
func (g *Graph) DepsSettled(id int) bool {
	for _, d := range g.tasks[id].Deps {
		s := g.tasks[d].State
		if s != StateSucceeded && s != StateSkipped {
			return false
		}
	}
	return true
}

// MarkFailed moves a task to Failed and transitively skips every
// dependent that can no longer run. Returns the IDs skipped.
func (g *Graph) MarkFailed(id int) []int {
	g.SetState(id, StateFailed)
	return g.skipDependents(id)
}

func (g *Graph) skipDependents(id int) []int {
	var skipped []int
	queue := append([]int(nil), g.dependents[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if g.tasks[next].State.Terminal() || g.tasks[next].State == StateInFlight {
			continue
		}
		g.SetState(next, StateSkipped)
		skipped = append(skipped, next)
		queue = append(queue, g.dependents[next]...)
	}
	return skipped
}

// AllTerminal reports whether every task reached a terminal state.
func (g *Graph) AllTerminal() bool {
	for i := range g.tasks {
		if !g.tasks[i].State.Terminal() {
			return false
		}
	}
	return true
}

// VisitedCount counts tasks that consumed a visit slot: Succeeded or
// Failed. Skipped tasks were never attempted and do not count.
func (g *Graph) VisitedCount() int {
	n := 0
	for i := range g.tasks {
		if s := g.tasks[i].State; s == StateSucceeded || s == StateFailed {
			n++
		}
	}
	return n
}

// InFlightCount counts tasks currently executing.
func (g *Graph) InFlightCount() int {
	n := 0
	for i := range g.tasks {
		if g.tasks[i].State == StateInFlight {
			n++
		}
	}
	return n
}

// Trace returns the ordered state transitions recorded so far.
func (g *Graph) Trace() []Transition {
	return append([]Transition(nil), g.trace...)
}

// CapBreadthFirst limits a multi-query candidate list to max entries by
// taking rank r of every query before rank r+1 of any query, so each
// query keeps its top results when the pool exceeds the cap.
func CapBreadthFirst(byQuery [][]models.SearchResult, max int) []models.SearchResult {
	var out []models.SearchResult
	seen := make(map[string]bool)
	for rank := 0; len(out) < max; rank++ {
		advanced := false
		for _, results := range byQuery {
			if rank >= len(results) {
				continue
			}
			advanced = true
			r := results[rank]
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, r)
			if len(out) == max {
				return out
			}
		}
		if !advanced {
			break
		}
	}
	return out
}
