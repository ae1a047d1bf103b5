package temporal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/scour-ai/scour/internal/models"
	"github.com/scour-ai/scour/internal/workflows"
)

// Runner drives AgentSearch workflows on a Temporal cluster.
type Runner struct {
	client    client.Client
	taskQueue string
	logger    *zap.Logger
}

func NewRunner(c client.Client, taskQueue string, logger *zap.Logger) *Runner {
	return &Runner{client: c, taskQueue: taskQueue, logger: logger}
}

// RunSearch starts one search workflow and blocks until it completes.
func (r *Runner) RunSearch(ctx context.Context, req models.SearchRequest) (workflows.SearchOutput, error) {
	workflowID := fmt.Sprintf("search-%s", uuid.NewString())

	run, err := r.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: r.taskQueue,
	}, workflows.AgentSearch, req)
	if err != nil {
		return workflows.SearchOutput{}, fmt.Errorf("start search workflow: %w", err)
	}
	r.logger.Info("Started search workflow",
		zap.String("workflow_id", workflowID),
		zap.String("run_id", run.GetRunID()),
	)

	var out workflows.SearchOutput
	if err := run.Get(ctx, &out); err != nil {
		return workflows.SearchOutput{}, err
	}
	return out, nil
}
