package activities

import (
	"context"

	"github.com/scour-ai/scour/internal/config"
)

// GetSchedulerConfig is an activity that returns the scheduler tuning
// for one search. Workflow code cannot read config files itself without
// breaking determinism, so the values are fetched through an activity
// and recorded in history.
func GetSchedulerConfig(ctx context.Context) (*config.SchedulerConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	sc := cfg.Scheduler
	if sc.MaxConcurrentVisits < 1 {
		sc.MaxConcurrentVisits = 4
	}
	if sc.VisitAttempts < 1 {
		sc.VisitAttempts = 1
	}
	return &sc, nil
}
